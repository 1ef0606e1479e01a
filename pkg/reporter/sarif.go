package reporter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yaklabco/pawnls/pkg/analysis"
	"github.com/yaklabco/pawnls/pkg/diag"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifHome    = "https://github.com/yaklabco/pawnls"
	sarifRootID  = "SRCROOT"
)

// SARIFOutput is a SARIF 2.1.0 log holding a single run.
type SARIFOutput struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SARIFRun `json:"runs"`
}

type SARIFRun struct {
	Tool          SARIFTool                `json:"tool"`
	BaseURIs      map[string]SARIFArtifact `json:"originalUriBaseIds,omitempty"`
	Results       []SARIFResult            `json:"results"`
	DefaultSource string                   `json:"defaultSourceLanguage,omitempty"`
}

type SARIFTool struct {
	Driver struct {
		Name           string      `json:"name"`
		Version        string      `json:"version,omitempty"`
		InformationURI string      `json:"informationUri"`
		Rules          []SARIFRule `json:"rules"`
	} `json:"driver"`
}

// SARIFRule describes one diagnostic code.
type SARIFRule struct {
	ID                   string      `json:"id"`
	ShortDescription     SARIFText   `json:"shortDescription"`
	DefaultConfiguration SARIFConfig `json:"defaultConfiguration"`
	Properties           struct {
		Tags []string `json:"tags,omitempty"`
	} `json:"properties"`
}

type SARIFConfig struct {
	Level string `json:"level"`
}

type SARIFText struct {
	Text string `json:"text"`
}

type SARIFResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SARIFText       `json:"message"`
	Locations []SARIFLocation `json:"locations"`
}

type SARIFLocation struct {
	PhysicalLocation struct {
		ArtifactLocation SARIFArtifact `json:"artifactLocation"`
		Region           SARIFRegion   `json:"region"`
	} `json:"physicalLocation"`
}

// SARIFArtifact is a file URI, relative to the run's SRCROOT when
// URIBaseID is set.
type SARIFArtifact struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

type SARIFRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// SARIFRenderer writes a report as SARIF for code scanning services.
type SARIFRenderer struct {
	opts Options
}

func NewSARIFRenderer(opts Options) *SARIFRenderer {
	return &SARIFRenderer{opts: opts}
}

func (r *SARIFRenderer) Render(_ context.Context, report *analysis.Report) error {
	bw := bufio.NewWriterSize(r.opts.Writer, bufWriterSize)
	enc := json.NewEncoder(bw)
	if !r.opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r.log(report)); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return bw.Flush()
}

func (r *SARIFRenderer) log(report *analysis.Report) *SARIFOutput {
	run := SARIFRun{
		Results:       make([]SARIFResult, 0, len(report.Diagnostics)),
		DefaultSource: "sourcepawn",
	}
	run.Tool.Driver.Name = "pawnls"
	run.Tool.Driver.Version = r.opts.ToolVersion
	run.Tool.Driver.InformationURI = sarifHome
	run.Tool.Driver.Rules = []SARIFRule{}

	baseID := ""
	if r.opts.WorkingDir != "" {
		baseID = sarifRootID
		root := filepath.ToSlash(r.opts.WorkingDir)
		if !strings.HasSuffix(root, "/") {
			root += "/"
		}
		run.BaseURIs = map[string]SARIFArtifact{sarifRootID: {URI: "file://" + root}}
	}

	// A code is described by the first message reported for it.
	rules := make(map[string]bool)
	for _, d := range report.Diagnostics {
		level := sarifLevel(diag.Severity(d.Severity))
		if !rules[d.Code] {
			rules[d.Code] = true
			rule := SARIFRule{
				ID:                   d.Code,
				ShortDescription:     SARIFText{Text: d.Message},
				DefaultConfiguration: SARIFConfig{Level: level},
			}
			if d.Source != "" {
				rule.Properties.Tags = []string{d.Source}
			}
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, rule)
		}

		text := d.Message
		if d.Suggestion != "" {
			text += " " + d.Suggestion
		}
		var loc SARIFLocation
		loc.PhysicalLocation.ArtifactLocation = SARIFArtifact{URI: filepath.ToSlash(d.FilePath), URIBaseID: baseID}
		if filepath.IsAbs(d.FilePath) {
			loc.PhysicalLocation.ArtifactLocation.URIBaseID = ""
		}
		loc.PhysicalLocation.Region = SARIFRegion{
			StartLine:   d.StartLine,
			StartColumn: d.StartColumn,
			EndLine:     d.EndLine,
			EndColumn:   d.EndColumn,
		}
		run.Results = append(run.Results, SARIFResult{
			RuleID:    d.Code,
			Level:     level,
			Message:   SARIFText{Text: text},
			Locations: []SARIFLocation{loc},
		})
	}

	return &SARIFOutput{Schema: sarifSchema, Version: sarifVersion, Runs: []SARIFRun{run}}
}

func sarifLevel(severity diag.Severity) string {
	switch severity {
	case diag.SeverityError:
		return "error"
	case diag.SeverityInfo, diag.SeverityHint:
		return "note"
	default:
		return "warning"
	}
}
