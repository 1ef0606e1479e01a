package analysis

import "time"

// Report is the precomputed view of a batch check shared by the json,
// summary and sarif renderers.
type Report struct {
	Diagnostics []DiagnosticEntry `json:"diagnostics,omitempty"`
	ByFile      []FileAnalysis    `json:"byFile,omitempty"`
	ByCode      []CodeAnalysis    `json:"byCode,omitempty"`
	Totals      Totals            `json:"summary"`
	Version     string            `json:"version"`
	Timestamp   time.Time         `json:"timestamp"`
}

// DiagnosticEntry is one diagnostic flattened for serialization. Lines
// and columns are 1-based.
type DiagnosticEntry struct {
	FilePath    string `json:"filePath"`
	Code        string `json:"code"`
	Source      string `json:"source"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Totals counts files and diagnostics across the whole run. Hints are
// kept apart from Infos here but folded into Infos in the groups.
type Totals struct {
	Files           int `json:"filesChecked"`
	FilesWithIssues int `json:"filesWithIssues"`
	FilesErrored    int `json:"filesErrored"`
	Issues          int `json:"totalIssues"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Infos           int `json:"infos"`
	Hints           int `json:"hints"`
}

// FileAnalysis groups the diagnostics of one file.
type FileAnalysis struct {
	Path     string   `json:"path"`
	Issues   int      `json:"issues"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
	Infos    int      `json:"infos"`
	Codes    []string `json:"codes,omitempty"`
}

// CodeAnalysis groups the diagnostics sharing a code.
type CodeAnalysis struct {
	Code     string   `json:"code"`
	Source   string   `json:"source"`
	Issues   int      `json:"issues"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
	Infos    int      `json:"infos"`
	Files    []string `json:"files,omitempty"`
}
