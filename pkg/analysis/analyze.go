package analysis

import (
	"cmp"
	"path/filepath"
	"slices"
	"time"

	"github.com/yaklabco/pawnls/pkg/diag"
)

// ReportVersion is the current report format version.
const ReportVersion = "1.0.0"

// FileDiagnostics is the outcome of checking one file.
type FileDiagnostics struct {
	Path        string
	Diagnostics []diag.Diagnostic

	// Err is set when the file could not be checked.
	Err error
}

// makeRelativePath converts an absolute path to a relative path from workDir.
// If workDir is empty or conversion fails, returns the original path.
func makeRelativePath(absPath, workDir string) string {
	if workDir == "" {
		return absPath
	}
	relPath, err := filepath.Rel(workDir, absPath)
	if err != nil {
		return absPath
	}
	return relPath
}

// summary holds temporary state while summarizing.
type summary struct {
	codeMap   map[string]*CodeAnalysis
	fileMap   map[string]*FileAnalysis
	codeFiles map[string]map[string]bool
	fileCodes map[string]map[string]bool
}

func newSummary() *summary {
	return &summary{
		codeMap:   make(map[string]*CodeAnalysis),
		fileMap:   make(map[string]*FileAnalysis),
		codeFiles: make(map[string]map[string]bool),
		fileCodes: make(map[string]map[string]bool),
	}
}

func (s *summary) file(path string) *FileAnalysis {
	if _, ok := s.fileMap[path]; !ok {
		s.fileMap[path] = &FileAnalysis{Path: path}
		s.fileCodes[path] = make(map[string]bool)
	}
	return s.fileMap[path]
}

func (s *summary) code(d diag.Diagnostic) *CodeAnalysis {
	if _, ok := s.codeMap[d.Code]; !ok {
		s.codeMap[d.Code] = &CodeAnalysis{Code: d.Code, Source: string(d.Source)}
		s.codeFiles[d.Code] = make(map[string]bool)
	}
	return s.codeMap[d.Code]
}

// count bumps the severity counters shared by totals and groups.
func count(sev diag.Severity, errors, warnings, infos *int) {
	switch sev {
	case diag.SeverityError:
		*errors++
	case diag.SeverityWarning:
		*warnings++
	default:
		*infos++
	}
}

func entry(path string, d diag.Diagnostic) DiagnosticEntry {
	return DiagnosticEntry{
		FilePath:    path,
		Code:        d.Code,
		Source:      string(d.Source),
		Severity:    string(d.Severity),
		Message:     d.Message,
		StartLine:   d.Span.Range.Start.Line,
		StartColumn: d.Span.Range.Start.Column,
		EndLine:     d.Span.Range.End.Line,
		EndColumn:   d.Span.Range.End.Column,
		Suggestion:  d.Suggestion,
	}
}

// Summarize computes every report view in a single pass over the files.
func Summarize(files []FileDiagnostics, opts Options) *Report {
	report := &Report{
		Version:   ReportVersion,
		Timestamp: time.Now(),
	}
	s := newSummary()

	for _, file := range files {
		report.Totals.Files++
		if file.Err != nil {
			report.Totals.FilesErrored++
			continue
		}
		if len(file.Diagnostics) == 0 {
			continue
		}
		report.Totals.FilesWithIssues++

		path := makeRelativePath(file.Path, opts.WorkingDir)
		fa := s.file(path)
		for _, d := range file.Diagnostics {
			report.Totals.Issues++
			if d.Severity == diag.SeverityHint {
				report.Totals.Hints++
			} else {
				count(d.Severity, &report.Totals.Errors, &report.Totals.Warnings, &report.Totals.Infos)
			}

			fa.Issues++
			count(d.Severity, &fa.Errors, &fa.Warnings, &fa.Infos)
			s.fileCodes[path][d.Code] = true

			ca := s.code(d)
			ca.Issues++
			count(d.Severity, &ca.Errors, &ca.Warnings, &ca.Infos)
			s.codeFiles[d.Code][path] = true

			if opts.IncludeDiagnostics {
				report.Diagnostics = append(report.Diagnostics, entry(path, d))
			}
		}
	}

	if opts.IncludeByCode {
		report.ByCode = s.byCode(opts)
	}
	if opts.IncludeByFile {
		report.ByFile = s.byFile(opts)
	}
	return report
}

func (s *summary) byCode(opts Options) []CodeAnalysis {
	out := make([]CodeAnalysis, 0, len(s.codeMap))
	for code, ca := range s.codeMap {
		for f := range s.codeFiles[code] {
			ca.Files = append(ca.Files, f)
		}
		slices.Sort(ca.Files)
		out = append(out, *ca)
	}
	sortGroups(out, opts, func(c CodeAnalysis) (string, int, int, int) {
		return c.Code, c.Issues, c.Errors, c.Warnings
	})
	return out
}

func (s *summary) byFile(opts Options) []FileAnalysis {
	out := make([]FileAnalysis, 0, len(s.fileMap))
	for path, fa := range s.fileMap {
		for c := range s.fileCodes[path] {
			fa.Codes = append(fa.Codes, c)
		}
		slices.Sort(fa.Codes)
		out = append(out, *fa)
	}
	sortGroups(out, opts, func(f FileAnalysis) (string, int, int, int) {
		return f.Path, f.Issues, f.Errors, f.Warnings
	})
	return out
}

// sortGroups orders report groups; key returns name, issues, errors and
// warnings. Ties always fall back to the name so output is stable.
func sortGroups[T any](groups []T, opts Options, key func(T) (string, int, int, int)) {
	slices.SortFunc(groups, func(left, right T) int {
		ln, li, le, lw := key(left)
		rn, ri, re, rw := key(right)
		var result int
		switch opts.SortBy {
		case SortByAlpha:
			// Alphabetical sorting is always ascending (A-Z)
		case SortBySeverity:
			result = cmp.Or(cmp.Compare(re, le), cmp.Compare(rw, lw), cmp.Compare(ri, li))
		default: // SortByCount
			result = cmp.Compare(li, ri)
			if opts.SortDesc {
				result = -result
			}
		}
		return cmp.Or(result, cmp.Compare(ln, rn))
	})
}
