package analysis

// SortField orders the ByFile and ByCode groups of a Report.
type SortField string

// Group orderings. Alpha is always ascending; severity puts the groups
// with the most errors first.
const (
	SortByCount    SortField = "count"
	SortByAlpha    SortField = "alpha"
	SortBySeverity SortField = "severity"
)

// Options selects which views Summarize computes.
type Options struct {
	IncludeDiagnostics bool
	IncludeByFile      bool
	IncludeByCode      bool

	SortBy   SortField
	SortDesc bool

	// WorkingDir, when set, makes report paths relative to it.
	WorkingDir string
}

// DefaultOptions computes every view, busiest groups first.
func DefaultOptions() Options {
	return Options{
		IncludeDiagnostics: true,
		IncludeByFile:      true,
		IncludeByCode:      true,
		SortBy:             SortByCount,
		SortDesc:           true,
	}
}
