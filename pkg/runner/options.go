// Package runner checks a whole workspace in one batch: it discovers the
// source files, feeds them to an engine and collects their diagnostics.
package runner

import "github.com/yaklabco/pawnls/pkg/config"

// Options controls discovery and a batch run.
type Options struct {
	// Paths are the files or directories to check. Empty means the working
	// directory.
	Paths []string

	// WorkingDir resolves relative Paths and is the base of glob matching.
	// Empty means the process working directory.
	WorkingDir string

	// Extensions lists the source file extensions, with leading dot.
	// Empty means config.DefaultExtensions.
	Extensions []string

	// IncludeGlobs restricts discovery to matching files when non-empty.
	IncludeGlobs []string

	// ExcludeGlobs skips matching files and directories.
	ExcludeGlobs []string

	// FollowSymlinks descends into symlinked directories.
	FollowSymlinks bool

	// Sniff reads files whose extension is ambiguous, such as .inc, and
	// drops those that hold another language.
	Sniff bool

	// Config is the resolved configuration of the run.
	Config *config.Config
}

// OptionsFromConfig fills the discovery settings from cfg.
func OptionsFromConfig(cfg *config.Config, paths []string) Options {
	return Options{
		Paths:        paths,
		Extensions:   cfg.Extensions,
		ExcludeGlobs: cfg.Ignore,
		Sniff:        true,
		Config:       cfg,
	}
}

func (o Options) extensions() []string {
	if len(o.Extensions) == 0 {
		return config.DefaultExtensions
	}
	return o.Extensions
}

func (o Options) paths() []string {
	if len(o.Paths) == 0 {
		return []string{"."}
	}
	return o.Paths
}
