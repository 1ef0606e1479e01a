package configloader

import (
	"maps"
	"slices"

	"github.com/yaklabco/pawnls/pkg/config"
)

// Merge applies command-line or editor overrides to base:
//   - Scalars: override wins when non-zero
//   - Include roots: override's roots are searched first, then base's
//   - Defines: merged, override's bodies win
//   - Other lists: override replaces base when non-nil
//
// Diagnostics toggles have no command-line form and are left alone.
func Merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := base.Clone()

	if override.Jobs != 0 {
		result.Jobs = override.Jobs
	}
	if override.MaxExpansionDepth != 0 {
		result.MaxExpansionDepth = override.MaxExpansionDepth
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.MainPath != "" {
		result.MainPath = override.MainPath
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.SummaryOrder != "" {
		result.SummaryOrder = override.SummaryOrder
	}

	if len(override.IncludeRoots) > 0 {
		roots := slices.Clone(override.IncludeRoots)
		for _, root := range base.IncludeRoots {
			if !slices.Contains(roots, root) {
				roots = append(roots, root)
			}
		}
		result.IncludeRoots = roots
	}

	if len(override.Defines) > 0 {
		if result.Defines == nil {
			result.Defines = make(map[string]string, len(override.Defines))
		}
		maps.Copy(result.Defines, override.Defines)
	}

	if override.Extensions != nil {
		result.Extensions = slices.Clone(override.Extensions)
	}
	if override.Ignore != nil {
		result.Ignore = slices.Clone(override.Ignore)
	}

	return result
}
