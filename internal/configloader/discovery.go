package configloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfigPaths represents discovered configuration file paths.
type ConfigPaths struct {
	// System is the system-wide config path (e.g., /etc/pawnls/config.yaml).
	System string

	// User is the user-level config path (e.g., ~/.config/pawnls/config.yaml).
	User string

	// Project is the project-level config path (e.g., ./.pawnls.yml).
	Project string

	// Explicit is a config path provided via --config flag.
	Explicit string

	// Includes is a SourceMod include directory found near the project,
	// used when no include roots are configured.
	Includes string
}

// configFiles are the project config file names, in order of preference.
//
//nolint:gochecknoglobals // Read-only lookup table.
var configFiles = []string{
	".pawnls.yml",
	".pawnls.yaml",
	"pawnls.yml",
	"pawnls.yaml",
}

// includeDirs are where SourceMod plugin trees keep the compiler includes,
// relative to a directory on the way up from the working directory.
//
//nolint:gochecknoglobals // Read-only lookup table.
var includeDirs = []string{
	"include",
	filepath.Join("scripting", "include"),
	filepath.Join("addons", "sourcemod", "scripting", "include"),
}

// vcsRootMarkers are directories that indicate a VCS root.
//
//nolint:gochecknoglobals // Read-only lookup table.
var vcsRootMarkers = []string{".git", ".hg", ".svn"}

// DiscoverPaths finds configuration files in standard locations:
//   - System config at /etc/pawnls/config.{yaml,yml}
//   - User config at $XDG_CONFIG_HOME/pawnls/config.{yaml,yml}
//   - Project config by searching upward from workDir for .pawnls.{yml,yaml}
//   - A SourceMod include directory by the same upward search
//
// Missing files are represented as empty strings (not errors).
func DiscoverPaths(ctx context.Context, workDir string) (*ConfigPaths, error) {
	paths := &ConfigPaths{
		System: findSystemConfig(),
		User:   findUserConfig(),
	}

	var err error
	paths.Project, err = FindProjectConfig(ctx, workDir)
	if err != nil {
		return nil, err
	}
	paths.Includes, err = FindIncludeDir(ctx, workDir)
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func findSystemConfig() string {
	if runtime.GOOS == "windows" {
		programData := os.Getenv("ProgramData")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return findConfigInDir(filepath.Join(programData, "pawnls"))
	}
	return findConfigInDir("/etc/pawnls")
}

func findUserConfig() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return findConfigInDir(filepath.Join(configHome, "pawnls"))
}

func findConfigInDir(dir string) string {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// FindProjectConfig searches upward from startDir for a project config file.
// Returns the path to the first config file found, or empty string if none.
// Stops at VCS roots, the home directory or the filesystem root.
func FindProjectConfig(ctx context.Context, startDir string) (string, error) {
	return walkUp(ctx, startDir, func(dir string) string {
		for _, name := range configFiles {
			if path := filepath.Join(dir, name); fileExists(path) {
				return path
			}
		}
		return ""
	})
}

// FindIncludeDir searches upward from startDir for a directory holding
// sourcemod.inc, the layout of the SourceMod scripting folder.
func FindIncludeDir(ctx context.Context, startDir string) (string, error) {
	return walkUp(ctx, startDir, func(dir string) string {
		for _, rel := range includeDirs {
			candidate := filepath.Join(dir, rel)
			if fileExists(filepath.Join(candidate, "sourcemod.inc")) {
				return candidate
			}
		}
		return ""
	})
}

// walkUp calls probe on startDir and its parents until probe returns a
// path or a boundary is reached.
func walkUp(ctx context.Context, startDir string, probe func(dir string) string) (string, error) {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		homeDir = ""
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("context cancelled: %w", err)
		}

		if found := probe(currentDir); found != "" {
			return found, nil
		}
		if isVCSRoot(currentDir) || (homeDir != "" && currentDir == homeDir) {
			return "", nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

func isVCSRoot(dir string) bool {
	for _, marker := range vcsRootMarkers {
		info, err := os.Stat(filepath.Join(dir, marker))
		if err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
