package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/yaklabco/pawnls/pkg/langdetect"
)

// sniffBytes is how much of a file is read to tell its language.
const sniffBytes = 8 << 10

// Discover finds the source files selected by opts. It returns sorted,
// deduplicated absolute paths.
func Discover(ctx context.Context, opts Options) ([]string, error) {
	workDir, err := resolveWorkDir(opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	m, err := newMatcher(workDir, opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, input := range opts.paths() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery cancelled: %w", err)
		}

		path := input
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		path = filepath.Clean(path)

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}
		if !info.IsDir() {
			// Named files are taken as given, apart from the extension.
			if m.extension(path) {
				add(path)
			}
			continue
		}

		found, err := m.walk(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	slices.Sort(files)
	return files, nil
}

func resolveWorkDir(workDir string) (string, error) {
	if workDir == "" {
		return os.Getwd()
	}
	return filepath.Abs(workDir)
}

// matcher holds the compiled selection rules of one discovery.
type matcher struct {
	workDir string
	exts    []string
	include []glob.Glob
	exclude []glob.Glob
	follow  bool
	sniff   bool
}

func newMatcher(workDir string, opts Options) (*matcher, error) {
	m := &matcher{
		workDir: workDir,
		exts:    opts.extensions(),
		follow:  opts.FollowSymlinks,
		sniff:   opts.Sniff,
	}
	var err error
	if m.include, err = compile(opts.IncludeGlobs); err != nil {
		return nil, err
	}
	if m.exclude, err = compile(opts.ExcludeGlobs); err != nil {
		return nil, err
	}
	return m, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// matchAny matches a slash-separated relative path, or its base name for
// patterns without a directory part.
func matchAny(globs []glob.Glob, rel string) bool {
	base := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		base = rel[i+1:]
	}
	for _, g := range globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (m *matcher) rel(path string) string {
	rel, err := filepath.Rel(m.workDir, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (m *matcher) extension(path string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(m.exts, func(e string) bool { return strings.EqualFold(e, ext) })
}

func (m *matcher) skipDir(path string) bool {
	rel := m.rel(path)
	return matchAny(m.exclude, rel) || matchAny(m.exclude, rel+"/")
}

func (m *matcher) file(path string) bool {
	if !m.extension(path) {
		return false
	}
	rel := m.rel(path)
	if matchAny(m.exclude, rel) {
		return false
	}
	if len(m.include) > 0 && !matchAny(m.include, rel) {
		return false
	}
	return !m.sniff || sniff(path)
}

// sniff reports whether the head of path looks like SourcePawn. Files that
// cannot be read are kept so that loading reports the error.
func sniff(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, _ := f.Read(buf)
	return langdetect.IsSourcePawn(path, buf[:n])
}

func (m *matcher) walk(ctx context.Context, root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsPermission(walkErr) {
				return nil
			}
			return walkErr
		}

		if entry.IsDir() {
			if path != root && (strings.HasPrefix(entry.Name(), ".") || m.skipDir(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				// Broken link.
				return nil //nolint:nilerr // skipped on purpose
			}
			if info.IsDir() {
				if !m.follow {
					return nil
				}
				target, err := filepath.EvalSymlinks(path)
				if err != nil {
					return nil //nolint:nilerr // skipped on purpose
				}
				sub, err := m.walk(ctx, target)
				if err != nil {
					return err
				}
				files = append(files, sub...)
				return nil
			}
		}

		if m.file(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return files, nil
}
