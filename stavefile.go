//go:build stave

package main

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
	"github.com/yaklabco/stave/pkg/target"
)

var Default = Build

var Aliases = map[string]any{
	"b":   Build,
	"t":   Test.Default,
	"l":   Lint.Default,
	"c":   Check,
	"i":   Install,
	"fmt": Lint.Fmt,
	"bc":  Bench.Corpus,
}

type (
	Test  st.Namespace
	Lint  st.Namespace
	CI    st.Namespace
	Bench st.Namespace
)

// goDirs are the trees gofmt and the linters look at. Reference material
// under _examples is left alone.
var goDirs = []string{"cmd", "internal", "pkg", "stavefile.go"}

// Build compiles bin/pawnls when any Go source changed.
func Build() error {
	rebuild, err := target.Dir("bin/pawnls", "cmd/", "pkg/", "internal/", "go.mod", "go.sum")
	if err != nil {
		return err
	}
	if !rebuild {
		fmt.Println("bin/pawnls is up to date")
		return nil
	}
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", "bin/pawnls", "./cmd/pawnls")
}

// Install puts pawnls in $GOBIN so editors can launch "pawnls serve".
func Install() error {
	return sh.RunV("go", "install", "-ldflags", ldflags(), "./cmd/pawnls")
}

func Check() {
	st.SerialDeps(Lint.Fmt, Lint.Default, Test.Default)
}

func Clean() error {
	for _, p := range []string{"bin", "coverage.out", "pawnls.db"} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}

// Default runs the race-enabled test suite through gotestsum.
func (Test) Default() error {
	procs := cmp.Or(os.Getenv("STAVE_NUM_PROCESSORS"), "4")
	return sh.RunV("go", "tool", "gotestsum", "-f", "pkgname-and-test-fails", "--",
		"-race", "-p", procs, "-parallel", procs,
		"-coverprofile=coverage.out", "-covermode=atomic", "./...")
}

// Fuzz runs each fuzz target for FUZZTIME (default 30s).
func (Test) Fuzz() error {
	budget := cmp.Or(os.Getenv("FUZZTIME"), "30s")
	targets := map[string]string{
		"./pkg/fsutil": "FuzzWriteThenRead",
	}
	for pkg, name := range targets {
		if err := sh.RunV("go", "test", "-run", "^$", "-fuzz", "^"+name+"$", "-fuzztime", budget, pkg); err != nil {
			return fmt.Errorf("%s %s: %w", pkg, name, err)
		}
	}
	return nil
}

// Default runs golangci-lint with auto-fix.
func (Lint) Default() error {
	return sh.RunV("golangci-lint", "run", "--fix", "./...")
}

func (Lint) Fmt() error {
	return sh.RunV("gofmt", append([]string{"-w"}, goDirs...)...)
}

// Gate is what CI runs: formatting, vet, lint without fixes, build and tests.
func (CI) Gate() error {
	out, err := sh.Output("gofmt", append([]string{"-l"}, goDirs...)...)
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("unformatted files:\n%s", out)
	}
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	if err := sh.RunV("golangci-lint", "run", "./..."); err != nil {
		return err
	}
	st.SerialDeps(Build, Test.Default)
	return nil
}

func (Bench) Default() error {
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem", "./...")
}

// Corpus times a full check and an index export of the SourceMod tree
// named by SOURCEMOD_DIR.
func (Bench) Corpus() error {
	st.Deps(Build)
	dir := os.Getenv("SOURCEMOD_DIR")
	if dir == "" {
		return errors.New("set SOURCEMOD_DIR to a SourceMod scripting directory")
	}
	include := filepath.Join(dir, "include")
	for _, args := range [][]string{
		{"check", "--format", "summary", "-I", include, dir},
		{"index", "--db", filepath.Join(os.TempDir(), "pawnls-bench.db"), "-I", include, dir},
	} {
		start := time.Now()
		// check exits non-zero when the corpus has errors; the timing still counts.
		if err := sh.RunV("bin/pawnls", args...); err != nil {
			fmt.Printf("%s: %v\n", args[0], err)
		}
		fmt.Printf("pawnls %s took %s\n", args[0], time.Since(start).Round(time.Millisecond))
	}
	return nil
}

func git(args ...string) string {
	out, err := sh.Output("git", args...)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func ldflags() string {
	return fmt.Sprintf("-X main.version=%s -X main.commit=%s -X main.date=%s",
		cmp.Or(git("describe", "--tags", "--always", "--dirty"), "dev"),
		cmp.Or(git("rev-parse", "--short", "HEAD"), "none"),
		time.Now().UTC().Format(time.RFC3339),
	)
}
