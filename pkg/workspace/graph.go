package workspace

import (
	"fmt"
	"slices"
	"strings"

	"go.lsp.dev/uri"

	"github.com/yaklabco/pawnls/pkg/diag"
	"github.com/yaklabco/pawnls/pkg/source"
)

// CodeIncludeCycle is the diagnostic code of an include cycle.
const CodeIncludeCycle = "include-cycle"

// IncludeClosure returns the files reachable from u through includes,
// nearest first. Every file is visited at most once; u itself is excluded.
func (ix *Index) IncludeClosure(u uri.URI) []uri.URI {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.closureLocked(u)
}

func (ix *Index) closureLocked(u uri.URI) []uri.URI {
	visited := map[uri.URI]bool{u: true}
	queue := []uri.URI{u}
	var out []uri.URI
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		entry := ix.files[cur]
		if entry == nil {
			continue
		}
		for _, e := range entry.edges {
			if e.To == "" || visited[e.To] {
				continue
			}
			visited[e.To] = true
			out = append(out, e.To)
			queue = append(queue, e.To)
		}
	}
	return out
}

// Dependents returns the files that include u, directly or not, nearest
// first. u itself is excluded.
func (ix *Index) Dependents(u uri.URI) []uri.URI {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	visited := map[uri.URI]bool{u: true}
	queue := []uri.URI{u}
	var out []uri.URI
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, from := range sortedKeys(ix.reverse[cur]) {
			if visited[from] {
				continue
			}
			visited[from] = true
			out = append(out, from)
			queue = append(queue, from)
		}
	}
	return out
}

// Includers returns the files that include u directly.
func (ix *Index) Includers(u uri.URI) []uri.URI {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedKeys(ix.reverse[u])
}

// Cycle is a strongly connected group of files in the include graph.
type Cycle struct {
	// Files lists the members, smallest URI first.
	Files []uri.URI

	// Closing is the edge that closes the cycle in a depth-first walk from
	// the smallest member.
	Closing Edge

	// Path is the walk from the smallest member around to it again.
	Path []uri.URI
}

// Diagnostic reports the cycle on its closing include directive.
func (c Cycle) Diagnostic() diag.Diagnostic {
	names := make([]string, len(c.Path))
	for i, u := range c.Path {
		names[i] = baseName(u)
	}
	return diag.New(diag.SourcePreprocessor, CodeIncludeCycle, c.Closing.Span,
		"include cycle: "+strings.Join(names, " -> ")).
		WithSeverity(diag.SeverityWarning).
		Build()
}

func baseName(u uri.URI) string {
	p := source.Path(u)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Cycles finds the include cycles of the workspace, one per strongly
// connected component.
func (ix *Index) Cycles() []Cycle {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	t := &tarjan{ix: ix, index: make(map[uri.URI]int), low: make(map[uri.URI]int), onStack: make(map[uri.URI]bool)}
	for _, u := range sortedKeys(ix.files) {
		if _, seen := t.index[u]; !seen {
			t.visit(u)
		}
	}

	var cycles []Cycle
	for _, scc := range t.components {
		slices.Sort(scc)
		if len(scc) == 1 && !ix.selfLoop(scc[0]) {
			continue
		}
		if c, ok := ix.closeCycle(scc); ok {
			cycles = append(cycles, c)
		}
	}
	slices.SortFunc(cycles, func(a, b Cycle) int { return strings.Compare(string(a.Files[0]), string(b.Files[0])) })
	return cycles
}

func (ix *Index) selfLoop(u uri.URI) bool {
	for _, e := range ix.files[u].edges {
		if e.To == u {
			return true
		}
	}
	return false
}

type tarjan struct {
	ix         *Index
	counter    int
	index      map[uri.URI]int
	low        map[uri.URI]int
	stack      []uri.URI
	onStack    map[uri.URI]bool
	components [][]uri.URI
}

func (t *tarjan) visit(u uri.URI) {
	t.index[u] = t.counter
	t.low[u] = t.counter
	t.counter++
	t.stack = append(t.stack, u)
	t.onStack[u] = true

	for _, e := range t.ix.files[u].edges {
		if e.To == "" || t.ix.files[e.To] == nil {
			continue
		}
		if _, seen := t.index[e.To]; !seen {
			t.visit(e.To)
			t.low[u] = min(t.low[u], t.low[e.To])
		} else if t.onStack[e.To] {
			t.low[u] = min(t.low[u], t.index[e.To])
		}
	}

	if t.low[u] != t.index[u] {
		return
	}
	var scc []uri.URI
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		scc = append(scc, top)
		if top == u {
			break
		}
	}
	t.components = append(t.components, scc)
}

// closeCycle walks the component depth-first from its smallest member and
// returns the first edge that leads back onto the walk.
func (ix *Index) closeCycle(scc []uri.URI) (Cycle, bool) {
	members := make(map[uri.URI]bool, len(scc))
	for _, u := range scc {
		members[u] = true
	}
	onPath := make(map[uri.URI]int)
	visited := make(map[uri.URI]bool)
	var path []uri.URI
	var found *Cycle

	var walk func(u uri.URI)
	walk = func(u uri.URI) {
		visited[u] = true
		onPath[u] = len(path)
		path = append(path, u)
		for _, e := range ix.files[u].edges {
			if found != nil {
				return
			}
			if !members[e.To] {
				continue
			}
			if at, ok := onPath[e.To]; ok {
				loop := append(slices.Clone(path[at:]), e.To)
				found = &Cycle{Files: scc, Closing: e, Path: loop}
				return
			}
			if !visited[e.To] {
				walk(e.To)
			}
		}
		path = path[:len(path)-1]
		delete(onPath, u)
	}
	walk(scc[0])

	if found == nil {
		return Cycle{}, false
	}
	return *found, true
}

// CycleDiagnostics groups cycle diagnostics by the file holding the
// closing directive.
func (ix *Index) CycleDiagnostics() map[uri.URI][]diag.Diagnostic {
	out := make(map[uri.URI][]diag.Diagnostic)
	for _, c := range ix.Cycles() {
		out[c.Closing.From] = append(out[c.Closing.From], c.Diagnostic())
	}
	return out
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", baseName(e.From), baseName(e.To))
}
