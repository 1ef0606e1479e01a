// Package store keeps the text and the latest analysis snapshot of every
// file in the workspace.
package store

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
	"go.lsp.dev/uri"
)

var (
	// ErrUnknownFile indicates the store holds no entry for a URI.
	ErrUnknownFile = errors.New("unknown file")

	// ErrStaleVersion indicates an editor update older than the current text.
	ErrStaleVersion = errors.New("stale version")
)

// Hash returns the content hash used to detect unchanged text.
func Hash(text string) uint64 {
	return xxh3.HashString(text)
}

// Entry is the state of one file. Text and stamps are guarded by mu, which
// writers of the snapshot also hold; readers load the snapshot without
// locking.
type Entry struct {
	URI uri.URI

	mu       sync.Mutex
	text     string
	hash     uint64
	version  int32
	revision uint64
	open     bool

	snap atomic.Pointer[Snapshot]
}

// Revision returns the entry's current revision.
func (e *Entry) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Text returns the current text with its revision and editor version.
func (e *Entry) Text() (string, uint64, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, e.revision, e.version
}

// IsOpen reports whether an editor owns the file.
func (e *Entry) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Snapshot returns the latest published snapshot, or nil.
func (e *Entry) Snapshot() *Snapshot {
	return e.snap.Load()
}

// setText installs new text and reports whether a rebuild is needed. When
// the text hash matches a snapshot of the current revision, that snapshot
// is restamped instead.
func (e *Entry) setText(text string, version int32) (uint64, bool) {
	hash := Hash(text)
	e.revision++
	e.text = text
	e.hash = hash
	e.version = version

	cur := e.snap.Load()
	if cur != nil && cur.Hash == hash && cur.Revision == e.revision-1 {
		e.snap.Store(cur.restamp(e.revision, version))
		return e.revision, false
	}
	return e.revision, true
}

// Update describes the outcome of a text change.
type Update struct {
	Revision uint64

	// Rebuild is false when the text was unchanged and the previous
	// snapshot was carried over.
	Rebuild bool
}

// Store maps URIs to entries. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[uri.URI]*Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[uri.URI]*Entry)}
}

// Entry returns the entry for u, or nil.
func (s *Store) Entry(u uri.URI) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[u]
}

func (s *Store) entry(u uri.URI) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[u]
	if e == nil {
		e = &Entry{URI: u}
		s.entries[u] = e
	}
	return e
}

// Open marks u as owned by an editor with the given text.
func (s *Store) Open(u uri.URI, text string, version int32) Update {
	e := s.entry(u)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = true
	rev, rebuild := e.setText(text, version)
	return Update{Revision: rev, Rebuild: rebuild}
}

// Update replaces the text of u. Editor versions older than the current
// one are rejected with ErrStaleVersion; version zero marks disk content
// and is accepted only while no editor owns the file.
func (s *Store) Update(u uri.URI, text string, version int32) (Update, error) {
	e := s.entry(u)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open && version < e.version {
		return Update{Revision: e.revision}, ErrStaleVersion
	}
	rev, rebuild := e.setText(text, version)
	return Update{Revision: rev, Rebuild: rebuild}, nil
}

// Close releases editor ownership of u. The entry stays so the file keeps
// contributing to the workspace; its text should be reloaded from disk.
func (s *Store) Close(u uri.URI) error {
	e := s.Entry(u)
	if e == nil {
		return ErrUnknownFile
	}
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
	return nil
}

// Remove drops u from the store.
func (s *Store) Remove(u uri.URI) {
	s.mu.Lock()
	delete(s.entries, u)
	s.mu.Unlock()
}

// Invalidate bumps the revision of u without changing its text, so the
// current snapshot reads as stale.
func (s *Store) Invalidate(u uri.URI) (uint64, error) {
	e := s.Entry(u)
	if e == nil {
		return 0, ErrUnknownFile
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revision++
	return e.revision, nil
}

// InvalidateAll invalidates every entry and returns their URIs.
func (s *Store) InvalidateAll() []uri.URI {
	uris := s.URIs()
	for _, u := range uris {
		_, _ = s.Invalidate(u)
	}
	return uris
}

// Text returns the current text of u and its revision.
func (s *Store) Text(u uri.URI) (string, uint64, error) {
	e := s.Entry(u)
	if e == nil {
		return "", 0, ErrUnknownFile
	}
	text, rev, _ := e.Text()
	return text, rev, nil
}

// Snapshot returns the latest snapshot of u, fresh or not.
func (s *Store) Snapshot(u uri.URI) *Snapshot {
	if e := s.Entry(u); e != nil {
		return e.Snapshot()
	}
	return nil
}

// GetCached returns an artifact of u's latest snapshot together with the
// revision it was computed from. fresh is false when the store has moved
// past that revision and the caller must wait for or trigger a rebuild.
func (s *Store) GetCached(u uri.URI, kind Artifact) (any, uint64, bool) {
	e := s.Entry(u)
	if e == nil {
		return nil, 0, false
	}
	snap := e.Snapshot()
	if snap == nil {
		return nil, 0, false
	}
	return snap.Artifact(kind), snap.Revision, snap.Revision == e.Revision()
}

// Publish installs snap if it was computed from the entry's current
// revision and is newer than what is published. Stale snapshots are
// rejected; the job that produced them has been superseded.
func (s *Store) Publish(snap *Snapshot) bool {
	e := s.Entry(snap.URI)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if snap.Revision != e.revision {
		return false
	}
	if cur := e.snap.Load(); cur != nil && cur.Revision >= snap.Revision {
		return false
	}
	e.snap.Store(snap)
	return true
}

// URIs returns every stored URI in sorted order.
func (s *Store) URIs() []uri.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uri.URI, 0, len(s.entries))
	for u := range s.entries {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// OpenURIs returns the URIs owned by an editor.
func (s *Store) OpenURIs() []uri.URI {
	var out []uri.URI
	for _, u := range s.URIs() {
		if e := s.Entry(u); e != nil && e.IsOpen() {
			out = append(out, u)
		}
	}
	return out
}
