package crawler

import "sync"

// Tracker caches which folders were confirmed complete during this run so a
// pass can skip the remote marker round-trip. It is an optimization, never an
// authority: a fresh process re-derives completion from the remote marker.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Known reports whether the folder was confirmed complete in this run.
func (t *Tracker) Known(folderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[folderID]
	return ok
}

// Mark records the folder as complete for the remainder of this run.
func (t *Tracker) Mark(folderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[folderID] = struct{}{}
}

// Len returns the number of folders confirmed complete this run.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
