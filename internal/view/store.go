package view

import (
	"sync"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

// Store holds the prospect list a table renders. Status changes are applied
// locally first and rolled back with Restore when persisting fails.
type Store struct {
	mu    sync.RWMutex
	items []*model.Prospect
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a confirmed snapshot from the backend.
func (s *Store) Replace(items []*model.Prospect) {
	s.mu.Lock()
	s.items = cloneAll(items)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current list.
func (s *Store) Snapshot() []*model.Prospect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// Restore puts back a list previously returned by Snapshot or SetStatus.
func (s *Store) Restore(snapshot []*model.Prospect) {
	s.Replace(snapshot)
}

// Len reports the number of prospects held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SetStatus optimistically changes the status of prospect id and stamps
// LastContacted with now. It returns the list as it was before the change,
// for Restore, and false when id is unknown.
func (s *Store) SetStatus(id string, status model.Status, now time.Time) (before []*model.Prospect, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.items {
		if p.ID != id {
			continue
		}
		before = cloneAll(s.items)
		updated := p.Clone()
		updated.Status = status
		at := now
		updated.LastContacted = &at
		s.items[i] = updated
		return before, true
	}
	return nil, false
}

// Put replaces the prospect with the same id as p. It reports false when no
// such prospect is held.
func (s *Store) Put(p *model.Prospect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.items {
		if cur.ID == p.ID {
			s.items[i] = p.Clone()
			return true
		}
	}
	return false
}

func cloneAll(items []*model.Prospect) []*model.Prospect {
	if items == nil {
		return nil
	}
	out := make([]*model.Prospect, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}
