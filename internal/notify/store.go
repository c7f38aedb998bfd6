// Package notify holds the in-memory state behind the admin notification
// bell: the ordered record list with its unread counter and the single
// toast slot. Nothing in this package performs I/O; callers apply
// results of network calls to it from a single goroutine.
package notify

import "github.com/nhle/sim-admin/internal/model"

// Store is the canonical, most-recent-first list of notifications for one
// mounted bell, plus the number of unread records in it.
//
// A Store is not safe for concurrent use. It is owned by the Bubble Tea
// update loop, which serialises every mutation.
type Store struct {
	records  []model.Notification
	index    map[string]int
	unread   int
	capacity int

	// early holds ids prepended before the first snapshot was applied.
	early       map[string]bool
	snapshotted bool
}

// NewStore creates an empty store. A capacity of zero keeps every record;
// a positive capacity evicts the oldest records once it is exceeded.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		index:    make(map[string]int),
		early:    make(map[string]bool),
		capacity: capacity,
	}
}

// ReplaceAll installs a snapshot. Live records that were prepended before
// the first snapshot and are missing from it stay at the head, so a slow
// snapshot never hides events that already arrived.
func (s *Store) ReplaceAll(records []model.Notification) {
	next := make([]model.Notification, 0, len(records)+len(s.early))

	if !s.snapshotted && len(s.early) > 0 {
		inSnapshot := make(map[string]bool, len(records))
		for _, r := range records {
			inSnapshot[r.ID] = true
		}
		for _, r := range s.records {
			if s.early[r.ID] && !inSnapshot[r.ID] {
				next = append(next, r)
			}
		}
	}

	seen := make(map[string]bool, len(records))
	for _, r := range next {
		seen[r.ID] = true
	}
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		// A record already marked read locally stays read.
		if i, ok := s.index[r.ID]; ok && s.records[i].IsRead {
			r.IsRead = true
		}
		next = append(next, r)
	}

	s.records = next
	s.snapshotted = true
	s.early = make(map[string]bool)
	s.evict()
	s.reindex()
}

// Prepend inserts a newly observed live record at the head. Redelivered
// ids are ignored and reported by a false return value.
func (s *Store) Prepend(record model.Notification) bool {
	if _, dup := s.index[record.ID]; dup {
		return false
	}

	s.records = append([]model.Notification{record}, s.records...)
	if !s.snapshotted {
		s.early[record.ID] = true
	}
	s.evict()
	s.reindex()
	return true
}

// MarkOneRead flips a single record to read. It reports whether anything
// changed; unknown and already-read ids leave the store untouched.
func (s *Store) MarkOneRead(id string) bool {
	i, ok := s.index[id]
	if !ok || s.records[i].IsRead {
		return false
	}

	s.records[i].IsRead = true
	if s.unread > 0 {
		s.unread--
	}
	return true
}

// MarkAllRead flips every record to read and zeroes the counter.
func (s *Store) MarkAllRead() {
	for i := range s.records {
		s.records[i].IsRead = true
	}
	s.unread = 0
}

// Unread returns the number of records not yet read.
func (s *Store) Unread() int {
	return s.unread
}

// Len returns the number of records held.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the list, most recent first.
func (s *Store) Records() []model.Notification {
	out := make([]model.Notification, len(s.records))
	copy(out, s.records)
	return out
}

// At returns the record at position i.
func (s *Store) At(i int) (model.Notification, bool) {
	if i < 0 || i >= len(s.records) {
		return model.Notification{}, false
	}
	return s.records[i], true
}

// evict trims the tail down to capacity.
func (s *Store) evict() {
	if s.capacity == 0 || len(s.records) <= s.capacity {
		return
	}
	for _, r := range s.records[s.capacity:] {
		delete(s.early, r.ID)
	}
	s.records = s.records[:s.capacity:s.capacity]
}

// reindex rebuilds the id index and derives the unread counter.
func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	s.unread = 0
	for i, r := range s.records {
		s.index[r.ID] = i
		if !r.IsRead {
			s.unread++
		}
	}
}
