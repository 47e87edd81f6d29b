package table

import "sync"

// IdentitySequence is the strictly increasing generator backing a
// table's identity column. Peek is exposed so tests can assert the
// sequence only advances across insertions that actually consume it.
type IdentitySequence struct {
	mu   sync.Mutex
	next int64
}

// NewIdentitySequence returns a sequence that will hand out start as
// its first value.
func NewIdentitySequence(start int64) *IdentitySequence {
	return &IdentitySequence{next: start}
}

// Peek returns the next value the sequence would hand out, without
// consuming it.
func (s *IdentitySequence) Peek() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Next hands out the next value and advances the sequence.
func (s *IdentitySequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next++
	return v
}

// Advance ensures the sequence's next value is strictly greater than
// observed, used both when a user-supplied identity value is inserted
// and when replaying an already-persisted value on log replay.
func (s *IdentitySequence) Advance(observed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if observed >= s.next {
		s.next = observed + 1
	}
}

// setIdentityColumn implements insertion's first step: if the table
// has an identity column and data[idCol] is null, fetch the next
// sequence value and write it in; otherwise advance the sequence past
// the user-supplied value.
func (t *Table) setIdentityColumn(data []any) {
	if t.IdentityColumn < 0 {
		return
	}
	if data[t.IdentityColumn] == nil {
		data[t.IdentityColumn] = t.Identity.Next()
		return
	}
	if v, ok := toInt64(data[t.IdentityColumn]); ok {
		t.Identity.Advance(v)
	}
}

// systemSetIdentityColumn is the log-replay / moveData counterpart:
// it only ever observes and advances, never generates.
func (t *Table) systemSetIdentityColumn(data []any) {
	if t.IdentityColumn < 0 {
		return
	}
	if v, ok := toInt64(data[t.IdentityColumn]); ok {
		t.Identity.Advance(v)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}
