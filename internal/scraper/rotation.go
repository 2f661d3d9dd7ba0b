package scraper

import "context"

// RotationScheduler computes where a scan starts and how it moves through the
// keyword list.
type RotationScheduler struct {
	cursor Cursor
}

// NewRotationScheduler returns a scheduler reading its start from cursor.
func NewRotationScheduler(cursor Cursor) *RotationScheduler {
	return &RotationScheduler{cursor: cursor}
}

// StartIndex returns the persisted cursor modulo the list length when rotate
// is set, else 0. The cursor is not read when rotation is off.
func (s *RotationScheduler) StartIndex(ctx context.Context, keywords []string, rotate bool) int {
	if !rotate || len(keywords) == 0 {
		return 0
	}
	idx := s.cursor.Load(ctx) % len(keywords)
	if idx < 0 {
		idx += len(keywords)
	}
	return idx
}

// Advance returns the index after index in a list of length n.
func (s *RotationScheduler) Advance(index, n int) int {
	return Advance(index, n)
}

// Save persists index as the next resumption point.
func (s *RotationScheduler) Save(ctx context.Context, index int) {
	s.cursor.Save(ctx, index)
}

// Advance returns (index+1) mod n, or 0 for an empty list.
func Advance(index, n int) int {
	if n <= 0 {
		return 0
	}
	return (index + 1) % n
}
