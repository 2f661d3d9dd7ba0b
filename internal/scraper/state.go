package scraper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
)

// StateStore is the fault-tolerant Cursor over a CursorBackend. Read and
// write failures are logged and absorbed so a scan never fails because the
// cursor could not be persisted.
type StateStore struct {
	backend CursorBackend
	clock   Clock
	logger  *zap.Logger
}

// NewStateStore wraps backend. A nil clock falls back to wall time.
func NewStateStore(backend CursorBackend, clock Clock, logger *zap.Logger) *StateStore {
	if clock == nil {
		clock = wallClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{
		backend: backend,
		clock:   clock,
		logger:  logger.Named("state"),
	}
}

// Load returns the persisted cursor, or 0 when it is missing or unusable.
func (s *StateStore) Load(ctx context.Context) int {
	state, err := s.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNoState) {
			return 0
		}
		s.logger.Warn("keyword state unreadable, starting from 0", zap.Error(err))
		metrics.ObserveCursorFailure("load")
		return 0
	}
	if state.LastKeywordIndex < 0 {
		s.logger.Warn("keyword state holds a negative index, starting from 0",
			zap.Int("index", state.LastKeywordIndex))
		return 0
	}
	return state.LastKeywordIndex
}

// Save overwrites the persisted cursor.
func (s *StateStore) Save(ctx context.Context, index int) {
	state := KeywordState{LastKeywordIndex: index, SavedAt: s.clock.Now().UTC()}
	if err := s.backend.Write(ctx, state); err != nil {
		s.logger.Error("failed to save keyword state", zap.Int("index", index), zap.Error(err))
		metrics.ObserveCursorFailure("save")
		return
	}
	s.logger.Debug("saved keyword state", zap.Int("index", index))
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
