package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
)

// ChallengeState is the verdict of the challenge detector.
type ChallengeState int

const (
	// ChallengeNotPresent means the page never showed the challenge.
	ChallengeNotPresent ChallengeState = iota
	// ChallengeCleared means the challenge was gone after the grace wait.
	ChallengeCleared
	// ChallengeBlocked means the challenge was still shown after the grace wait.
	ChallengeBlocked
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeNotPresent:
		return "not_present"
	case ChallengeCleared:
		return "cleared"
	case ChallengeBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// DefaultChallengeSignatures are the title fragments of the interstitial page.
var DefaultChallengeSignatures = []string{"Just a moment", "Cloudflare"}

// DefaultChallengeGrace is how long the solver gets before the title is re-read.
const DefaultChallengeGrace = 10 * time.Second

// ChallengeDetector waits out the anti-bot interstitial. It never tries to
// solve it; the browser does that on its own.
type ChallengeDetector struct {
	signatures []string
	grace      time.Duration
	sleeper    Sleeper
	logger     *zap.Logger
}

// NewChallengeDetector builds a detector. Empty signatures and a non-positive
// grace take the defaults.
func NewChallengeDetector(signatures []string, grace time.Duration, sleeper Sleeper, logger *zap.Logger) *ChallengeDetector {
	if len(signatures) == 0 {
		signatures = DefaultChallengeSignatures
	}
	if grace <= 0 {
		grace = DefaultChallengeGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeDetector{
		signatures: signatures,
		grace:      grace,
		sleeper:    sleeper,
		logger:     logger.Named("challenge"),
	}
}

// Matches reports whether title carries a challenge signature.
func (d *ChallengeDetector) Matches(title string) bool {
	for _, sig := range d.signatures {
		if sig != "" && strings.Contains(title, sig) {
			return true
		}
	}
	return false
}

// Check classifies the page given its current title. When the title matches,
// it sleeps for the grace interval and reads the title from page once more.
func (d *ChallengeDetector) Check(ctx context.Context, page Session, title string) (ChallengeState, error) {
	state, err := d.check(ctx, page, title)
	if err == nil {
		metrics.ObserveChallenge(state.String())
	}
	return state, err
}

func (d *ChallengeDetector) check(ctx context.Context, page Session, title string) (ChallengeState, error) {
	if !d.Matches(title) {
		return ChallengeNotPresent, nil
	}
	d.logger.Info("challenge page detected, waiting for it to clear",
		zap.String("title", title), zap.Duration("grace", d.grace))
	if err := d.sleeper.Sleep(ctx, d.grace); err != nil {
		return ChallengeBlocked, fmt.Errorf("challenge grace wait: %w", err)
	}
	again, err := page.Title(ctx)
	if err != nil {
		return ChallengeBlocked, fmt.Errorf("re-read title: %w", err)
	}
	if d.Matches(again) {
		d.logger.Warn("challenge page still present", zap.String("title", again))
		return ChallengeBlocked, nil
	}
	d.logger.Info("challenge cleared", zap.String("title", again))
	return ChallengeCleared, nil
}
