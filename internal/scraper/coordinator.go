package scraper

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
)

// Coordinator runs multi-keyword scans one at a time.
type Coordinator struct {
	mu           sync.Mutex
	scraper      KeywordScraper
	rotation     *RotationScheduler
	pacer        Pacer
	clock        Clock
	defaultLimit int
	logger       *zap.Logger
}

// NewCoordinator builds a coordinator. defaultLimit applies to requests that
// carry no usable limit.
func NewCoordinator(
	scraper KeywordScraper,
	rotation *RotationScheduler,
	pacer Pacer,
	clock Clock,
	defaultLimit int,
	logger *zap.Logger,
) *Coordinator {
	if clock == nil {
		clock = wallClock{}
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		scraper:      scraper,
		rotation:     rotation,
		pacer:        pacer,
		clock:        clock,
		defaultLimit: defaultLimit,
		logger:       logger.Named("coordinator"),
	}
}

// DefaultLimit returns the limit applied when a request has none.
func (c *Coordinator) DefaultLimit() int {
	return c.defaultLimit
}

// Probe scrapes a single keyword under the scan lock.
func (c *Coordinator) Probe(ctx context.Context, keyword string) ([]JobRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.scraper.ScrapeKeyword(ctx, keyword)
	metrics.ObserveKeyword(outcomeLabel(err))
	if err != nil {
		return nil, &KeywordError{Keyword: keyword, Err: err}
	}
	return records, nil
}

// Scan walks the keywords in rotation order until every keyword has been
// visited or the aggregate reaches the request limit. Keyword failures are
// recorded and skipped; only an invalid request fails the scan.
func (c *Coordinator) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if err := req.Validate(); err != nil {
		return ScanResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	keywords := req.Keywords
	n := len(keywords)
	limit := req.EffectiveLimit(c.defaultLimit)
	start := c.rotation.StartIndex(ctx, keywords, req.Rotate)

	logger := c.logger.With(zap.Int("keywords", n), zap.Int("limit", limit), zap.Bool("rotate", req.Rotate))
	logger.Info("scan started", zap.Int("start", start), zap.String("startKeyword", keywords[start]))

	var (
		jobs      = make([]JobRecord, 0)
		failures  []KeywordFailure
		processed int
		next      = start
		outcome   = "completed"
	)

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if len(jobs) >= limit {
			outcome = "limit_reached"
			next = idx
			if req.Rotate {
				c.rotation.Save(ctx, idx)
			}
			logger.Info("limit reached", zap.Int("jobs", len(jobs)), zap.String("resumeKeyword", keywords[idx]))
			break
		}

		keyword := keywords[idx]
		records, err := c.scraper.ScrapeKeyword(ctx, keyword)
		metrics.ObserveKeyword(outcomeLabel(err))
		if err != nil {
			logger.Warn("keyword failed", zap.String("keyword", keyword), zap.Error(err))
			failures = append(failures, KeywordFailure{Keyword: keyword, Err: err})
		} else {
			jobs = append(jobs, records...)
		}
		processed++
		next = c.rotation.Advance(idx, n)

		if i < n-1 && len(jobs) < limit {
			delay, err := c.pacer.Pause(ctx)
			if err != nil {
				outcome = "interrupted"
				if req.Rotate {
					c.rotation.Save(ctx, next)
				}
				logger.Warn("scan interrupted during pacing", zap.Error(err))
				break
			}
			logger.Debug("paced", zap.Duration("delay", delay))
		}
	}

	if req.Rotate && processed == n {
		next = 0
		c.rotation.Save(ctx, 0)
	}

	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	result := ScanResult{
		Jobs:              jobs,
		Limit:             limit,
		Rotation:          req.Rotate,
		KeywordsProcessed: processed,
		ScrapedAt:         c.clock.Now().UTC(),
		Failures:          failures,
	}
	if req.Rotate {
		kw := keywords[next]
		result.NextStartKeyword = &kw
	}

	metrics.ObserveScan(outcome)
	logger.Info("scan finished",
		zap.String("outcome", outcome),
		zap.Int("jobs", len(jobs)),
		zap.Int("processed", processed),
		zap.Int("failed", len(failures)))
	return result, nil
}

// Blocked reports whether err is a challenge block.
func Blocked(err error) bool {
	return errors.Is(err, ErrChallengeBlocked)
}
