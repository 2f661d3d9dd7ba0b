package scraper

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
)

const (
	// DefaultSearchURL is the results page queried for every keyword.
	DefaultSearchURL = "https://www.upwork.com/nx/search/jobs/"
	// DefaultNavigationTimeout bounds a single page load.
	DefaultNavigationTimeout = 90 * time.Second
	// DefaultSettleDelay is the pause after navigation before the title is read.
	DefaultSettleDelay = 5 * time.Second
)

// OrchestratorConfig tunes a single keyword scrape.
type OrchestratorConfig struct {
	SearchURL         string
	NavigationTimeout time.Duration
	// SettleDelay follows navigation; zero takes the default, negative skips it.
	SettleDelay time.Duration
	// ScreenshotPath receives a PNG of the last loaded page; empty disables it.
	ScreenshotPath string
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	return c
}

// Orchestrator scrapes one keyword through the shared browser session.
type Orchestrator struct {
	cfg       OrchestratorConfig
	sessions  SessionProvider
	detector  *ChallengeDetector
	extractor Extractor
	sleeper   Sleeper
	clock     Clock
	logger    *zap.Logger
}

// NewOrchestrator wires the per-keyword pipeline.
func NewOrchestrator(
	cfg OrchestratorConfig,
	sessions SessionProvider,
	detector *ChallengeDetector,
	extractor Extractor,
	sleeper Sleeper,
	clock Clock,
	logger *zap.Logger,
) *Orchestrator {
	if clock == nil {
		clock = wallClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		sessions:  sessions,
		detector:  detector,
		extractor: extractor,
		sleeper:   sleeper,
		clock:     clock,
		logger:    logger.Named("orchestrator"),
	}
}

// SearchURL returns the recency-sorted results URL for keyword.
func (o *Orchestrator) SearchURL(keyword string) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("sort", "recency")
	return o.cfg.SearchURL + "?" + q.Encode()
}

// ScrapeKeyword loads the results page for keyword and extracts its records.
// A page still behind the challenge yields no records and ErrChallengeBlocked.
func (o *Orchestrator) ScrapeKeyword(ctx context.Context, keyword string) ([]JobRecord, error) {
	logger := o.logger.With(zap.String("keyword", keyword))

	session, err := o.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}

	target := o.SearchURL(keyword)
	logger.Info("navigating to search page", zap.String("url", target))
	navCtx, cancel := context.WithTimeout(ctx, o.cfg.NavigationTimeout)
	err = session.Navigate(navCtx, target)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, target, err)
	}

	if o.cfg.SettleDelay > 0 {
		if err := o.sleeper.Sleep(ctx, o.cfg.SettleDelay); err != nil {
			return nil, fmt.Errorf("settle wait: %w", err)
		}
	}
	o.captureScreenshot(ctx, session, logger)

	title, err := session.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page title: %w", err)
	}
	logger.Debug("page loaded", zap.String("title", title))

	state, err := o.detector.Check(ctx, session, title)
	if err != nil {
		return nil, err
	}
	if state == ChallengeBlocked {
		return nil, ErrChallengeBlocked
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	extraction, err := o.extractor.Extract(html)
	if err != nil {
		return nil, fmt.Errorf("extract records: %w", err)
	}
	metrics.ObserveExtraction(len(extraction.Records), extraction.Skipped)

	scrapedAt := o.clock.Now().UTC()
	records := make([]JobRecord, 0, len(extraction.Records))
	for _, rec := range extraction.Records {
		rec.Keyword = keyword
		rec.ScrapedAt = scrapedAt
		records = append(records, rec)
	}
	logger.Info("keyword scraped",
		zap.Int("jobs", len(records)),
		zap.Int("skipped", extraction.Skipped),
		zap.Stringer("challenge", state))
	return records, nil
}

func (o *Orchestrator) captureScreenshot(ctx context.Context, session Session, logger *zap.Logger) {
	if o.cfg.ScreenshotPath == "" {
		return
	}
	buf, err := session.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(o.cfg.ScreenshotPath, buf, 0o644); err != nil {
		logger.Warn("write screenshot", zap.String("path", o.cfg.ScreenshotPath), zap.Error(err))
	}
}
