// Package schedule runs rotating keyword scans on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// Scanner runs one scan.
type Scanner interface {
	Scan(ctx context.Context, req scraper.ScanRequest) (scraper.ScanResult, error)
}

// Config describes the recurring scan.
type Config struct {
	Spec       string
	Keywords   []string
	Limit      int
	RunOnStart bool
}

// Scheduler wraps robfig/cron and fires a rotating scan on every tick.
type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	cfg     Config
	logger  *zap.Logger
}

// New validates cfg and builds a Scheduler. Ticks that arrive while a scan is
// still running are skipped.
func New(cfg Config, scanner Scanner, logger *zap.Logger) (*Scheduler, error) {
	if len(cfg.Keywords) == 0 {
		return nil, fmt.Errorf("schedule.keywords must not be empty")
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("parse schedule.spec %q: %w", cfg.Spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("schedule")
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		scanner: scanner,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Start registers the job and starts the cron loop. With RunOnStart a scan is
// also launched immediately in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.cfg.Spec), zap.Strings("keywords", s.cfg.Keywords))
	if s.cfg.RunOnStart {
		go s.RunOnce(ctx)
	}
	return nil
}

// Stop halts the cron loop and waits up to timeout for a running scan.
func (s *Scheduler) Stop(timeout time.Duration) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(timeout):
		s.logger.Warn("scheduled scan still running at shutdown")
	}
	s.logger.Info("cron stopped")
}

// RunOnce performs one rotating scan.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	req := scraper.ScanRequest{Keywords: s.cfg.Keywords, Limit: s.cfg.Limit, Rotate: true}
	res, err := s.scanner.Scan(ctx, req)
	if err != nil {
		s.logger.Error("scheduled scan failed", zap.Error(err))
		return
	}
	fields := []zap.Field{
		zap.Int("jobs", len(res.Jobs)),
		zap.Int("keywordsProcessed", res.KeywordsProcessed),
		zap.Int("failed", len(res.Failures)),
	}
	if res.NextStartKeyword != nil {
		fields = append(fields, zap.String("nextStartKeyword", *res.NextStartKeyword))
	}
	s.logger.Info("scheduled scan complete", fields...)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
