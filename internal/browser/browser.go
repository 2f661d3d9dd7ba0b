// Package browser owns the single long-lived Chrome session every navigation
// goes through.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/metrics"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// ErrClosed is returned by a session whose browser has been closed.
var ErrClosed = errors.New("browser session closed")

const defaultHealthTimeout = 5 * time.Second

// Config controls how Chrome is launched.
type Config struct {
	ExecPath       string
	UserDataDir    string
	Headless       bool
	NoSandbox      bool
	WindowWidth    int
	WindowHeight   int
	WindowPosition string
	UserAgent      string
}

// handle is a launched browser with one page.
type handle interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Alive(ctx context.Context) bool
	// Exited reports, without a round trip, that the browser is known gone.
	Exited() bool
	Close() error
}

type launchFunc func(ctx context.Context, cfg Config, logger *zap.Logger) (handle, error)

// Waiter delays navigations; *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Manager lazily launches the browser, hands out its session, relaunches it
// after a failed health check, and closes it on request.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	launch  launchFunc
	waiter  Waiter
	logger  *zap.Logger
	current handle
}

// NewManager returns a Manager that launches Chrome through chromedp on the
// first Acquire. waiter may be nil.
func NewManager(cfg Config, waiter Waiter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		launch: launchChrome,
		waiter: waiter,
		logger: logger.Named("browser"),
	}
}

// Acquire returns the live session, launching or relaunching Chrome as needed.
func (m *Manager) Acquire(ctx context.Context) (scraper.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		healthCtx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
		alive := m.current.Alive(healthCtx)
		cancel()
		if alive {
			return &session{m: m, h: m.current}, nil
		}
		m.logger.Warn("browser session unhealthy, relaunching")
		m.release()
	}

	if m.cfg.UserDataDir != "" {
		if err := os.MkdirAll(m.cfg.UserDataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}
	m.logger.Info("launching browser",
		zap.String("profile", m.cfg.UserDataDir),
		zap.Bool("headless", m.cfg.Headless))
	h, err := m.launch(ctx, m.cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	metrics.ObserveBrowserLaunch()
	metrics.SetBrowserConnected(true)
	m.current = h
	return &session{m: m, h: h}, nil
}

// Connected reports whether a running browser is held. A browser whose
// process or connection has gone away is released.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return false
	}
	if m.current.Exited() {
		m.logger.Warn("browser connection lost")
		if err := m.release(); err != nil {
			m.logger.Debug("release after lost connection", zap.Error(err))
		}
		return false
	}
	return true
}

// Close shuts the browser down. Closing an idle manager is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.release()
	m.logger.Info("browser closed")
	return err
}

// release must be called with mu held.
func (m *Manager) release() error {
	err := m.current.Close()
	m.current = nil
	metrics.SetBrowserConnected(false)
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (m *Manager) owns(h handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == h
}

// session routes page calls to the handle it was issued for. Once that
// handle has been closed or replaced every call fails with ErrClosed.
type session struct {
	m *Manager
	h handle
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if !s.m.owns(s.h) {
		return ErrClosed
	}
	if s.m.waiter != nil {
		if err := s.m.waiter.Wait(ctx, url); err != nil {
			return err
		}
	}
	return s.h.Navigate(ctx, url)
}

func (s *session) Title(ctx context.Context) (string, error) {
	if !s.m.owns(s.h) {
		return "", ErrClosed
	}
	return s.h.Title(ctx)
}

func (s *session) HTML(ctx context.Context) (string, error) {
	if !s.m.owns(s.h) {
		return "", ErrClosed
	}
	return s.h.HTML(ctx)
}

func (s *session) Screenshot(ctx context.Context) ([]byte, error) {
	if !s.m.owns(s.h) {
		return nil, ErrClosed
	}
	return s.h.Screenshot(ctx)
}
