package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// memBackend is a CursorBackend held in memory.
type memBackend struct {
	mu       sync.Mutex
	state    *KeywordState
	readErr  error
	writeErr error
	reads    int
	writes   []KeywordState
}

func (b *memBackend) Read(context.Context) (KeywordState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	if b.readErr != nil {
		return KeywordState{}, b.readErr
	}
	if b.state == nil {
		return KeywordState{}, ErrNoState
	}
	return *b.state, nil
}

func (b *memBackend) Write(_ context.Context, state KeywordState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes = append(b.writes, state)
	b.state = &state
	return nil
}

func withCursor(index int) *memBackend {
	return &memBackend{state: &KeywordState{LastKeywordIndex: index, SavedAt: testNow}}
}

// recordingSleeper returns immediately and remembers what it was asked for.
type recordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
	err   error
	// onSleep runs before returning, e.g. to flip a page title.
	onSleep func()
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	hook := s.onSleep
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return s.err
}

type countingPacer struct {
	pauses int
	err    error
}

func (p *countingPacer) Pause(context.Context) (time.Duration, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.pauses++
	return 4 * time.Second, nil
}

// fakeSession serves a scripted page.
type fakeSession struct {
	mu          sync.Mutex
	titles      []string
	html        string
	navErr      error
	shot        []byte
	navigated   []string
	titleReads  int
	hadDeadline bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.hadDeadline = ctx.Deadline()
	s.navigated = append(s.navigated, url)
	return s.navErr
}

func (s *fakeSession) Title(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.titleReads
	if i >= len(s.titles) {
		i = len(s.titles) - 1
	}
	s.titleReads++
	return s.titles[i], nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	return s.html, nil
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) {
	return s.shot, nil
}

type fakeProvider struct {
	session  *fakeSession
	err      error
	acquired int
}

func (p *fakeProvider) Acquire(context.Context) (Session, error) {
	p.acquired++
	if p.err != nil {
		return nil, p.err
	}
	return p.session, nil
}

func (p *fakeProvider) Connected() bool { return p.acquired > 0 }

func (p *fakeProvider) Close() error { return nil }

// stubExtractor returns a fixed extraction regardless of input.
type stubExtractor struct {
	out  Extraction
	seen string
}

func (e *stubExtractor) Extract(html string) (Extraction, error) {
	e.seen = html
	return e.out, nil
}

// mockScraper is a testify mock for KeywordScraper.
type mockScraper struct {
	mock.Mock
}

func (m *mockScraper) ScrapeKeyword(ctx context.Context, keyword string) ([]JobRecord, error) {
	args := m.Called(ctx, keyword)
	recs, _ := args.Get(0).([]JobRecord)
	return recs, args.Error(1)
}

func makeJobs(keyword string, n int) []JobRecord {
	out := make([]JobRecord, n)
	for i := range out {
		out[i] = JobRecord{
			JobID:   keyword + "-" + string(rune('a'+i)),
			Title:   "Automation engineer " + keyword,
			URL:     "https://www.upwork.com/jobs/" + keyword,
			Budget:  "Negotiable",
			Keyword: keyword,
			Skills:  []string{},
		}
	}
	return out
}
