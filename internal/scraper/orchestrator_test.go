package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOrchestrator(cfg OrchestratorConfig, provider *fakeProvider, ex Extractor, sleeper *recordingSleeper) *Orchestrator {
	detector := NewChallengeDetector(nil, 10*time.Second, sleeper, zap.NewNop())
	return NewOrchestrator(cfg, provider, detector, ex, sleeper, fixedClock{testNow}, zap.NewNop())
}

func TestOrchestratorSearchURL(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(OrchestratorConfig{}, &fakeProvider{}, &stubExtractor{}, &recordingSleeper{})
	assert.Equal(t, "https://www.upwork.com/nx/search/jobs/?q=web+scraping&sort=recency", o.SearchURL("web scraping"))
	assert.Equal(t, "https://www.upwork.com/nx/search/jobs/?q=n8n&sort=recency", o.SearchURL("n8n"))
}

func TestOrchestratorScrapeKeywordStampsRecords(t *testing.T) {
	t.Parallel()

	session := &fakeSession{titles: []string{"N8n Jobs | Upwork"}, html: "<html>results</html>"}
	ex := &stubExtractor{out: Extraction{
		Records: []JobRecord{{Title: "Build an n8n workflow"}, {Title: "Zapier to n8n migration"}},
		Skipped: 1,
	}}
	sleeper := &recordingSleeper{}
	o := newTestOrchestrator(OrchestratorConfig{}, &fakeProvider{session: session}, ex, sleeper)

	records, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "n8n", rec.Keyword)
		assert.Equal(t, testNow, rec.ScrapedAt)
	}
	assert.Equal(t, "<html>results</html>", ex.seen)
	assert.Equal(t, []string{o.SearchURL("n8n")}, session.navigated)
	assert.True(t, session.hadDeadline)
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, sleeper.slept)
}

func TestOrchestratorChallengeBlocked(t *testing.T) {
	t.Parallel()

	session := &fakeSession{titles: []string{"Just a moment...", "Just a moment..."}}
	ex := &stubExtractor{out: Extraction{Records: []JobRecord{{Title: "never returned"}}}}
	o := newTestOrchestrator(OrchestratorConfig{SettleDelay: time.Second}, &fakeProvider{session: session}, ex, &recordingSleeper{})

	records, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.ErrorIs(t, err, ErrChallengeBlocked)
	assert.Empty(t, records)
	assert.Empty(t, ex.seen)
}

func TestOrchestratorChallengeCleared(t *testing.T) {
	t.Parallel()

	session := &fakeSession{titles: []string{"Just a moment...", "N8n Jobs | Upwork"}}
	ex := &stubExtractor{out: Extraction{Records: []JobRecord{{Title: "Workflow automation"}}}}
	sleeper := &recordingSleeper{}
	o := newTestOrchestrator(OrchestratorConfig{SettleDelay: time.Second}, &fakeProvider{session: session}, ex, sleeper)

	records, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, []time.Duration{time.Second, 10 * time.Second}, sleeper.slept)
}

func TestOrchestratorNavigationFailure(t *testing.T) {
	t.Parallel()

	session := &fakeSession{titles: []string{""}, navErr: context.DeadlineExceeded}
	o := newTestOrchestrator(OrchestratorConfig{}, &fakeProvider{session: session}, &stubExtractor{}, &recordingSleeper{})

	_, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.ErrorIs(t, err, ErrNavigation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOrchestratorAcquireFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("chrome not found")
	o := newTestOrchestrator(OrchestratorConfig{}, &fakeProvider{err: boom}, &stubExtractor{}, &recordingSleeper{})

	_, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.ErrorIs(t, err, boom)
}

func TestOrchestratorWritesScreenshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "last_scrape.png")
	session := &fakeSession{titles: []string{"Jobs"}, shot: []byte("\x89PNG")}
	o := newTestOrchestrator(OrchestratorConfig{ScreenshotPath: path}, &fakeProvider{session: session}, &stubExtractor{}, &recordingSleeper{})

	_, err := o.ScrapeKeyword(context.Background(), "n8n")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)
}
