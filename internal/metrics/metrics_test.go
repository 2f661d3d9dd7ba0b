package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://www.Upwork.com/nx/search/jobs/?q=n8n", "www.upwork.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveKeywordAndChallenge(t *testing.T) {
	before := testutil.ToFloat64(keywordsTotal.WithLabelValues("challenge_blocked"))
	ObserveKeyword("challenge_blocked")
	if got := testutil.ToFloat64(keywordsTotal.WithLabelValues("challenge_blocked")); got != before+1 {
		t.Errorf("expected keyword counter %v, got %v", before+1, got)
	}

	beforeChallenge := testutil.ToFloat64(challengeTotal.WithLabelValues("cleared"))
	ObserveChallenge("cleared")
	if got := testutil.ToFloat64(challengeTotal.WithLabelValues("cleared")); got != beforeChallenge+1 {
		t.Errorf("expected challenge counter %v, got %v", beforeChallenge+1, got)
	}
}

func TestObserveExtractionIgnoresZero(t *testing.T) {
	extracted := testutil.ToFloat64(jobsExtractedTotal)
	skipped := testutil.ToFloat64(elementsSkippedTotal)

	ObserveExtraction(0, 0)
	ObserveExtraction(3, 1)

	if got := testutil.ToFloat64(jobsExtractedTotal); got != extracted+3 {
		t.Errorf("expected %v extracted, got %v", extracted+3, got)
	}
	if got := testutil.ToFloat64(elementsSkippedTotal); got != skipped+1 {
		t.Errorf("expected %v skipped, got %v", skipped+1, got)
	}
}

func TestSetBrowserConnected(t *testing.T) {
	SetBrowserConnected(true)
	if got := testutil.ToFloat64(browserConnected); got != 1 {
		t.Errorf("expected gauge 1, got %v", got)
	}
	SetBrowserConnected(false)
	if got := testutil.ToFloat64(browserConnected); got != 0 {
		t.Errorf("expected gauge 0, got %v", got)
	}
}

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/bad", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	badBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bad", nil))

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != okBefore+1 {
		t.Errorf("expected GET 200 count %v, got %v", okBefore+1, val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400")); val != badBefore+1 {
		t.Errorf("expected POST 400 count %v, got %v", badBefore+1, val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected duration histogram to be observed, got %d", val)
	}
}

func TestObservePacingDelay(t *testing.T) {
	ObservePacingDelay(4 * time.Second)
	if val := testutil.CollectAndCount(pacingDelaySeconds); val != 1 {
		t.Errorf("expected one pacing histogram, got %d", val)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://www.upwork.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
