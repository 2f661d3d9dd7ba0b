// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_scans_total",
			Help: "Total number of keyword scans, labeled by how they ended.",
		},
		[]string{"outcome"},
	)

	keywordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_keywords_total",
			Help: "Total number of keywords scraped, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	jobsExtractedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_jobs_extracted_total",
			Help: "Total number of job records extracted from result pages.",
		},
	)

	elementsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_elements_skipped_total",
			Help: "Total number of job elements dropped during extraction.",
		},
	)

	challengeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_challenge_total",
			Help: "Challenge detector verdicts, labeled by state.",
		},
		[]string{"state"},
	)

	pacingDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_pacing_delay_seconds",
			Help:    "Histogram of the randomized delays inserted between keywords.",
			Buckets: []float64{0.5, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	cursorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_cursor_failures_total",
			Help: "Rotation cursor read/write failures, labeled by operation.",
		},
		[]string{"op"},
	)

	browserLaunchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_browser_launches_total",
			Help: "Total number of browser sessions launched.",
		},
	)

	browserConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_browser_connected",
			Help: "1 while a browser session is held, 0 otherwise.",
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_rate_limit_delay_seconds",
			Help:    "Histogram of navigation rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeSite extracts a lowercase hostname from rawURL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveScan counts a finished scan.
func ObserveScan(outcome string) {
	scansTotal.WithLabelValues(outcome).Inc()
}

// ObserveKeyword counts a scraped keyword by outcome.
func ObserveKeyword(outcome string) {
	keywordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveExtraction records extracted and skipped element counts.
func ObserveExtraction(extracted, skipped int) {
	if extracted > 0 {
		jobsExtractedTotal.Add(float64(extracted))
	}
	if skipped > 0 {
		elementsSkippedTotal.Add(float64(skipped))
	}
}

// ObserveChallenge counts a challenge detector verdict.
func ObserveChallenge(state string) {
	challengeTotal.WithLabelValues(state).Inc()
}

// ObservePacingDelay records an inter-keyword delay.
func ObservePacingDelay(d time.Duration) {
	pacingDelaySeconds.Observe(d.Seconds())
}

// ObserveCursorFailure counts a cursor read or write failure.
func ObserveCursorFailure(op string) {
	cursorFailuresTotal.WithLabelValues(op).Inc()
}

// ObserveBrowserLaunch counts a browser launch.
func ObserveBrowserLaunch() {
	browserLaunchesTotal.Inc()
}

// SetBrowserConnected flips the connected gauge.
func SetBrowserConnected(connected bool) {
	if connected {
		browserConnected.Set(1)
		return
	}
	browserConnected.Set(0)
}

// ObserveRateLimitDelay records the duration of a navigation rate limit wait.
func ObserveRateLimitDelay(site string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(site).Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
