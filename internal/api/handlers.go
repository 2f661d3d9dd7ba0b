package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

const (
	keywordsRequiredMsg = "keywords must be a non-empty array"
	challengeBlockedMsg = "Cloudflare block"
)

var scrapeExample = scrapeExampleBody{
	Keywords: []string{"n8n", "automation"},
	Limit:    30,
	Rotate:   true,
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type statusResponse struct {
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	BrowserConnected bool              `json:"browserConnected"`
	Endpoints        map[string]string `json:"endpoints"`
}

type probeResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	JobsFound int                `json:"jobsFound"`
	SampleJob *scraper.JobRecord `json:"sampleJob"`
}

type scrapeExampleBody struct {
	Keywords []string `json:"keywords"`
	Limit    int      `json:"limit"`
	Rotate   bool     `json:"rotate"`
}

type badScrapeResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Example scrapeExampleBody `json:"example"`
}

type scrapeResponse struct {
	Success           bool                `json:"success"`
	TotalJobs         int                 `json:"totalJobs"`
	Limit             int                 `json:"limit"`
	Rotation          bool                `json:"rotation"`
	KeywordsProcessed int                 `json:"keywordsProcessed"`
	NextStartKeyword  *string             `json:"nextStartKeyword"`
	ScrapedAt         time.Time           `json:"scrapedAt"`
	Jobs              []scraper.JobRecord `json:"jobs"`
}

// scrapeRequest keeps the fields raw so loosely typed bodies degrade the same
// way for every client: bad limits fall back to the default and rotate must
// be literally true.
type scrapeRequest struct {
	Keywords json.RawMessage `json:"keywords"`
	Limit    json.RawMessage `json:"limit"`
	Rotate   json.RawMessage `json:"rotate"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:           "ok",
		Message:          "Upwork job scraper is running",
		BrowserConnected: s.browser.Connected(),
		Endpoints: map[string]string{
			"scrape": "POST /scrape",
			"test":   "GET /test",
			"close":  "GET /close",
		},
	})
}

func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	keyword := s.cfg.TestKeyword
	records, err := s.scanner.Probe(context.WithoutCancel(r.Context()), keyword)
	switch {
	case scraper.Blocked(err):
		writeJSON(w, http.StatusOK, errorResponse{
			Success: false,
			Error:   challengeBlockedMsg,
			Message: "Could not bypass Cloudflare",
		})
		return
	case err != nil:
		s.logger.Error("probe failed", zap.String("keyword", keyword), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := probeResponse{
		Success:   true,
		Message:   "Scraper is working",
		JobsFound: len(records),
	}
	if len(records) > 0 {
		resp.SampleJob = &records[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScrapeRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, badScrapeResponse{
			Success: false,
			Error:   keywordsRequiredMsg,
			Example: scrapeExample,
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.scanner.DefaultLimit()
	}

	result, err := s.scanner.Scan(context.WithoutCancel(r.Context()), req)
	if err != nil {
		if errors.Is(err, scraper.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, badScrapeResponse{
				Success: false,
				Error:   keywordsRequiredMsg,
				Example: scrapeExample,
			})
			return
		}
		s.logger.Error("scan failed", zap.Strings("keywords", req.Keywords), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, failure := range result.Failures {
		s.logger.Warn("keyword skipped",
			zap.String("request_id", requestID(r.Context())),
			zap.String("keyword", failure.Keyword),
			zap.Error(failure.Err),
		)
	}

	jobs := result.Jobs
	if jobs == nil {
		jobs = []scraper.JobRecord{}
	}
	writeJSON(w, http.StatusOK, scrapeResponse{
		Success:           true,
		TotalJobs:         len(jobs),
		Limit:             result.Limit,
		Rotation:          result.Rotation,
		KeywordsProcessed: result.KeywordsProcessed,
		NextStartKeyword:  result.NextStartKeyword,
		ScrapedAt:         result.ScrapedAt,
		Jobs:              jobs,
	})
}

func (s *Server) closeBrowser(w http.ResponseWriter, _ *http.Request) {
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("browser close failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Browser closed"})
}

// decodeScrapeRequest reports false when the keywords field is missing, empty,
// or not an array of strings.
func decodeScrapeRequest(r *http.Request) (scraper.ScanRequest, bool) {
	var raw scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return scraper.ScanRequest{}, false
	}
	var keywords []string
	if len(raw.Keywords) == 0 || json.Unmarshal(raw.Keywords, &keywords) != nil || len(keywords) == 0 {
		return scraper.ScanRequest{}, false
	}
	return scraper.ScanRequest{
		Keywords: keywords,
		Limit:    parseLimit(raw.Limit),
		Rotate:   bytes.Equal(bytes.TrimSpace(raw.Rotate), []byte("true")),
	}, true
}

// maxLimit caps very large limits; no scan can return that many records.
const maxLimit = math.MaxInt32

// parseLimit returns the limit when it is a positive integer, clamped to
// maxLimit, and 0 otherwise.
func parseLimit(raw json.RawMessage) int {
	var n float64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	if n <= 0 || n != math.Trunc(n) {
		return 0
	}
	if n > maxLimit {
		return maxLimit
	}
	return int(n)
}
