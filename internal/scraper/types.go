package scraper

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultLimit caps a scan when the request does not carry a usable limit.
const DefaultLimit = 100

// JobRecord is one listing extracted from a search results page.
type JobRecord struct {
	JobID                 string    `json:"jobId"`
	Title                 string    `json:"title"`
	URL                   string    `json:"url"`
	PostedAt              string    `json:"postedAt"`
	Description           string    `json:"description"`
	Budget                string    `json:"budget"`
	ExperienceLevel       string    `json:"experienceLevel"`
	Duration              string    `json:"duration"`
	ClientPaymentVerified bool      `json:"clientPaymentVerified"`
	ClientSpent           string    `json:"clientSpent"`
	ClientLocation        string    `json:"clientLocation"`
	Skills                []string  `json:"skills"`
	Proposals             string    `json:"proposals"`
	Keyword               string    `json:"keyword"`
	ScrapedAt             time.Time `json:"scrapedAt"`
}

// KeywordState is the durable rotation cursor.
type KeywordState struct {
	LastKeywordIndex int       `json:"lastKeywordIndex"`
	SavedAt          time.Time `json:"savedAt"`
}

// ScanRequest describes one multi-keyword scan.
type ScanRequest struct {
	Keywords []string `json:"keywords" validate:"required,min=1"`
	Limit    int      `json:"limit" validate:"gte=0"`
	Rotate   bool     `json:"rotate"`
}

var validate = validator.New()

// Validate checks the request shape.
func (r ScanRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// EffectiveLimit returns the request limit or def when unset.
func (r ScanRequest) EffectiveLimit(def int) int {
	if r.Limit > 0 {
		return r.Limit
	}
	if def > 0 {
		return def
	}
	return DefaultLimit
}

// ScanResult is the aggregate outcome of a scan.
type ScanResult struct {
	Jobs              []JobRecord      `json:"jobs"`
	Limit             int              `json:"limit"`
	Rotation          bool             `json:"rotation"`
	KeywordsProcessed int              `json:"keywordsProcessed"`
	NextStartKeyword  *string          `json:"nextStartKeyword"`
	ScrapedAt         time.Time        `json:"scrapedAt"`
	Failures          []KeywordFailure `json:"-"`
}

// KeywordFailure records a keyword that produced no records because of an error.
type KeywordFailure struct {
	Keyword string
	Err     error
}

// Extraction is the output of one page extraction.
type Extraction struct {
	Records []JobRecord
	// Skipped counts candidate elements dropped by extraction.
	Skipped int
}
