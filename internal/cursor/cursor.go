// Package cursor holds the storage backends for the keyword rotation cursor.
// Every backend stores the same JSON document and overwrites it wholesale.
package cursor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// Encode renders state as the persisted JSON document.
func Encode(state scraper.KeywordState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode keyword state: %w", err)
	}
	return data, nil
}

// storedState mirrors scraper.KeywordState with savedAt left raw: only the
// index drives rotation, so a malformed timestamp must not discard it.
type storedState struct {
	LastKeywordIndex int             `json:"lastKeywordIndex"`
	SavedAt          json.RawMessage `json:"savedAt"`
}

// Decode parses a persisted JSON document. An unparseable savedAt yields a
// zero SavedAt and keeps the index.
func Decode(data []byte) (scraper.KeywordState, error) {
	var stored storedState
	if err := json.Unmarshal(data, &stored); err != nil {
		return scraper.KeywordState{}, fmt.Errorf("decode keyword state: %w", err)
	}
	state := scraper.KeywordState{LastKeywordIndex: stored.LastKeywordIndex}
	var savedAt time.Time
	if len(stored.SavedAt) > 0 && json.Unmarshal(stored.SavedAt, &savedAt) == nil {
		state.SavedAt = savedAt
	}
	return state, nil
}
