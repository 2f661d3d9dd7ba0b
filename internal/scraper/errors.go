package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeBlocked reports that the challenge page was still present after the grace wait.
	ErrChallengeBlocked = errors.New("challenge page still present")
	// ErrNavigation reports a timeout or network failure reaching the search page.
	ErrNavigation = errors.New("navigation failed")
	// ErrInvalidRequest reports a malformed scan request.
	ErrInvalidRequest = errors.New("invalid scan request")
	// ErrNoState is returned by cursor backends when nothing has been saved yet.
	ErrNoState = errors.New("no keyword state")
)

// KeywordError ties a scrape failure to the keyword that produced it.
type KeywordError struct {
	Keyword string
	Err     error
}

func (e *KeywordError) Error() string {
	return fmt.Sprintf("keyword %q: %v", e.Keyword, e.Err)
}

func (e *KeywordError) Unwrap() error {
	return e.Err
}

// outcomeLabel maps an error to the metrics label for a keyword.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrChallengeBlocked):
		return "challenge_blocked"
	case errors.Is(err, ErrNavigation):
		return "navigation_failed"
	default:
		return "error"
	}
}
