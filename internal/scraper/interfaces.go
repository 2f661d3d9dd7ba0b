package scraper

import (
	"context"
	"time"
)

// Session is the single loaded browser tab every navigation goes through.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// SessionProvider owns the long-lived browser session.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
	Connected() bool
	Close() error
}

// Extractor turns a rendered results page into job records.
type Extractor interface {
	Extract(html string) (Extraction, error)
}

// CursorBackend stores the raw rotation cursor. Read returns ErrNoState when
// nothing has been saved.
type CursorBackend interface {
	Read(ctx context.Context) (KeywordState, error)
	Write(ctx context.Context, state KeywordState) error
}

// Cursor is the fault-tolerant view of the rotation cursor used by scans.
type Cursor interface {
	Load(ctx context.Context) int
	Save(ctx context.Context, index int)
}

// KeywordScraper fetches the records for one keyword.
type KeywordScraper interface {
	ScrapeKeyword(ctx context.Context, keyword string) ([]JobRecord, error)
}

// Sleeper blocks for d or until ctx ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Pacer inserts the randomized delay between keywords.
type Pacer interface {
	Pause(ctx context.Context) (time.Duration, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}
