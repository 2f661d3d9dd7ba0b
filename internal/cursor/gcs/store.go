// Package gcs keeps the rotation cursor as a JSON object in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/cursor"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

// DefaultObject is the object name used when none is configured.
const DefaultObject = "keyword_state.json"

// Config names the bucket and object that hold the cursor.
type Config struct {
	Bucket string
	Object string
}

// Store reads and overwrites the cursor object.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// New builds a Store on an existing client.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	object := cfg.Object
	if object == "" {
		object = DefaultObject
	}
	return &Store{client: client, bucket: cfg.Bucket, object: object}, nil
}

// Read downloads the cursor object. A missing object yields scraper.ErrNoState.
func (s *Store) Read(ctx context.Context) (scraper.KeywordState, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return scraper.KeywordState{}, scraper.ErrNoState
		}
		return scraper.KeywordState{}, fmt.Errorf("open gs://%s/%s: %w", s.bucket, s.object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return scraper.KeywordState{}, fmt.Errorf("read gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return cursor.Decode(data)
}

// Write uploads the cursor object, replacing any previous version.
func (s *Store) Write(ctx context.Context, state scraper.KeywordState) error {
	data, err := cursor.Encode(state)
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
