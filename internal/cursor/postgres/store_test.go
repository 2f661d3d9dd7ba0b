package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, "", "")
	require.NoError(t, err)
	return store, mock
}

func TestReadReturnsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	savedAt := time.Unix(1760000000, 0).UTC()
	mock.ExpectQuery("SELECT last_keyword_index, saved_at FROM keyword_state").
		WithArgs("default").
		WillReturnRows(pgxmock.NewRows([]string{"last_keyword_index", "saved_at"}).AddRow(3, savedAt))

	state, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, state.LastKeywordIndex)
	assert.Equal(t, savedAt, state.SavedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadNoRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT last_keyword_index").
		WithArgs("default").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Read(context.Background())
	require.ErrorIs(t, err, scraper.ErrNoState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT last_keyword_index").
		WithArgs("default").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Read(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, scraper.ErrNoState)
}

func TestWriteUpserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	savedAt := time.Unix(1760000000, 0).UTC()
	mock.ExpectExec("INSERT INTO keyword_state").
		WithArgs("default", 2, savedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Write(context.Background(), scraper.KeywordState{LastKeywordIndex: 2, SavedAt: savedAt})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "scan_cursor", "nightly")
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scan_cursor").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewWithPool(mock, "bad-name;drop", "")
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
