package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/crawler/internal/types"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestUpsertPendingJob_KeysOffTargetID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO scrape_jobs").
		WithArgs("target-1", "target-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertPendingJob(context.Background(), "target-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPendingJob_WrapsDBError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO scrape_jobs").
		WillReturnError(assertError{})

	err := s.UpsertPendingJob(context.Background(), "target-1")
	require.Error(t, err)
	var jobErr *types.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "upsert_pending_job", jobErr.Op)
}

func TestUpdateJob_NullsEmptyError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE scrape_jobs").
		WithArgs("success", nil, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateJob(context.Background(), "job-1", types.JobSuccess, "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePriceObservation_TruncatesHTMLAndCommits(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_history").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			strings.Repeat("a", types.MaxRawHTMLPrefix),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	obs := types.PriceObservation{
		TargetID:      "target-1",
		Price:         999.0,
		Currency:      "INR",
		RawHTMLPrefix: strings.Repeat("a", types.MaxRawHTMLPrefix+100),
		ScrapedAt:     time.Now(),
	}
	err := s.SavePriceObservation(context.Background(), obs)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePriceObservation_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO price_history").
		WillReturnError(assertError{})
	mock.ExpectRollback()

	err := s.SavePriceObservation(context.Background(), types.PriceObservation{TargetID: "target-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPrice_NoRowsReturnsNotOK(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT price, scraped_at").
		WithArgs("target-1").
		WillReturnRows(sqlmock.NewRows([]string{"price", "scraped_at"}))

	_, ok, err := s.LatestPrice(context.Background(), "target-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestPrice_FoundReturnsRow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery("SELECT price, scraped_at").
		WithArgs("target-1").
		WillReturnRows(sqlmock.NewRows([]string{"price", "scraped_at"}).AddRow(499.0, now))

	lp, ok, err := s.LatestPrice(context.Background(), "target-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 499.0, lp.Price)
}

type assertError struct{}

func (assertError) Error() string { return "mock db error" }
