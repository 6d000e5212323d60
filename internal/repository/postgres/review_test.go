package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/pkg/database"
	apperrors "github.com/openshelf/catalog-service/pkg/errors"
)

var reviewCols = []string{
	"id", "product_id", "reviewer_id", "reviewer_name", "rating", "comment", "created_at",
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:           "rev-1",
		ProductID:    "prod-1",
		ReviewerID:   "cust-1",
		ReviewerName: "Dana",
		Rating:       4,
		Comment:      "Solid build quality",
		CreatedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestReviewRepositoryAdd(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(rv.ProductID, rv.ReviewerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.ReviewerID, rv.ReviewerName, rv.Rating, rv.Comment, rv.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT rating FROM reviews").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"rating"}).AddRow(5).AddRow(3).AddRow(4))
	mock.ExpectExec("UPDATE products SET rating").
		WithArgs(4.0, 3, pgxmock.AnyArg(), rv.ProductID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewReviewRepository(mock)
	require.NoError(t, repo.Add(context.Background(), rv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryAddProductMissing(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	repo := NewReviewRepository(mock)
	err = repo.Add(context.Background(), rv)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryAddDuplicate(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(rv.ProductID, rv.ReviewerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	repo := NewReviewRepository(mock)
	err = repo.Add(context.Background(), rv)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ALREADY_REVIEWED", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryAddUniqueViolationBackstop(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := sampleReview()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(rv.ProductID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(rv.ProductID))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(rv.ProductID, rv.ReviewerID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rv.ID, rv.ProductID, rv.ReviewerID, rv.ReviewerName, rv.Rating, rv.Comment, rv.CreatedAt).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)`))
	mock.ExpectRollback()

	repo := NewReviewRepository(mock)
	err = repo.Add(context.Background(), rv)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListByProduct(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := sampleReview()

	rows := pgxmock.NewRows(append(append([]string{}, reviewCols...), "total_count")).
		AddRow(rv.ID, rv.ProductID, rv.ReviewerID, rv.ReviewerName, rv.Rating, rv.Comment, rv.CreatedAt, 1)

	mock.ExpectQuery("FROM reviews").
		WithArgs("prod-1", 20, 0).
		WillReturnRows(rows)

	repo := NewReviewRepository(mock)
	got, total, err := repo.ListByProduct(context.Background(), "prod-1", 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Dana", got[0].ReviewerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListByProductPagePastEndRecounts(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM reviews").
		WithArgs("prod-1", 20, 40).
		WillReturnRows(pgxmock.NewRows(append(append([]string{}, reviewCols...), "total_count")))
	mock.ExpectQuery(`SELECT count\(\*\) FROM reviews`).
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	repo := NewReviewRepository(mock)
	got, total, err := repo.ListByProduct(context.Background(), "prod-1", 3, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 5, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositorySummary(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`COALESCE\(AVG\(rating\), 0\)`).
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(4.0, 3))

	repo := NewReviewRepository(mock)
	summary, err := repo.Summary(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, summary.AverageRating)
	assert.Equal(t, 3, summary.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
