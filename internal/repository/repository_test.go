package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Queries, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db), mock, db
}

var documentRowColumns = []string{
	"id", "dataset_id", "name", "storage_key", "content_type", "size_bytes", "word_count",
	"indexing_status", "enabled", "archived", "error", "created_at", "updated_at",
}

func TestListDocumentsByDataset(t *testing.T) {
	q, mock, _ := newMock(t)
	datasetID := uuid.New()
	docID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents")).
		WithArgs(datasetID, "report", int32(10), int32(20)).
		WillReturnRows(sqlmock.NewRows(documentRowColumns).
			AddRow(docID.String(), datasetID.String(), "report.md", "k", "text/markdown", int64(42), int64(7),
				"completed", true, false, nil, now, now))

	docs, err := q.ListDocumentsByDataset(context.Background(), ListDocumentsByDatasetParams{
		DatasetID: datasetID,
		Keyword:   "report",
		Limit:     10,
		Offset:    20,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].ID)
	assert.Equal(t, "completed", docs[0].IndexingStatus)
	assert.False(t, docs[0].Error.Valid)
}

func TestDeleteDocuments_ReturnsKeys(t *testing.T) {
	q, mock, _ := newMock(t)
	datasetID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM documents")).
		WithArgs(datasetID, pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("a").AddRow("b"))

	keys, err := q.DeleteDocuments(context.Background(), DeleteDocumentsParams{DatasetID: datasetID, IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSetDocumentsEnabled_RowsAffected(t *testing.T) {
	q, mock, _ := newMock(t)
	datasetID := uuid.New()
	ids := []uuid.UUID{uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta("SET enabled = $3")).
		WithArgs(datasetID, pq.Array(ids), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := q.SetDocumentsEnabled(context.Background(), SetDocumentsEnabledParams{DatasetID: datasetID, IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateJobFailed(t *testing.T) {
	q, mock, _ := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).
		WithArgs(id, "boom", true).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	status, err := q.UpdateJobFailed(context.Background(), UpdateJobFailedParams{
		ID:           id,
		ErrorMessage: sql.NullString{String: "boom", Valid: true},
		Permanent:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "failed", status)
}

func TestDequeueJob_WithTx(t *testing.T) {
	q, mock, db := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	_, err = q.WithTx(tx).DequeueJob(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
}

func TestRecoverStaleJobs(t *testing.T) {
	q, mock, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'pending', started_at = NULL")).
		WithArgs(float64(600)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := q.RecoverStaleJobs(context.Background(), 600)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
