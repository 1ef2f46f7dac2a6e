package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "concurrency too low",
			config: Config{
				Concurrency:       0,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "concurrency too high",
			config: Config{
				Concurrency:       101,
				PollInterval:      5 * time.Second,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "poll interval too short",
			config: Config{
				Concurrency:       2,
				PollInterval:      500 * time.Millisecond,
				JobTimeout:        5 * time.Minute,
				ShutdownTimeout:   30 * time.Second,
				StaleJobThreshold: 10 * time.Minute,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "permanent error",
			err:  NewPermanentError(context.Canceled),
			want: true,
		},
		{
			name: "regular error",
			err:  context.Canceled,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Job Processing Tests
// =============================================================================

type fakeHandler struct {
	jobType string
	err     error
	got     []byte
}

func (h *fakeHandler) Type() string { return h.jobType }

func (h *fakeHandler) Handle(ctx context.Context, payload []byte) error {
	h.got = payload
	return h.err
}

var jobRowColumns = []string{
	"id", "job_type", "payload", "status", "priority", "attempts", "max_attempts",
	"error_message", "scheduled_at", "started_at", "completed_at", "created_at",
}

func newTestWorker(t *testing.T) (*Worker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(db, repository.New(db), DefaultConfig(), logger)
	require.NoError(t, err)
	return w, mock
}

func expectDequeue(mock sqlmock.Sqlmock, id uuid.UUID, jobType string, payload string) {
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).
			AddRow(id.String(), jobType, []byte(payload), "pending", int64(10), int64(0), int64(3),
				nil, now, nil, nil, now))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'running'")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestProcessNextJob_Success(t *testing.T) {
	w, mock := newTestWorker(t)
	handler := &fakeHandler{jobType: JobTypeIndexDocument}
	w.Register(handler)

	id := uuid.New()
	expectDequeue(mock, id, JobTypeIndexDocument, `{"document_id":"x"}`)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := w.processNextJob(context.Background(), w.logger)
	require.NoError(t, err)
	assert.JSONEq(t, `{"document_id":"x"}`, string(handler.got))
}

func TestProcessNextJob_NoJobs(t *testing.T) {
	w, mock := newTestWorker(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := w.processNextJob(context.Background(), w.logger)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestProcessNextJob_FailureIsRescheduled(t *testing.T) {
	w, mock := newTestWorker(t)
	w.Register(&fakeHandler{jobType: JobTypeIndexDocument, err: errors.New("storage unavailable")})

	id := uuid.New()
	expectDequeue(mock, id, JobTypeIndexDocument, `{}`)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).
		WithArgs(id, "storage unavailable", false).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))

	err := w.processNextJob(context.Background(), w.logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
}

func TestProcessNextJob_UnknownTypeIsPermanent(t *testing.T) {
	w, mock := newTestWorker(t)

	id := uuid.New()
	expectDequeue(mock, id, "mystery", `{}`)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).
		WithArgs(id, sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	err := w.processNextJob(context.Background(), w.logger)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

// =============================================================================
// Enqueue Tests
// =============================================================================

func TestEnqueueIndexDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	datasetID, documentID := uuid.New(), uuid.New()
	payload, err := json.Marshal(IndexDocumentPayload{DocumentID: documentID, DatasetID: datasetID})
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs(JobTypeIndexDocument, payload, int32(PriorityHigh), int32(5), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).
			AddRow(uuid.NewString(), JobTypeIndexDocument, payload, "pending", int64(PriorityHigh), int64(0), int64(5),
				nil, now, nil, nil, now))

	job, err := EnqueueIndexDocument(context.Background(), repository.New(db), datasetID, documentID,
		WithPriority(PriorityHigh), WithMaxAttempts(5))
	require.NoError(t, err)
	assert.Equal(t, JobTypeIndexDocument, job.JobType)
	assert.Equal(t, int32(5), job.MaxAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
