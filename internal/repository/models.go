package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Dataset struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Document struct {
	ID             uuid.UUID
	DatasetID      uuid.UUID
	Name           string
	StorageKey     string
	ContentType    string
	SizeBytes      int64
	WordCount      int32
	IndexingStatus string
	Enabled        bool
	Archived       bool
	Error          sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Pipeline struct {
	ID        uuid.UUID
	DatasetID uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PipelineDraft struct {
	PipelineID  uuid.UUID
	Graph       pqtype.NullRawMessage
	InputFields json.RawMessage
	Hash        string
	UpdatedAt   time.Time
}

type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}
