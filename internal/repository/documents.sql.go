package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const documentColumns = `id, dataset_id, name, storage_key, content_type, size_bytes, word_count,
       indexing_status, enabled, archived, error, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (Document, error) {
	var i Document
	err := row.Scan(
		&i.ID,
		&i.DatasetID,
		&i.Name,
		&i.StorageKey,
		&i.ContentType,
		&i.SizeBytes,
		&i.WordCount,
		&i.IndexingStatus,
		&i.Enabled,
		&i.Archived,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countDocumentsByDataset = `-- name: CountDocumentsByDataset :one
SELECT COUNT(*) FROM documents
WHERE dataset_id = $1
  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%')
`

type CountDocumentsByDatasetParams struct {
	DatasetID uuid.UUID
	Keyword   string
}

func (q *Queries) CountDocumentsByDataset(ctx context.Context, arg CountDocumentsByDatasetParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDocumentsByDataset, arg.DatasetID, arg.Keyword)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listDocumentsByDataset = `-- name: ListDocumentsByDataset :many
SELECT ` + documentColumns + `
FROM documents
WHERE dataset_id = $1
  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%')
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4
`

type ListDocumentsByDatasetParams struct {
	DatasetID uuid.UUID
	Keyword   string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListDocumentsByDataset(ctx context.Context, arg ListDocumentsByDatasetParams) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, listDocumentsByDataset,
		arg.DatasetID,
		arg.Keyword,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		i, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDocument = `-- name: GetDocument :one
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1 AND dataset_id = $2
`

type GetDocumentParams struct {
	ID        uuid.UUID
	DatasetID uuid.UUID
}

func (q *Queries) GetDocument(ctx context.Context, arg GetDocumentParams) (Document, error) {
	return scanDocument(q.db.QueryRowContext(ctx, getDocument, arg.ID, arg.DatasetID))
}

const getDocumentByID = `-- name: GetDocumentByID :one
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
`

func (q *Queries) GetDocumentByID(ctx context.Context, id uuid.UUID) (Document, error) {
	return scanDocument(q.db.QueryRowContext(ctx, getDocumentByID, id))
}

const createDocument = `-- name: CreateDocument :one
INSERT INTO documents (id, dataset_id, name, storage_key, content_type, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + documentColumns + `
`

type CreateDocumentParams struct {
	ID          uuid.UUID
	DatasetID   uuid.UUID
	Name        string
	StorageKey  string
	ContentType string
	SizeBytes   int64
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	row := q.db.QueryRowContext(ctx, createDocument,
		arg.ID,
		arg.DatasetID,
		arg.Name,
		arg.StorageKey,
		arg.ContentType,
		arg.SizeBytes,
	)
	return scanDocument(row)
}

const updateDocumentIndexingStatus = `-- name: UpdateDocumentIndexingStatus :exec
UPDATE documents
SET indexing_status = $2,
    word_count = $3,
    error = $4,
    updated_at = NOW()
WHERE id = $1
`

type UpdateDocumentIndexingStatusParams struct {
	ID             uuid.UUID
	IndexingStatus string
	WordCount      int32
	Error          sql.NullString
}

func (q *Queries) UpdateDocumentIndexingStatus(ctx context.Context, arg UpdateDocumentIndexingStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateDocumentIndexingStatus,
		arg.ID,
		arg.IndexingStatus,
		arg.WordCount,
		arg.Error,
	)
	return err
}

const setDocumentsEnabled = `-- name: SetDocumentsEnabled :execrows
UPDATE documents
SET enabled = $3, updated_at = NOW()
WHERE dataset_id = $1 AND id = ANY($2::uuid[])
`

type SetDocumentsEnabledParams struct {
	DatasetID uuid.UUID
	IDs       []uuid.UUID
	Enabled   bool
}

func (q *Queries) SetDocumentsEnabled(ctx context.Context, arg SetDocumentsEnabledParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setDocumentsEnabled, arg.DatasetID, pq.Array(arg.IDs), arg.Enabled)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setDocumentsArchived = `-- name: SetDocumentsArchived :execrows
UPDATE documents
SET archived = $3, updated_at = NOW()
WHERE dataset_id = $1 AND id = ANY($2::uuid[])
`

type SetDocumentsArchivedParams struct {
	DatasetID uuid.UUID
	IDs       []uuid.UUID
	Archived  bool
}

func (q *Queries) SetDocumentsArchived(ctx context.Context, arg SetDocumentsArchivedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setDocumentsArchived, arg.DatasetID, pq.Array(arg.IDs), arg.Archived)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteDocuments = `-- name: DeleteDocuments :many
DELETE FROM documents
WHERE dataset_id = $1 AND id = ANY($2::uuid[])
RETURNING storage_key
`

type DeleteDocumentsParams struct {
	DatasetID uuid.UUID
	IDs       []uuid.UUID
}

// DeleteDocuments removes the documents and returns their storage keys so
// the objects can be deleted after the rows are gone.
func (q *Queries) DeleteDocuments(ctx context.Context, arg DeleteDocumentsParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, deleteDocuments, arg.DatasetID, pq.Array(arg.IDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
