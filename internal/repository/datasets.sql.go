package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const countDatasets = `-- name: CountDatasets :one
SELECT COUNT(*) FROM datasets
`

func (q *Queries) CountDatasets(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDatasets)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getDataset = `-- name: GetDataset :one
SELECT id, name, description, created_at, updated_at
FROM datasets
WHERE id = $1
`

func (q *Queries) GetDataset(ctx context.Context, id uuid.UUID) (Dataset, error) {
	row := q.db.QueryRowContext(ctx, getDataset, id)
	var i Dataset
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDatasetsWithDocumentCount = `-- name: ListDatasetsWithDocumentCount :many
SELECT d.id, d.name, d.description, d.created_at, d.updated_at,
       (SELECT COUNT(*) FROM documents doc WHERE doc.dataset_id = d.id) AS document_count
FROM datasets d
ORDER BY d.created_at DESC, d.id
LIMIT $1 OFFSET $2
`

type ListDatasetsWithDocumentCountParams struct {
	Limit  int32
	Offset int32
}

type ListDatasetsWithDocumentCountRow struct {
	ID            uuid.UUID
	Name          string
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DocumentCount int64
}

func (q *Queries) ListDatasetsWithDocumentCount(ctx context.Context, arg ListDatasetsWithDocumentCountParams) ([]ListDatasetsWithDocumentCountRow, error) {
	rows, err := q.db.QueryContext(ctx, listDatasetsWithDocumentCount, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDatasetsWithDocumentCountRow
	for rows.Next() {
		var i ListDatasetsWithDocumentCountRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.DocumentCount,
		); err != nil {
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
