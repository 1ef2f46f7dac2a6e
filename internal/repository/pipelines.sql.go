package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const getPipeline = `-- name: GetPipeline :one
SELECT id, dataset_id, name, created_at, updated_at
FROM pipelines
WHERE id = $1
`

func (q *Queries) GetPipeline(ctx context.Context, id uuid.UUID) (Pipeline, error) {
	row := q.db.QueryRowContext(ctx, getPipeline, id)
	var i Pipeline
	err := row.Scan(
		&i.ID,
		&i.DatasetID,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getPipelineByDataset = `-- name: GetPipelineByDataset :one
SELECT id, dataset_id, name, created_at, updated_at
FROM pipelines
WHERE dataset_id = $1
`

func (q *Queries) GetPipelineByDataset(ctx context.Context, datasetID uuid.UUID) (Pipeline, error) {
	row := q.db.QueryRowContext(ctx, getPipelineByDataset, datasetID)
	var i Pipeline
	err := row.Scan(
		&i.ID,
		&i.DatasetID,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getPipelineDraft = `-- name: GetPipelineDraft :one
SELECT pipeline_id, graph, input_fields, hash, updated_at
FROM pipeline_drafts
WHERE pipeline_id = $1
`

func (q *Queries) GetPipelineDraft(ctx context.Context, pipelineID uuid.UUID) (PipelineDraft, error) {
	row := q.db.QueryRowContext(ctx, getPipelineDraft, pipelineID)
	var i PipelineDraft
	err := row.Scan(
		&i.PipelineID,
		&i.Graph,
		&i.InputFields,
		&i.Hash,
		&i.UpdatedAt,
	)
	return i, err
}

const getPipelineDraftForUpdate = `-- name: GetPipelineDraftForUpdate :one
SELECT pipeline_id, graph, input_fields, hash, updated_at
FROM pipeline_drafts
WHERE pipeline_id = $1
FOR UPDATE
`

// GetPipelineDraftForUpdate locks the draft row until the transaction ends.
func (q *Queries) GetPipelineDraftForUpdate(ctx context.Context, pipelineID uuid.UUID) (PipelineDraft, error) {
	row := q.db.QueryRowContext(ctx, getPipelineDraftForUpdate, pipelineID)
	var i PipelineDraft
	err := row.Scan(
		&i.PipelineID,
		&i.Graph,
		&i.InputFields,
		&i.Hash,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertPipelineDraft = `-- name: UpsertPipelineDraft :one
INSERT INTO pipeline_drafts (pipeline_id, graph, input_fields, hash, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (pipeline_id) DO UPDATE
SET graph = EXCLUDED.graph,
    input_fields = EXCLUDED.input_fields,
    hash = EXCLUDED.hash,
    updated_at = NOW()
RETURNING pipeline_id, graph, input_fields, hash, updated_at
`

type UpsertPipelineDraftParams struct {
	PipelineID  uuid.UUID
	Graph       pqtype.NullRawMessage
	InputFields json.RawMessage
	Hash        string
}

func (q *Queries) UpsertPipelineDraft(ctx context.Context, arg UpsertPipelineDraftParams) (PipelineDraft, error) {
	row := q.db.QueryRowContext(ctx, upsertPipelineDraft,
		arg.PipelineID,
		arg.Graph,
		arg.InputFields,
		arg.Hash,
	)
	var i PipelineDraft
	err := row.Scan(
		&i.PipelineID,
		&i.Graph,
		&i.InputFields,
		&i.Hash,
		&i.UpdatedAt,
	)
	return i, err
}
