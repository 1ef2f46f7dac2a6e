// Package service contains the business logic layer.
//
// This file implements the pipeline service: draft loading, hash-checked
// draft sync and DSL export.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/metrics"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PipelineService defines the interface for pipeline-related operations.
type PipelineService interface {
	// GetByID retrieves a pipeline.
	// Returns domain.ENOTFOUND if the pipeline does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error)

	// GetByDataset retrieves the pipeline attached to a dataset.
	// Returns domain.ENOTFOUND if the dataset has none.
	GetByDataset(ctx context.Context, datasetID uuid.UUID) (*domain.Pipeline, error)

	// GetDraft returns the stored draft. A pipeline that has never been
	// saved yields an empty draft with its hash filled in.
	GetDraft(ctx context.Context, id uuid.UUID) (domain.PipelineDraft, error)

	// SyncDraft validates and stores a draft.
	// Returns domain.ECONFLICT with domain.DraftNotSyncMessage when BaseHash
	// is set and no longer matches the stored draft.
	SyncDraft(ctx context.Context, params domain.SyncDraftParams) (domain.PipelineDraft, error)

	// SaveDraft stores draft using draft.Hash as the base hash and returns
	// the new hash.
	SaveDraft(ctx context.Context, draft domain.PipelineDraft) (string, error)

	// ExportDSL renders the pipeline and its draft as YAML.
	ExportDSL(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// =============================================================================
// Implementation
// =============================================================================

type pipelineService struct {
	db      *sql.DB
	queries *repository.Queries
	logger  *slog.Logger
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(db *sql.DB, queries *repository.Queries, logger *slog.Logger) PipelineService {
	return &pipelineService{
		db:      db,
		queries: queries,
		logger:  logger,
	}
}

func (s *pipelineService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error) {
	const op = "pipeline.get"

	row, err := s.queries.GetPipeline(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "pipeline", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get pipeline")
	}
	return rowToPipeline(row), nil
}

func (s *pipelineService) GetByDataset(ctx context.Context, datasetID uuid.UUID) (*domain.Pipeline, error) {
	const op = "pipeline.get_by_dataset"

	row, err := s.queries.GetPipelineByDataset(ctx, datasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "pipeline", datasetID.String())
		}
		return nil, domain.Internal(err, op, "failed to get pipeline")
	}
	return rowToPipeline(row), nil
}

// =============================================================================
// Drafts
// =============================================================================

func (s *pipelineService) GetDraft(ctx context.Context, id uuid.UUID) (domain.PipelineDraft, error) {
	const op = "pipeline.get_draft"

	if _, err := s.GetByID(ctx, id); err != nil {
		return domain.PipelineDraft{}, err
	}

	row, err := s.queries.GetPipelineDraft(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		draft := domain.PipelineDraft{PipelineID: id, InputFields: []domain.InputField{}}
		if draft.Hash, err = draft.ComputeHash(); err != nil {
			return domain.PipelineDraft{}, err
		}
		return draft, nil
	}
	if err != nil {
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to get draft")
	}

	return rowToDraft(row, op)
}

func (s *pipelineService) SyncDraft(ctx context.Context, params domain.SyncDraftParams) (domain.PipelineDraft, error) {
	const op = "pipeline.sync_draft"

	draft, err := s.syncDraft(ctx, params)
	switch domain.ErrorCode(err) {
	case "":
		metrics.DraftSyncs.WithLabelValues("ok").Inc()
	case domain.ECONFLICT:
		metrics.DraftSyncs.WithLabelValues("conflict").Inc()
		s.logger.Info("draft sync rejected, stale hash", "pipeline_id", params.PipelineID)
	default:
		metrics.DraftSyncs.WithLabelValues("error").Inc()
	}
	if err != nil {
		return domain.PipelineDraft{}, err
	}

	s.logger.Debug("draft synced", "op", op, "pipeline_id", params.PipelineID, "hash", draft.Hash)
	return draft, nil
}

func (s *pipelineService) syncDraft(ctx context.Context, params domain.SyncDraftParams) (domain.PipelineDraft, error) {
	const op = "pipeline.sync_draft"

	if err := domain.ValidateInputFields(params.InputFields); err != nil {
		return domain.PipelineDraft{}, err
	}

	draft := domain.PipelineDraft{
		PipelineID:  params.PipelineID,
		Graph:       params.Graph,
		InputFields: params.InputFields,
	}
	if draft.InputFields == nil {
		draft.InputFields = []domain.InputField{}
	}
	hash, err := draft.ComputeHash()
	if err != nil {
		return domain.PipelineDraft{}, err
	}

	fields, err := json.Marshal(draft.InputFields)
	if err != nil {
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to encode input fields")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if _, err := qtx.GetPipeline(ctx, params.PipelineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PipelineDraft{}, domain.NotFound(op, "pipeline", params.PipelineID.String())
		}
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to get pipeline")
	}

	current, err := qtx.GetPipelineDraftForUpdate(ctx, params.PipelineID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First save; nothing to conflict with.
	case err != nil:
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to lock draft")
	case params.BaseHash != "" && current.Hash != params.BaseHash:
		return domain.PipelineDraft{}, domain.Conflict(op, domain.DraftNotSyncMessage)
	}

	row, err := qtx.UpsertPipelineDraft(ctx, repository.UpsertPipelineDraftParams{
		PipelineID:  params.PipelineID,
		Graph:       pqtype.NullRawMessage{RawMessage: draft.Graph, Valid: len(draft.Graph) > 0},
		InputFields: fields,
		Hash:        hash,
	})
	if err != nil {
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to save draft")
	}

	if err := tx.Commit(); err != nil {
		return domain.PipelineDraft{}, domain.Internal(err, op, "failed to commit draft")
	}

	return rowToDraft(row, op)
}

func (s *pipelineService) SaveDraft(ctx context.Context, draft domain.PipelineDraft) (string, error) {
	saved, err := s.SyncDraft(ctx, domain.SyncDraftParams{
		PipelineID:  draft.PipelineID,
		Graph:       draft.Graph,
		InputFields: draft.InputFields,
		BaseHash:    draft.Hash,
	})
	if err != nil {
		return "", err
	}
	return saved.Hash, nil
}

// =============================================================================
// DSL Export
// =============================================================================

func (s *pipelineService) ExportDSL(ctx context.Context, id uuid.UUID) ([]byte, error) {
	const op = "pipeline.export_dsl"

	pipeline, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	draft, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	dsl, err := domain.NewPipelineDSL(*pipeline, draft)
	if err != nil {
		return nil, err
	}

	out, err := yaml.Marshal(dsl)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode DSL")
	}
	return out, nil
}

// =============================================================================
// Conversion
// =============================================================================

func rowToPipeline(row repository.Pipeline) *domain.Pipeline {
	return &domain.Pipeline{
		ID:        row.ID,
		DatasetID: row.DatasetID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func rowToDraft(row repository.PipelineDraft, op string) (domain.PipelineDraft, error) {
	draft := domain.PipelineDraft{
		PipelineID: row.PipelineID,
		Hash:       row.Hash,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.Graph.Valid {
		draft.Graph = row.Graph.RawMessage
	}
	if err := json.Unmarshal(row.InputFields, &draft.InputFields); err != nil {
		return domain.PipelineDraft{}, domain.Internal(fmt.Errorf("decode input fields: %w", err), op, "stored draft is corrupt")
	}
	if draft.InputFields == nil {
		draft.InputFields = []domain.InputField{}
	}
	return draft, nil
}
