// Package service contains the business logic layer.
//
// This file implements the dataset service for browsing datasets.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// DatasetService defines the interface for dataset-related operations.
type DatasetService interface {
	// GetByID retrieves a dataset by ID.
	// Returns domain.ENOTFOUND if the dataset does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error)

	// List retrieves a paginated list of datasets with document counts.
	List(ctx context.Context, params domain.ListDatasetsParams) (*domain.ListDatasetsResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type datasetService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewDatasetService creates a new DatasetService.
func NewDatasetService(queries *repository.Queries, logger *slog.Logger) DatasetService {
	return &datasetService{
		queries: queries,
		logger:  logger,
	}
}

// GetByID retrieves a dataset by ID.
func (s *datasetService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	const op = "dataset.get"

	row, err := s.queries.GetDataset(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "dataset", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get dataset")
	}

	return &domain.Dataset{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// List retrieves a paginated list of datasets.
func (s *datasetService) List(ctx context.Context, params domain.ListDatasetsParams) (*domain.ListDatasetsResult, error) {
	const op = "dataset.list"

	params.Limit, params.Offset = normalizePage(params.Limit, params.Offset)

	total, err := s.queries.CountDatasets(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count datasets")
	}
	params.Offset = clampOffset(params.Offset, params.Limit, total)

	rows, err := s.queries.ListDatasetsWithDocumentCount(ctx, repository.ListDatasetsWithDocumentCountParams{
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list datasets")
	}

	datasets := make([]domain.Dataset, 0, len(rows))
	for _, row := range rows {
		datasets = append(datasets, domain.Dataset{
			ID:            row.ID,
			Name:          row.Name,
			Description:   row.Description,
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
			DocumentCount: row.DocumentCount,
		})
	}

	return &domain.ListDatasetsResult{
		Datasets: datasets,
		Total:    total,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}, nil
}

// =============================================================================
// Paging helpers
// =============================================================================

const maxListLimit = 100

// normalizePage applies the default page size and rejects negative offsets.
func normalizePage(limit, offset int32) (int32, int32) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// clampOffset moves an offset past the end of the list onto the first item of
// the last page, so a stale page link still shows results.
func clampOffset(offset, limit int32, total int64) int32 {
	if total <= 0 || int64(offset) < total {
		return offset
	}
	return int32((total - 1) / int64(limit) * int64(limit))
}
