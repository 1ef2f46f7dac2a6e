// Package service contains the business logic layer.
//
// This file implements the document service: listing, uploading, batch
// actions and downloads for a dataset's documents.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/metrics"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/DukeRupert/datadeck/internal/storage"
	"github.com/DukeRupert/datadeck/internal/worker"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// =============================================================================
// Interface Definition
// =============================================================================

// DocumentService defines the interface for document-related operations.
type DocumentService interface {
	// List retrieves one page of a dataset's documents, optionally filtered
	// by a name keyword. An offset past the end selects the last page.
	// Returns domain.ENOTFOUND if the dataset does not exist.
	List(ctx context.Context, params domain.ListDocumentsParams) (*domain.ListDocumentsResult, error)

	// Get retrieves a single document in a dataset.
	// Returns domain.ENOTFOUND if it does not exist.
	Get(ctx context.Context, datasetID, id uuid.UUID) (*domain.Document, error)

	// Upload stores the file, creates the document row and queues indexing.
	// Returns domain.EINVALID for unsupported files and domain.ETOOLARGE
	// when the file exceeds the upload limit.
	Upload(ctx context.Context, params domain.UploadDocumentParams, data io.Reader) (*domain.Document, error)

	// Batch applies an action to the selected documents and returns the
	// number of documents affected.
	Batch(ctx context.Context, params domain.BatchDocumentsParams) (int64, error)

	// DownloadURL returns a URL that downloads the original file.
	DownloadURL(ctx context.Context, datasetID, id uuid.UUID) (string, error)
}

// DocumentServiceConfig holds tunables for the document service.
type DocumentServiceConfig struct {
	MaxUploadBytes int64
	CountCacheSize int
	CountCacheTTL  time.Duration
	DownloadExpiry time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// countKey identifies a cached document count.
type countKey struct {
	DatasetID uuid.UUID
	Keyword   string
}

type documentService struct {
	db      *sql.DB
	queries *repository.Queries
	storage storage.Storage
	counts  *expirable.LRU[countKey, int64]
	config  DocumentServiceConfig
	logger  *slog.Logger
}

// NewDocumentService creates a new DocumentService.
//
// Document counts are cached per dataset and keyword for CountCacheTTL, so
// paging through a large dataset costs one COUNT per cache period. Uploads
// and deletes invalidate the dataset's entries.
func NewDocumentService(
	db *sql.DB,
	queries *repository.Queries,
	store storage.Storage,
	config DocumentServiceConfig,
	logger *slog.Logger,
) DocumentService {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = domain.MaxUploadSize
	}
	if config.CountCacheSize <= 0 {
		config.CountCacheSize = 256
	}
	if config.CountCacheTTL <= 0 {
		config.CountCacheTTL = 30 * time.Second
	}
	if config.DownloadExpiry <= 0 {
		config.DownloadExpiry = 15 * time.Minute
	}

	return &documentService{
		db:      db,
		queries: queries,
		storage: store,
		counts:  expirable.NewLRU[countKey, int64](config.CountCacheSize, nil, config.CountCacheTTL),
		config:  config,
		logger:  logger,
	}
}

// =============================================================================
// List
// =============================================================================

func (s *documentService) List(ctx context.Context, params domain.ListDocumentsParams) (*domain.ListDocumentsResult, error) {
	const op = "document.list"

	if _, err := s.queries.GetDataset(ctx, params.DatasetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "dataset", params.DatasetID.String())
		}
		return nil, domain.Internal(err, op, "failed to get dataset")
	}

	params.Keyword = strings.TrimSpace(params.Keyword)
	params.Limit, params.Offset = normalizePage(params.Limit, params.Offset)

	total, err := s.count(ctx, params.DatasetID, params.Keyword)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count documents")
	}
	params.Offset = clampOffset(params.Offset, params.Limit, total)

	rows, err := s.queries.ListDocumentsByDataset(ctx, repository.ListDocumentsByDatasetParams{
		DatasetID: params.DatasetID,
		Keyword:   params.Keyword,
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list documents")
	}

	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, rowToDocument(row))
	}

	return &domain.ListDocumentsResult{
		Documents: docs,
		Total:     total,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}, nil
}

func (s *documentService) count(ctx context.Context, datasetID uuid.UUID, keyword string) (int64, error) {
	key := countKey{DatasetID: datasetID, Keyword: keyword}
	if total, ok := s.counts.Get(key); ok {
		metrics.CountCacheLookups.WithLabelValues("hit").Inc()
		return total, nil
	}
	metrics.CountCacheLookups.WithLabelValues("miss").Inc()

	total, err := s.queries.CountDocumentsByDataset(ctx, repository.CountDocumentsByDatasetParams{
		DatasetID: datasetID,
		Keyword:   keyword,
	})
	if err != nil {
		return 0, err
	}
	s.counts.Add(key, total)
	return total, nil
}

// invalidateCounts drops every cached count for the dataset.
func (s *documentService) invalidateCounts(datasetID uuid.UUID) {
	for _, key := range s.counts.Keys() {
		if key.DatasetID == datasetID {
			s.counts.Remove(key)
		}
	}
}

// =============================================================================
// Get / Download
// =============================================================================

func (s *documentService) Get(ctx context.Context, datasetID, id uuid.UUID) (*domain.Document, error) {
	const op = "document.get"

	row, err := s.queries.GetDocument(ctx, repository.GetDocumentParams{ID: id, DatasetID: datasetID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "document", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get document")
	}

	doc := rowToDocument(row)
	return &doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, datasetID, id uuid.UUID) (string, error) {
	const op = "document.download"

	doc, err := s.Get(ctx, datasetID, id)
	if err != nil {
		return "", err
	}

	url, err := s.storage.DownloadURL(ctx, doc.StorageKey, doc.Name, s.config.DownloadExpiry)
	if err != nil {
		return "", s.storageError(err, op, "failed to create download link")
	}
	return url, nil
}

// storageError maps a storage failure onto a domain error. A key that is
// invalid can never hold a file, so it reads as a missing file.
func (s *documentService) storageError(err error, op, message string) error {
	switch {
	case storage.IsTooLarge(err):
		return domain.TooLarge(op, tooLargeMessage(s.config.MaxUploadBytes))
	case storage.IsNotFound(err), storage.IsInvalidKey(err):
		return domain.Wrap(err, domain.ENOTFOUND, op, "file is missing from storage")
	case storage.IsKeyExists(err):
		return domain.Wrap(err, domain.ECONFLICT, op, "a file is already stored for this document")
	case storage.IsAccessDenied(err):
		s.logger.Error("storage denied access", "op", op, "error", err)
		return domain.Internal(err, op, message)
	default:
		return domain.Internal(err, op, message)
	}
}

// =============================================================================
// Upload
// =============================================================================

func (s *documentService) Upload(ctx context.Context, params domain.UploadDocumentParams, data io.Reader) (*domain.Document, error) {
	const op = "document.upload"

	name := strings.TrimSpace(params.Filename)
	if name == "" {
		return nil, domain.Invalid(op, "choose a file to upload")
	}
	if len(name) > 255 {
		return nil, domain.Invalid(op, "file name must be 255 characters or less")
	}
	if !storage.IsAllowedDocument(name) {
		return nil, domain.Invalid(op, "unsupported file type")
	}
	if params.Size > s.config.MaxUploadBytes {
		return nil, domain.TooLarge(op, tooLargeMessage(s.config.MaxUploadBytes))
	}

	if _, err := s.queries.GetDataset(ctx, params.DatasetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "dataset", params.DatasetID.String())
		}
		return nil, domain.Internal(err, op, "failed to get dataset")
	}

	docID := uuid.New()
	key := storage.DocumentKey(params.DatasetID, docID, name)
	contentType := storage.DetectContentType(name, nil)

	err := s.storage.Put(ctx, key, data, storage.PutOptions{
		ContentType: contentType,
		MaxSize:     s.config.MaxUploadBytes,
	})
	if err != nil {
		return nil, s.storageError(err, op, "failed to store file")
	}

	row, err := s.createAndEnqueue(ctx, repository.CreateDocumentParams{
		ID:          docID,
		DatasetID:   params.DatasetID,
		Name:        name,
		StorageKey:  key,
		ContentType: contentType,
		SizeBytes:   params.Size,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned upload", "key", key, "error", delErr)
		}
		return nil, domain.Internal(err, op, "failed to save document")
	}

	s.invalidateCounts(params.DatasetID)
	metrics.DocumentsUploaded.Inc()

	s.logger.Info("document uploaded",
		"document_id", row.ID,
		"dataset_id", params.DatasetID,
		"name", name,
		"size", params.Size,
	)

	doc := rowToDocument(row)
	return &doc, nil
}

// createAndEnqueue inserts the document and its indexing job in one
// transaction, so a document never waits on a job that does not exist.
func (s *documentService) createAndEnqueue(ctx context.Context, params repository.CreateDocumentParams) (repository.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Document{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	row, err := qtx.CreateDocument(ctx, params)
	if err != nil {
		return repository.Document{}, fmt.Errorf("create document: %w", err)
	}

	if _, err := worker.EnqueueIndexDocument(ctx, qtx, params.DatasetID, row.ID, worker.WithPriority(worker.PriorityHigh)); err != nil {
		return repository.Document{}, err
	}

	if err := tx.Commit(); err != nil {
		return repository.Document{}, fmt.Errorf("commit: %w", err)
	}
	return row, nil
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("file must be %d MB or smaller", limit>>20)
}

// =============================================================================
// Batch
// =============================================================================

func (s *documentService) Batch(ctx context.Context, params domain.BatchDocumentsParams) (int64, error) {
	const op = "document.batch"

	if err := params.Validate(); err != nil {
		return 0, err
	}

	var (
		affected int64
		err      error
	)

	switch params.Action {
	case domain.BatchActionEnable, domain.BatchActionDisable:
		affected, err = s.queries.SetDocumentsEnabled(ctx, repository.SetDocumentsEnabledParams{
			DatasetID: params.DatasetID,
			IDs:       params.DocumentIDs,
			Enabled:   params.Action == domain.BatchActionEnable,
		})
	case domain.BatchActionArchive, domain.BatchActionUnarchive:
		affected, err = s.queries.SetDocumentsArchived(ctx, repository.SetDocumentsArchivedParams{
			DatasetID: params.DatasetID,
			IDs:       params.DocumentIDs,
			Archived:  params.Action == domain.BatchActionArchive,
		})
	case domain.BatchActionDelete:
		affected, err = s.deleteDocuments(ctx, params)
	}
	if err != nil {
		return 0, domain.Internal(err, op, "failed to apply batch action")
	}

	metrics.DocumentBatchActions.WithLabelValues(string(params.Action)).Add(float64(affected))

	s.logger.Info("document batch action",
		"dataset_id", params.DatasetID,
		"action", params.Action,
		"requested", len(params.DocumentIDs),
		"affected", affected,
	)

	return affected, nil
}

// deleteDocuments removes the rows first, then the stored objects. Object
// deletion failures are logged and leave orphans in storage only.
func (s *documentService) deleteDocuments(ctx context.Context, params domain.BatchDocumentsParams) (int64, error) {
	keys, err := s.queries.DeleteDocuments(ctx, repository.DeleteDocumentsParams{
		DatasetID: params.DatasetID,
		IDs:       params.DocumentIDs,
	})
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete document file", "key", key, "error", err)
		}
	}

	s.invalidateCounts(params.DatasetID)
	return int64(len(keys)), nil
}

// =============================================================================
// Conversion
// =============================================================================

func rowToDocument(row repository.Document) domain.Document {
	return domain.Document{
		ID:             row.ID,
		DatasetID:      row.DatasetID,
		Name:           row.Name,
		StorageKey:     row.StorageKey,
		ContentType:    row.ContentType,
		SizeBytes:      row.SizeBytes,
		WordCount:      row.WordCount,
		IndexingStatus: domain.IndexingStatus(row.IndexingStatus),
		Enabled:        row.Enabled,
		Archived:       row.Archived,
		Error:          domain.NullStringValue(row.Error),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
