package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/workflow"
	"github.com/google/uuid"
)

// =============================================================================
// Fakes
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDatasetService struct {
	datasets []domain.Dataset
	total    int64
}

func (f *fakeDatasetService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dataset, error) {
	for i := range f.datasets {
		if f.datasets[i].ID == id {
			return &f.datasets[i], nil
		}
	}
	return nil, domain.NotFound("dataset.get", "dataset", id.String())
}

func (f *fakeDatasetService) List(ctx context.Context, params domain.ListDatasetsParams) (*domain.ListDatasetsResult, error) {
	return &domain.ListDatasetsResult{
		Datasets: f.datasets,
		Total:    f.total,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}, nil
}

type fakeDocumentService struct {
	datasetID uuid.UUID
	total     int64

	lastList    domain.ListDocumentsParams
	uploads     []string
	uploadErrs  map[string]error
	batch       domain.BatchDocumentsParams
	batchErr    error
	downloadURL string
}

func (f *fakeDocumentService) List(ctx context.Context, params domain.ListDocumentsParams) (*domain.ListDocumentsResult, error) {
	if params.DatasetID != f.datasetID {
		return nil, domain.NotFound("document.list", "dataset", params.DatasetID.String())
	}
	f.lastList = params

	var docs []domain.Document
	for i := int64(params.Offset); i < f.total && i < int64(params.Offset)+int64(params.Limit); i++ {
		docs = append(docs, domain.Document{
			ID:             uuid.New(),
			DatasetID:      f.datasetID,
			Name:           fmt.Sprintf("doc-%02d.txt", i),
			ContentType:    "text/plain",
			SizeBytes:      2048,
			WordCount:      1200,
			IndexingStatus: domain.IndexingStatusCompleted,
			Enabled:        true,
			CreatedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return &domain.ListDocumentsResult{
		Documents: docs,
		Total:     f.total,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}, nil
}

func (f *fakeDocumentService) Get(ctx context.Context, datasetID, id uuid.UUID) (*domain.Document, error) {
	return nil, domain.NotFound("document.get", "document", id.String())
}

func (f *fakeDocumentService) Upload(ctx context.Context, params domain.UploadDocumentParams, data io.Reader) (*domain.Document, error) {
	if _, err := io.ReadAll(data); err != nil {
		return nil, err
	}
	if err := f.uploadErrs[params.Filename]; err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, params.Filename)
	return &domain.Document{
		ID:             uuid.New(),
		DatasetID:      params.DatasetID,
		Name:           params.Filename,
		SizeBytes:      params.Size,
		IndexingStatus: domain.IndexingStatusWaiting,
		Enabled:        true,
	}, nil
}

func (f *fakeDocumentService) Batch(ctx context.Context, params domain.BatchDocumentsParams) (int64, error) {
	f.batch = params
	if f.batchErr != nil {
		return 0, f.batchErr
	}
	if err := params.Validate(); err != nil {
		return 0, err
	}
	return int64(len(params.DocumentIDs)), nil
}

func (f *fakeDocumentService) DownloadURL(ctx context.Context, datasetID, id uuid.UUID) (string, error) {
	return f.downloadURL, nil
}

type fakePipelineService struct {
	pipelineID uuid.UUID
	stored     domain.PipelineDraft
	synced     []domain.SyncDraftParams
	dsl        []byte
}

func (f *fakePipelineService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pipeline, error) {
	if id != f.pipelineID {
		return nil, domain.NotFound("pipeline.get", "pipeline", id.String())
	}
	return &domain.Pipeline{ID: id, Name: "support bot"}, nil
}

func (f *fakePipelineService) GetByDataset(ctx context.Context, datasetID uuid.UUID) (*domain.Pipeline, error) {
	return nil, domain.NotFound("pipeline.get_by_dataset", "pipeline", datasetID.String())
}

func (f *fakePipelineService) GetDraft(ctx context.Context, id uuid.UUID) (domain.PipelineDraft, error) {
	if _, err := f.GetByID(ctx, id); err != nil {
		return domain.PipelineDraft{}, err
	}
	return f.stored.Clone(), nil
}

func (f *fakePipelineService) SyncDraft(ctx context.Context, params domain.SyncDraftParams) (domain.PipelineDraft, error) {
	f.synced = append(f.synced, params)
	if params.BaseHash != "" && params.BaseHash != f.stored.Hash {
		return domain.PipelineDraft{}, domain.Conflict("pipeline.sync_draft", domain.DraftNotSyncMessage)
	}
	draft := domain.PipelineDraft{PipelineID: params.PipelineID, Graph: params.Graph, InputFields: params.InputFields}
	hash, err := draft.ComputeHash()
	if err != nil {
		return domain.PipelineDraft{}, err
	}
	draft.Hash = hash
	f.stored = draft
	return draft, nil
}

func (f *fakePipelineService) SaveDraft(ctx context.Context, draft domain.PipelineDraft) (string, error) {
	saved, err := f.SyncDraft(ctx, domain.SyncDraftParams{
		PipelineID:  draft.PipelineID,
		Graph:       draft.Graph,
		InputFields: draft.InputFields,
		BaseHash:    draft.Hash,
	})
	return saved.Hash, err
}

func (f *fakePipelineService) ExportDSL(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return f.dsl, nil
}

// newTestStore returns a store whose autosave never fires during a test.
func newTestStore(saver workflow.DraftSaver) *workflow.Store {
	return workflow.NewStore(saver, time.Hour, testLogger())
}
