// Package domain contains core business types and interfaces.
//
// This file defines the Dataset and Document types and the parameters for
// listing, uploading, and bulk-updating documents.
package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Dataset
// =============================================================================

// Dataset is a named collection of documents.
type Dataset struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Computed by list queries
	DocumentCount int64
}

// ListDatasetsParams contains parameters for listing datasets.
type ListDatasetsParams struct {
	Limit  int32
	Offset int32
}

// ListDatasetsResult contains one page of datasets.
type ListDatasetsResult struct {
	Datasets []Dataset
	Total    int64
	Limit    int32
	Offset   int32
}

// Pagination returns the list-level pagination props for this page.
func (r *ListDatasetsResult) Pagination() pagination.Props {
	return listProps(r.Total, r.Limit, r.Offset)
}

// =============================================================================
// Document Indexing Status
// =============================================================================

// IndexingStatus is the background indexing state of a document.
type IndexingStatus string

const (
	// IndexingStatusWaiting: uploaded, job queued.
	IndexingStatusWaiting IndexingStatus = "waiting"
	// IndexingStatusIndexing: a worker is processing the document.
	IndexingStatusIndexing IndexingStatus = "indexing"
	// IndexingStatusCompleted: indexed and searchable.
	IndexingStatusCompleted IndexingStatus = "completed"
	// IndexingStatusError: indexing failed; Error holds the reason.
	IndexingStatusError IndexingStatus = "error"
)

func (s IndexingStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined values.
func (s IndexingStatus) IsValid() bool {
	switch s {
	case IndexingStatusWaiting, IndexingStatusIndexing,
		IndexingStatusCompleted, IndexingStatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the indexer may move a document from s to
// target. Any state may be re-queued.
func (s IndexingStatus) CanTransitionTo(target IndexingStatus) bool {
	if target == IndexingStatusWaiting {
		return true
	}
	switch s {
	case IndexingStatusWaiting:
		return target == IndexingStatusIndexing
	case IndexingStatusIndexing:
		return target == IndexingStatusCompleted || target == IndexingStatusError
	}
	return false
}

// =============================================================================
// Document
// =============================================================================

// Document is an uploaded file belonging to a dataset.
type Document struct {
	ID             uuid.UUID
	DatasetID      uuid.UUID
	Name           string // Original filename
	StorageKey     string // Key in object storage
	ContentType    string
	SizeBytes      int64
	WordCount      int32
	IndexingStatus IndexingStatus
	Enabled        bool
	Archived       bool
	Error          string // Last indexing error, if any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayStatus is the single status shown in the documents table.
// Indexing states win over the enabled/archived flags.
func (d *Document) DisplayStatus() string {
	switch {
	case d.IndexingStatus == IndexingStatusWaiting:
		return "queuing"
	case d.IndexingStatus == IndexingStatusIndexing:
		return "indexing"
	case d.IndexingStatus == IndexingStatusError:
		return "error"
	case d.Archived:
		return "archived"
	case !d.Enabled:
		return "disabled"
	default:
		return "available"
	}
}

// DisplayStatusTitle returns DisplayStatus in title case for labels.
func (d *Document) DisplayStatusTitle() string {
	return cases.Title(language.English).String(d.DisplayStatus())
}

// Extension returns the lower-cased file extension including the dot.
func (d *Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// =============================================================================
// Document Service Parameters
// =============================================================================

// ListDocumentsParams contains parameters for listing a dataset's documents.
type ListDocumentsParams struct {
	DatasetID uuid.UUID
	Keyword   string // Case-insensitive name filter; empty lists all
	Limit     int32
	Offset    int32
}

// ListDocumentsResult contains one page of documents.
type ListDocumentsResult struct {
	Documents []Document
	Total     int64
	Limit     int32
	Offset    int32
}

// HasMore returns true if there are more results available.
func (r *ListDocumentsResult) HasMore() bool {
	return int64(r.Offset)+int64(r.Limit) < r.Total
}

// CurrentPage returns the current page number (0-indexed).
func (r *ListDocumentsResult) CurrentPage() int {
	if r.Limit <= 0 {
		return 0
	}
	return int(r.Offset / r.Limit)
}

// TotalPages returns the total number of pages.
func (r *ListDocumentsResult) TotalPages() int {
	return pagination.TotalPages(int(r.Total), int(r.Limit))
}

// Pagination returns the list-level pagination props for this page.
func (r *ListDocumentsResult) Pagination() pagination.Props {
	return listProps(r.Total, r.Limit, r.Offset)
}

func listProps(total int64, limit, offset int32) pagination.Props {
	current := 0
	if limit > 0 {
		current = int(offset / limit)
	}
	return pagination.NewProps(current, int(total), int(limit))
}

// MaxUploadSize is the default upload limit when none is configured.
const MaxUploadSize = 15 << 20

// UploadDocumentParams contains parameters for uploading a document.
type UploadDocumentParams struct {
	DatasetID   uuid.UUID
	Filename    string
	ContentType string
	Size        int64
}

// =============================================================================
// Batch Actions
// =============================================================================

// BatchAction is a bulk operation over selected documents.
type BatchAction string

const (
	BatchActionEnable    BatchAction = "enable"
	BatchActionDisable   BatchAction = "disable"
	BatchActionArchive   BatchAction = "archive"
	BatchActionUnarchive BatchAction = "un_archive"
	BatchActionDelete    BatchAction = "delete"
)

// IsValid returns true if the action is one of the defined values.
func (a BatchAction) IsValid() bool {
	switch a {
	case BatchActionEnable, BatchActionDisable, BatchActionArchive,
		BatchActionUnarchive, BatchActionDelete:
		return true
	}
	return false
}

// MaxBatchSize caps the number of documents a single batch action may touch.
const MaxBatchSize = 100

// BatchDocumentsParams contains parameters for a batch action.
type BatchDocumentsParams struct {
	DatasetID   uuid.UUID
	Action      BatchAction
	DocumentIDs []uuid.UUID
}

// Validate checks the action and ID list.
func (p BatchDocumentsParams) Validate() error {
	ve := &ValidationError{Op: "document.batch"}
	if !p.Action.IsValid() {
		ve.Add("action", "unknown action")
	}
	switch {
	case len(p.DocumentIDs) == 0:
		ve.Add("document_ids", "select at least one document")
	case len(p.DocumentIDs) > MaxBatchSize:
		ve.Add("document_ids", "too many documents selected")
	}
	return ve.OrNil()
}
