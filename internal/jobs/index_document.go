package jobs

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/metrics"
	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/DukeRupert/datadeck/internal/storage"
	"github.com/DukeRupert/datadeck/internal/worker"
	"golang.org/x/net/html"
)

// maxIndexBytes caps how much of a document the indexer reads.
const maxIndexBytes = 32 << 20

// IndexDocumentHandler processes jobs that index uploaded documents.
// It reads the stored object, counts its words and records the outcome on
// the document row.
type IndexDocumentHandler struct {
	queries *repository.Queries
	storage storage.Storage
	logger  *slog.Logger
}

// NewIndexDocumentHandler creates a new handler for document indexing jobs.
func NewIndexDocumentHandler(
	queries *repository.Queries,
	storage storage.Storage,
	logger *slog.Logger,
) *IndexDocumentHandler {
	return &IndexDocumentHandler{
		queries: queries,
		storage: storage,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *IndexDocumentHandler) Type() string {
	return worker.JobTypeIndexDocument
}

// Handle executes the indexing job.
//
// Missing documents and unreadable content are permanent failures; storage
// and database errors are retried.
func (h *IndexDocumentHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.IndexDocumentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("document_id", p.DocumentID, "dataset_id", p.DatasetID)

	doc, err := h.queries.GetDocumentByID(ctx, p.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("document not found: %w", err))
		}
		return fmt.Errorf("fetch document: %w", err)
	}

	status := domain.IndexingStatus(doc.IndexingStatus)
	if status == domain.IndexingStatusCompleted {
		logger.Info("Document already indexed, skipping")
		return nil
	}
	if status != domain.IndexingStatusIndexing {
		if !status.CanTransitionTo(domain.IndexingStatusIndexing) {
			return worker.NewPermanentError(fmt.Errorf("cannot index document in status %s", status))
		}
		if err := h.setStatus(ctx, doc, domain.IndexingStatusIndexing, 0, ""); err != nil {
			return err
		}
	}

	if !storage.IsText(doc.ContentType) {
		return h.fail(ctx, doc, fmt.Errorf("unsupported content type %s", doc.ContentType))
	}

	rc, _, err := h.storage.Get(ctx, doc.StorageKey)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			return h.fail(ctx, doc, errors.New("file is missing from storage"))
		case storage.IsInvalidKey(err), storage.IsAccessDenied(err):
			return h.fail(ctx, doc, fmt.Errorf("file cannot be read: %s", storage.Reason(err)))
		}
		return fmt.Errorf("read document: %w", err)
	}
	defer rc.Close()

	words, err := CountWords(io.LimitReader(rc, maxIndexBytes), doc.ContentType)
	if err != nil {
		return fmt.Errorf("count words: %w", err)
	}

	if err := h.setStatus(ctx, doc, domain.IndexingStatusCompleted, words, ""); err != nil {
		return err
	}
	metrics.DocumentsIndexed.WithLabelValues(string(domain.IndexingStatusCompleted)).Inc()

	logger.Info("Document indexed", "word_count", words)
	return nil
}

// fail records cause on the document and returns a permanent error.
func (h *IndexDocumentHandler) fail(ctx context.Context, doc repository.Document, cause error) error {
	if err := h.setStatus(ctx, doc, domain.IndexingStatusError, 0, cause.Error()); err != nil {
		return err
	}
	metrics.DocumentsIndexed.WithLabelValues(string(domain.IndexingStatusError)).Inc()
	return worker.NewPermanentError(cause)
}

func (h *IndexDocumentHandler) setStatus(ctx context.Context, doc repository.Document, status domain.IndexingStatus, words int32, message string) error {
	err := h.queries.UpdateDocumentIndexingStatus(ctx, repository.UpdateDocumentIndexingStatusParams{
		ID:             doc.ID,
		IndexingStatus: status.String(),
		WordCount:      words,
		Error:          domain.ToNullString(message),
	})
	if err != nil {
		return fmt.Errorf("update document status to %s: %w", status, err)
	}
	return nil
}

// =============================================================================
// Word Counting
// =============================================================================

// CountWords counts whitespace-separated words. HTML is reduced to its text
// nodes first, skipping script and style elements.
func CountWords(r io.Reader, contentType string) (int32, error) {
	if strings.HasPrefix(contentType, "text/html") {
		return countHTMLWords(r)
	}
	return countWords(r)
}

func countWords(r io.Reader) (int32, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	scanner.Split(bufio.ScanWords)

	var n int32
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

func countHTMLWords(r io.Reader) (int32, error) {
	z := html.NewTokenizer(r)
	var n int32
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return n, nil
			}
			return n, z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				n += int32(len(strings.Fields(string(z.Text()))))
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	s := string(name)
	return s == "script" || s == "style"
}
