package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/DukeRupert/datadeck/internal/service"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	documents service.DocumentService
	paging    PagingConfig
	logger    *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(documents service.DocumentService, pagingConfig PagingConfig, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		documents: documents,
		paging:    pagingConfig,
		logger:    logger,
	}
}

// RegisterRoutes registers the API routes.
//
// Routes:
// - GET /api/datasets/{id}/documents -> ListDocuments
// - GET /api/pagination              -> Pagination
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasets/{id}/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/pagination", h.Pagination)
}

// documentJSON is the API view of a document.
type documentJSON struct {
	ID             string    `json:"id"`
	DatasetID      string    `json:"dataset_id"`
	Name           string    `json:"name"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`
	WordCount      int32     `json:"word_count"`
	IndexingStatus string    `json:"indexing_status"`
	DisplayStatus  string    `json:"display_status"`
	Enabled        bool      `json:"enabled"`
	Archived       bool      `json:"archived"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toDocumentJSON(doc *domain.Document) documentJSON {
	return documentJSON{
		ID:             doc.ID.String(),
		DatasetID:      doc.DatasetID.String(),
		Name:           doc.Name,
		ContentType:    doc.ContentType,
		SizeBytes:      doc.SizeBytes,
		WordCount:      doc.WordCount,
		IndexingStatus: doc.IndexingStatus.String(),
		DisplayStatus:  doc.DisplayStatus(),
		Enabled:        doc.Enabled,
		Archived:       doc.Archived,
		Error:          doc.Error,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

// documentPage is one page of documents plus its pagination window.
type documentPage struct {
	Data       []documentJSON    `json:"data"`
	HasMore    bool              `json:"has_more"`
	Limit      int32             `json:"limit"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"` // one-based
	TotalPages int               `json:"total_pages"`
	Pagination pagination.Window `json:"pagination"`
}

// ListDocuments returns one page of a dataset's documents. Any limit from 1
// to 100 is accepted; page is one-based.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	values := r.URL.Query()
	limit, err := queryInt(values.Get("limit"), pagination.DefaultLimit)
	if err != nil || limit < 1 || limit > 100 {
		ErrorResponse(w, r, h.logger, domain.Invalid("api.documents", "limit must be between 1 and 100"))
		return
	}
	current := pagination.ParseCurrent(values.Get("page"))

	result, err := h.documents.List(r.Context(), domain.ListDocumentsParams{
		DatasetID: datasetID,
		Keyword:   strings.TrimSpace(values.Get("keyword")),
		Limit:     int32(limit),
		Offset:    pageOffset(current, limit),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	page := documentPage{
		Data:       make([]documentJSON, len(result.Documents)),
		HasMore:    result.HasMore(),
		Limit:      result.Limit,
		Total:      result.Total,
		Page:       result.CurrentPage() + 1,
		TotalPages: result.TotalPages(),
		Pagination: h.paging.props(result.Pagination()).Window(),
	}
	for i := range result.Documents {
		page.Data[i] = toDocumentJSON(&result.Documents[i])
	}

	writeJSON(w, http.StatusOK, page)
}

// maxWindowPages bounds total_pages on the calculator endpoint; the window
// lists every page.
const maxWindowPages = 100000

// Pagination exposes the window calculator. current is passed to the
// calculator unchanged; edge and siblings default to the configured shape.
func (h *APIHandler) Pagination(w http.ResponseWriter, r *http.Request) {
	const op = "api.pagination"
	values := r.URL.Query()

	defaults := h.props()
	var current, totalPages, edge, siblings int
	for _, p := range []struct {
		name     string
		fallback int
		dst      *int
	}{
		{"current", 0, &current},
		{"total_pages", 0, &totalPages},
		{"edge", defaults.EdgePageCount, &edge},
		{"siblings", defaults.SiblingCount, &siblings},
	} {
		n, err := queryInt(values.Get(p.name), p.fallback)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, p.name+" must be an integer"))
			return
		}
		*p.dst = n
	}
	if totalPages > maxWindowPages {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "total_pages is too large"))
		return
	}

	writeJSON(w, http.StatusOK, pagination.Compute(current, totalPages, edge, siblings))
}

func (h *APIHandler) props() pagination.Props {
	return h.paging.props(pagination.NewProps(0, 0, pagination.DefaultLimit))
}

// queryInt parses an optional integer query value.
func queryInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
