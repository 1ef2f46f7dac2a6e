package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/metrics"
	paging "github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/DukeRupert/datadeck/internal/service"
	"github.com/DukeRupert/datadeck/internal/storage"
	"github.com/DukeRupert/datadeck/internal/templ/components/pagination"
	"github.com/DukeRupert/datadeck/internal/templ/pages/datasets"
	"github.com/DukeRupert/datadeck/internal/templ/shared"
	"github.com/google/uuid"
)

// MaxFilesPerUpload caps how many files one upload request may carry.
const MaxFilesPerUpload = 10

// DocumentHandler serves a dataset's documents: the list page, typed page
// jumps, uploads, batch actions and downloads.
type DocumentHandler struct {
	datasets       service.DatasetService
	documents      service.DocumentService
	paging         PagingConfig
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(
	datasets service.DatasetService,
	documents service.DocumentService,
	pagingConfig PagingConfig,
	maxUploadBytes int64,
	logger *slog.Logger,
) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = domain.MaxUploadSize
	}
	return &DocumentHandler{
		datasets:       datasets,
		documents:      documents,
		paging:         pagingConfig,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the document routes. protect is the CSRF
// middleware; limitUploads rate limits uploads.
//
// Routes:
// - GET  /datasets/{id}/documents                      -> Index
// - GET  /datasets/{id}/documents/jump                 -> Jump
// - POST /datasets/{id}/documents                      -> Upload
// - POST /datasets/{id}/documents/batch                -> Batch
// - GET  /datasets/{id}/documents/{docID}/download     -> Download
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux, protect, limitUploads func(http.Handler) http.Handler) {
	mux.Handle("GET /datasets/{id}/documents", protect(http.HandlerFunc(h.Index)))
	mux.HandleFunc("GET /datasets/{id}/documents/jump", h.Jump)
	mux.Handle("POST /datasets/{id}/documents", limitUploads(h.limitBody(protect(http.HandlerFunc(h.Upload)))))
	mux.Handle("POST /datasets/{id}/documents/batch", protect(http.HandlerFunc(h.Batch)))
	mux.HandleFunc("GET /datasets/{id}/documents/{docID}/download", h.Download)
}

// limitBody caps the request body before anything parses it.
func (h *DocumentHandler) limitBody(next http.Handler) http.Handler {
	limit := h.maxUploadBytes*MaxFilesPerUpload + 1<<20
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// GET /datasets/{id}/documents - Document List
// =============================================================================

// Index renders the documents page. htmx requests get only the list partial.
func (h *DocumentHandler) Index(w http.ResponseWriter, r *http.Request) {
	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	q := parseListQuery(r.URL.Query())

	if isHTMX(r) {
		list, err := h.listData(r, datasetID, q)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		render(w, r, h.logger, http.StatusOK, datasets.DocumentList(list))
		return
	}

	dataset, err := h.datasets.GetByID(r.Context(), datasetID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	list, err := h.listData(r, datasetID, q)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	render(w, r, h.logger, http.StatusOK, datasets.DocumentsPage(datasets.DocumentsPageData{
		DatasetID:   datasetID.String(),
		DatasetName: dataset.Name,
		Description: dataset.Description,
		SearchURL:   documentsURL(datasetID),
		UploadURL:   documentsURL(datasetID),
		Accept:      strings.Join(storage.AllowedDocumentExtensions(), ","),
		MaxUpload:   formatBytes(h.maxUploadBytes),
		List:        list,
	}))
}

// listData loads one page of documents and builds the list partial's data.
func (h *DocumentHandler) listData(r *http.Request, datasetID uuid.UUID, q listQuery) (datasets.DocumentListData, error) {
	result, err := h.documents.List(r.Context(), domain.ListDocumentsParams{
		DatasetID: datasetID,
		Keyword:   q.Keyword,
		Limit:     int32(q.Limit),
		Offset:    q.offset(),
	})
	if err != nil {
		return datasets.DocumentListData{}, err
	}

	rows := make([]datasets.DocumentRow, len(result.Documents))
	for i := range result.Documents {
		rows[i] = documentRow(&result.Documents[i])
	}

	return datasets.DocumentListData{
		DatasetID:  datasetID.String(),
		Keyword:    q.Keyword,
		Documents:  rows,
		Pagination: h.paginationData(result, datasetID, q.Keyword),
		BatchURL:   documentsURL(datasetID) + "/batch",
	}, nil
}

func (h *DocumentHandler) paginationData(result *domain.ListDocumentsResult, datasetID uuid.UUID, keyword string) pagination.Data {
	query := url.Values{}
	if keyword != "" {
		query.Set("keyword", keyword)
	}
	jump := documentsURL(datasetID) + "/jump"
	jumpQuery := url.Values{"limit": {strconv.Itoa(int(result.Limit))}}
	if keyword != "" {
		jumpQuery.Set("keyword", keyword)
	}

	return pagination.NewData(h.paging.props(result.Pagination()), pagination.Config{
		BaseURL:  documentsURL(datasetID),
		Query:    query,
		TargetID: datasets.DocumentListID,
		UseHtmx:  true,
		PushURL:  true,
		JumpURL:  jump + "?" + jumpQuery.Encode(),
		Debounce: h.paging.JumpDebounce,
	})
}

func documentRow(doc *domain.Document) datasets.DocumentRow {
	return datasets.DocumentRow{
		ID:          doc.ID.String(),
		Name:        doc.Name,
		Extension:   doc.Extension(),
		Status:      doc.DisplayStatus(),
		StatusTitle: doc.DisplayStatusTitle(),
		WordCount:   printer.Sprintf("%d", doc.WordCount),
		Size:        formatBytes(doc.SizeBytes),
		UploadedAt:  formatDate(doc.CreatedAt),
		DownloadURL: fmt.Sprintf("%s/%s/download", documentsURL(doc.DatasetID), doc.ID),
		Error:       doc.Error,
	}
}

func documentsURL(datasetID uuid.UUID) string {
	return "/datasets/" + datasetID.String() + "/documents"
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return printer.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return printer.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return printer.Sprintf("%d B", n)
	}
}

// =============================================================================
// GET /datasets/{id}/documents/jump - Typed Page Jump
// =============================================================================

// Jump handles the page number typed into the pagination bar. Text that is
// not a number re-renders the input empty; a number is clamped onto an
// existing page and the client is sent there.
func (h *DocumentHandler) Jump(w http.ResponseWriter, r *http.Request) {
	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	values := r.URL.Query()
	q := parseListQuery(values)
	q.Page = 0

	result, err := h.documents.List(r.Context(), domain.ListDocumentsParams{
		DatasetID: datasetID,
		Keyword:   q.Keyword,
		Limit:     int32(q.Limit),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	raw := values.Get("page")
	page, ok := paging.ParsePageInput(raw, result.TotalPages())
	if !ok {
		metrics.PageJumps.WithLabelValues("rejected").Inc()
		data := h.paginationData(result, datasetID, q.Keyword)
		render(w, r, h.logger, http.StatusOK, pagination.JumpInput(data, ""))
		return
	}

	outcome := "ok"
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err != nil || n != page {
		outcome = "clamped"
	}
	metrics.PageJumps.WithLabelValues(outcome).Inc()

	q.Page = page - 1
	target := documentsURL(datasetID) + "?" + q.values().Encode()

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// =============================================================================
// POST /datasets/{id}/documents - Upload
// =============================================================================

// uploadResult is the JSON answer to an API upload.
type uploadResult struct {
	Uploaded []documentJSON `json:"uploaded"`
	Errors   []string       `json:"errors"`
}

// Upload stores every file in the "files" field. Failures are reported per
// file; the rest of the batch still uploads.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "document.upload"

	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.TooLarge(op, "upload is too large"))
			return
		}
		h.logger.Info("failed to parse multipart form", "error", err)
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid upload form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	switch {
	case len(files) == 0:
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "choose a file to upload"))
		return
	case len(files) > MaxFilesPerUpload:
		ErrorResponse(w, r, h.logger, domain.Invalid(op, fmt.Sprintf("upload at most %d files at a time", MaxFilesPerUpload)))
		return
	}

	var (
		uploaded     []domain.Document
		uploadErrors []string
		firstErr     error
	)
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file", "error", err, "filename", fh.Filename)
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: failed to read file", fh.Filename))
			continue
		}

		doc, err := h.documents.Upload(r.Context(), domain.UploadDocumentParams{
			DatasetID:   datasetID,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		}, file)
		_ = file.Close()

		if err != nil {
			if domain.ErrorCode(err) == domain.ENOTFOUND {
				ErrorResponse(w, r, h.logger, err)
				return
			}
			if firstErr == nil {
				firstErr = err
			}
			uploadErrors = append(uploadErrors, fmt.Sprintf("%s: %s", fh.Filename, domain.ErrorMessage(err)))
			continue
		}
		uploaded = append(uploaded, *doc)
	}

	h.logger.Info("document upload completed",
		"dataset_id", datasetID,
		"success_count", len(uploaded),
		"error_count", len(uploadErrors),
	)

	if acceptsJSON(r) {
		if len(uploaded) == 0 && firstErr != nil {
			ErrorResponse(w, r, h.logger, firstErr)
			return
		}
		res := uploadResult{Uploaded: make([]documentJSON, len(uploaded)), Errors: uploadErrors}
		for i := range uploaded {
			res.Uploaded[i] = toDocumentJSON(&uploaded[i])
		}
		writeJSON(w, http.StatusCreated, res)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, documentsURL(datasetID), http.StatusSeeOther)
		return
	}

	// New documents sort first, so show the first page.
	list, err := h.listData(r, datasetID, listQuery{Limit: paging.DefaultLimit})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	list.Errors = uploadErrors
	if n := len(uploaded); n > 0 {
		list.Flash = &shared.Flash{Type: "success", Message: printer.Sprintf("Uploaded %d document(s). Indexing has started.", n)}
	}
	render(w, r, h.logger, http.StatusOK, datasets.DocumentList(list))
}

// =============================================================================
// POST /datasets/{id}/documents/batch - Batch Action
// =============================================================================

// Batch applies an action to the checked documents and re-renders the list
// page the form was submitted from.
func (h *DocumentHandler) Batch(w http.ResponseWriter, r *http.Request) {
	const op = "document.batch"

	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid form submission"))
		return
	}

	ids := make([]uuid.UUID, 0, len(r.PostForm["document_ids"]))
	for _, raw := range r.PostForm["document_ids"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid document id"))
			return
		}
		ids = append(ids, id)
	}

	action := domain.BatchAction(r.PostFormValue("action"))
	affected, batchErr := h.documents.Batch(r.Context(), domain.BatchDocumentsParams{
		DatasetID:   datasetID,
		Action:      action,
		DocumentIDs: ids,
	})

	if !isHTMX(r) {
		if batchErr != nil {
			ErrorResponse(w, r, h.logger, batchErr)
			return
		}
		if acceptsJSON(r) {
			writeJSON(w, http.StatusOK, map[string]any{"result": "success", "affected": affected})
			return
		}
		http.Redirect(w, r, documentsURL(datasetID), http.StatusSeeOther)
		return
	}

	q := parseListQuery(r.PostForm)
	list, err := h.listData(r, datasetID, q)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if batchErr != nil {
		if domain.ErrorCode(batchErr) == domain.EINTERNAL {
			ErrorResponse(w, r, h.logger, batchErr)
			return
		}
		list.Errors = []string{batchErrorMessage(batchErr)}
	} else {
		list.Flash = &shared.Flash{Type: "success", Message: printer.Sprintf("%d document(s) updated.", affected)}
	}
	render(w, r, h.logger, http.StatusOK, datasets.DocumentList(list))
}

func batchErrorMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		for _, field := range []string{"document_ids", "action"} {
			if msg, ok := ve.Fields[field]; ok {
				return msg
			}
		}
	}
	return domain.ErrorMessage(err)
}

// =============================================================================
// GET /datasets/{id}/documents/{docID}/download - Download
// =============================================================================

// Download redirects to a URL serving the original file.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	datasetID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	docID, err := pathUUID(r, "docID")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	target, err := h.documents.DownloadURL(r.Context(), datasetID, docID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
