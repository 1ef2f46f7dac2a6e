package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocumentHandler(total int64) (*DocumentHandler, *fakeDocumentService, uuid.UUID) {
	datasetID := uuid.New()
	datasets := &fakeDatasetService{datasets: []domain.Dataset{{ID: datasetID, Name: "Support articles"}}}
	docs := &fakeDocumentService{datasetID: datasetID, total: total, downloadURL: "https://files.example.com/x?sig=1"}
	paging := DefaultPagingConfig()
	paging.JumpDebounce = 300 * time.Millisecond
	h := NewDocumentHandler(datasets, docs, paging, 1<<20, testLogger())
	return h, docs, datasetID
}

func documentsRequest(method, target string, datasetID uuid.UUID, body *strings.Reader) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	req.SetPathValue("id", datasetID.String())
	return req
}

// =============================================================================
// Index
// =============================================================================

func TestDocumentIndex_FullPage(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(35)

	rec := httptest.NewRecorder()
	h.Index(rec, documentsRequest(http.MethodGet, "/datasets/x/documents?page=2&limit=10", datasetID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "Support articles")
	assert.Contains(t, body, "doc-10.txt")
	assert.Contains(t, body, "Showing 11–20 of 35")
	assert.Contains(t, body, `delay:300ms`)
	assert.Equal(t, int32(10), docs.lastList.Offset)
}

func TestDocumentIndex_HTMXPartial(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(35)

	req := documentsRequest(http.MethodGet, "/datasets/x/documents?page=1&keyword=faq", datasetID, nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.Index(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "<!doctype html>")
	assert.True(t, strings.HasPrefix(body, `<div id="document-list"`))
	assert.Equal(t, "faq", docs.lastList.Keyword)
	assert.Contains(t, body, "keyword=faq")
}

func TestDocumentIndex_UnknownDataset(t *testing.T) {
	h, _, _ := newDocumentHandler(0)

	rec := httptest.NewRecorder()
	h.Index(rec, documentsRequest(http.MethodGet, "/datasets/x/documents", uuid.New(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentIndex_InvalidID(t *testing.T) {
	h, _, _ := newDocumentHandler(0)

	req := httptest.NewRequest(http.MethodGet, "/datasets/nope/documents", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Index(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Jump
// =============================================================================

func TestDocumentJump(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		htmx     bool
		status   int
		location string
	}{
		{name: "in range", page: "3", status: http.StatusSeeOther, location: "page=3"},
		{name: "past the end clamps", page: "999", status: http.StatusSeeOther, location: "page=4"},
		{name: "below one clamps", page: "0", status: http.StatusSeeOther, location: "page=1"},
		{name: "htmx redirect", page: " 2 ", htmx: true, status: http.StatusOK, location: "page=2"},
		{name: "not a number", page: "abc", status: http.StatusOK},
		{name: "empty", page: "", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, datasetID := newDocumentHandler(35)
			q := url.Values{"page": {tt.page}, "limit": {"10"}}
			req := documentsRequest(http.MethodGet, "/datasets/x/documents/jump?"+q.Encode(), datasetID, nil)
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()

			h.Jump(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			switch {
			case tt.location == "":
				body := rec.Body.String()
				assert.Contains(t, body, `id="document-list-jump"`)
				assert.Contains(t, body, `value=""`)
			case tt.htmx:
				assert.Contains(t, rec.Header().Get("HX-Redirect"), tt.location)
			default:
				loc := rec.Header().Get("Location")
				assert.True(t, strings.HasPrefix(loc, "/datasets/"+datasetID.String()+"/documents?"), loc)
				assert.Contains(t, loc, tt.location)
			}
		})
	}
}

// =============================================================================
// Upload
// =============================================================================

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, datasetID uuid.UUID, files map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/datasets/x/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("id", datasetID.String())
	return req
}

func TestDocumentUpload_HTMXReportsPerFileErrors(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(1)
	docs.uploadErrs = map[string]error{
		"virus.exe": domain.Invalid("document.upload", "unsupported file type"),
	}

	req := uploadRequest(t, datasetID, map[string]string{"notes.txt": "hello", "virus.exe": "MZ"})
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, []string{"notes.txt"}, docs.uploads)
	assert.Contains(t, body, "virus.exe: unsupported file type")
	assert.Contains(t, body, "Uploaded 1 document(s)")
}

func TestDocumentUpload_FormRedirects(t *testing.T) {
	h, _, datasetID := newDocumentHandler(0)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, datasetID, map[string]string{"a.md": "# a"}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/datasets/"+datasetID.String()+"/documents", rec.Header().Get("Location"))
}

func TestDocumentUpload_JSON(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(0)
	docs.uploadErrs = map[string]error{
		"big.txt": domain.TooLarge("document.upload", "file exceeds the 1 MB upload limit"),
	}

	req := uploadRequest(t, datasetID, map[string]string{"big.txt": "x"})
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"too_large"`)
}

func TestDocumentUpload_NoFiles(t *testing.T) {
	h, _, datasetID := newDocumentHandler(0)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, datasetID, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentUpload_BodyLimit(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(0)
	h.maxUploadBytes = 1

	big := strings.Repeat("x", MaxFilesPerUpload+2<<20)
	rec := httptest.NewRecorder()
	h.limitBody(http.HandlerFunc(h.Upload)).ServeHTTP(rec, uploadRequest(t, datasetID, map[string]string{"a.txt": big}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, docs.uploads)
}

// =============================================================================
// Batch
// =============================================================================

func batchRequest(datasetID uuid.UUID, form url.Values, htmx bool) *http.Request {
	req := documentsRequest(http.MethodPost, "/datasets/x/documents/batch", datasetID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func TestDocumentBatch_HTMX(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(12)
	ids := []string{uuid.NewString(), uuid.NewString()}

	rec := httptest.NewRecorder()
	h.Batch(rec, batchRequest(datasetID, url.Values{
		"action":       {"archive"},
		"document_ids": ids,
		"page":         {"2"},
		"limit":        {"10"},
	}, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.BatchActionArchive, docs.batch.Action)
	assert.Len(t, docs.batch.DocumentIDs, 2)
	assert.Contains(t, rec.Body.String(), "2 document(s) updated.")
	assert.Equal(t, int32(10), docs.lastList.Offset)
}

func TestDocumentBatch_NothingSelected(t *testing.T) {
	h, _, datasetID := newDocumentHandler(3)

	rec := httptest.NewRecorder()
	h.Batch(rec, batchRequest(datasetID, url.Values{"action": {"delete"}}, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "select at least one document")
}

func TestDocumentBatch_InvalidID(t *testing.T) {
	h, _, datasetID := newDocumentHandler(3)

	rec := httptest.NewRecorder()
	h.Batch(rec, batchRequest(datasetID, url.Values{"action": {"delete"}, "document_ids": {"nope"}}, false))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentBatch_FormRedirects(t *testing.T) {
	h, _, datasetID := newDocumentHandler(3)

	rec := httptest.NewRecorder()
	h.Batch(rec, batchRequest(datasetID, url.Values{"action": {"enable"}, "document_ids": {uuid.NewString()}}, false))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

// =============================================================================
// Download
// =============================================================================

func TestDocumentDownload_Redirects(t *testing.T) {
	h, docs, datasetID := newDocumentHandler(1)

	req := documentsRequest(http.MethodGet, "/datasets/x/documents/y/download", datasetID, nil)
	req.SetPathValue("docID", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, docs.downloadURL, rec.Header().Get("Location"))
}
