package datasets

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DukeRupert/datadeck/internal/csrf"
	paging "github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/DukeRupert/datadeck/internal/templ/components/pagination"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestDocumentList_Empty(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		want    string
	}{
		{"no documents", "", "No documents yet. Upload one to get started."},
		{"no match", "tax <2024>", "No documents match “tax &lt;2024&gt;”."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, context.Background(), DocumentList(DocumentListData{Keyword: tt.keyword}))

			assert.True(t, strings.HasPrefix(out, `<div id="document-list" class="mt-6 space-y-4">`))
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "<table")
		})
	}
}

func TestDocumentList_Rows(t *testing.T) {
	ctx := csrf.WithToken(context.Background(), "tok123")
	data := DocumentListData{
		Keyword: "faq",
		Documents: []DocumentRow{
			{ID: "d1", Name: "a&b.txt", Status: "available", StatusTitle: "Available", DownloadURL: "/files/d1?download=a%26b.txt"},
			{ID: "d2", Name: "broken.pdf", Status: "error", StatusTitle: "Error", Error: "file is missing from storage"},
		},
		Pagination: pagination.NewData(paging.NewProps(2, 120, 25), pagination.Config{BaseURL: "/docs"}),
		BatchURL:   "/datasets/ds/documents/batch",
		Errors:     []string{"virus.exe: unsupported file type"},
	}

	out := render(t, ctx, DocumentList(data))

	assert.Contains(t, out, `<li>virus.exe: unsupported file type</li>`)
	assert.Contains(t, out, `hx-post="/datasets/ds/documents/batch"`)
	assert.Contains(t, out, `name="csrf_token" value="tok123"`)
	assert.Contains(t, out, `name="keyword" value="faq"`)
	assert.Contains(t, out, `name="page" value="3"`)
	assert.Contains(t, out, `name="limit" value="25"`)
	assert.Contains(t, out, `aria-label="Select a&amp;b.txt"`)
	assert.Contains(t, out, `data-status="error" title="file is missing from storage">Error</span>`)
	assert.Contains(t, out, `data-status="available">Available</span>`)
	assert.Contains(t, out, `<option value="delete">Delete</option>`)
	assert.Contains(t, out, `aria-label="Pagination"`)
}

func TestDocumentsPage_Forms(t *testing.T) {
	ctx := csrf.WithToken(context.Background(), "tok123")
	data := DocumentsPageData{
		DatasetName: "Support articles",
		SearchURL:   "/datasets/ds/documents",
		UploadURL:   "/datasets/ds/documents/upload",
		Accept:      ".txt,.md",
		MaxUpload:   "15 MB",
		List:        DocumentListData{Keyword: "faq"},
	}

	out := render(t, ctx, DocumentsPage(data))

	assert.Contains(t, out, "<title>Support articles · datadeck</title>")
	assert.Contains(t, out, `role="search"`)
	assert.Contains(t, out, `name="keyword" value="faq"`)
	assert.Contains(t, out, `accept=".txt,.md"`)
	assert.Contains(t, out, "Up to 15 MB each")
	assert.Equal(t, 1, strings.Count(out, `id="document-list"`))
}

func TestListPage(t *testing.T) {
	data := ListPageData{
		Datasets:   []DatasetRow{{ID: "ds1", Name: "Support", DocumentCount: "1,204"}},
		Pagination: pagination.NewData(paging.NewProps(0, 1, 10), pagination.Config{}),
	}

	out := render(t, context.Background(), ListPage(data))

	assert.Contains(t, out, `href="/datasets/ds1/documents"`)
	assert.Contains(t, out, ">1,204</td>")
	assert.NotContains(t, out, `aria-label="Pagination"`)
}
