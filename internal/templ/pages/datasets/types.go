package datasets

import (
	"github.com/DukeRupert/datadeck/internal/templ/components/pagination"
	"github.com/DukeRupert/datadeck/internal/templ/shared"
)

// DocumentListID is the element the document list partial replaces.
const DocumentListID = "document-list"

// DatasetRow contains dataset data formatted for display.
type DatasetRow struct {
	ID            string
	Name          string
	Description   string
	DocumentCount string
	CreatedAt     string
}

// ListPageData contains data for the dataset list page.
type ListPageData struct {
	Datasets   []DatasetRow
	Pagination pagination.Data
	Flash      *shared.Flash
}

// DocumentRow contains document data formatted for display.
type DocumentRow struct {
	ID          string
	Name        string
	Extension   string
	Status      string // queuing, indexing, error, archived, disabled, available
	StatusTitle string
	WordCount   string
	Size        string
	UploadedAt  string
	DownloadURL string
	Error       string
}

// DocumentListData contains data for the document list partial.
type DocumentListData struct {
	DatasetID  string
	Keyword    string
	Documents  []DocumentRow
	Pagination pagination.Data
	BatchURL   string
	Errors     []string // upload or batch errors
	Flash      *shared.Flash
}

// DocumentsPageData contains data for the documents page.
type DocumentsPageData struct {
	DatasetID   string
	DatasetName string
	Description string
	SearchURL   string
	UploadURL   string
	Accept      string // file input accept list, e.g. ".txt,.md"
	MaxUpload   string
	List        DocumentListData
}
