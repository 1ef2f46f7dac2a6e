package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/service"
	"github.com/DukeRupert/datadeck/internal/templ/components/pagination"
	"github.com/DukeRupert/datadeck/internal/templ/pages/datasets"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// DatasetHandler serves the dataset list.
type DatasetHandler struct {
	datasets service.DatasetService
	paging   PagingConfig
	logger   *slog.Logger
}

// NewDatasetHandler creates a new DatasetHandler.
func NewDatasetHandler(datasets service.DatasetService, paging PagingConfig, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		datasets: datasets,
		paging:   paging,
		logger:   logger,
	}
}

// RegisterRoutes registers the dataset routes.
//
// Routes:
// - GET /datasets -> Index
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /datasets", protect(http.HandlerFunc(h.Index)))
}

// =============================================================================
// GET /datasets - List Datasets
// =============================================================================

// Index renders one page of datasets.
func (h *DatasetHandler) Index(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r.URL.Query())

	result, err := h.datasets.List(r.Context(), domain.ListDatasetsParams{
		Limit:  int32(q.Limit),
		Offset: q.offset(),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rows := make([]datasets.DatasetRow, len(result.Datasets))
	for i, ds := range result.Datasets {
		rows[i] = datasets.DatasetRow{
			ID:            ds.ID.String(),
			Name:          ds.Name,
			Description:   ds.Description,
			DocumentCount: printer.Sprintf("%d", ds.DocumentCount),
			CreatedAt:     formatDate(ds.CreatedAt),
		}
	}

	data := datasets.ListPageData{
		Datasets: rows,
		Pagination: pagination.NewData(h.paging.props(result.Pagination()), pagination.Config{
			BaseURL:  "/datasets",
			Debounce: h.paging.JumpDebounce,
		}),
	}
	render(w, r, h.logger, http.StatusOK, datasets.ListPage(data))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
