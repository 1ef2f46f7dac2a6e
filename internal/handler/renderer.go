// Package handler contains the HTTP handlers for datadeck.
//
// This file holds the helpers every handler uses to render templ components
// and read list parameters.
package handler

import (
	"bytes"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/datadeck/internal/domain"
	"github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/a-h/templ"
	"github.com/google/uuid"
)

// render writes c with status. The component is rendered to a buffer first so
// a failure can still become a 500 instead of a truncated page.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		InternalErrorResponse(w, r, logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// isHTMX reports whether the request came from htmx and wants a fragment.
// Boosted navigations get whole pages.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path", "invalid "+name)
	}
	return id, nil
}

// =============================================================================
// Pagination
// =============================================================================

// PagingConfig shapes the pagination bar of every list page.
type PagingConfig struct {
	EdgePages    int
	SiblingPages int
	JumpDebounce time.Duration
}

// DefaultPagingConfig returns the default bar shape: two edge pages, one
// sibling on each side of the current page.
func DefaultPagingConfig() PagingConfig {
	return PagingConfig{
		EdgePages:    pagination.DefaultEdgePageCount,
		SiblingPages: pagination.DefaultSiblingCount,
		JumpDebounce: pagination.DefaultDebounce,
	}
}

// props applies the configured shape. Zero is a valid count and hides the
// edge groups or the siblings.
func (c PagingConfig) props(p pagination.Props) pagination.Props {
	p.EdgePageCount = c.EdgePages
	p.SiblingCount = c.SiblingPages
	return p
}

// listQuery is the page, size and filter of a list request. Page is
// zero-based; the URL carries it one-based.
type listQuery struct {
	Page    int
	Limit   int
	Keyword string
}

func parseListQuery(values url.Values) listQuery {
	return listQuery{
		Page:    pagination.ParseCurrent(values.Get("page")),
		Limit:   pagination.ParseLimit(values.Get("limit")),
		Keyword: strings.TrimSpace(values.Get("keyword")),
	}
}

func (q listQuery) offset() int32 {
	return pageOffset(q.Page, q.Limit)
}

// pageOffset is page*limit, saturated at math.MaxInt32 so a huge page number
// lands past the end and gets clamped to the last page.
func pageOffset(page, limit int) int32 {
	if page <= 0 || limit <= 0 {
		return 0
	}
	if page > math.MaxInt32/limit {
		return math.MaxInt32
	}
	return int32(page * limit)
}

// values encodes q for links, with a one-based page.
func (q listQuery) values() url.Values {
	v := url.Values{}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	v.Set("page", strconv.Itoa(q.Page+1))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}
