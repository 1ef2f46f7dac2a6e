// Package pagination provides shared pagination components for list pages.
package pagination

import (
	"net/url"
	"strconv"
	"time"

	paging "github.com/DukeRupert/datadeck/internal/pagination"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ItemKind identifies what a pagination item represents.
type ItemKind string

const (
	KindPrevious ItemKind = "previous"
	KindNext     ItemKind = "next"
	KindPage     ItemKind = "page"
	KindEllipsis ItemKind = "ellipsis"
)

// Item is one clickable (or inert) element of the pagination bar.
type Item struct {
	Kind     ItemKind
	Page     int // zero-based target page; -1 for ellipsis
	Label    string
	Href     string
	Active   bool
	Disabled bool
}

// LimitOption is one entry of the page-size selector.
type LimitOption struct {
	Limit    int
	Href     string
	Selected bool
}

// Config allows customization of pagination behavior.
type Config struct {
	BaseURL  string     // e.g., "/datasets/{id}/documents"
	Query    url.Values // extra query parameters preserved on every link (e.g., keyword)
	TargetID string     // htmx target, e.g., "document-list"
	UseHtmx  bool       // Enable htmx partial loading
	PushURL  bool       // Update browser URL with hx-push-url

	// PageURL overrides the link for a zero-based page. This is the
	// page-change callback of the list.
	PageURL func(page int) string
	// LimitURL overrides the link for a page size.
	LimitURL func(limit int) string
	// JumpURL receives the typed page number as ?page=. Empty disables the
	// jump input.
	JumpURL  string
	Debounce time.Duration

	// Renderer draws each item. Defaults to a LinkRenderer built from this
	// config.
	Renderer ItemRenderer
	Class    string
}

// Data contains pagination information for display.
type Data struct {
	CurrentPage int // one-based, for display
	TotalPages  int
	PerPage     int
	Total       int
	HasPrevious bool
	HasNext     bool

	Window   paging.Window
	Items    []Item
	Previous Item
	Next     Item

	Summary      string
	LimitOptions []LimitOption
	JumpURL      string
	JumpID       string
	Debounce     time.Duration
	TargetID     string
	Renderer     ItemRenderer
	Class        string
	Hidden       bool
}

var printer = message.NewPrinter(language.English)

// NewData builds the view model for props. props.Current is clamped onto an
// existing page first.
func NewData(props paging.Props, cfg Config) Data {
	props = props.Clamp()
	if props.Limit <= 0 {
		props.Limit = paging.DefaultLimit
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = paging.DefaultDebounce
	}
	if cfg.PageURL == nil {
		cfg.PageURL = func(page int) string { return cfg.href(page+1, props.Limit) }
	}
	if cfg.LimitURL == nil {
		cfg.LimitURL = func(limit int) string { return cfg.href(1, limit) }
	}
	if cfg.Renderer == nil {
		cfg.Renderer = LinkRenderer{TargetID: cfg.TargetID, UseHtmx: cfg.UseHtmx, PushURL: cfg.PushURL}
	}

	window := props.Window()
	totalPages := props.TotalPages()

	d := Data{
		CurrentPage: props.Current + 1,
		TotalPages:  totalPages,
		PerPage:     props.Limit,
		Total:       props.Total,
		HasPrevious: props.HasPrevious(),
		HasNext:     props.HasNext(),
		Window:      window,
		Items:       buildItems(window, props.Current, cfg.PageURL),
		Previous: Item{
			Kind:     KindPrevious,
			Page:     props.Current - 1,
			Label:    "Previous",
			Href:     cfg.PageURL(max(props.Current-1, 0)),
			Disabled: !props.HasPrevious(),
		},
		Next: Item{
			Kind:     KindNext,
			Page:     props.Current + 1,
			Label:    "Next",
			Href:     cfg.PageURL(props.Current + 1),
			Disabled: !props.HasNext(),
		},
		Summary:  summary(props),
		JumpURL:  cfg.JumpURL,
		Debounce: cfg.Debounce,
		TargetID: cfg.TargetID,
		Renderer: cfg.Renderer,
		Class:    cfg.Class,
		Hidden:   totalPages <= 1 && props.Total <= paging.LimitOptions[0],
	}
	if cfg.TargetID != "" {
		d.JumpID = cfg.TargetID + "-jump"
	} else {
		d.JumpID = "pagination-jump"
	}

	for _, limit := range paging.LimitOptions {
		d.LimitOptions = append(d.LimitOptions, LimitOption{
			Limit:    limit,
			Href:     cfg.LimitURL(limit),
			Selected: limit == props.Limit,
		})
	}

	return d
}

// buildItems lays out the window in render order: previous edge pages, an
// ellipsis when truncated, the middle pages, an ellipsis, the next edge pages.
func buildItems(w paging.Window, current int, pageURL func(int) string) []Item {
	items := make([]Item, 0, len(w.PreviousPages)+len(w.MiddlePages)+len(w.NextPages)+2)

	page := func(n int) Item {
		return Item{
			Kind:   KindPage,
			Page:   n - 1,
			Label:  printer.Sprintf("%d", n),
			Href:   pageURL(n - 1),
			Active: n-1 == current,
		}
	}
	ellipsis := Item{Kind: KindEllipsis, Page: -1, Label: "…", Disabled: true}

	for _, n := range w.PreviousPages {
		items = append(items, page(n))
	}
	if w.IsPreviousTruncable {
		items = append(items, ellipsis)
	}
	for _, n := range w.MiddlePages {
		items = append(items, page(n))
	}
	if w.IsNextTruncable {
		items = append(items, ellipsis)
	}
	for _, n := range w.NextPages {
		items = append(items, page(n))
	}

	return items
}

func summary(p paging.Props) string {
	if p.Total <= 0 {
		return "No results"
	}
	return printer.Sprintf("Showing %d–%d of %d", p.FirstItem(), p.LastItem(), p.Total)
}

// href builds BaseURL?page=N&limit=L with the preserved query parameters.
func (c Config) href(page, limit int) string {
	q := url.Values{}
	for k, v := range c.Query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return c.BaseURL + "?" + q.Encode()
}
