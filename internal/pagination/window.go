// Package pagination computes which page numbers a list view should display.
//
// Compute is a pure function: it derives the full page sequence, the window of
// pages around the current page, the edge pages kept at each end, and whether a
// truncation marker belongs between an edge group and the window. Props adapts
// the list-level convention (zero-based current page, item total, page size)
// to the calculator.
package pagination

// =============================================================================
// Window
// =============================================================================

// Window is the derived page layout for one (current, total, edge, siblings)
// input. Every slice is freshly allocated on each call.
type Window struct {
	Pages               []int `json:"pages"`
	HasPreviousPage     bool  `json:"has_previous_page"`
	HasNextPage         bool  `json:"has_next_page"`
	MiddlePages         []int `json:"middle_pages"`
	PreviousPages       []int `json:"previous_pages"`
	NextPages           []int `json:"next_pages"`
	IsPreviousTruncable bool  `json:"is_previous_truncable"`
	IsNextTruncable     bool  `json:"is_next_truncable"`
}

// Compute derives the page window.
//
// currentPage is used directly as a slice offset into the one-based page
// sequence, so a zero-based page index places the window around the page the
// user is looking at. Out-of-range values never panic; they clamp to the first
// or last window. Negative shape parameters are treated as zero.
func Compute(currentPage, totalPages, edgePageCount, middlePagesSiblingCount int) Window {
	if totalPages < 0 {
		totalPages = 0
	}
	if edgePageCount < 0 {
		edgePageCount = 0
	}
	siblings := middlePagesSiblingCount
	if siblings < 0 {
		siblings = 0
	}

	pages := make([]int, totalPages)
	for i := range pages {
		pages[i] = i + 1
	}

	w := Window{
		Pages:           pages,
		HasPreviousPage: currentPage > 1,
		HasNextPage:     currentPage < totalPages,
	}

	windowSize := siblings*2 + 1
	reachedFirst := currentPage <= siblings
	reachedLast := currentPage+siblings >= totalPages

	switch {
	case reachedFirst:
		w.MiddlePages = span(pages, 0, windowSize)
	case reachedLast:
		w.MiddlePages = span(pages, totalPages-windowSize, totalPages)
	default:
		w.MiddlePages = span(pages, currentPage-siblings, currentPage+siblings+1)
	}

	first, last, ok := bounds(w.MiddlePages)

	// Pages strictly before/after the window decide whether an edge group exists.
	hasBefore := ok && first > 1
	hasAfter := ok && last < totalPages

	if !reachedFirst && hasBefore {
		w.PreviousPages = without(span(pages, 0, edgePageCount), w.MiddlePages)
	} else {
		w.PreviousPages = []int{}
	}

	if !reachedLast && hasAfter {
		w.NextPages = without(span(pages, totalPages-edgePageCount, totalPages), w.MiddlePages)
	} else {
		w.NextPages = []int{}
	}

	if n := len(w.PreviousPages); n > 0 && ok {
		w.IsPreviousTruncable = first > w.PreviousPages[n-1]+1
	}
	if len(w.NextPages) > 0 && ok {
		w.IsNextTruncable = last+1 < w.NextPages[0]
	}

	return w
}

// =============================================================================
// Slice helpers
// =============================================================================

// span copies pages[start:end] with both bounds clamped to the slice.
func span(pages []int, start, end int) []int {
	if start < 0 {
		start = 0
	}
	if end > len(pages) {
		end = len(pages)
	}
	if start >= end {
		return []int{}
	}
	out := make([]int, end-start)
	copy(out, pages[start:end])
	return out
}

// without returns the pages not present in exclude, preserving order.
func without(pages, exclude []int) []int {
	skip := make(map[int]struct{}, len(exclude))
	for _, p := range exclude {
		skip[p] = struct{}{}
	}
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if _, found := skip[p]; !found {
			out = append(out, p)
		}
	}
	return out
}

// bounds reports the first and last page of a non-empty window.
func bounds(pages []int) (first, last int, ok bool) {
	if len(pages) == 0 {
		return 0, 0, false
	}
	return pages[0], pages[len(pages)-1], true
}
