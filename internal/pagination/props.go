package pagination

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LimitOptions are the page sizes a list view offers.
var LimitOptions = []int{10, 25, 50}

const (
	DefaultLimit         = 10
	DefaultEdgePageCount = 2
	DefaultSiblingCount  = 1
	DefaultDebounce      = 500 * time.Millisecond
)

// Props is the list-level view of pagination: a zero-based current page, the
// total item count, and the page size.
type Props struct {
	Current       int // zero-based
	Total         int // item count, not page count
	Limit         int
	EdgePageCount int
	SiblingCount  int
}

// NewProps returns Props with the default window shape.
func NewProps(current, total, limit int) Props {
	return Props{
		Current:       current,
		Total:         total,
		Limit:         limit,
		EdgePageCount: DefaultEdgePageCount,
		SiblingCount:  DefaultSiblingCount,
	}
}

// TotalPages returns ceil(total/limit), or 0 when either is non-positive.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func (p Props) TotalPages() int {
	return TotalPages(p.Total, p.Limit)
}

// Window runs the calculator with the zero-based current page as given. The
// previous/next flags are replaced with HasPrevious and HasNext, which judge
// the page the user is on rather than the calculator's offset.
func (p Props) Window() Window {
	w := Compute(p.Current, p.TotalPages(), p.EdgePageCount, p.SiblingCount)
	w.HasPreviousPage = p.HasPrevious()
	w.HasNextPage = p.HasNext()
	return w
}

// HasPrevious judges availability on the one-based page number.
func (p Props) HasPrevious() bool {
	return p.Current+1 > 1
}

// HasNext judges availability on the one-based page number.
func (p Props) HasNext() bool {
	return p.Current+1 < p.TotalPages()
}

// Clamp moves Current onto the last page when it points past the end, and
// onto the first page when it is negative.
func (p Props) Clamp() Props {
	last := p.TotalPages() - 1
	if p.Current > last {
		p.Current = last
	}
	if p.Current < 0 {
		p.Current = 0
	}
	return p
}

// Offset is the number of items skipped before the current page.
func (p Props) Offset() int {
	if p.Current <= 0 || p.Limit <= 0 {
		return 0
	}
	return p.Current * p.Limit
}

// FirstItem and LastItem are the one-based item positions shown on the page.
// Both are 0 for an empty list.
func (p Props) FirstItem() int {
	if p.Total <= 0 {
		return 0
	}
	return min(p.Offset()+1, p.Total)
}

func (p Props) LastItem() int {
	if p.Total <= 0 {
		return 0
	}
	return min(p.Offset()+p.Limit, p.Total)
}

// =============================================================================
// Input handling
// =============================================================================

// ResolveLimit returns limit when it is one of LimitOptions, else DefaultLimit.
func ResolveLimit(limit int) int {
	if slices.Contains(LimitOptions, limit) {
		return limit
	}
	return DefaultLimit
}

// ClampPage clamps a one-based page number into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 || page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// ParsePageInput reads a page number typed by the user. Non-numeric text is
// rejected (ok is false and the field should revert to empty); numbers outside
// the valid range are clamped rather than rejected.
func ParsePageInput(raw string, totalPages int) (page int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Digits too long for an int are still a number past the end.
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				return 1, true
			}
			return ClampPage(totalPages, totalPages), true
		}
		return 0, false
	}
	return ClampPage(n, totalPages), true
}

// ParseCurrent converts the one-based ?page= URL value into a zero-based
// current page. Missing or invalid values select the first page.
func ParseCurrent(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}

// ParseLimit reads a ?limit= value and resolves it against LimitOptions.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLimit
	}
	return ResolveLimit(n)
}
