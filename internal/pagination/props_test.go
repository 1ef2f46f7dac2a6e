package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 25, 4},
		{10, 0, 0},
		{-5, 10, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestProps_Window(t *testing.T) {
	p := NewProps(5, 100, 10)

	w := p.Window()

	assert.Equal(t, 10, p.TotalPages())
	assert.Equal(t, []int{5, 6, 7}, w.MiddlePages)
	assert.Equal(t, []int{1, 2}, w.PreviousPages)
	assert.Equal(t, []int{9, 10}, w.NextPages)
}

func TestProps_Availability(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		hasPrevious bool
		hasNext     bool
	}{
		{"first page", 0, false, true},
		{"second page", 1, true, true},
		{"last page", 9, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProps(tt.current, 100, 10)
			assert.Equal(t, tt.hasPrevious, p.HasPrevious())
			assert.Equal(t, tt.hasNext, p.HasNext())

			w := p.Window()
			assert.Equal(t, tt.hasPrevious, w.HasPreviousPage)
			assert.Equal(t, tt.hasNext, w.HasNextPage)
		})
	}
}

func TestProps_Clamp(t *testing.T) {
	assert.Equal(t, 9, NewProps(42, 100, 10).Clamp().Current)
	assert.Equal(t, 0, NewProps(-3, 100, 10).Clamp().Current)
	assert.Equal(t, 4, NewProps(4, 100, 10).Clamp().Current)
	assert.Equal(t, 0, NewProps(3, 0, 10).Clamp().Current)
}

func TestProps_ItemRange(t *testing.T) {
	p := NewProps(2, 45, 20)

	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 41, p.FirstItem())
	assert.Equal(t, 45, p.LastItem())

	empty := NewProps(0, 0, 10)
	assert.Equal(t, 0, empty.FirstItem())
	assert.Equal(t, 0, empty.LastItem())
}

func TestResolveLimit(t *testing.T) {
	assert.Equal(t, 25, ResolveLimit(25))
	assert.Equal(t, 50, ResolveLimit(50))
	assert.Equal(t, DefaultLimit, ResolveLimit(7))
	assert.Equal(t, DefaultLimit, ResolveLimit(0))
	assert.Equal(t, DefaultLimit, ParseLimit("abc"))
	assert.Equal(t, 25, ParseLimit(" 25 "))
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0, 10))
	assert.Equal(t, 1, ClampPage(-7, 10))
	assert.Equal(t, 10, ClampPage(11, 10))
	assert.Equal(t, 4, ClampPage(4, 10))
	assert.Equal(t, 1, ClampPage(4, 0))
}

func TestParsePageInput(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"in range", "3", 3, true},
		{"padded", "  7 ", 7, true},
		{"above range clamps", "40", 10, true},
		{"zero clamps", "0", 1, true},
		{"negative clamps", "-2", 1, true},
		{"overflow clamps", "99999999999999999999999", 10, true},
		{"empty", "", 0, false},
		{"letters", "abc", 0, false},
		{"mixed", "3a", 0, false},
		{"decimal", "2.5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePageInput(tt.raw, 10)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCurrent(t *testing.T) {
	assert.Equal(t, 0, ParseCurrent(""))
	assert.Equal(t, 0, ParseCurrent("1"))
	assert.Equal(t, 4, ParseCurrent("5"))
	assert.Equal(t, 0, ParseCurrent("-3"))
	assert.Equal(t, 0, ParseCurrent("x"))
}
