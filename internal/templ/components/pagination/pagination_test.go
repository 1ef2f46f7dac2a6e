package pagination

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	paging "github.com/DukeRupert/datadeck/internal/pagination"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func kinds(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if it.Kind == KindEllipsis {
			out[i] = "..."
		} else {
			out[i] = it.Label
		}
	}
	return out
}

func TestNewData_ItemOrder(t *testing.T) {
	tests := []struct {
		name    string
		current int
		want    []string
	}{
		{"first page", 0, []string{"1", "2", "3", "...", "9", "10"}},
		{"centered", 5, []string{"1", "2", "...", "5", "6", "7", "...", "9", "10"}},
		{"adjacent edges", 2, []string{"1", "2", "3", "4", "...", "9", "10"}},
		{"last page", 9, []string{"1", "2", "...", "8", "9", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewData(paging.NewProps(tt.current, 100, 10), Config{BaseURL: "/docs"})
			assert.Equal(t, tt.want, kinds(d.Items))
		})
	}
}

func TestNewData_ActiveAndTargets(t *testing.T) {
	d := NewData(paging.NewProps(5, 100, 10), Config{BaseURL: "/docs"})

	var active []Item
	for _, it := range d.Items {
		if it.Active {
			active = append(active, it)
		}
	}
	require.Len(t, active, 1)
	assert.Equal(t, "6", active[0].Label)
	assert.Equal(t, 5, active[0].Page)

	assert.Equal(t, 6, d.CurrentPage)
	assert.Equal(t, 10, d.TotalPages)
	assert.Equal(t, 4, d.Previous.Page)
	assert.Equal(t, 6, d.Next.Page)
	assert.False(t, d.Previous.Disabled)
	assert.False(t, d.Next.Disabled)
}

func TestNewData_PageURLReceivesZeroBasedPages(t *testing.T) {
	var seen []int
	cfg := Config{PageURL: func(page int) string {
		seen = append(seen, page)
		return fmt.Sprintf("/p/%d", page)
	}}

	d := NewData(paging.NewProps(0, 30, 10), cfg)

	assert.Equal(t, "/p/0", d.Items[0].Href)
	assert.Contains(t, seen, 0)
	assert.NotContains(t, seen, -1)
	assert.True(t, d.Previous.Disabled)
	assert.Equal(t, "/p/1", d.Next.Href)
}

func TestNewData_DefaultHrefPreservesQuery(t *testing.T) {
	cfg := Config{BaseURL: "/datasets/abc/documents", Query: url.Values{"keyword": {"tax report"}}}

	d := NewData(paging.NewProps(1, 100, 25), cfg)

	u, err := url.Parse(d.Next.Href)
	require.NoError(t, err)
	assert.Equal(t, "/datasets/abc/documents", u.Path)
	assert.Equal(t, "3", u.Query().Get("page"))
	assert.Equal(t, "25", u.Query().Get("limit"))
	assert.Equal(t, "tax report", u.Query().Get("keyword"))

	// Changing the page size starts over at page one.
	require.Len(t, d.LimitOptions, 3)
	lu, err := url.Parse(d.LimitOptions[2].Href)
	require.NoError(t, err)
	assert.Equal(t, "1", lu.Query().Get("page"))
	assert.Equal(t, "50", lu.Query().Get("limit"))
	assert.True(t, d.LimitOptions[1].Selected)
}

func TestNewData_Summary(t *testing.T) {
	assert.Equal(t, "Showing 11–20 of 1,234", NewData(paging.NewProps(1, 1234, 10), Config{}).Summary)
	assert.Equal(t, "Showing 1,231–1,234 of 1,234", NewData(paging.NewProps(123, 1234, 10), Config{}).Summary)
	assert.Equal(t, "No results", NewData(paging.NewProps(0, 0, 10), Config{}).Summary)
}

func TestNewData_ClampsCurrent(t *testing.T) {
	d := NewData(paging.NewProps(40, 100, 10), Config{})

	assert.Equal(t, 10, d.CurrentPage)
	assert.True(t, d.Next.Disabled)
}

func TestNewData_Hidden(t *testing.T) {
	assert.True(t, NewData(paging.NewProps(0, 0, 10), Config{}).Hidden)
	assert.True(t, NewData(paging.NewProps(0, 7, 10), Config{}).Hidden)
	assert.False(t, NewData(paging.NewProps(0, 11, 10), Config{}).Hidden)
	// A single page of 25 still shows the size selector so the user can shrink it.
	assert.False(t, NewData(paging.NewProps(0, 20, 25), Config{}).Hidden)
}

func TestNav_RendersNothingWhenHidden(t *testing.T) {
	out := render(t, Nav(NewData(paging.NewProps(0, 3, 10), Config{})))
	assert.Empty(t, out)
}

func TestNav_LinkRenderer(t *testing.T) {
	cfg := Config{
		BaseURL:  "/docs",
		TargetID: "document-list",
		UseHtmx:  true,
		PushURL:  true,
		JumpURL:  "/docs/jump",
		Debounce: 300 * time.Millisecond,
	}

	out := render(t, Nav(NewData(paging.NewProps(5, 100, 10), cfg)))

	assert.Contains(t, out, `aria-label="Pagination"`)
	assert.Contains(t, out, `aria-current="page"`)
	assert.Contains(t, out, `hx-target="#document-list"`)
	assert.Contains(t, out, `hx-push-url="true"`)
	assert.Contains(t, out, `href="/docs?limit=10&amp;page=6"`)
	assert.Contains(t, out, `hx-trigger="input changed delay:300ms"`)
	assert.Contains(t, out, `id="document-list-jump"`)
	assert.Contains(t, out, "Showing 51–60 of 100")
	assert.Equal(t, 2, strings.Count(out, "…"))
}

func TestNav_ButtonRenderer(t *testing.T) {
	cfg := Config{BaseURL: "/docs", Renderer: ButtonRenderer{TargetID: "list"}}

	out := render(t, Nav(NewData(paging.NewProps(0, 100, 10), cfg)))

	assert.Contains(t, out, `<button type="button"`)
	assert.Contains(t, out, `hx-get="/docs?limit=10&amp;page=2"`)
	// Previous is unavailable on the first page.
	assert.Contains(t, out, `disabled>Previous</button>`)
	assert.NotContains(t, out, "<a href=\"/docs?limit=10&amp;page=2\"")
}

func TestNav_CustomRenderer(t *testing.T) {
	var rendered []ItemKind
	cfg := Config{Renderer: ItemRendererFunc(func(item Item) templ.Component {
		rendered = append(rendered, item.Kind)
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "<li>"+item.Label+"</li>")
			return err
		})
	})}

	out := render(t, Nav(NewData(paging.NewProps(5, 100, 10), cfg)))

	assert.Equal(t, KindPrevious, rendered[0])
	assert.Equal(t, KindNext, rendered[len(rendered)-1])
	assert.Contains(t, out, "<li>6</li>")
}

func TestJumpInput_EscapesValue(t *testing.T) {
	d := NewData(paging.NewProps(0, 100, 10), Config{JumpURL: "/jump"})

	out := render(t, JumpInput(d, `"><script>`))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `id="pagination-jump"`)
	assert.Contains(t, out, `hx-trigger="input changed delay:500ms"`)
}

func TestLimitSelect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantHtmx bool
	}{
		{"htmx links", Config{BaseURL: "/docs", TargetID: "document-list", UseHtmx: true}, true},
		{"plain links", Config{BaseURL: "/docs"}, false},
		{"button renderer", Config{BaseURL: "/docs", Renderer: ButtonRenderer{TargetID: "list"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, LimitSelect(NewData(paging.NewProps(0, 100, 25), tt.cfg)))

			assert.Contains(t, out, `href="/docs?limit=25&amp;page=1" class="`)
			assert.Contains(t, out, `aria-pressed="true"`)
			assert.Equal(t, 2, strings.Count(out, `aria-pressed="false"`))
			assert.Equal(t, tt.wantHtmx, strings.Contains(out, `hx-get="/docs?limit=50&amp;page=1" hx-target="#document-list" hx-swap="outerHTML"`))
		})
	}
}
