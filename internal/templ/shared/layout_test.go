package shared

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/DukeRupert/datadeck/internal/csrf"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_WrapsChildren(t *testing.T) {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>inside</p>")
		return err
	})
	ctx := templ.WithChildren(csrf.WithToken(context.Background(), "tok123"), body)

	var buf bytes.Buffer
	require.NoError(t, Layout("Q3 <draft>").Render(ctx, &buf))
	out := buf.String()

	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Q3 &lt;draft&gt; · datadeck</title>")
	assert.Contains(t, out, `<main class="mx-auto max-w-7xl px-4 py-8"><p>inside</p></main>`)
	assert.Contains(t, out, `hx-headers="{&#34;X-CSRF-Token&#34;:&#34;tok123&#34;}"`)
}

func TestFlashMessage(t *testing.T) {
	tests := []struct {
		name  string
		flash *Flash
		want  string
	}{
		{"nil", nil, ""},
		{"empty message", &Flash{Type: "success"}, ""},
		{"success", &Flash{Type: "success", Message: "Saved"}, `<div class="rounded-md bg-green-50 p-4 text-sm text-green-800" role="status">Saved</div>`},
		{"escapes", &Flash{Type: "error", Message: "<b>no</b>"}, `<div class="rounded-md bg-red-50 p-4 text-sm text-red-800" role="status">&lt;b&gt;no&lt;/b&gt;</div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, FlashMessage(tt.flash).Render(context.Background(), &buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
