// Package shared holds the layout and flash messages used by every page.
package shared

import (
	"context"
	"encoding/json"

	"github.com/DukeRupert/datadeck/internal/csrf"
)

// Flash is a one-off message shown above the page content.
type Flash struct {
	Type    string // success, error, info
	Message string
}

func (f *Flash) class() string {
	switch f.Type {
	case "success":
		return "rounded-md bg-green-50 p-4 text-sm text-green-800"
	case "error":
		return "rounded-md bg-red-50 p-4 text-sm text-red-800"
	default:
		return "rounded-md bg-blue-50 p-4 text-sm text-blue-800"
	}
}

// csrfHeaders is the hx-headers value carrying the request's CSRF token.
func csrfHeaders(ctx context.Context) string {
	b, err := json.Marshal(map[string]string{csrf.HeaderName: csrf.Token(ctx)})
	if err != nil {
		return "{}"
	}
	return string(b)
}
