package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/datadeck_test")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.StorageProvider)
	assert.Equal(t, 2, cfg.PaginationEdgePages)
	assert.Equal(t, 1, cfg.PaginationSiblingPages)
	assert.Equal(t, 500*time.Millisecond, cfg.PageJumpDebounce)
	assert.Equal(t, int64(15<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 7*24*time.Hour, cfg.JobRetention)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/datadeck_test")
	t.Setenv("PAGINATION_EDGE_PAGES", "1")
	t.Setenv("PAGINATION_SIBLING_PAGES", "3")
	t.Setenv("PAGE_JUMP_DEBOUNCE", "250ms")
	t.Setenv("DRAFT_AUTOSAVE_DELAY", "2s")
	t.Setenv("UPLOAD_MAX_BYTES", "1048576")
	t.Setenv("COUNT_CACHE_TTL", "not-a-duration")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.PaginationEdgePages)
	assert.Equal(t, 3, cfg.PaginationSiblingPages)
	assert.Equal(t, 250*time.Millisecond, cfg.PageJumpDebounce)
	assert.Equal(t, 2*time.Second, cfg.DraftAutosaveDelay)
	assert.Equal(t, int64(1<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 30*time.Second, cfg.CountCacheTTL, "unparseable values fall back")
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": ""},
			want: "DATABASE_URL",
		},
		{
			name: "unknown storage provider",
			env:  map[string]string{"STORAGE_PROVIDER": "gcs"},
			want: "STORAGE_PROVIDER",
		},
		{
			name: "r2 without bucket",
			env: map[string]string{
				"STORAGE_PROVIDER":     "r2",
				"R2_ACCOUNT_ID":        "acct",
				"R2_ACCESS_KEY_ID":     "key",
				"R2_SECRET_ACCESS_KEY": "secret",
			},
			want: "R2_BUCKET_NAME",
		},
		{
			name: "negative siblings",
			env:  map[string]string{"PAGINATION_SIBLING_PAGES": "-1"},
			want: "PAGINATION_SIBLING_PAGES",
		},
		{
			name: "zero upload size",
			env:  map[string]string{"UPLOAD_MAX_BYTES": "0"},
			want: "UPLOAD_MAX_BYTES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/datadeck_test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production", "info").Info("hello", "page", 3)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())

	buf.Reset()
	NewLogger(&buf, "development", "warn").Info("suppressed")
	assert.Empty(t, buf.String())
}

func TestLogWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "datadeck.log")

	w, closer, err := LogWriter(&Config{LogFile: path, LogMaxSizeMB: 1})
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
