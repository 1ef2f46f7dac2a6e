package storage

import (
	"io"
	"maps"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// documentTypes maps accepted document extensions to the MIME type stored
// alongside the object. mime.TypeByExtension depends on the host's mime
// tables, so the common text formats are pinned here.
var documentTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
}

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
// 1. The pinned document table, by extension
// 2. mime.TypeByExtension
// 3. Sniffing the first 512 bytes of data (if available)
// 4. "application/octet-stream"
//
// A client-provided type is never trusted for documents; browsers report
// markdown and csv inconsistently.
func DetectContentType(filename string, data io.Reader) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := documentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// =============================================================================
// Content Type Validation
// =============================================================================

// IsAllowedDocument reports whether filename has an extension accepted for
// dataset uploads.
func IsAllowedDocument(filename string) bool {
	_, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// AllowedDocumentExtensions returns the accepted extensions, sorted.
func AllowedDocumentExtensions() []string {
	return slices.Sorted(maps.Keys(documentTypes))
}

// IsText reports whether the content type is human-readable text that the
// indexer can split into words.
func IsText(contentType string) bool {
	base := baseType(contentType)
	return strings.HasPrefix(base, "text/") || base == "application/json"
}

func baseType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(base))
}
