// Package contenttype classifies request bodies of batch uploads.
package contenttype

import (
	"bytes"
	"mime"
	"strings"
)

// Category represents a broad content-type classification.
type Category string

const (
	JSON      Category = "json"
	CSV       Category = "csv"
	Multipart Category = "multipart"
	Unknown   Category = "unknown"
)

// Classify returns the broad content category for a content-type header value.
// Uses mime.ParseMediaType to strip parameters (charset, boundary, etc.)
// before matching. Falls back to strings.ToLower for malformed values.
// Returns Unknown for empty content-type strings.
func Classify(contentType string) Category {
	if contentType == "" {
		return Unknown
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	// application/json, application/vnd.*+json
	case strings.Contains(mediaType, "json"):
		return JSON
	// text/csv, application/csv, the legacy Excel type browsers send for .csv
	case mediaType == "text/csv" || mediaType == "application/csv" || mediaType == "application/vnd.ms-excel":
		return CSV
	case mediaType == "multipart/form-data":
		return Multipart
	default:
		return Unknown
	}
}

// Sniff guesses JSON or CSV from the first non-blank byte of data.
func Sniff(data []byte) Category {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) == 0 {
		return Unknown
	}
	switch trimmed[0] {
	case '{', '[':
		return JSON
	default:
		return CSV
	}
}

// FromFilename classifies an uploaded file by its extension.
func FromFilename(name string) Category {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return JSON
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".txt"):
		return CSV
	default:
		return Unknown
	}
}

// IsJSON returns true if the content type indicates JSON (case-insensitive).
func IsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
