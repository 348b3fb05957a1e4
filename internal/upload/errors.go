// Package upload implements the torrent ingestion pipeline: parse an
// untrusted .torrent upload, validate and canonicalize it, and persist the
// record with its tracker associations inside one transaction.
package upload

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError maps form field names to human-readable reasons. It is
// returned instead of a record; the boundary layer attaches it to whatever
// presentation object it uses.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a reason to a field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields[field] = append(e.Fields[field], reason)
}

// Empty reports whether no reasons were collected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("upload validation failed:")
	for _, field := range fields {
		fmt.Fprintf(&b, " %s: %s;", field, strings.Join(e.Fields[field], ", "))
	}
	return strings.TrimSuffix(b.String(), ";")
}

// RateLimitError tells the uploader when the next upload is allowed.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upload rate limit exceeded, retry at %s", e.RetryAt.Format(time.RFC3339))
}

// RangeBanError blocks an anonymous upload, either because the IP falls in
// a banned range or because raid mode disables anonymous uploads entirely.
type RangeBanError struct {
	Message string
}

func (e *RangeBanError) Error() string {
	return e.Message
}
