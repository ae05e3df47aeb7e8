package webhook

import (
	"errors"
	"fmt"
)

// ContentType selects how an event payload is encoded on the wire.
type ContentType int8

const (
	// ContentTypeJSON posts the payload as a JSON document.
	ContentTypeJSON ContentType = iota
	// ContentTypeForm posts the payload URL-encoded.
	ContentTypeForm
)

// String returns the Content-Type header value.
func (c ContentType) String() string {
	switch c {
	case ContentTypeJSON:
		return "application/json"
	case ContentTypeForm:
		return "application/x-www-form-urlencoded"
	}
	return ""
}

// ErrInvalidContentType is returned when the content type is unknown.
var ErrInvalidContentType = errors.New("invalid content type")

// ParseContentType maps a configured content type to its wire
// encoding. Both the short configuration spellings and the MIME names
// are accepted.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "json", "application/json":
		return ContentTypeJSON, nil
	case "form", "application/x-www-form-urlencoded":
		return ContentTypeForm, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrInvalidContentType, s)
}
