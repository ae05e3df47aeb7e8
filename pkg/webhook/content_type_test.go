package webhook

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestParseContentType(t *testing.T) {
	is := is.New(t)

	for _, s := range []string{"json", "application/json"} {
		ct, err := ParseContentType(s)
		is.NoErr(err)
		is.Equal(ct, ContentTypeJSON)
	}
	for _, s := range []string{"form", "application/x-www-form-urlencoded"} {
		ct, err := ParseContentType(s)
		is.NoErr(err)
		is.Equal(ct, ContentTypeForm)
	}

	_, err := ParseContentType("xml")
	is.True(errors.Is(err, ErrInvalidContentType))
}

func TestContentTypeHeaderValue(t *testing.T) {
	is := is.New(t)
	is.Equal(ContentTypeJSON.String(), "application/json")
	is.Equal(ContentTypeForm.String(), "application/x-www-form-urlencoded")
	is.Equal(ContentType(-1).String(), "")
}
