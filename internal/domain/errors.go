package domain

import (
	"errors"
	"strings"
)

var (
	// ErrTemplateLoad signals that the base template is missing or malformed.
	// The installation has to be fixed before any request can succeed.
	ErrTemplateLoad = errors.New("template load failed")
	// ErrCompose is the catch-all for drawing or serialisation failures.
	ErrCompose = errors.New("compose failed")
	// ErrOutputWrite signals that the output directory or file could not be written.
	ErrOutputWrite = errors.New("output write failed")
	// ErrImageDecode is reported when a photo matches none of the configured
	// formats. It never aborts a request; the photo slot is skipped.
	ErrImageDecode = errors.New("image decode failed")
)

// Message converts an error returned by compose into a single line suitable
// for showing to the person who submitted the form.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var prefix string
	switch {
	case errors.Is(err, ErrTemplateLoad):
		prefix = "Template missing or corrupt, check the installation"
	case errors.Is(err, ErrOutputWrite):
		prefix = "Could not save the PDF"
	case errors.Is(err, ErrCompose):
		prefix = "Could not create the PDF"
	default:
		prefix = "Something went wrong while creating the PDF"
	}
	detail := strings.Join(strings.Fields(err.Error()), " ")
	return prefix + ": " + detail
}
