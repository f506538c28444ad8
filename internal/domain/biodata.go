// Package domain contains the request and error types shared by the composer
// and the intake layer. Keep it free of transport and PDF library concerns.
package domain

import "strings"

// Photo is an optional raw image supplied with a request.
type Photo struct {
	Data []byte
	// Format is the declared type (a MIME type such as "image/png" or a bare
	// extension like "jpg"). It is only a hint; empty means unknown.
	Format string
}

// Present reports whether the photo slot was filled.
func (p Photo) Present() bool {
	return len(p.Data) > 0
}

// FormatHint normalises Format to one of "jpeg", "png", "webp" or "".
func (p Photo) FormatHint() string {
	f := strings.ToLower(strings.TrimSpace(p.Format))
	f = strings.TrimPrefix(f, "image/")
	f = strings.TrimPrefix(f, ".")
	switch f {
	case "jpeg", "jpg", "pjpeg":
		return "jpeg"
	case "png", "x-png":
		return "png"
	case "webp":
		return "webp"
	}
	return ""
}

// BiodataRequest is the flat record produced by the form for one compose call.
type BiodataRequest struct {
	Name         string
	DateOfBirth  string
	Email        string
	Phone        string
	Address      string
	ProfilePhoto Photo
	CenterPhoto  Photo
}
