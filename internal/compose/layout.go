package compose

import (
	"strings"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
)

// TextLine is one "<Label>: <value>" line. X and Y are the baseline origin in
// PDF user space (origin bottom-left).
type TextLine struct {
	Label string
	Text  string
	X     float64
	Y     float64
	Size  float64
}

// Rect is an image placement in PDF user space; (X, Y) is the lower-left corner.
type Rect struct {
	X, Y, W, H float64
}

type field struct {
	label    string
	value    string
	optional bool
}

// fields returns the canonical field order. Address is drawn only when it
// has a value; the others always produce a line.
func fields(req domain.BiodataRequest) []field {
	return []field{
		{label: "Name", value: req.Name},
		{label: "Date of Birth", value: req.DateOfBirth},
		{label: "Email", value: req.Email},
		{label: "Phone", value: req.Phone},
		{label: "Address", value: req.Address, optional: true},
	}
}

// TextLines lays out the request's fields on a page of the given height.
func TextLines(req domain.BiodataRequest, layout config.LayoutConfig, pageHeight float64) []TextLine {
	y := pageHeight - layout.TopOffset
	var lines []TextLine
	for _, f := range fields(req) {
		value := strings.TrimSpace(f.value)
		if value == "" {
			if f.optional {
				continue
			}
			value = layout.Placeholder
		}
		lines = append(lines, TextLine{
			Label: f.label,
			Text:  f.label + ": " + value,
			X:     layout.TextX,
			Y:     y,
			Size:  layout.FontSize,
		})
		y -= layout.LineGap
	}
	return lines
}

// ProfileRect is the top-right photo slot.
func ProfileRect(layout config.LayoutConfig, w, h float64) Rect {
	return Rect{
		X: w - layout.ProfileRight,
		Y: h - layout.ProfileTop,
		W: layout.PhotoSize,
		H: layout.PhotoSize,
	}
}

// CenterRect is the photo slot centred on the page.
func CenterRect(layout config.LayoutConfig, w, h float64) Rect {
	return Rect{
		X: w/2 - layout.PhotoSize/2,
		Y: h/2 - layout.PhotoSize/2,
		W: layout.PhotoSize,
		H: layout.PhotoSize,
	}
}
