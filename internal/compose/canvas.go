package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
)

// Canvas is the single-page document being composed. Coordinates are PDF
// user space with the origin at the bottom-left corner.
type Canvas interface {
	Size() (w, h float64)
	DrawText(line TextLine) error
	DrawImage(img Image, r Rect) error
	Bytes() ([]byte, error)
}

// Font selects the text face. With Data set, the TrueType font is embedded
// under Family and text is written as UTF-8. Otherwise Family names a core
// font and text is translated to cp1252.
type Font struct {
	Family string
	Data   []byte
}

// pdfCanvas draws on top of page one of a template using fpdf, which
// measures y from the top edge.
type pdfCanvas struct {
	pdf  *fpdf.Fpdf
	w, h float64
	tr   func(string) string
}

// openPDFCanvas imports the first template page as the page background and
// selects font once for all later text.
func openPDFCanvas(template []byte, font Font) (c *pdfCanvas, err error) {
	// gofpdi panics on PDFs it cannot parse.
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: import template page: %v", domain.ErrTemplateLoad, r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl := imp.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")

	w, h := mediaBox(imp.GetPageSizes(), 1)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: template page has no usable MediaBox", domain.ErrTemplateLoad)
	}

	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	imp.UseImportedTemplate(pdf, tpl, 0, 0, w, h)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if len(font.Data) > 0 {
		pdf.AddUTF8FontFromBytes(font.Family, "", font.Data)
		tr = nil
	}
	pdf.SetFont(font.Family, "", 12)
	pdf.SetTextColor(0, 0, 0)
	if pdf.Err() {
		return nil, fmt.Errorf("%w: %w", domain.ErrCompose, pdf.Error())
	}

	return &pdfCanvas{pdf: pdf, w: w, h: h, tr: tr}, nil
}

// unencodable counts the runes of s that tr replaces with '.'.
func unencodable(tr func(string) string, s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x80 && tr(string(r)) == "." {
			n++
		}
	}
	return n
}

func mediaBox(sizes map[int]map[string]map[string]float64, page int) (w, h float64) {
	if boxes, ok := sizes[page]; ok {
		if mb, ok := boxes["/MediaBox"]; ok {
			return mb["w"], mb["h"]
		}
	}
	return 0, 0
}

func (c *pdfCanvas) Size() (float64, float64) {
	return c.w, c.h
}

func (c *pdfCanvas) DrawText(line TextLine) error {
	text := line.Text
	if c.tr != nil {
		if n := unencodable(c.tr, text); n > 0 {
			logging.Warn("Characters dropped by the core font, configure layout.font_file",
				"field", line.Label, "dropped", n)
		}
		text = c.tr(text)
	}
	c.pdf.SetFontSize(line.Size)
	c.pdf.Text(line.X, c.h-line.Y, text)
	if c.pdf.Err() {
		return c.pdf.Error()
	}
	return nil
}

func (c *pdfCanvas) DrawImage(img Image, r Rect) error {
	if img.Name == "" {
		return errors.New("image has no name")
	}
	opts := fpdf.ImageOptions{ImageType: img.Type, ReadDpi: false}
	c.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	if c.pdf.Err() {
		return c.pdf.Error()
	}
	c.pdf.ImageOptions(img.Name, r.X, c.h-r.Y-r.H, r.W, r.H, false, opts, 0, "")
	if c.pdf.Err() {
		return c.pdf.Error()
	}
	return nil
}

func (c *pdfCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
