package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
)

// writeTemplate writes a one-page A4 PDF to dir and returns its path.
func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 18)
	doc.Text(70, 60, "BIODATA")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	p := filepath.Join(dir, "template.pdf")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

// testConfig points the template and fallback into a temp dir and leaves no
// mount candidate that could exist on the test machine.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Template.Path = writeTemplate(t, dir)
	cfg.Output.MountCandidates = []string{filepath.Join(dir, "E"), filepath.Join(dir, "F"), filepath.Join(dir, "G")}
	cfg.Output.FallbackDir = filepath.Join(dir, "local_backups")
	return cfg
}

type placedImage struct {
	img  Image
	rect Rect
}

// recordingCanvas passes draws through to the real canvas and remembers them.
type recordingCanvas struct {
	Canvas
	lines  []TextLine
	images []placedImage
}

func (r *recordingCanvas) DrawText(line TextLine) error {
	r.lines = append(r.lines, line)
	return r.Canvas.DrawText(line)
}

func (r *recordingCanvas) DrawImage(img Image, rect Rect) error {
	r.images = append(r.images, placedImage{img: img, rect: rect})
	return r.Canvas.DrawImage(img, rect)
}

// recording installs a recordingCanvas on c and returns a pointer that is
// filled once Compose opens the canvas.
func recording(c *Composer) **recordingCanvas {
	var rec *recordingCanvas
	c.openCanvas = func(template []byte, font Font) (Canvas, error) {
		inner, err := openPDFCanvas(template, font)
		if err != nil {
			return nil, err
		}
		rec = &recordingCanvas{Canvas: inner}
		return rec, nil
	}
	return &rec
}
