package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
)

// Decoder probes photo bytes for one image format.
type Decoder struct {
	Format string
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

var decoders = map[string]Decoder{
	"jpeg": {Format: "jpeg", config: jpeg.DecodeConfig, decode: jpeg.Decode},
	"png":  {Format: "png", config: png.DecodeConfig, decode: png.Decode},
	"webp": {Format: "webp", config: webp.DecodeConfig, decode: webp.Decode},
}

// DecodersFor returns decoders in the given order.
func DecodersFor(formats []string) ([]Decoder, error) {
	out := make([]Decoder, 0, len(formats))
	seen := make(map[string]bool, len(formats))
	for _, f := range formats {
		d, ok := decoders[f]
		if !ok {
			return nil, fmt.Errorf("unsupported photo format %q", f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, errors.New("no photo formats configured")
	}
	return out, nil
}

// ordered moves the decoder matching hint to the front, keeping the rest in
// configured order.
func ordered(ds []Decoder, hint string) []Decoder {
	if hint == "" {
		return ds
	}
	for i, d := range ds {
		if d.Format != hint {
			continue
		}
		if i == 0 {
			return ds
		}
		out := make([]Decoder, 0, len(ds))
		out = append(out, d)
		out = append(out, ds[:i]...)
		return append(out, ds[i+1:]...)
	}
	return ds
}

// probe tries each decoder in turn and stops at the first success. Headers
// declaring more than maxSource pixels are rejected before any pixel data is
// allocated; maxSource <= 0 disables the check.
func probe(ds []Decoder, p domain.Photo, maxSource int) (image.Image, string, error) {
	var errs []error
	for _, d := range ordered(ds, p.FormatHint()) {
		cfg, err := d.config(bytes.NewReader(p.Data))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Format, err))
			continue
		}
		if maxSource > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxSource) {
			return nil, "", fmt.Errorf("%w: %s is %dx%d, over the %d pixel limit",
				domain.ErrImageDecode, d.Format, cfg.Width, cfg.Height, maxSource)
		}
		img, err := d.decode(bytes.NewReader(p.Data))
		if err == nil {
			return img, d.Format, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Format, err))
	}
	return nil, "", fmt.Errorf("%w: %w", domain.ErrImageDecode, errors.Join(errs...))
}

// photoLimits bounds photo sizes: MaxPixels is the long edge after
// downscaling, MaxSourcePixels the width*height a source may declare.
type photoLimits struct {
	MaxPixels       int
	MaxSourcePixels int
}

// Image is a photo ready to be placed on the page.
type Image struct {
	Name string
	// Type is the PDF writer's image type, "JPG" or "PNG".
	Type   string
	Data   []byte
	Width  int
	Height int
}

// preparePhoto decodes p and re-encodes it so the PDF writer accepts it:
// JPEG sources stay JPEG, everything else becomes an 8-bit PNG. Photos whose
// long edge exceeds lim.MaxPixels are downscaled first.
func preparePhoto(ds []Decoder, name string, p domain.Photo, lim photoLimits) (Image, error) {
	img, format, err := probe(ds, p, lim.MaxSourcePixels)
	if err != nil {
		return Image{}, err
	}

	b := img.Bounds()
	if m := lim.MaxPixels; m > 0 && (b.Dx() > m || b.Dy() > m) {
		img = imaging.Fit(img, m, m, imaging.Lanczos)
	} else {
		img = imaging.Clone(img)
	}

	var buf bytes.Buffer
	out := Image{Name: name, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if format == "jpeg" {
		out.Type = "JPG"
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90))
	} else {
		out.Type = "PNG"
		err = imaging.Encode(&buf, img, imaging.PNG)
	}
	if err != nil {
		return Image{}, fmt.Errorf("%w: re-encode %s: %w", domain.ErrImageDecode, format, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
