// Package compose fills the biodata template with a request's fields and
// photos and writes the result through the output resolver.
package compose

import (
	"fmt"
	"os"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
	"github.com/sridharan011/matrimony-pdf-generator/internal/output"
)

// Composer produces one PDF per request. It keeps no per-request state and
// is safe for concurrent use.
type Composer struct {
	templatePath string
	layout       config.LayoutConfig
	decoders     []Decoder
	limits       photoLimits
	resolver     output.Resolver
	clock        *output.Clock
	font         Font

	openCanvas func(template []byte, font Font) (Canvas, error)
}

// Option customises a Composer.
type Option func(*Composer)

// WithClock replaces the timestamp source used for file names.
func WithClock(c *output.Clock) Option {
	return func(cp *Composer) { cp.clock = c }
}

// WithResolver replaces the output resolver built from config.
func WithResolver(r output.Resolver) Option {
	return func(cp *Composer) { cp.resolver = r }
}

// New builds a Composer from configuration. The template is not read until
// the first Compose call.
func New(cfg config.Config, opts ...Option) (*Composer, error) {
	ds, err := DecodersFor(cfg.Photos.Formats)
	if err != nil {
		return nil, err
	}
	c := &Composer{
		templatePath: cfg.Template.Path,
		layout:       cfg.Layout,
		decoders:     ds,
		limits:       photoLimits{MaxPixels: cfg.Photos.MaxPixels, MaxSourcePixels: cfg.Photos.MaxSourcePixels},
		resolver:     output.NewResolver(cfg.Output),
		clock:        output.NewClock(nil),
		font:         Font{Family: cfg.Layout.FontFamily},
		openCanvas: func(template []byte, font Font) (Canvas, error) {
			return openPDFCanvas(template, font)
		},
	}
	if p := cfg.Layout.FontFile; p != "" {
		if c.font.Data, err = os.ReadFile(p); err != nil {
			return nil, fmt.Errorf("read layout.font_file: %w", err)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TemplatePath returns the template location the composer reads.
func (c *Composer) TemplatePath() string {
	return c.templatePath
}

type photoSlot struct {
	name  string
	photo domain.Photo
	rect  Rect
}

// Compose renders req onto the template and returns the absolute path of the
// written document. Errors wrap domain.ErrTemplateLoad, domain.ErrCompose or
// domain.ErrOutputWrite. Undecodable photos are skipped, not reported.
func (c *Composer) Compose(req domain.BiodataRequest) (string, error) {
	tpl, err := loadTemplate(c.templatePath)
	if err != nil {
		logging.Error("Template load failed", "path", c.templatePath, "error", err)
		return "", err
	}

	doc, err := c.openCanvas(tpl, c.font)
	if err != nil {
		logging.Error("Template import failed", "path", c.templatePath, "error", err)
		return "", err
	}
	w, h := doc.Size()

	for _, line := range TextLines(req, c.layout, h) {
		if err := doc.DrawText(line); err != nil {
			return "", fmt.Errorf("%w: draw %s: %w", domain.ErrCompose, line.Label, err)
		}
	}

	slots := []photoSlot{
		{name: "profile", photo: req.ProfilePhoto, rect: ProfileRect(c.layout, w, h)},
		{name: "center", photo: req.CenterPhoto, rect: CenterRect(c.layout, w, h)},
	}
	placed := 0
	for _, s := range slots {
		if !s.photo.Present() {
			continue
		}
		img, err := preparePhoto(c.decoders, s.name, s.photo, c.limits)
		if err != nil {
			logging.Warn("Photo skipped", "slot", s.name, "bytes", len(s.photo.Data), "error", err)
			continue
		}
		if err := doc.DrawImage(img, s.rect); err != nil {
			return "", fmt.Errorf("%w: place %s photo: %w", domain.ErrCompose, s.name, err)
		}
		placed++
	}

	data, err := doc.Bytes()
	if err != nil {
		return "", fmt.Errorf("%w: serialise: %w", domain.ErrCompose, err)
	}

	dir, err := c.resolver.Resolve()
	if err != nil {
		logging.Error("Output directory unavailable", "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	path, err := output.Write(dir, output.FileName(req.Name, c.clock.Stamp()), data)
	if err != nil {
		logging.Error("Output write failed", "dir", dir, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}

	logging.Info("Biodata PDF written", "path", path, "photos", placed, "bytes", len(data))
	return path, nil
}
