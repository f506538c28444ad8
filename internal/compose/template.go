package compose

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
)

func init() {
	// Keep pdfcpu from writing its config directory under the user's home.
	api.DisableConfigDir()
}

// loadTemplate reads the template, checks that it is a valid PDF with at
// least one page and returns it rewritten with a classic xref table. Every
// failure wraps domain.ErrTemplateLoad.
func loadTemplate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTemplateLoad, err)
	}
	out, err := normalizeTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTemplateLoad, path, err)
	}
	return out, nil
}

// normalizeTemplate validates data and re-serializes it without object
// streams or an xref stream, the only layout the page importer can read.
func normalizeTemplate(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("template has no pages")
	}

	ctx.Configuration.WriteObjectStream = false
	ctx.Configuration.WriteXRefStream = false
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("rewrite template: %w", err)
	}
	return buf.Bytes(), nil
}

// TemplateReady reports whether the template at path can be loaded. It backs
// the readiness probe.
func TemplateReady(path string) bool {
	_, err := loadTemplate(path)
	return err == nil
}
