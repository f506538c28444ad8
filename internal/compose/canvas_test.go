package compose

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetLoggerForTest(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logging.SetLoggerForTest(zerolog.New(os.Stdout).Level(zerolog.InfoLevel)) })
	return &buf
}

func TestUnencodable(t *testing.T) {
	tr := fpdf.New("P", "pt", "A4", "").UnicodeTranslatorFromDescriptor("")

	assert.Equal(t, 0, unencodable(tr, "Asha Rao"))
	assert.Equal(t, 0, unencodable(tr, "Zoë..."))
	assert.Equal(t, 1, unencodable(tr, "Łukasz"))
	assert.Equal(t, 3, unencodable(tr, "ஆஷா Rao"))
}

func TestCompose_CoreFontWarnsOnDroppedCharacters(t *testing.T) {
	logs := captureLogs(t)
	c, err := New(testConfig(t))
	require.NoError(t, err)

	_, err = c.Compose(domain.BiodataRequest{Name: "ஆஷா Rao", Email: "a@x.com"})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "Characters dropped by the core font")
	assert.Contains(t, out, `"field":"Name"`)
	assert.Contains(t, out, `"dropped":3`)
	assert.NotContains(t, out, `"field":"Email"`)
}

func TestCompose_EmbeddedFontKeepsUTF8(t *testing.T) {
	logs := captureLogs(t)
	cfg := testConfig(t)
	cfg.Layout.FontFamily = "DejaVu"
	cfg.Layout.FontFile = filepath.Join("testdata", "DejaVuSansCondensed.ttf")

	c, err := New(cfg)
	require.NoError(t, err)
	path, err := c.Compose(domain.BiodataRequest{Name: "Łukasz Zoë"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/FontFile2")
	assert.NotContains(t, logs.String(), "Characters dropped")
}

func TestNew_MissingFontFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Layout.FontFile = filepath.Join(t.TempDir(), "missing.ttf")

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font_file")
}
