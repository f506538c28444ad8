package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sridharan011/matrimony-pdf-generator/internal/compose"
	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
)

func minimalConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	doc := fpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	tpl := filepath.Join(dir, "template.pdf")
	require.NoError(t, os.WriteFile(tpl, buf.Bytes(), 0o644))

	cfg := config.Default()
	cfg.Template.Path = tpl
	cfg.Output.MountCandidates = []string{filepath.Join(dir, "E")}
	cfg.Output.FallbackDir = filepath.Join(dir, "local_backups")
	return cfg
}

func newComposer(t *testing.T, cfg config.Config) *compose.Composer {
	t.Helper()
	c, err := compose.New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	cfg := minimalConfig(t)
	app := New(Deps{Config: cfg, Composer: newComposer(t, cfg)})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusNotFound, body.Error.Code)
}

func TestNew_ComposeEndToEnd(t *testing.T) {
	cfg := minimalConfig(t)
	c := newComposer(t, cfg)
	app := New(Deps{
		Config:   cfg,
		Composer: c,
		Ready:    func() bool { return compose.TemplateReady(c.TemplatePath()) },
	})

	ready, err := app.Test(httptest.NewRequest(http.MethodGet, "/ops/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{A: 255})
	var photo bytes.Buffer
	require.NoError(t, png.Encode(&photo, img))

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("name", "Asha Rao"))
	require.NoError(t, w.WriteField("dob", "2000-01-01"))
	require.NoError(t, w.WriteField("email", "a@x.com"))
	require.NoError(t, w.WriteField("phone", "555"))
	part, err := w.CreateFormFile("profilePhoto", "me.png")
	require.NoError(t, err)
	_, err = part.Write(photo.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/biodata", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, cfg.Output.FallbackDir, filepath.Dir(out["path"]))
	assert.True(t, strings.HasPrefix(filepath.Base(out["path"]), "Asha Rao_"))
	assert.FileExists(t, out["path"])
}

func TestNew_TemplateMissingIsJSON500(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Template.Path = filepath.Join(t.TempDir(), "gone.pdf")
	app := New(Deps{Config: cfg, Composer: newComposer(t, cfg)})

	req := httptest.NewRequest(http.MethodPost, "/v1/biodata", strings.NewReader(`{"name":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error.Message, "Template missing or corrupt")
}

func TestNew_MonitorRoute(t *testing.T) {
	cfg := minimalConfig(t)
	app := New(Deps{Config: cfg, Composer: newComposer(t, cfg)})

	req := httptest.NewRequest(http.MethodGet, "/v1/monitor", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
