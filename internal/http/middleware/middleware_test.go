package middleware

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/tokens"
)

func TestRegister_AddsHealthAndRequestID(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Deps{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, path := range []string{"/ops/live", "/ops/ready"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s request failed: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected %s 200, got %d", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ping request failed: %v", err)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id to be present")
	}
}

func TestRegister_ReadinessFollowsProbe(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Deps{Ready: func() bool { return false }})

	req, _ := http.NewRequest(http.MethodGet, "/ops/ready", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 when template is not ready, got %d", resp.StatusCode)
	}
}

func TestRegister_APIKeyValidation(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Deps{Tokens: tokens.FromMap(map[string]int{"good": 0})})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := []struct {
		key  string
		want int
	}{
		{"", fiber.StatusOK},
		{"good", fiber.StatusOK},
		{"bad", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		if tc.key != "" {
			req.Header.Set("X-API-Key", tc.key)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request with key %q failed: %v", tc.key, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("key %q: expected %d, got %d", tc.key, tc.want, resp.StatusCode)
		}
	}
}

func TestRegister_KeyStoreNotReady(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{}, Deps{Tokens: tokens.NewCache()})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "any")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
