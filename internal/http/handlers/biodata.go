// Package handlers contains the intake endpoint that turns a submitted
// biodata form into a compose call.
package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/domain"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
)

// Composer produces a document for one request and returns its path.
type Composer interface {
	Compose(req domain.BiodataRequest) (string, error)
}

// BiodataService bundles configuration and the composer for the intake.
type BiodataService struct {
	Config   *config.Config
	Composer Composer
}

// NewBiodataService creates a new BiodataService instance.
func NewBiodataService(cfg config.Config, composer Composer) *BiodataService {
	return &BiodataService{
		Config:   &cfg,
		Composer: composer,
	}
}

// biodataJSON mirrors the form; photos are base64, optionally as data URLs.
type biodataJSON struct {
	Name             string `json:"name"`
	DOB              string `json:"dob"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	ProfilePhoto     string `json:"profilePhoto"`
	ProfilePhotoType string `json:"profilePhotoType"`
	CenterPhoto      string `json:"centerPhoto"`
	CenterPhotoType  string `json:"centerPhotoType"`
}

// HandleCompose generates one biodata PDF and reports where it was saved.
func (svc *BiodataService) HandleCompose(c *fiber.Ctx) error {
	req, err := extractRequest(c, *svc.Config)
	if err != nil {
		return err
	}

	requestID := c.GetRespHeader("X-Request-ID")
	path, err := svc.Composer.Compose(req)
	if err != nil {
		logging.Error("Biodata generation failed", "error", err, "request_id", requestID)
		return fiber.NewError(fiber.StatusInternalServerError, domain.Message(err))
	}

	logging.Info("Biodata generated", "path", path, "request_id", requestID)
	return c.JSON(fiber.Map{
		"path":    path,
		"message": "PDF saved at: " + path,
	})
}

// extractRequest reads either a JSON body or a multipart/urlencoded form.
func extractRequest(c *fiber.Ctx, cfg config.Config) (domain.BiodataRequest, error) {
	if c.Is("json") {
		return extractJSON(c, cfg)
	}

	req := domain.BiodataRequest{
		Name:        c.FormValue("name"),
		DateOfBirth: c.FormValue("dob"),
		Email:       c.FormValue("email"),
		Phone:       c.FormValue("phone"),
		Address:     c.FormValue("address"),
	}
	var err error
	if req.ProfilePhoto, err = formPhoto(c, "profilePhoto", cfg.Limits.MaxPhotoBytes); err != nil {
		return req, err
	}
	if req.CenterPhoto, err = formPhoto(c, "centerPhoto", cfg.Limits.MaxPhotoBytes); err != nil {
		return req, err
	}
	return req, nil
}

func extractJSON(c *fiber.Ctx, cfg config.Config) (domain.BiodataRequest, error) {
	var body biodataJSON
	if err := c.BodyParser(&body); err != nil {
		return domain.BiodataRequest{}, fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	req := domain.BiodataRequest{
		Name:        body.Name,
		DateOfBirth: body.DOB,
		Email:       body.Email,
		Phone:       body.Phone,
		Address:     body.Address,
	}
	var err error
	if req.ProfilePhoto, err = decodePhoto("profilePhoto", body.ProfilePhoto, body.ProfilePhotoType, cfg.Limits.MaxPhotoBytes); err != nil {
		return req, err
	}
	if req.CenterPhoto, err = decodePhoto("centerPhoto", body.CenterPhoto, body.CenterPhotoType, cfg.Limits.MaxPhotoBytes); err != nil {
		return req, err
	}
	return req, nil
}

// formPhoto reads an uploaded file. A missing file is an empty photo.
func formPhoto(c *fiber.Ctx, field string, maxBytes int) (domain.Photo, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Size == 0 {
		return domain.Photo{}, nil
	}
	if fh.Size > int64(maxBytes) {
		return domain.Photo{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Photo{}, fiber.NewError(fiber.StatusBadRequest, "Cannot read "+field)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return domain.Photo{}, fiber.NewError(fiber.StatusBadRequest, "Cannot read "+field)
	}
	if len(data) > maxBytes {
		return domain.Photo{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
	}
	return domain.Photo{Data: data, Format: fh.Header.Get("Content-Type")}, nil
}

// decodePhoto accepts plain base64 or a "data:<mime>;base64,<payload>" URL.
func decodePhoto(field, value, declared string, maxBytes int) (domain.Photo, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Photo{}, nil
	}
	if rest, ok := strings.CutPrefix(value, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return domain.Photo{}, fiber.NewError(fiber.StatusBadRequest, "Invalid data URL in "+field)
		}
		if declared == "" {
			declared, _, _ = strings.Cut(meta, ";")
		}
		value = payload
	}
	if base64.StdEncoding.DecodedLen(len(value)) > maxBytes+2 {
		return domain.Photo{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return domain.Photo{}, fiber.NewError(fiber.StatusBadRequest, "Invalid base64 in "+field)
	}
	if len(data) > maxBytes {
		return domain.Photo{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
	}
	return domain.Photo{Data: data, Format: declared}, nil
}
