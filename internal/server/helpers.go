package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"utvibe/internal/middleware"
	"utvibe/internal/models"
	"utvibe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respond renders err. Errors that carry no client-facing message are logged
// and reported with fallback.
func respond(c *fiber.Ctx, err error, fallback string) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(fallback, err)
	}
	if appErr.Code == models.CodeInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", appErr.Error()))
	}
	return models.Respond(c, appErr)
}

// postRequest is the create/update payload, sent either as JSON or as
// multipart form data with image files.
type postRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           string   `json:"tags"`
	IsAnonymous    bool     `json:"isAnonymous"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	LocationName   string   `json:"locationName"`
	DeleteImageIDs []string `json:"deleteImageIds"`

	images []service.UploadImageInput
}

func (r postRequest) location() service.LocationInput {
	return service.LocationInput{Latitude: r.Latitude, Longitude: r.Longitude, Name: r.LocationName}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func parsePostRequest(c *fiber.Ctx) (postRequest, error) {
	var req postRequest
	if !isMultipart(c) {
		if err := c.BodyParser(&req); err != nil {
			return req, models.NewValidationError("Invalid request body")
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, models.NewValidationError("Invalid form data")
	}
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	req.Title = value("title")
	req.Description = value("description")
	req.Category = value("category")
	req.Tags = value("tags")
	req.IsAnonymous = value("isAnonymous") == "true"
	req.LocationName = value("locationName")
	for _, id := range strings.Split(value("deleteImageIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			req.DeleteImageIDs = append(req.DeleteImageIDs, id)
		}
	}
	if req.Latitude, err = parseCoordinate(value("latitude")); err != nil {
		return req, err
	}
	if req.Longitude, err = parseCoordinate(value("longitude")); err != nil {
		return req, err
	}

	for _, fh := range form.File["images"] {
		if fh.Size == 0 {
			continue
		}
		content, err := readFormFile(fh)
		if err != nil {
			return req, models.NewValidationError("Invalid image upload")
		}
		req.images = append(req.images, service.UploadImageInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Content:     content,
		})
	}
	return req, nil
}

func parseCoordinate(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, models.NewValidationError("Invalid coordinates")
	}
	return &f, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
