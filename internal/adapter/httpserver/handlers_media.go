package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
)

const maxMediaUploadBytes = 10 << 20

func (s *Server) registerMediaRoutes(api *echo.Group) {
	api.POST("/media", s.handleUploadMedia)
}

// handleUploadMedia stores one multipart "file" and returns the URL to attach to a capsule.
func (s *Server) handleUploadMedia(c echo.Context) error {
	ctx := c.Request().Context()

	if s.media == nil {
		return apperrors.ValidationError("media uploads are not enabled")
	}

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxMediaUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.ValidationError("a file upload is required").
			WithField("field", "file").
			WithField("max_bytes", maxMediaUploadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.InternalError("failed to read upload", err)
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.media.Put(ctx, userID, fh.Filename, contentType, f)
	if err != nil {
		return apperrors.ExternalError("failed to store media", err).WithField("filename", fh.Filename)
	}

	if err := c.JSON(http.StatusCreated, map[string]string{"url": url}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
