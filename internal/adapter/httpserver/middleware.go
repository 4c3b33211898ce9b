package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
	"github.com/pscheid92/timecapsule/internal/platform/correlation"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
)

// userIDHeader carries the authenticated user's ID, set by the fronting auth proxy.
const userIDHeader = "X-User-ID"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, id := correlation.Ensure(c.Request().Context(), c.Request().Header.Get(correlation.HeaderName))
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(userIDHeader)
		if raw == "" {
			return apperrors.UnauthorizedError("authentication required")
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.UnauthorizedError("invalid user identity")
		}
		c.Set("userID", userID)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err)
		}
	}
}

// fromDomainError maps sentinel errors from the domain onto client-facing errors.
// Errors that are already structured pass through unchanged.
func fromDomainError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrCapsuleNotFound):
		return apperrors.NotFoundError("capsule not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("profile not found")
	case errors.Is(err, domain.ErrDuplicateResponse):
		return apperrors.ConflictError("you have already answered today's question")
	case errors.Is(err, domain.ErrCapsuleRevealed):
		return apperrors.ConflictError("capsule has already been revealed")
	case errors.Is(err, domain.ErrCapsuleNotRevealed):
		return apperrors.ConflictError("capsule has not been revealed yet")
	case errors.Is(err, domain.ErrCreationCancelled):
		return apperrors.ConflictError("capsule creation needs confirmation").
			WithField("prompt", app.NegativeSentimentPrompt).
			WithField("confirm_field", "confirm_negative")
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return apperrors.ExternalError("sentiment service unavailable", err)
	default:
		return apperrors.AsStructuredError(err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get("userID"); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Unauthorized", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := fromDomainError(err)
	logError(c, structuredErr)
	metrics.HTTPErrorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()

	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
