package middleware

import (
	"net/http"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorHandler writes every error as a bare text body. The internal cause of
// an HTTPError is logged but never sent to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	span := trace.SpanFromContext(ctx)

	code := http.StatusInternalServerError
	message := "internal server error"
	cause := err

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(he.Code)
		}
		if he.Internal != nil {
			cause = he.Internal
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", code))

	switch {
	case code == http.StatusServiceUnavailable:
		// A full car park is a rejection the service expects to make.
		logging.Warn(ctx).
			Int("status", code).
			Str("path", c.Path()).
			Str("reason", message).
			Msg("request unavailable")
	case code >= http.StatusInternalServerError:
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
		logging.Error(ctx).
			Err(cause).
			Int("status", code).
			Str("path", c.Path()).
			Msg("request error")
	default:
		logging.Debug(ctx).
			Int("status", code).
			Str("reason", message).
			Msg("request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.String(code, message)
	}
	if err != nil {
		logging.Error(ctx).Err(err).Msg("failed to write error response")
	}
}
