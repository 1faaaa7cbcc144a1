// Package httperrors renders every error leaving a handler as the public
// error schema, keeping internal causes in the logs only.
package httperrors

import (
	"fmt"
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
)

// HTTPError wraps the publicly rendered error with an internal cause
type HTTPError struct {
	types.PublicHTTPError
	Internal error `json:"-"`
}

// NewHTTPError creates a HTTPError with the given code, type and title.
func NewHTTPError(code int, errorType, title string) *HTTPError {
	return &HTTPError{
		PublicHTTPError: types.PublicHTTPError{
			Code:  swag.Int64(int64(code)),
			Type:  swag.String(errorType),
			Title: swag.String(title),
		},
	}
}

// NewHTTPErrorWithDetail creates a HTTPError with an additional public detail string.
func NewHTTPErrorWithDetail(code int, errorType, title, detail string) *HTTPError {
	e := NewHTTPError(code, errorType, title)
	e.Detail = detail
	return e
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("HTTPError %d (%s): %s", swag.Int64Value(e.Code), swag.StringValue(e.Type), swag.StringValue(e.Title))
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	if e.Internal != nil {
		msg += fmt.Sprintf(", %v", e.Internal)
	}
	return msg
}

// HTTPValidationError extends HTTPError with per-field validation details
type HTTPValidationError struct {
	types.PublicHTTPValidationError
	Internal error `json:"-"`
}

// NewHTTPValidationError creates a HTTPValidationError carrying field level details.
func NewHTTPValidationError(code int, errorType, title string, validationErrors []*types.HTTPValidationErrorDetail) *HTTPValidationError {
	return &HTTPValidationError{
		PublicHTTPValidationError: types.PublicHTTPValidationError{
			PublicHTTPError: types.PublicHTTPError{
				Code:  swag.Int64(int64(code)),
				Type:  swag.String(errorType),
				Title: swag.String(title),
			},
			ValidationErrors: validationErrors,
		},
	}
}

func (e *HTTPValidationError) Error() string {
	msg := fmt.Sprintf("HTTPValidationError %d (%s): %s", swag.Int64Value(e.Code), swag.StringValue(e.Type), swag.StringValue(e.Title))
	for _, detail := range e.ValidationErrors {
		msg += fmt.Sprintf(" - %s (in %s): %s", swag.StringValue(detail.Key), swag.StringValue(detail.In), swag.StringValue(detail.Error))
	}
	return msg
}

// HTTPErrorHandler is the echo error handler rendering the public error schema.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var code int
	var payload interface{}

	switch e := err.(type) {
	case *HTTPError:
		code = int(swag.Int64Value(e.Code))
		payload = e
		if e.Internal != nil {
			log.Warn().
				Err(e.Internal).
				Int("status", code).
				Str("title", swag.StringValue(e.Title)).
				Msg("Returning HTTP error with internal cause")
		}
	case *HTTPValidationError:
		code = int(swag.Int64Value(e.Code))
		payload = e
	case *echo.HTTPError:
		code = e.Code
		payload = types.PublicHTTPError{
			Code:  swag.Int64(int64(e.Code)),
			Type:  swag.String(types.PublicHTTPErrorTypeGeneric),
			Title: swag.String(fmt.Sprintf("%v", e.Message)),
		}
		if e.Internal != nil {
			log.Warn().Err(e.Internal).Int("status", code).Msg("Returning echo HTTP error with internal cause")
		}
	default:
		code = http.StatusInternalServerError
		payload = types.PublicHTTPError{
			Code:  swag.Int64(int64(http.StatusInternalServerError)),
			Type:  swag.String(types.PublicHTTPErrorTypeGeneric),
			Title: swag.String(http.StatusText(http.StatusInternalServerError)),
		}
		log.Error().Err(err).Msg("Unhandled error while serving request")
	}

	// HEAD requests must not carry a body
	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
		return
	}
	if err := c.JSON(code, payload); err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
