package util

import (
	"net/http"

	goerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
)

// Validatable is implemented by payload and response types that can validate
// themselves against the wire schema.
type Validatable interface {
	Validate(formats strfmt.Registry) error
}

// BindAndValidateBody binds the request body to v and validates it, returning
// a HTTPValidationError carrying the field level failures.
func BindAndValidateBody(c echo.Context, v Validatable) error {
	binder := c.Echo().Binder.(*echo.DefaultBinder)
	if err := binder.BindBody(c, v); err != nil {
		return err
	}
	return validatePayload(c, v)
}

// ValidateAndReturn validates the response payload before writing it out as JSON.
func ValidateAndReturn(c echo.Context, code int, v Validatable) error {
	if err := v.Validate(strfmt.Default); err != nil {
		return err
	}
	return c.JSON(code, v)
}

func validatePayload(c echo.Context, v Validatable) error {
	err := v.Validate(strfmt.Default)
	if err == nil {
		return nil
	}

	var details []*types.HTTPValidationErrorDetail
	switch et := err.(type) {
	case *goerrors.CompositeError:
		for _, ve := range et.Errors {
			if validation, ok := ve.(*goerrors.Validation); ok {
				details = append(details, &types.HTTPValidationErrorDetail{
					Key:   swag.String(validation.Name),
					In:    swag.String(validation.In),
					Error: swag.String(validation.Error()),
				})
			}
		}
	case *goerrors.Validation:
		details = append(details, &types.HTTPValidationErrorDetail{
			Key:   swag.String(et.Name),
			In:    swag.String(et.In),
			Error: swag.String(et.Error()),
		})
	}

	LogFromContext(c.Request().Context()).Debug().Err(err).Msg("Failed to validate request payload")
	return httperrors.NewHTTPValidationError(
		http.StatusBadRequest,
		types.PublicHTTPErrorTypeValidation,
		http.StatusText(http.StatusBadRequest),
		details,
	)
}
