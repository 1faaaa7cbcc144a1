package sessions

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostPartialSignatureRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/partials", postPartialSignatureHandler(s))
}

func postPartialSignatureHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("id")

		var body types.PostPartialSignaturePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		sess, err := s.Coordinator.SubmitPartialSignature(ctx, sessionID, swag.StringValue(body.ParticipantID), swag.StringValue(body.PartialSignature))
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Rejecting partial signature")
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "invalid partial signature", err.Error())
		}

		return util.ValidateAndReturn(c, http.StatusOK, sessionResponse(sess))
	}
}
