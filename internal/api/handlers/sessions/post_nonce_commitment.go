package sessions

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostNonceCommitmentRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/nonces", postNonceCommitmentHandler(s))
}

func postNonceCommitmentHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("id")

		var body types.PostNonceCommitmentPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		commitment := session.NonceCommitment{
			Hiding:  swag.StringValue(body.Hiding),
			Binding: swag.StringValue(body.Binding),
		}

		sess, err := s.Coordinator.SubmitNonceCommitment(ctx, sessionID, swag.StringValue(body.ParticipantID), commitment)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Rejecting nonce commitment")
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "invalid nonce commitment", err.Error())
		}

		return util.ValidateAndReturn(c, http.StatusOK, sessionResponse(sess))
	}
}
