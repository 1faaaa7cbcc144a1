package sessions

import (
	"net/http"
	"time"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/coordinator"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("", postSessionHandler(s))
}

func postSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostSessionPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		var ttl time.Duration
		if body.TTLSeconds > 0 {
			ttl = time.Duration(body.TTLSeconds) * time.Second
		}

		req := coordinator.CreateSessionRequest{
			ApprovalID:     body.ApprovalID,
			MessageHash:    swag.StringValue(body.MessageHash),
			EventTemplate:  string(body.EventTemplate),
			Participants:   body.Participants,
			Threshold:      int(swag.Int64Value(body.Threshold)),
			GroupPublicKey: swag.StringValue(body.GroupPublicKey),
			TTL:            ttl,
		}

		sess, err := s.Coordinator.CreateSession(ctx, req)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Debug().Err(err).Msg("Rejecting signing session request")
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "invalid signing session request", err.Error())
		}

		return util.ValidateAndReturn(c, http.StatusCreated, sessionResponse(sess))
	}
}
