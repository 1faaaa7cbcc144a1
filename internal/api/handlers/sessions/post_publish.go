package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostPublishRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:id/publish", postPublishHandler(s))
}

func postPublishHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("id")

		sess, err := s.Publisher.Publish(ctx, sessionID)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish the signed event")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "failed to publish the signed event")
		}

		return util.ValidateAndReturn(c, http.StatusOK, sessionResponse(sess))
	}
}
