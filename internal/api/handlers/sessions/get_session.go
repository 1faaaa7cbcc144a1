package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func GetSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:id", getSessionHandler(s))
}

func getSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		sessionID := c.Param("id")

		sess, err := s.Coordinator.GetSession(ctx, sessionID)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load the signing session")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "failed to load the signing session")
		}

		return util.ValidateAndReturn(c, http.StatusOK, sessionResponse(sess))
	}
}
