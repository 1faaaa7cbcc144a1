package approvals

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func GetApprovalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.GET("/:id", getApprovalHandler(s))
}

func getApprovalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		approvalID := c.Param("id")

		request, err := s.Gate.Get(ctx, approvalID)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Error().Err(err).Str("approval_id", approvalID).Msg("Failed to load the approval request")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "failed to load the approval request")
		}

		return util.ValidateAndReturn(c, http.StatusOK, approvalResponse(request))
	}
}
