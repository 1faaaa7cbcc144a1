package approvals

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostApprovalResponseRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.POST("/:id/responses", postApprovalResponseHandler(s))
}

func postApprovalResponseHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		approvalID := c.Param("id")

		var body types.PostApprovalResponsePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		request, err := s.Gate.SubmitResponse(ctx, approvalID, swag.StringValue(body.ApproverID), swag.BoolValue(body.Approve))
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Error().Err(err).Str("approval_id", approvalID).Msg("Failed to record the approval response")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "failed to record the approval response")
		}

		return util.ValidateAndReturn(c, http.StatusOK, approvalResponse(request))
	}
}
