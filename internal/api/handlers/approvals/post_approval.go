package approvals

import (
	"net/http"
	"time"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/util"
)

func PostApprovalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Approvals.POST("", postApprovalHandler(s))
}

func postApprovalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostApprovalPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		ttl := s.Config.Signing.ApprovalTTL
		if body.TTLSeconds > 0 {
			ttl = time.Duration(body.TTLSeconds) * time.Second
		}

		req := approval.OpenRequest{
			OperationHash: swag.StringValue(body.OperationHash),
			Description:   body.Description,
			Approvers:     body.Approvers,
			Threshold:     int(swag.Int64Value(body.Threshold)),
			TTL:           ttl,
		}

		request, err := s.Gate.Open(ctx, req)
		if err != nil {
			if httpErr := api.MapDomainError(err); httpErr != nil {
				return httpErr
			}
			log.Debug().Err(err).Msg("Rejecting approval request")
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, "invalid approval request", err.Error())
		}

		return util.ValidateAndReturn(c, http.StatusCreated, approvalResponse(request))
	}
}
