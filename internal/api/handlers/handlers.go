package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/handlers/approvals"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/handlers/common"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/handlers/sessions"
)

// AttachAllRoutes attaches all routes to their router groups.
func AttachAllRoutes(s *api.Server) []*echo.Route {
	return []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetMetricsRoute(s),
		common.GetReadyRoute(s),
		approvals.GetApprovalRoute(s),
		approvals.PostApprovalRoute(s),
		approvals.PostApprovalResponseRoute(s),
		sessions.GetSessionRoute(s),
		sessions.PostNonceCommitmentRoute(s),
		sessions.PostPartialSignatureRoute(s),
		sessions.PostPublishRoute(s),
		sessions.PostSessionRoute(s),
	}
}
