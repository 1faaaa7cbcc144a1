package common

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// getHealthyHandler returns the liveness probe, it only proves the process is serving.
func getHealthyHandler(_ *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "OK.")
	}
}
