package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/handlers"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/httperrors"
)

// Init 初始化 Echo 实例、公共中间件与全部路由分组。
func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HidePort = true

	s.Echo.HTTPErrorHandler = httperrors.HTTPErrorHandler

	s.Echo.Pre(middleware.RemoveTrailingSlash())

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(requestLogger())

	s.Router = &api.Router{
		Routes: nil,

		Root:           s.Echo.Group(""),
		Management:     s.Echo.Group("/-"),
		APIV1Approvals: s.Echo.Group("/api/v1/approvals"),
		APIV1Sessions:  s.Echo.Group("/api/v1/sessions"),
	}

	s.Router.Routes = handlers.AttachAllRoutes(s)
}

// requestLogger 把带 request_id 的 zerolog 实例注入请求上下文，
// 业务处理函数通过 util.LogFromContext 取回。
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			l := log.With().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()

			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			return next(c)
		}
	}
}
