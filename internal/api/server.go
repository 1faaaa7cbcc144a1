package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/config"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/coordinator"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/messaging"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/publisher"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
)

type Router struct {
	Routes         []*echo.Route
	Root           *echo.Group
	Management     *echo.Group
	APIV1Approvals *echo.Group
	APIV1Sessions  *echo.Group
}

// Server is a central struct keeping all the dependencies.
// Components are built by InitNewServer in dependency order, except Echo and
// Router which are initialized with the router.Init(s) function.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config config.Server
	Clock  time2.Clock

	// Redis stays nil unless the store or messenger driver requires it.
	Redis *redis.Client

	Store       session.Store
	Messenger   messaging.Messenger
	Gate        *approval.Gate
	Coordinator *coordinator.Service
	Publisher   *publisher.Service
	Reaper      *coordinator.Reaper
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	ready := s.Echo != nil &&
		s.Router != nil &&
		s.Clock != nil &&
		s.Store != nil &&
		s.Messenger != nil &&
		s.Gate != nil &&
		s.Coordinator != nil &&
		s.Publisher != nil &&
		s.Reaper != nil

	if !ready {
		log.Debug().Msg("Server is not fully initialized")
	}

	return ready
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	// 1. 启动后台过期清扫循环
	if err := s.Reaper.Start(); err != nil {
		return err
	}

	// 2. 启动 HTTP 服务器，阻塞直到关停
	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	// 1. 停止后台清扫
	if s.Reaper != nil {
		log.Debug().Msg("Stopping the expiry reaper")
		s.Reaper.Stop()
	}

	// 2. 关闭 HTTP 服务器
	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	// 3. 关闭 Redis 连接
	if s.Redis != nil {
		log.Debug().Msg("Closing redis client")
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
			errs = append(errs, err)
		}
	}

	return errs
}
