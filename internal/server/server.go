package server

import (
	"context"
	"fmt"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/chatline/internal/app"
	"github.com/nfrund/chatline/internal/audit"
	"github.com/nfrund/chatline/internal/chat"
	"github.com/nfrund/chatline/internal/config"
	"github.com/nfrund/chatline/internal/handlers"
	"github.com/nfrund/chatline/internal/metrics"
	appmiddleware "github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/presence"
	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/nfrund/chatline/internal/rendering"
	"github.com/nfrund/chatline/internal/storage"
	"github.com/nfrund/chatline/internal/websocket"
	"github.com/samber/do/v2"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E   *echo.Echo
	Cfg *config.Config

	injector *do.RootScope
	repos    *app.Repositories
	media    *storage.MediaStore
	bus      pubsub.Bus
	manager  *websocket.Manager
	tracker  *presence.Tracker
	router   *chat.Router
	metrics  *metrics.Metrics

	// ctx bounds the bus subscriptions; cancel ends them on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

// New resolves the services from injector, starts the bus consumers and
// builds the echo instance with every route registered.
func New(injector *do.RootScope) (*Server, error) {
	s := &Server{injector: injector}

	var err error
	if s.Cfg, err = do.Invoke[*config.Config](injector); err != nil {
		return nil, err
	}
	if s.repos, err = do.Invoke[*app.Repositories](injector); err != nil {
		return nil, err
	}
	if s.media, err = do.Invoke[*storage.MediaStore](injector); err != nil {
		return nil, err
	}
	if s.bus, err = do.Invoke[pubsub.Bus](injector); err != nil {
		return nil, err
	}
	if s.manager, err = do.Invoke[*websocket.Manager](injector); err != nil {
		return nil, err
	}
	if s.tracker, err = do.Invoke[*presence.Tracker](injector); err != nil {
		return nil, err
	}
	if s.router, err = do.Invoke[*chat.Router](injector); err != nil {
		return nil, err
	}
	if s.metrics, err = do.Invoke[*metrics.Metrics](injector); err != nil {
		return nil, err
	}
	auditLog, err := do.Invoke[*audit.Logger](injector)
	if err != nil {
		return nil, err
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	if err := s.router.Start(s.ctx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start chat router: %w", err)
	}
	if err := auditLog.Start(s.ctx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start audit log: %w", err)
	}

	s.E = s.newEcho()
	s.RegisterRoutes()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.Renderer = rendering.NewUniversalRenderer()

	e.Use(echomw.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(echomw.Recover())
	// Room for the multipart envelope around the largest allowed upload.
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", s.Cfg.GetMaxUploadBytes()/1024+64)))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: s.metrics.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/ws"
		},
	}))

	store := sessions.NewCookieStore([]byte(s.Cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(s.Cfg.GetJWTTTL().Seconds()),
		HttpOnly: true,
	}
	e.Use(session.Middleware(store))
	return e
}

// Manager exposes the websocket manager, useful for testing.
func (s *Server) Manager() *websocket.Manager {
	return s.manager
}

// Tracker exposes the presence tracker, useful for testing.
func (s *Server) Tracker() *presence.Tracker {
	return s.tracker
}
