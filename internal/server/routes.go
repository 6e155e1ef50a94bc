package server

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/nfrund/chatline/internal/handlers"
	"github.com/nfrund/chatline/internal/middleware"
	"github.com/nfrund/chatline/internal/storage"
)

// authRatePerSecond bounds signup and login attempts per client IP.
const authRatePerSecond = 5

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	users := s.repos.Users
	requireAuth := middleware.Auth(users)
	pageAuth := middleware.PageAuth(users, "/login")
	rateLimiter := middleware.RateLimiter(authRatePerSecond)

	homeHandler := handlers.NewHomeHandler(users)
	healthHandler := handlers.NewHealthHandler(s.repos)
	authHandler := handlers.NewAuthHandler(users, s.media, s.Cfg.GetJWTTTL())
	messageHandler := handlers.NewMessageHandler(users, s.repos.Messages, s.media, s.router)
	presenceHandler := handlers.NewPresenceHandler(s.tracker, users)
	pageHandler := handlers.NewPageHandler(authHandler, messageHandler, s.tracker)

	s.E.GET("/", homeHandler.HomeGet)
	s.E.GET("/health", healthHandler.Health)
	s.E.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: s.metrics.Registry}))
	s.E.GET(storage.URLPrefix+"*", s.media.Handler())

	authGroup := s.E.Group("/api/auth")
	authGroup.POST("/signup", authHandler.Signup, rateLimiter)
	authGroup.POST("/login", authHandler.Login, rateLimiter)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.PUT("/update-profile", authHandler.UpdateProfile, requireAuth)
	authGroup.GET("/check", authHandler.Check, requireAuth)

	messages := s.E.Group("/api/messages", requireAuth)
	messages.GET("/users", messageHandler.Users)
	messages.GET("/:id", messageHandler.History)
	messages.POST("/send/:id", messageHandler.Send)

	s.E.GET("/api/presence", presenceHandler.GetPresence, requireAuth)
	s.E.GET("/presence/fragment", presenceHandler.GetPresenceHTML, requireAuth)

	// Browser client. Forms post back to the same paths.
	s.E.GET("/login", pageHandler.LoginGet)
	s.E.POST("/login", pageHandler.LoginPost, rateLimiter)
	s.E.GET("/signup", pageHandler.SignupGet)
	s.E.POST("/signup", pageHandler.SignupPost, rateLimiter)
	s.E.POST("/logout", pageHandler.LogoutPost)

	chat := s.E.Group("/chat", pageAuth)
	chat.GET("", pageHandler.Chat)
	chat.GET("/sidebar", pageHandler.Sidebar)
	chat.GET("/:id", pageHandler.Chat)
	chat.GET("/:id/messages", pageHandler.Messages)
	chat.POST("/:id/messages", pageHandler.Send)
	s.E.GET("/profile", pageHandler.ProfileGet, pageAuth)
	s.E.POST("/profile", pageHandler.ProfilePost, pageAuth)

	// The upgrade is bound to the same verified token as the HTTP API.
	s.E.GET("/ws", s.manager.Handler(), requireAuth)
}
