// Package server is a development backend for the console. It serves the
// notification REST endpoints and the realtime socket from a local SQLite
// database, and records a notification when users sign up or verify.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/session"
	"github.com/nhle/sim-admin/internal/store"
)

// Config holds the backend settings.
type Config struct {
	// JWTSecret signs and verifies access tokens.
	JWTSecret string

	// APIKey, when set, is required on every request as the apikey header
	// or query parameter.
	APIKey string
}

// Server wires the store and realtime hub to HTTP routes.
type Server struct {
	cfg   Config
	store store.Store
	hub   *Hub
}

// New creates a server. The secret is required.
func New(cfg Config, st store.Store) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: jwt secret must not be empty")
	}

	s := &Server{cfg: cfg, store: st}
	s.hub = NewHub(cfg.APIKey, func(token string) error {
		_, err := s.adminClaims(token)
		return err
	})
	return s, nil
}

// Hub returns the realtime hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	s.Register(router)
	return router
}

// Register adds the routes to an existing engine.
func (s *Server) Register(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "simadmin-backend"})
	})

	router.GET("/realtime/v1/websocket", gin.WrapH(s.hub))

	api := router.Group("/api")
	api.Use(s.requireAPIKey())
	{
		// Sign-up and verification are performed by trainees themselves.
		api.POST("/users", s.createUser)
		api.POST("/users/:id/verify", s.verifyUser)

		admin := api.Group("/admin")
		admin.Use(s.requireAdmin())
		{
			admin.GET("/notifications", s.listNotifications)
			admin.PATCH("/notifications/read-all", s.markAllRead)
			admin.PATCH("/notifications/:id/read", s.markRead)
		}
	}
}

// adminClaims verifies token and requires the admin role.
func (s *Server) adminClaims(token string) (*session.Claims, error) {
	claims, err := session.Verify(s.cfg.JWTSecret, token)
	if err != nil {
		return nil, err
	}
	if claims.EffectiveRole() != model.RoleAdmin {
		return nil, errForbidden
	}
	return claims, nil
}
