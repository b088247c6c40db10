package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/apiserver/handlers"
	"github.com/lightnindragon/listgenius/pkg/apiserver/middleware"
	"github.com/lightnindragon/listgenius/pkg/auth"
	"github.com/lightnindragon/listgenius/pkg/config"
)

// Server exposes the read API over run telemetry and posts, plus the
// endpoint that enqueues on-demand runs.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

type Dependencies struct {
	Tokens *auth.ServiceTokenManager
	Runs   *handlers.RunHandler
	Posts  *handlers.PostHandler
}

func NewServer(cfg *config.ServerConfig, deps Dependencies, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(deps.Tokens))
	{
		api.POST("/runs", middleware.RequireScope(auth.ScopeRunsWrite), deps.Runs.Create)
		api.GET("/runs", middleware.RequireScope(auth.ScopeRunsRead), deps.Runs.List)
		api.GET("/runs/:id", middleware.RequireScope(auth.ScopeRunsRead), deps.Runs.Get)
		api.GET("/posts", middleware.RequireScope(auth.ScopePostsRead), deps.Posts.List)
		api.GET("/posts/:id", middleware.RequireScope(auth.ScopePostsRead), deps.Posts.Get)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:     router,
			ReadTimeout: cfg.ReadTimeout,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting api server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
