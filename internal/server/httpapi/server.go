// Package httpapi exposes the session coordinator over HTTP: lobby
// membership, session start, progress reporting, and progress polling.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tourmate-app/backend/internal/logging"
	"github.com/tourmate-app/backend/internal/server/achievements"
	"github.com/tourmate-app/backend/internal/server/lobby"
	"github.com/tourmate-app/backend/internal/server/progress"
	"github.com/tourmate-app/backend/internal/server/sessions"
)

type HTTPServer struct {
	address   string
	lobby     *lobby.Service
	progress  *progress.Service
	evaluator *achievements.Evaluator
	sessions  sessions.Repository
	unlocks   achievements.Repository
	logger    logging.Logger
	jwtSecret []byte
}

func NewHTTPServer(address string, l logging.Logger, ls *lobby.Service, ps *progress.Service,
	ev *achievements.Evaluator, sr sessions.Repository, ur achievements.Repository, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   address,
		lobby:     ls,
		progress:  ps,
		evaluator: ev,
		sessions:  sr,
		unlocks:   ur,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Router assembles the gin engine; split out from Run so tests can drive
// the routes with httptest.
func (s *HTTPServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)

	api := router.Group("/api/sessions", s.authMiddleware())
	api.POST("/join", s.join)
	api.POST("/:id/leave", s.leave)
	api.POST("/:id/start", s.start)
	api.POST("/:id/progress", s.report)
	api.GET("/:id/progress", s.snapshot)

	return router
}

func (s *HTTPServer) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
