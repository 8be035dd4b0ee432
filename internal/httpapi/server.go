// Package httpapi exposes the task store as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nibzard/todos-go/internal/logging"
	"github.com/nibzard/todos-go/internal/todo"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and save events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithSave sets a hook run after every successful mutation.
func WithSave(save func() error) Option {
	return func(s *Server) {
		s.save = save
	}
}

// Server is the todos HTTP API.
type Server struct {
	store  *todo.Store
	router *gin.Engine
	log    *log.Logger

	save   func() error
	saveMu sync.Mutex
}

// NewServer creates a server over store.
func NewServer(store *todo.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.log))
	s.router = router

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleCreate)
		api.GET("/tasks/:id", s.handleGet)
		api.PUT("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
		api.POST("/tasks/:id/toggle", s.handleToggle)
		api.POST("/drafts", s.handleDraft)
	}

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("http: stopped")
	return nil
}

// persist runs the save hook. Saves are serialized so concurrent requests
// never interleave writes of the snapshot file.
func (s *Server) persist() error {
	if s.save == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.save(); err != nil {
		s.log.Error("http: save failed", "error", err)
		return err
	}
	return nil
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
