// Package api serves the HTTP management surface: rule inspection and
// lifecycle, dry-run audits, and the decision history. Interactive
// collection never happens over HTTP; the audit endpoint only reports
// what the pipeline's first pass and extraction would do.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ishangarg01/cmd-gen/internal/classify"
	"github.com/ishangarg01/cmd-gen/internal/history"
	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/placeholder"
	"github.com/ishangarg01/cmd-gen/internal/registry"
)

var log = logger.New("api")

// Success sends a JSON success response.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error sends a JSON error response.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// Server exposes the management API over a gin router.
type Server struct {
	registry   *registry.Registry
	classifier *classify.Classifier
	extractor  *placeholder.Extractor
	store      *history.Storage // nil when history is disabled
	version    string
	router     *gin.Engine
}

// NewServer builds the API server. store may be nil; the history
// endpoints then answer 404.
func NewServer(reg *registry.Registry, cls *classify.Classifier, ext *placeholder.Extractor, store *history.Storage, version string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(BodySizeLimitMiddleware(MaxBodySize))
	router.Use(RequestLogMiddleware())

	s := &Server{
		registry:   reg,
		classifier: cls,
		extractor:  ext,
		store:      store,
		version:    version,
		router:     router,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api/cmdgen")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.POST("/audit", s.handleAudit)

		rulesGroup := apiGroup.Group("/rules")
		{
			rulesGroup.GET("", s.handleRules)
			rulesGroup.GET("/builtin", s.handleBuiltinRules)
			rulesGroup.GET("/user", s.handleUserRules)
			rulesGroup.POST("/reload", s.handleReload)
			rulesGroup.POST("/validate", s.handleValidate)
			rulesGroup.GET("/files", s.handleListFiles)
			rulesGroup.POST("/files", s.handleAddFile)
			rulesGroup.DELETE("/files/:filename", s.handleDeleteFile)
		}

		if s.store != nil {
			historyGroup := apiGroup.Group("/history")
			{
				historyGroup.GET("", s.handleHistory)
				historyGroup.GET("/stats", s.handleHistoryStats)
			}
		}
	}
}

// Serve runs the server on the given port until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("management API listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleStatus(c *gin.Context) {
	Success(c, gin.H{
		"version":      s.version,
		"rules_count":  s.registry.RuleCount(),
		"allowed_root": s.classifier.AllowedRoot(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
