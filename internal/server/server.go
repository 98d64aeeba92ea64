// Package server is the read-only dashboard over the benchmark results and
// orchestrator state. It exposes the public summary, the evaluation
// artifact, the run records, the rendered posts, and a Prometheus scrape
// endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bintly/internal/config"
	"bintly/internal/eval"
	"bintly/internal/logging"
	"bintly/internal/orchestrator"
	"bintly/internal/post"
	"bintly/internal/runstore"
)

// Server serves the dashboard API.
type Server struct {
	cfg        config.RuntimeConfig
	engine     *gin.Engine
	httpServer *http.Server
	runs       runstore.Store
	states     orchestrator.StateStore
	logger     logging.Logger
	startTime  time.Time
}

// New builds the dashboard server over the given stores. The artifact is
// read from disk per request so a new aggregation pass shows up without a
// restart.
func New(cfg config.RuntimeConfig, runs runstore.Store, states orchestrator.StateStore, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		runs:      runs,
		states:    states,
		logger:    logging.OrNop(logger),
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.DashboardHost, cfg.DashboardPort),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/summary", s.handleSummary)
	api.GET("/artifact", s.handleArtifact)
	api.GET("/runs", s.handleRuns)
	api.GET("/state", s.handleState)
	api.GET("/posts/launch", s.handleLaunchPost)
	api.GET("/posts/results", s.handleResultsPost)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"benchmark_version": s.cfg.BenchmarkVersion,
		"uptime_seconds":    int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := eval.LoadSummary(s.cfg.SummaryPath())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary document; run an aggregation pass first"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleArtifact(c *gin.Context) {
	artifact, err := eval.LoadArtifact(s.cfg.ArtifactPath())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no evaluation artifact; run an aggregation pass first"})
		return
	}
	c.JSON(http.StatusOK, artifact)
}

func (s *Server) handleRuns(c *gin.Context) {
	records, err := s.runs.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if arm := c.Query("arm"); arm != "" {
		records = runstore.ByArm(records, runstore.Arm(arm))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

func (s *Server) handleState(c *gin.Context) {
	state, err := s.states.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleLaunchPost(c *gin.Context) {
	artifact, _ := eval.LoadArtifact(s.cfg.ArtifactPath())
	c.String(http.StatusOK, post.Launch(artifact))
}

func (s *Server) handleResultsPost(c *gin.Context) {
	artifact, _ := eval.LoadArtifact(s.cfg.ArtifactPath())
	c.String(http.StatusOK, post.Results(artifact))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("dashboard listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
