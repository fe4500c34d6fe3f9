package trigger

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appconfig "krakensync/config"
	"krakensync/logger"
)

// SyncRunner executes one synchronization pass. The job runner implements it.
type SyncRunner interface {
	Run(ctx context.Context) error
}

// Server exposes a manual trigger endpoint for the sync job. Only one job may
// run at a time; overlapping triggers are rejected since the upstream rate
// budget is per credential.
type Server struct {
	cfg     *appconfig.Config
	runner  SyncRunner
	log     *logger.Log
	running atomic.Bool
}

func NewServer(cfg *appconfig.Config, runner SyncRunner) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		log:    logger.GetLogger(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.handleHealth)
	router.POST("/trigger-sync", s.handleTrigger)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTrigger(c *gin.Context) {
	log := s.log.WithComponent("trigger")

	if !s.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a sync job is already running"})
		return
	}

	jobID := uuid.NewString()
	log.WithFields(logger.Fields{"job_id": jobID}).Info("manual sync job triggered")

	go func() {
		defer s.running.Store(false)
		if err := s.runner.Run(context.Background()); err != nil {
			log.WithError(err).WithFields(logger.Fields{"job_id": jobID}).Error("manual sync job failed")
			return
		}
		log.WithFields(logger.Fields{"job_id": jobID}).Info("manual sync job finished")
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "sync job triggered successfully",
		"job_id":  jobID,
	})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Trigger.Listen,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithComponent("trigger").WithFields(logger.Fields{"listen": s.cfg.Trigger.Listen}).Info("trigger service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
