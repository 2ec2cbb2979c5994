// Package server implements the HTTP verification service: a thin wrapper
// around pkg/archive.Reader and pkg/policy.Policy exposed over mux routes,
// with router/http.Server wiring and context-driven graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkgsign/internal/errors"
	"pkgsign/internal/log"
	"pkgsign/pkg/archive"
	"pkgsign/pkg/config"
	"pkgsign/pkg/metrics"
	"pkgsign/pkg/policy"
)

// Server exposes package verification over HTTP.
type Server struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     log.Logger
	cfg        *config.Config
	policy     *policy.Policy
	router     *mux.Router
	httpServer *http.Server
}

// New creates a Server bound to cfg's Server section, verifying uploaded
// packages against pol.
func New(ctx context.Context, cfg *config.Config, pol *policy.Policy, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Global()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	router := mux.NewRouter()

	s := &Server{
		ctx:    serverCtx,
		cancel: cancel,
		logger: logger,
		cfg:    cfg,
		policy: pol,
		router: router,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	s.registerEndpoints()
	return s
}

func (s *Server) registerEndpoints() {
	s.router.HandleFunc(s.cfg.Server.HealthCheckPath, s.healthCheckHandler).Methods(http.MethodGet)
	s.router.Handle(s.cfg.Server.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc(s.cfg.Server.VerifyPath, s.verifyHandler).Methods(http.MethodPost)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// performs a graceful shutdown bounded by cfg.Server.ShutdownTimeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting verification server", map[string]interface{}{"address": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-s.ctx.Done():
	case err := <-errCh:
		if err != nil {
			return errors.IOf(err, "verification server")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down verification server", nil)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.IOf(err, "shut down verification server")
	}
	return nil
}

// Shutdown cancels the server's context, triggering Run's graceful
// shutdown path.
func (s *Server) Shutdown() { s.cancel() }

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { metrics.VerifyDuration.Observe(time.Since(start).Seconds()) }()

	file, _, err := r.FormFile("package")
	if err != nil {
		metrics.VerifiesTotal.WithLabelValues("bad_request").Inc()
		s.writeErrorResponse(w, http.StatusBadRequest, "missing \"package\" form file")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "pkgsign-upload-*.tar")
	if err != nil {
		metrics.VerifiesTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.ReadFrom(file); err != nil {
		metrics.VerifiesTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}

	reader := archive.NewReader(tmp.Name(), s.policy, s.logger)
	if err := reader.Verify(); err != nil {
		s.recordRejection(err)
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	metrics.VerifiesTotal.WithLabelValues("accepted").Inc()
	policyName := "none"
	if s.policy != nil {
		policyName = s.policy.Name
	}
	s.writeResponse(w, http.StatusOK, VerifyResponse{
		Name:    reader.Spec().Name,
		Version: reader.Spec().Version,
		Files:   reader.Files(),
		Policy:  policyName,
	})
}

func (s *Server) recordRejection(err error) {
	var perr *policy.Error
	if errors.As(err, &perr) {
		metrics.PolicyRejectionsTotal.WithLabelValues(string(perr.Kind)).Inc()
		metrics.VerifiesTotal.WithLabelValues("rejected").Inc()
		return
	}
	metrics.VerifiesTotal.WithLabelValues("invalid").Inc()
}

func (s *Server) writeResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", err, nil)
		}
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeResponse(w, statusCode, ErrorResponse{Error: message})
}
