// Package http serves the Telegram webhook and the health endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"cardfill/internal/log"
	"cardfill/internal/middleware/ratelimit"
	"cardfill/internal/middleware/security"
	"cardfill/internal/middleware/trace"
	"cardfill/internal/telegram"
)

const (
	WebhookPath    = "/telegram/webhook"
	maxUpdateBytes = 1 << 20
	readyzTimeout  = 2 * time.Second
	updateTimeout  = 30 * time.Second
)

// UpdateHandler processes a single Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u telegram.Update) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// SecretToken must match the secret_token registered with setWebhook.
	SecretToken       string
	RequestsPerMinute int
	// TrustedProxies are CIDRs whose forwarding headers are believed, on
	// top of the private ranges.
	TrustedProxies []string
	// Ready is consulted by /readyz; nil means always ready.
	Ready Pinger
}

type Server struct {
	http.Server
	updates      UpdateHandler
	ready        Pinger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	logger       *log.Logger
	shutdownOnce sync.Once
}

func NewServer(addr string, h UpdateHandler, opts Options, logger *log.Logger) *Server {
	s := &Server{
		updates:  h,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: security.NewDetector(),
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	webhook := s.detector.RequireSecretToken(opts.SecretToken)(
		s.limiter.Middleware(s.detector.ExtractClientIP)(http.HandlerFunc(s.handleWebhook)))

	mux := http.NewServeMux()
	mux.Handle("POST "+WebhookPath, webhook)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.BlockSuspicious(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      updateTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// handleWebhook answers 200 once the update is decoded, whatever the
// handler outcome: a non-2xx makes Telegram redeliver, which would record
// the fill twice.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var u telegram.Update
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err := dec.Decode(&u); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Malformed update", log.FieldError, err)
		http.Error(w, "malformed update", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), updateTimeout)
	defer cancel()
	if err := s.updates.HandleUpdate(ctx, u); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Update failed",
			log.FieldUpdateID, u.UpdateID, log.FieldError, err)
	}
	w.WriteHeader(http.StatusOK)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops accepting requests and waits for in-flight updates.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			"total_requests", m.TotalRequests, "failed_requests", m.FailedRequests,
			"rate_limited", s.limiter.GetMetrics().TotalHits)
	})
	return err
}
