package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/usecase"
)

// Server exposes the ops surface: health, Prometheus metrics, and a small
// JWT-guarded read API over the sales ledger.
type Server struct {
	statsUC usecase.StatsUseCase
	auth    *AuthManager
	secret  string
	log     *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(statsUC usecase.StatsUseCase, secret string, logger *zerolog.Logger) *Server {
	return &Server{
		statsUC: statsUC,
		auth:    NewAuthManager(secret, false, 30*time.Minute),
		secret:  secret,
		log:     logger,
	}
}

func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", s.sessionHandler())
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", statsHandler(s.statsUC))
			r.Get("/transactions", transactionsHandler(s.statsUC))
		})
	})
	return r
}

// authMiddleware requires a valid ops JWT on every request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			s.log.Error().Msg("ops API secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("ops server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
