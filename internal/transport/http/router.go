package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"studyhub/internal/app"
	"studyhub/internal/gpa"
	"studyhub/internal/metrics"
)

// RouterConfig holds the collaborators of the HTTP surface.
type RouterConfig struct {
	Service *app.QuizService
	Catalog *gpa.Catalog
	Auth    Authenticator
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter mounts the REST API, the websocket endpoint, health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Handler{
		service:  cfg.Service,
		catalog:  cfg.Catalog,
		engine:   gpa.NewEngine(cfg.Catalog.GradeScale()),
		auth:     cfg.Auth,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		validate: validator.New(),
	}
	ws := NewWSHandler(cfg.Service, cfg.Auth, cfg.Logger)

	r := mux.NewRouter()
	r.Use(instrument(cfg.Metrics, cfg.Logger))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")
	r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	r.HandleFunc("/ws", ws.ServeWS)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/catalog", h.Levels).Methods("GET")
	api.HandleFunc("/catalog/{level}", h.CatalogLevel).Methods("GET")
	api.HandleFunc("/curriculum/{level}", h.Curriculum).Methods("GET")
	api.HandleFunc("/gpa", h.CalculateGPA).Methods("POST")
	api.HandleFunc("/quizzes", h.ListQuizzes).Methods("GET")
	api.HandleFunc("/quizzes", h.SaveQuiz).Methods("POST")
	api.HandleFunc("/quizzes/{id}", h.GetQuiz).Methods("GET")
	api.HandleFunc("/sessions/{id}/explanations/{questionId}", h.Explain).Methods("POST")
	api.HandleFunc("/results", h.Results).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// instrument records request counts and latency by route template.
func instrument(m *metrics.Metrics, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}
			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, endpoint, rec.status, elapsed)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", elapsed))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
