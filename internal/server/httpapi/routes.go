// Package httpapi serves the bot's HTTP surface: health, metrics and the
// Telegram webhook.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/voxbot/internal/logging"
)

const (
	healthPingTimeout = 2 * time.Second
	maxUpdateBytes    = 1 << 20
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update)
}

type Handler struct {
	db      Pinger
	updates UpdateHandler
	log     logging.Logger
}

func NewHandler(db Pinger, updates UpdateHandler, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{db: db, updates: updates, log: log.With("module", "http")}
}

// Health answers 200 "OK" while the database responds.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Warn(ctx, "health check failed", "error", err)
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Webhook decodes one Telegram update and dispatches it before replying.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var u tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		h.log.Warn(r.Context(), "bad webhook payload", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	h.updates.HandleUpdate(r.Context(), u)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter wires the routes. webhookPath may be empty in polling mode and
// metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler, webhookPath string) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recovery)
	r.Use(h.logging)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet).Name("metrics")
	}
	if webhookPath != "" && h.updates != nil {
		r.HandleFunc(webhookPath, h.Webhook).Methods(http.MethodPost).Name("webhook")
	}
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// the webhook path carries a secret; log the route name instead
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			path = route.GetName()
		}
		h.log.Debug(r.Context(), "http request", "method", r.Method, "path", path, "status", rec.status, "duration", time.Since(start))
	})
}

func (h *Handler) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				h.log.Error(r.Context(), "http handler panicked", "panic", fmt.Sprint(p))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
