package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/middleware"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/internal/roles"
	"github.com/prompt-studio-go/internal/services/cache"
	"github.com/prompt-studio-go/internal/services/provider"
	"github.com/prompt-studio-go/internal/services/session"
)

// maxBodyBytes caps the size of request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the studio HTTP API
type Handler struct {
	cfg         *config.Config
	logger      *logrus.Logger
	sessions    *session.Manager
	provider    provider.Service
	engine      *roles.Engine
	cache       cache.Service
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	rateLimiter middleware.RateLimiter
	security    *middleware.SecurityMiddleware
}

// NewHandler creates the API handler
func NewHandler(
	cfg *config.Config,
	logger *logrus.Logger,
	sessions *session.Manager,
	providerSvc provider.Service,
	engine *roles.Engine,
	cacheSvc cache.Service,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	rateLimiter middleware.RateLimiter,
	security *middleware.SecurityMiddleware,
) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		sessions:    sessions,
		provider:    providerSvc,
		engine:      engine,
		cache:       cacheSvc,
		localizer:   localizer,
		metrics:     metrics,
		rateLimiter: rateLimiter,
		security:    security,
	}
}

// RegisterRoutes wires all API routes onto the router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.metrics.Handler)
	api.Use(h.rateLimit)

	api.HandleFunc("/infer", h.handleInfer).Methods(http.MethodPost)
	api.HandleFunc("/roles", h.handleRoles).Methods(http.MethodGet)
	api.HandleFunc("/models", h.handleModels).Methods(http.MethodGet)

	api.HandleFunc("/sessions", h.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/messages", h.handleSendMessage).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/regenerate", h.handleRegenerate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/stop", h.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/clear", h.handleClear).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/export", h.handleExport).Methods(http.MethodGet)
}

// handleHealth reports service liveness
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rateLimit rejects clients sending faster than the configured rate
func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !h.rateLimiter.Allow(client) {
			h.metrics.RecordRateLimitExceeded()
			h.writeError(w, http.StatusTooManyRequests, h.requestLang(r), i18n.MsgRateLimitExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller's address, honoring X-Forwarded-For
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestLang resolves the response language for requests without a session
func (h *Handler) requestLang(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return h.cfg.I18n.DefaultLanguage
}

// sessionLang resolves the response language for a session
func (h *Handler) sessionLang(sess *models.ChatSession) string {
	if sess != nil && sess.Settings.Language != "" {
		return sess.Settings.Language
	}
	return h.cfg.I18n.DefaultLanguage
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, lang, messageID string) {
	h.writeJSON(w, status, map[string]string{
		"error": h.localizer.Get(lang, messageID, nil),
	})
}

// writeRawError writes a non-localized error, for validation failures where
// the detail matters more than the translation
func (h *Handler) writeRawError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body with a size cap
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeRawError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
