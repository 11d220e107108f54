package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/internal/prompt"
	"github.com/prompt-studio-go/internal/roles"
	"github.com/prompt-studio-go/internal/services/session"
	"github.com/prompt-studio-go/pkg/markdown"
)

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	Needs        string `json:"needs"`
	Stack        string `json:"stack"`
	Constraints  string `json:"constraints"`
	OutputFormat string `json:"output_format"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Language     string `json:"language"`
	SystemPrompt string `json:"system_prompt"`
}

// SessionResponse wraps a session snapshot for API responses
type SessionResponse struct {
	Session   *models.ChatSession `json:"session"`
	Busy      bool                `json:"busy"`
	Inference *roles.Inference    `json:"inference,omitempty"`
}

// StopResponse reports whether a stream was actually interrupted
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	lang := req.Language
	if lang == "" {
		lang = h.requestLang(r)
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = h.provider.DefaultProvider()
	}
	if _, ok := h.provider.GetEndpoint(providerName); !ok {
		h.writeRawError(w, http.StatusBadRequest, fmt.Sprintf("unknown provider: %s", providerName))
		return
	}

	modelID, err := h.resolveModel(providerName, req.Model)
	if err != nil {
		h.writeRawError(w, http.StatusBadRequest, err.Error())
		return
	}

	systemPrompt := req.SystemPrompt
	var inference *roles.Inference
	if systemPrompt == "" {
		if strings.TrimSpace(req.Needs) != "" || strings.TrimSpace(req.Stack) != "" {
			inference = h.inferProfile(r, req.Needs, req.Stack)
			systemPrompt = prompt.BuildSystemPrompt(prompt.Input{
				Needs:        req.Needs,
				Stack:        req.Stack,
				Constraints:  req.Constraints,
				OutputFormat: req.OutputFormat,
				Inference:    inference,
			})
		} else {
			systemPrompt = h.cfg.Session.DefaultSystemPrompt
		}
	}

	ctrl, err := h.sessions.Create(r.Context(), models.SessionSettings{
		Provider:     providerName,
		Model:        modelID,
		SystemPrompt: systemPrompt,
		Language:     lang,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to create session")
		h.writeRawError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.metrics.RecordSessionCreated()
	h.metrics.SetActiveSessions(float64(h.sessions.Count()))

	snapshot, busy := ctrl.Snapshot()
	h.writeJSON(w, http.StatusCreated, SessionResponse{
		Session:   snapshot,
		Busy:      busy,
		Inference: inference,
	})
}

// resolveModel validates the requested model or picks the provider's first
func (h *Handler) resolveModel(providerName, modelID string) (string, error) {
	if modelID != "" {
		option, err := h.provider.GetModelByID(modelID)
		if err != nil {
			return "", fmt.Errorf("unknown model: %s", modelID)
		}
		return option.ID, nil
	}
	for _, option := range h.provider.GetAvailableModels() {
		if option.EndpointName == providerName {
			return option.ID, nil
		}
	}
	return "", fmt.Errorf("provider %s has no models configured", providerName)
}

// inferProfile runs the role inference with the cache in front
func (h *Handler) inferProfile(r *http.Request, needs, stack string) *roles.Inference {
	if cached, ok := h.cache.Get(r.Context(), needs, stack); ok {
		h.metrics.RecordCacheHit()
		return cached
	}
	h.metrics.RecordCacheMiss()

	start := time.Now()
	inference := h.engine.Infer(needs, stack)
	h.metrics.RecordInference(inference.Role, time.Since(start))

	if err := h.cache.Set(r.Context(), needs, stack, &inference); err != nil {
		h.logger.WithError(err).Warn("Failed to cache inference")
	}
	return &inference
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sessions")
		h.writeRawError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	snapshot, busy := ctrl.Snapshot()
	h.writeJSON(w, http.StatusOK, SessionResponse{Session: snapshot, Busy: busy})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, h.requestLang(r), i18n.MsgSessionNotFound)
			return
		}
		h.logger.WithError(err).WithField("session_id", id).Error("Failed to delete session")
		h.writeRawError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	h.metrics.SetActiveSessions(float64(h.sessions.Count()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	resp := StopResponse{Stopped: ctrl.Stop()}
	if resp.Stopped {
		h.metrics.RecordStreamStop()
		h.logger.WithField("session_id", ctrl.ID()).Info("Stream stopped by user")
		resp.Message = h.localizer.Get(h.requestLang(r), i18n.MsgStreamStopped, nil)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	ctrl.Clear(r.Context())
	h.logger.WithField("session_id", ctrl.ID()).Info("Session cleared")

	snapshot, busy := ctrl.Snapshot()
	h.writeJSON(w, http.StatusOK, SessionResponse{Session: snapshot, Busy: busy})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	snapshot, _ := ctrl.Snapshot()
	page := renderTranscript(snapshot)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(page)); err != nil {
		h.logger.WithError(err).Warn("Failed to write transcript export")
	}
}

// renderTranscript builds a standalone HTML page from the session history
func renderTranscript(sess *models.ChatSession) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Conversation %s\n\n", sess.ID))
	b.WriteString(fmt.Sprintf("Model: `%s` (%s)\n\n", sess.Settings.Model, sess.Settings.Provider))

	for _, msg := range sess.Messages {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString("## You\n\n")
		case models.RoleAssistant:
			b.WriteString("## Assistant\n\n")
		default:
			b.WriteString("## System\n\n")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}

	body := markdown.ToHTML(b.String())
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Conversation %s</title>
</head>
<body>
%s
</body>
</html>
`, sess.ID, body)
}

// lookupSession resolves the {id} route variable to a live controller
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	id := mux.Vars(r)["id"]
	ctrl, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, h.requestLang(r), i18n.MsgSessionNotFound)
			return nil, false
		}
		h.logger.WithError(err).WithField("session_id", id).Error("Failed to load session")
		h.writeRawError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return ctrl, true
}
