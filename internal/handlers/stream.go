package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/services/session"
)

// SendMessageRequest is the body of POST /api/sessions/{id}/messages
type SendMessageRequest struct {
	Text string `json:"text"`
}

// streamFrame is one SSE data payload sent to the browser
type streamFrame struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	snapshot, _ := ctrl.Snapshot()
	lang := h.sessionLang(snapshot)

	if err := h.security.ValidateInput(req.Text); err != nil {
		h.metrics.RecordMessageSent("rejected_invalid")
		h.writeRawError(w, http.StatusBadRequest, err.Error())
		return
	}

	sse, ok := newSSEStream(w)
	if !ok {
		h.writeRawError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	start := time.Now()
	err := ctrl.Send(r.Context(), req.Text, h.streamObserver(sse))
	h.recordSendOutcome(err)
	h.completeStream(w, r, snapshot.Settings.Model, lang, start, err)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	snapshot, _ := ctrl.Snapshot()
	lang := h.sessionLang(snapshot)

	sse, ok := newSSEStream(w)
	if !ok {
		h.writeRawError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	start := time.Now()
	err := ctrl.Regenerate(r.Context(), h.streamObserver(sse))
	h.completeStream(w, r, snapshot.Settings.Model, lang, start, err)
}

// streamObserver forwards controller updates as SSE frames
func (h *Handler) streamObserver(sse *sseStream) session.Observer {
	return func(u session.Update) {
		if u.Fragment != "" {
			h.metrics.RecordFragment()
			sse.sendEvent(streamFrame{Text: u.Fragment})
		}
		if u.Done {
			if u.Err != nil {
				sse.sendEvent(streamFrame{Error: u.Err.Error()})
			}
			sse.sendDone()
		}
	}
}

// recordSendOutcome classifies a send result for the message counter
func (h *Handler) recordSendOutcome(err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		h.metrics.RecordMessageSent("rejected_busy")
	case errors.Is(err, session.ErrEmptyMessage):
		h.metrics.RecordMessageSent("rejected_empty")
	default:
		h.metrics.RecordMessageSent("accepted")
	}
}

// completeStream maps the turn outcome to a response. Rejections happen
// before any SSE frame, so they can still carry a status code; stream
// failures were already delivered as an error frame.
func (h *Handler) completeStream(w http.ResponseWriter, r *http.Request, model, lang string, start time.Time, err error) {
	duration := time.Since(start)

	switch {
	case err == nil:
		status := "success"
		if r.Context().Err() != nil {
			status = "canceled"
		}
		h.metrics.RecordStream(model, status, duration)
	case errors.Is(err, session.ErrBusy):
		h.writeError(w, http.StatusConflict, lang, i18n.MsgSessionBusy)
	case errors.Is(err, session.ErrEmptyMessage):
		h.writeError(w, http.StatusBadRequest, lang, i18n.MsgEmptyMessage)
	case errors.Is(err, session.ErrNoUserMessage):
		h.writeError(w, http.StatusBadRequest, lang, i18n.MsgNoUserMessage)
	default:
		h.metrics.RecordStream(model, "error", duration)
		h.logger.WithError(err).WithFields(logFields(r)).Error("Stream failed")
	}
}

// logFields builds the standard request log fields
func logFields(r *http.Request) logrus.Fields {
	return logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"client": clientIP(r),
	}
}

// sseStream writes server-sent events. Headers go out with the first event,
// so an operation rejected before streaming can still use a plain status.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEStream(w http.ResponseWriter) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseStream{w: w, flusher: flusher}, true
}

func (s *sseStream) start() {
	if s.started {
		return
	}
	s.started = true

	header := s.w.Header()
	header.Set("Content-Type", "text/event-stream; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *sseStream) sendEvent(v interface{}) {
	s.start()
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

func (s *sseStream) sendDone() {
	s.start()
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}
