package handlers

import (
	"net/http"
)

// InferRequest is the body of POST /api/infer
type InferRequest struct {
	Needs string `json:"needs"`
	Stack string `json:"stack"`
}

// RoleView describes one inferable role for the catalog endpoint
type RoleView struct {
	Name   string   `json:"name"`
	Scope  string   `json:"scope"`
	Stages []string `json:"stages"`
}

func (h *Handler) handleInfer(w http.ResponseWriter, r *http.Request) {
	var req InferRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	inference := h.inferProfile(r, req.Needs, req.Stack)
	h.writeJSON(w, http.StatusOK, inference)
}

func (h *Handler) handleRoles(w http.ResponseWriter, r *http.Request) {
	lex := h.engine.Lexicon()
	names := lex.Roles()

	views := make([]RoleView, 0, len(names))
	for _, name := range names {
		def, ok := lex.Role(name)
		if !ok {
			continue
		}
		views = append(views, RoleView{
			Name:   def.Name,
			Scope:  def.Scope,
			Stages: def.Stages,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"roles":    views,
		"fallback": lex.Fallback(),
	})
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":           h.provider.GetAvailableModels(),
		"default_provider": h.provider.DefaultProvider(),
	})
}
