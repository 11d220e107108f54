package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/i18n"
	"github.com/prompt-studio-go/internal/middleware"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/internal/roles"
	"github.com/prompt-studio-go/internal/services/cache"
	"github.com/prompt-studio-go/internal/services/provider"
	"github.com/prompt-studio-go/internal/services/session"
	"github.com/prompt-studio-go/internal/services/storage"
)

// testAPI spins up the full handler stack against one upstream URL.
func testAPI(t *testing.T, upstreamURL string, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Providers = config.ProvidersConfig{
		Default:    "workers-ai",
		Timeout:    30 * time.Second,
		MaxRetries: 1,
		Endpoints: []config.ProviderEndpoint{
			{
				Name:        "workers-ai",
				DisplayName: "Workers AI",
				BaseURL:     upstreamURL,
				APIKey:      "test-key",
				Models: []config.ModelInfo{
					{ID: "m-fast", Name: "Fast", MaxTokens: 2048},
				},
			},
		},
	}
	cfg.Storage.Type = "memory"
	cfg.Storage.Memory.DefaultExpiration = time.Hour
	cfg.Storage.Memory.CleanupInterval = time.Hour
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute
	cfg.Session.MaxMessages = 50
	cfg.Session.DefaultSystemPrompt = "You are a helpful assistant."
	cfg.Session.DefaultLanguage = "en"
	cfg.Roles.DefaultRole = "Backend Engineer"
	cfg.I18n.DefaultLanguage = "en"
	cfg.I18n.Languages = []string{"en"}
	if mutate != nil {
		mutate(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := storage.NewManager(cfg, logger)
	require.NoError(t, err)

	lexicon, err := roles.DefaultLexicon(cfg.Roles.DefaultRole)
	require.NoError(t, err)
	engine := roles.NewEngine(lexicon)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	providerSvc := provider.NewClient(&cfg.Providers, logger)
	sessions := session.NewManager(providerSvc, store, localizer, logger, cfg.Session.MaxMessages)

	handler := NewHandler(
		cfg,
		logger,
		sessions,
		providerSvc,
		engine,
		cache.NewCache(cfg, logger),
		localizer,
		middleware.NewMetrics(),
		middleware.NewRateLimiter(cfg, logger),
		middleware.NewSecurityMiddleware(logger),
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// sseUpstream serves a fixed SSE reply for every stream request.
func sseUpstream(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			io.WriteString(w, line+"\n")
		}
		flusher.Flush()
	}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type sessionPayload struct {
	Session struct {
		ID       string                 `json:"id"`
		Messages []models.Message       `json:"messages"`
		Settings models.SessionSettings `json:"settings"`
	} `json:"session"`
	Busy      bool             `json:"busy"`
	Inference *roles.Inference `json:"inference"`
}

func createSession(t *testing.T, api *httptest.Server, body interface{}) sessionPayload {
	t.Helper()
	resp := postJSON(t, api.URL+"/api/sessions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var payload sessionPayload
	decodeJSON(t, resp, &payload)
	return payload
}

func TestHealth(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp, err := http.Get(api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSessionInfersRoleAndPrompt(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	payload := createSession(t, api, map[string]string{
		"needs": "I need a REST api with a database behind it",
		"stack": "go, postgres",
	})

	assert.NotEmpty(t, payload.Session.ID)
	assert.False(t, payload.Busy)
	require.NotNil(t, payload.Inference)
	assert.Equal(t, "Backend Engineer", payload.Inference.Role)

	assert.Equal(t, "workers-ai", payload.Session.Settings.Provider)
	assert.Equal(t, "m-fast", payload.Session.Settings.Model)
	assert.Contains(t, payload.Session.Settings.SystemPrompt, "# Role")
	assert.Contains(t, payload.Session.Settings.SystemPrompt, "Backend Engineer")
	assert.Contains(t, payload.Session.Settings.SystemPrompt, "- postgres")

	// History starts with the greeting only.
	require.Len(t, payload.Session.Messages, 1)
	assert.Equal(t, models.RoleAssistant, payload.Session.Messages[0].Role)
}

func TestCreateSessionWithExplicitPrompt(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	payload := createSession(t, api, map[string]string{
		"system_prompt": "Answer in haiku.",
	})

	assert.Nil(t, payload.Inference)
	assert.Equal(t, "Answer in haiku.", payload.Session.Settings.SystemPrompt)
}

func TestCreateSessionCustomConstraints(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	payload := createSession(t, api, map[string]string{
		"needs":         "I need a REST api with a database behind it",
		"stack":         "go, postgres",
		"constraints":   "- Never log request bodies.",
		"output_format": "Reply with diffs only.",
	})

	got := payload.Session.Settings.SystemPrompt
	assert.Contains(t, got, "# Constraints\n- Never log request bodies.")
	assert.Contains(t, got, "# Output Format\nReply with diffs only.")
	assert.NotContains(t, got, "Ask before assuming")
	assert.NotContains(t, got, "Answer in markdown")
}

func TestCreateSessionUnknownModel(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp := postJSON(t, api.URL+"/api/sessions", map[string]string{"model": "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSessionUnknownProvider(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp := postJSON(t, api.URL+"/api/sessions", map[string]string{"provider": "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageStreamsSSE(t *testing.T) {
	upstream := sseUpstream(t,
		`data: {"text":"Hello "}`,
		`data: {"text":"world"}`,
		"data: [DONE]",
	)
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	events := string(body)
	assert.Contains(t, events, `data: {"text":"Hello "}`)
	assert.Contains(t, events, `data: {"text":"world"}`)
	assert.Contains(t, events, "data: [DONE]")

	// The aggregated message is visible on the session afterwards.
	var got sessionPayload
	getResp, err := http.Get(api.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	decodeJSON(t, getResp, &got)
	assert.False(t, got.Busy)
	require.Len(t, got.Session.Messages, 3)
	assert.Equal(t, "hi", got.Session.Messages[1].Content)
	assert.Equal(t, "Hello world", got.Session.Messages[2].Content)
}

func TestSendMessageUnknownSession(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp := postJSON(t, api.URL+"/api/sessions/nope/messages", map[string]string{"text": "hi"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendMessageEmptyText(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)
	created := createSession(t, api, map[string]string{"system_prompt": "test"})

	resp := postJSON(t, api.URL+"/api/sessions/"+created.Session.ID+"/messages", map[string]string{"text": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageWhileBusy(t *testing.T) {
	// The upstream holds the stream open until the client goes away.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, `data: {"text":"Par"}`+"\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(upstream.Close)
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		resp, err := http.Post(api.URL+"/api/sessions/"+id+"/messages", "application/json",
			strings.NewReader(`{"text":"first"}`))
		if err == nil {
			io.ReadAll(resp.Body)
			resp.Body.Close()
		}
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(api.URL + "/api/sessions/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var got sessionPayload
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			return false
		}
		return got.Busy
	}, 5*time.Second, 10*time.Millisecond)

	// A concurrent send is rejected without touching the stream.
	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "second"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Stop releases the busy session and keeps the partial content.
	stopResp := postJSON(t, api.URL+"/api/sessions/"+id+"/stop", nil)
	var stopped StopResponse
	decodeJSON(t, stopResp, &stopped)
	assert.True(t, stopped.Stopped)
	assert.Equal(t, "Generation stopped.", stopped.Message)

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("first send did not finish after stop")
	}

	var got sessionPayload
	getResp, err := http.Get(api.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	decodeJSON(t, getResp, &got)
	assert.False(t, got.Busy)
	require.Len(t, got.Session.Messages, 3)
	assert.Equal(t, "Par", got.Session.Messages[2].Content)
}

func TestStopWithoutStream(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)
	created := createSession(t, api, map[string]string{"system_prompt": "test"})

	resp := postJSON(t, api.URL+"/api/sessions/"+created.Session.ID+"/stop", nil)
	var stopped StopResponse
	decodeJSON(t, resp, &stopped)
	assert.False(t, stopped.Stopped)
	assert.Empty(t, stopped.Message)
}

func TestRegenerateEndpoint(t *testing.T) {
	upstream := sseUpstream(t, `data: {"text":"take two"}`, "data: [DONE]")
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "question"})
	io.ReadAll(resp.Body)
	resp.Body.Close()

	regenResp := postJSON(t, api.URL+"/api/sessions/"+id+"/regenerate", nil)
	defer regenResp.Body.Close()
	require.Equal(t, http.StatusOK, regenResp.StatusCode)
	body, err := io.ReadAll(regenResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `data: {"text":"take two"}`)

	var got sessionPayload
	getResp, err := http.Get(api.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	decodeJSON(t, getResp, &got)
	require.Len(t, got.Session.Messages, 3)
	assert.Equal(t, "take two", got.Session.Messages[2].Content)
}

func TestRegenerateWithoutUserMessage(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)
	created := createSession(t, api, map[string]string{"system_prompt": "test"})

	resp := postJSON(t, api.URL+"/api/sessions/"+created.Session.ID+"/regenerate", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearEndpoint(t *testing.T) {
	upstream := sseUpstream(t, `data: {"text":"answer"}`, "data: [DONE]")
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "question"})
	io.ReadAll(resp.Body)
	resp.Body.Close()

	var cleared sessionPayload
	clearResp := postJSON(t, api.URL+"/api/sessions/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, clearResp.StatusCode)
	decodeJSON(t, clearResp, &cleared)

	require.Len(t, cleared.Session.Messages, 1)
	assert.Equal(t, models.RoleAssistant, cleared.Session.Messages[0].Role)
	assert.False(t, cleared.Busy)
}

func TestDeleteSession(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)
	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	req, err := http.NewRequest(http.MethodDelete, api.URL+"/api/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getResp, err := http.Get(api.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)

	// Deleting again reports not found.
	again, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}

func TestListSessions(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)
	createSession(t, api, map[string]string{"system_prompt": "test"})
	createSession(t, api, map[string]string{"system_prompt": "test"})

	resp, err := http.Get(api.URL + "/api/sessions")
	require.NoError(t, err)
	var listed struct {
		Sessions []json.RawMessage `json:"sessions"`
		Count    int               `json:"count"`
	}
	decodeJSON(t, resp, &listed)
	assert.Equal(t, 2, listed.Count)
	assert.Len(t, listed.Sessions, 2)
}

func TestInferEndpoint(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp := postJSON(t, api.URL+"/api/infer", map[string]string{
		"needs": "dashboards with react components and css",
		"stack": "react, typescript",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inference roles.Inference
	decodeJSON(t, resp, &inference)
	assert.Equal(t, "Frontend Engineer", inference.Role)
	assert.NotEmpty(t, inference.Top)
}

func TestInferEndpointFallback(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp := postJSON(t, api.URL+"/api/infer", map[string]string{"needs": "", "stack": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inference roles.Inference
	decodeJSON(t, resp, &inference)
	assert.Equal(t, "Backend Engineer", inference.Role)
	assert.Zero(t, inference.Confidence)
}

func TestRolesEndpoint(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp, err := http.Get(api.URL + "/api/roles")
	require.NoError(t, err)
	var listed struct {
		Roles    []RoleView `json:"roles"`
		Fallback string     `json:"fallback"`
	}
	decodeJSON(t, resp, &listed)
	assert.Equal(t, "Backend Engineer", listed.Fallback)
	require.NotEmpty(t, listed.Roles)
	assert.NotEmpty(t, listed.Roles[0].Stages)
}

func TestModelsEndpoint(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", nil)

	resp, err := http.Get(api.URL + "/api/models")
	require.NoError(t, err)
	var listed struct {
		Models          []provider.ModelOption `json:"models"`
		DefaultProvider string                 `json:"default_provider"`
	}
	decodeJSON(t, resp, &listed)
	assert.Equal(t, "workers-ai", listed.DefaultProvider)
	require.Len(t, listed.Models, 1)
	assert.Equal(t, "m-fast", listed.Models[0].ID)
}

func TestExportTranscript(t *testing.T) {
	upstream := sseUpstream(t, `data: {"text":"**bold** answer"}`, "data: [DONE]")
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "question"})
	io.ReadAll(resp.Body)
	resp.Body.Close()

	exportResp, err := http.Get(api.URL + "/api/sessions/" + id + "/export")
	require.NoError(t, err)
	defer exportResp.Body.Close()
	require.Equal(t, http.StatusOK, exportResp.StatusCode)
	assert.Contains(t, exportResp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(exportResp.Body)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, fmt.Sprintf("Conversation %s", id))
	assert.Contains(t, html, "question")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestRateLimitRejects(t *testing.T) {
	api := testAPI(t, "http://unused.invalid", func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerMinute = 1
		cfg.RateLimit.Burst = 1
	})

	first, err := http.Get(api.URL + "/api/models")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(api.URL + "/api/models")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestStreamErrorSurfacesInContent(t *testing.T) {
	// The upstream drops the connection partway through the stream.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, `data: {"text":"partial"}`+"\n")
		flusher.Flush()
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
			}
		}
	}))
	t.Cleanup(upstream.Close)
	api := testAPI(t, upstream.URL, nil)

	created := createSession(t, api, map[string]string{"system_prompt": "test"})
	id := created.Session.ID

	resp := postJSON(t, api.URL+"/api/sessions/"+id+"/messages", map[string]string{"text": "hi"})
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), `"error"`)
	assert.Contains(t, string(body), "data: [DONE]")

	var got sessionPayload
	getResp, err := http.Get(api.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	decodeJSON(t, getResp, &got)
	assert.False(t, got.Busy)
	require.Len(t, got.Session.Messages, 3)
	assert.Contains(t, got.Session.Messages[2].Content, "partial")
	assert.Contains(t, got.Session.Messages[2].Content, "Something went wrong")
}
