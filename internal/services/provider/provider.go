package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-studio-go/internal/config"
	"github.com/prompt-studio-go/internal/models"
	"github.com/prompt-studio-go/internal/stream"
)

// Registry lookup errors.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrUnknownModel    = errors.New("unknown model")
)

// Service represents the streaming provider interface
type Service interface {
	OpenStream(ctx context.Context, req models.StreamRequest) (stream.ChunkSource, error)
	GetAvailableModels() []ModelOption
	GetModelByID(modelID string) (*ModelOption, error)
	GetEndpoint(name string) (*config.ProviderEndpoint, bool)
	DefaultProvider() string
}

// ModelOption represents a model option with endpoint info
type ModelOption struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EndpointName string `json:"provider"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
}

// Client implements the provider service over configured HTTP endpoints
type Client struct {
	config     *config.ProvidersConfig
	endpoints  map[string]*config.ProviderEndpoint
	models     map[string]*ModelOption
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new provider client
func NewClient(cfg *config.ProvidersConfig, logger *logrus.Logger) Service {
	endpoints := make(map[string]*config.ProviderEndpoint)
	modelOptions := make(map[string]*ModelOption)

	logger.WithField("endpointCount", len(cfg.Endpoints)).Info("Loading provider endpoints")

	// Build lookup maps
	for i := range cfg.Endpoints {
		endpoint := &cfg.Endpoints[i]
		endpoints[endpoint.Name] = endpoint

		logger.WithFields(logrus.Fields{
			"endpoint": endpoint.Name,
			"baseURL":  endpoint.BaseURL,
			"models":   len(endpoint.Models),
		}).Info("Loading endpoint")

		for j := range endpoint.Models {
			model := &endpoint.Models[j]
			modelOptions[model.ID] = &ModelOption{
				ID:           model.ID,
				Name:         model.Name,
				EndpointName: endpoint.Name,
				MaxTokens:    model.MaxTokens,
			}

			logger.WithFields(logrus.Fields{
				"modelID":   model.ID,
				"modelName": model.Name,
				"endpoint":  endpoint.Name,
			}).Debug("Loaded model")
		}
	}

	logger.WithField("totalModels", len(modelOptions)).Info("Provider service initialized")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		config:    cfg,
		endpoints: endpoints,
		models:    modelOptions,
		// The client timeout spans the whole exchange including the body
		// read, so it bounds the longest possible stream.
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// OpenStream opens a token stream for the given request with retry logic.
// Only the open step retries; once a body is handed out the stream is live.
func (c *Client) OpenStream(ctx context.Context, req models.StreamRequest) (stream.ChunkSource, error) {
	endpoint, err := c.resolveEndpoint(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	maxRetries := c.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		src, retryable, err := c.openOnce(ctx, endpoint, jsonData, req.Model, attempt)
		if err == nil {
			return src, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
			"modelID": req.Model,
		}).Warn("Stream open failed, retrying...")

		if attempt < maxRetries {
			// Exponential backoff: 2s, 4s, 8s
			waitTime := time.Duration(2<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
				// Continue to next retry
			}
		}
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// openOnce performs a single open attempt
func (c *Client) openOnce(ctx context.Context, endpoint *config.ProviderEndpoint, jsonData []byte, modelID string, attempt int) (stream.ChunkSource, bool, error) {
	url := fmt.Sprintf("%s/chat/stream", strings.TrimSuffix(endpoint.BaseURL, "/"))

	// The request context is the stream context: the body outlives this
	// call, so no per-attempt timeout wraps it.
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/x-ndjson, text/plain")
	if endpoint.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", endpoint.APIKey))
	}

	c.logger.WithFields(logrus.Fields{
		"model":    modelID,
		"endpoint": endpoint.Name,
		"url":      url,
		"attempt":  attempt,
	}).Debug("Opening provider stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()

		c.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"body":    string(body),
			"attempt": attempt,
		}).Error("Provider request failed")

		// Client errors (4xx) are not retried
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, false, fmt.Errorf("provider request failed with client error %d: %s", resp.StatusCode, string(body))
		}

		return nil, true, fmt.Errorf("provider request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return newHTTPSource(resp.Body), false, nil
}

// resolveEndpoint picks the endpoint for an explicit provider name, the
// model's home endpoint, or the configured default, in that order.
func (c *Client) resolveEndpoint(providerName, modelID string) (*config.ProviderEndpoint, error) {
	if providerName != "" {
		endpoint, exists := c.endpoints[providerName]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
		}
		return endpoint, nil
	}

	if model, exists := c.models[modelID]; exists {
		return c.endpoints[model.EndpointName], nil
	}

	if endpoint, exists := c.endpoints[c.config.Default]; exists {
		return endpoint, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
}

// GetAvailableModels returns all available models sorted by endpoint and ID
func (c *Client) GetAvailableModels() []ModelOption {
	options := make([]ModelOption, 0, len(c.models))
	for _, model := range c.models {
		options = append(options, *model)
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].EndpointName != options[j].EndpointName {
			return options[i].EndpointName < options[j].EndpointName
		}
		return options[i].ID < options[j].ID
	})
	return options
}

// GetModelByID returns a model by its ID
func (c *Client) GetModelByID(modelID string) (*ModelOption, error) {
	model, exists := c.models[modelID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return model, nil
}

// GetEndpoint returns a configured endpoint by name
func (c *Client) GetEndpoint(name string) (*config.ProviderEndpoint, bool) {
	endpoint, exists := c.endpoints[name]
	return endpoint, exists
}

// DefaultProvider returns the configured default endpoint name
func (c *Client) DefaultProvider() string {
	return c.config.Default
}
