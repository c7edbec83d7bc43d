// ABOUTME: Ollama REST client implementing log classification and summarization.
// ABOUTME: Talks to /api/generate and /api/tags with per-call timeouts.

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/logwarden/logwarden/internal/classify"
	"github.com/sirupsen/logrus"
)

const (
	analysisTimeout = 300 * time.Second
	summaryTimeout  = 120 * time.Second
	listTimeout     = 20 * time.Second

	// Low temperature keeps verdicts consistent across identical logs;
	// summaries read better with a little variance.
	analysisTemperature = 0.15
	summaryTemperature  = 0.4

	logsPlaceholder = "{logs}"
)

// Client implements LogClassifier against an Ollama server. The endpoint is
// passed per call because it is a runtime setting, not a construction value.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates an Ollama classifier client
func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Name returns the classifier name
func (c *Client) Name() string {
	return "ollama"
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Classify submits container logs for analysis and interprets the verdict.
// Configuration problems surface as in-band classifier errors, transport
// failures as Go errors.
func (c *Client) Classify(ctx context.Context, endpoint, model, promptTemplate, logs string) (classify.Result, error) {
	if strings.TrimSpace(logs) == "" {
		return classify.Result{Kind: classify.ResultNormal}, nil
	}
	if model == "" {
		return classify.Result{
			Kind:   classify.ResultClassifierError,
			Reason: "classifier model is not configured",
		}, nil
	}
	if !strings.Contains(promptTemplate, logsPlaceholder) {
		return classify.Result{
			Kind:   classify.ResultClassifierError,
			Reason: "analysis prompt is missing the '" + logsPlaceholder + "' placeholder",
		}, nil
	}

	prompt := strings.ReplaceAll(promptTemplate, logsPlaceholder, logs)

	c.logger.WithFields(logrus.Fields{
		"operation": "classify",
		"model":     model,
	}).Debug("Submitting logs for analysis")

	raw, err := c.generate(ctx, endpoint, model, prompt, analysisTemperature, analysisTimeout)
	if err != nil {
		return classify.Result{}, fmt.Errorf("analysis request failed: %w", err)
	}
	return classify.ParseResponse(raw), nil
}

// Summarize generates free-form text from a fully rendered prompt
func (c *Client) Summarize(ctx context.Context, endpoint, model, prompt string) (string, error) {
	if model == "" {
		return "", fmt.Errorf("classifier model is not configured")
	}

	c.logger.WithFields(logrus.Fields{
		"operation": "summarize",
		"model":     model,
	}).Debug("Requesting summary")

	raw, err := c.generate(ctx, endpoint, model, prompt, summaryTemperature, summaryTimeout)
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("classifier returned an empty summary")
	}
	return text, nil
}

// ListModels fetches the model names available on the server, deduplicated
// and sorted.
func (c *Client) ListModels(ctx context.Context, endpoint string) ([]string, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase(endpoint)+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create model list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("model list request failed: %w", err)
	}
	defer resp.Body.Close()

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model list response: %w", err)
	}

	seen := make(map[string]struct{})
	var models []string
	for _, m := range out.Models {
		if m.Name == "" {
			continue
		}
		if _, ok := seen[m.Name]; ok {
			continue
		}
		seen[m.Name] = struct{}{}
		models = append(models, m.Name)
	}
	sort.Strings(models)

	c.logger.WithField("model_count", len(models)).Debug("Fetched available models")
	return models, nil
}

// generate performs one POST /api/generate round trip
func (c *Client) generate(ctx context.Context, endpoint, model, prompt string, temperature float64, timeout time.Duration) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("classifier endpoint is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase(endpoint)+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}

// do sends a request and turns non-200 statuses into errors with a bounded
// body excerpt.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp, nil
}

// apiBase normalizes a configured endpoint to the server base URL. Accepts
// either a base URL or a full /api/... endpoint left over from older
// configurations.
func apiBase(endpoint string) string {
	if idx := strings.Index(endpoint, "/api/"); idx >= 0 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimRight(endpoint, "/")
}
