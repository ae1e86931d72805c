// Package gemini implements the reasoning and planning oracles on the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/enrichment"
	"github.com/couchcryptid/incident-engine/internal/observability"
)

// DefaultBaseURL is the Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoCandidates is returned when the model produced no text.
var ErrNoCandidates = errors.New("gemini returned no candidates")

// Client implements enrichment.ReasoningOracle and enrichment.PlannerOracle.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Gemini client for model. The per-call deadline comes
// from the caller's context.
func NewClient(apiKey, model string, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// Assess asks the model for a reasoning trace of at most
// enrichment.MaxReasoningSteps steps.
func (c *Client) Assess(ctx context.Context, threat domain.Threat, intel []domain.IntelItem) ([]string, error) {
	threatJSON, err := json.Marshal(threat)
	if err != nil {
		return nil, fmt.Errorf("marshal threat: %w", err)
	}
	intelJSON, err := json.Marshal(intel)
	if err != nil {
		return nil, fmt.Errorf("marshal intel: %w", err)
	}

	prompt := fmt.Sprintf(assessPrompt, threatJSON, intelJSON, enrichment.MaxReasoningSteps)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var steps []string
	if err := json.Unmarshal([]byte(cleanJSON(text)), &steps); err != nil {
		return nil, fmt.Errorf("parse reasoning: %w", err)
	}
	return steps, nil
}

// Plan asks the model for a response plan.
func (c *Client) Plan(ctx context.Context, threat domain.Threat) (domain.Plan, error) {
	prompt := fmt.Sprintf(planPrompt, threat.Type, threat.Location.Name, threat.Severity)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return domain.Plan{}, err
	}

	var plan domain.Plan
	if err := json.Unmarshal([]byte(cleanJSON(text)), &plan); err != nil {
		return domain.Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ExternalAPIDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini API error: status %d: %s", resp.StatusCode, msg)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range gr.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoCandidates
	}
	return sb.String(), nil
}

// cleanJSON strips markdown code fences the model tends to wrap JSON in.
func cleanJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

const assessPrompt = `You are an AI Incident Commander.
Analyze the following Threat and Intelligence Feed.

THREAT: %s
INTEL FEED: %s

Output a JSON array of strings representing your sequential thought process (Reasoning Log).
Limit to %d steps.
Example: ["Received distress signal..", "Analyzing wind vectors...", "Decision: Evacuate"]`

const planPrompt = `Generate a Crisis Response Plan for: %s at %s.
Severity: %s.

Output JSON format:
{
  "objectives": ["obj1", "obj2"],
  "timeline": [{"time": "T+0", "action": "...", "status": "COMPLETED"}],
  "resources": [{"item": "...", "quantity": 0, "location": "..."}]
}`

// generateContent request and response types.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}
