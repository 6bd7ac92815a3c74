// Package reason provides the LLM reasoning gateway for bin classification.
package reason

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

const systemPrompt = "You are a zero-shot waste sorting expert. " +
	"For each item, decide if it goes to recycling, compost, or trash. " +
	"Respect local policy overrides when provided. Return concise explanations and an eco-tip."

// Client calls the hosted reasoning endpoint
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config for the reasoning client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new reasoning client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 40 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsConfigured checks if the API key is set
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// message is one chat turn in the API request
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the chat-completions request structure
type request struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// chatResponse is the chat-completions response structure
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decisionObject is one element of the model's returned JSON array. Fields
// stay loose because the remote model is untrusted for schema compliance.
type decisionObject struct {
	Label       string `json:"label"`
	Bin         string `json:"bin"`
	Explanation string `json:"explanation"`
	EcoTip      string `json:"eco_tip"`
}

// FallbackDecision is the single synthesized decision returned when the
// model's reply yields no valid per-item decisions.
func FallbackDecision() core.ItemDecision {
	return core.ItemDecision{
		Label:       "unknown",
		Bin:         core.BinTrash,
		Explanation: "Unable to determine proper disposal method",
		EcoTip:      "Please check local recycling guidelines",
	}
}

// Classify asks the reasoning model for one decision per label. For a
// non-empty label list the result is never empty: if every element of the
// model's reply is malformed, exactly one synthesized fallback decision is
// returned instead.
func (c *Client) Classify(ctx context.Context, labels []string, zip string, policies map[string]any) ([]core.ItemDecision, error) {
	if !c.IsConfigured() {
		logging.Error("reasoning API key is empty or missing")
		return nil, core.NewFault(core.FaultConfig, "Reasoning API key missing")
	}

	policyJSON, _ := json.Marshal(orEmpty(policies))
	prompt := fmt.Sprintf(
		"%s\nZIP: %s\nLocal Policies JSON: %s\nItems: %s\n"+
			"Respond as JSON list with objects: {label, bin, explanation, eco_tip}. Only these keys.",
		systemPrompt, zip, policyJSON, strings.Join(labels, ", "),
	)

	req := request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, core.WrapFault(core.FaultReasoning, "Reasoning API failed", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapFault(core.FaultReasoning, "Reasoning API failed", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://rebin.local")
	httpReq.Header.Set("X-Title", "ReBin Pro")

	logging.Info("Requesting reasoning for %d items", len(labels))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.WrapFault(core.FaultReasoning, "Reasoning API failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapFault(core.FaultReasoning, "Reasoning API failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		logging.Error("reasoning API rejected credentials: %s", string(respBody))
		return nil, core.NewFault(core.FaultConfig, "Reasoning API credentials rejected")
	case resp.StatusCode == http.StatusTooManyRequests:
		logging.Warn("reasoning API rate limited")
		return nil, core.NewFault(core.FaultRateLimit, "Reasoning API rate limited")
	case resp.StatusCode >= 500:
		logging.Error("reasoning API server error: %d %s", resp.StatusCode, string(respBody))
		return nil, core.NewFault(core.FaultReasoning, "Reasoning API failed")
	case resp.StatusCode != http.StatusOK:
		logging.Error("reasoning API error: %d %s", resp.StatusCode, string(respBody))
		return nil, core.NewFault(core.FaultReasoning, "Reasoning API failed")
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		logging.Error("invalid JSON envelope from reasoning API: %v", err)
		return nil, core.WrapFault(core.FaultParse, "Bad reasoning response", err)
	}
	if len(chat.Choices) == 0 {
		logging.Error("reasoning response has no choices: %s", string(respBody))
		return nil, core.NewFault(core.FaultParse, "Bad reasoning response")
	}

	content := chat.Choices[0].Message.Content
	return parseDecisions(content, len(labels))
}

// parseDecisions validates the model's message content. JSON decode failure
// and non-list content are parse errors; malformed individual elements are
// skipped so one bad item never poisons the batch.
func parseDecisions(content string, labelCount int) ([]core.ItemDecision, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(content), &elements); err != nil {
		logging.Error("failed parsing reasoning content: %v", err)
		return nil, core.WrapFault(core.FaultParse, "Bad reasoning response", err)
	}

	decisions := make([]core.ItemDecision, 0, len(elements))
	for _, raw := range elements {
		var obj decisionObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			logging.Warn("skipping malformed decision element: %s: %v", string(raw), err)
			continue
		}
		bin := core.Bin(strings.ToLower(strings.TrimSpace(obj.Bin)))
		if !core.ValidBin(bin) {
			logging.Warn("skipping decision with invalid bin %q for label %q", obj.Bin, obj.Label)
			continue
		}
		decisions = append(decisions, core.ItemDecision{
			Label:       obj.Label,
			Bin:         bin,
			Explanation: obj.Explanation,
			EcoTip:      obj.EcoTip,
		})
	}

	if len(decisions) == 0 && labelCount > 0 {
		logging.Warn("no valid decisions in reasoning reply, synthesizing fallback")
		return []core.ItemDecision{FallbackDecision()}, nil
	}

	return decisions, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
