package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

const modelID = "eleven_monolingual_v1"

// Client calls the text-to-speech endpoint
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config for the speech client
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new speech client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IsConfigured checks if the API key is set
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize converts text to speech with the voice bound to the given
// personality and returns an audio data URL. Speech is enhancement, not a
// required path: every failure is logged and yields "", never an error.
func (c *Client) Synthesize(ctx context.Context, text string, personality core.Personality) string {
	if !c.IsConfigured() {
		logging.Warn("speech API key not configured")
		return ""
	}

	voice := VoiceFor(personality)

	body, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       modelID,
		VoiceSettings: voice.Settings,
	})
	if err != nil {
		logging.Warn("TTS request encoding failed: %v", err)
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/text-to-speech/"+voice.VoiceID, bytes.NewReader(body))
	if err != nil {
		logging.Warn("TTS request build failed: %v", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Warn("TTS call failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Warn("TTS response read failed: %v", err)
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		logging.Warn("TTS error: %d %s", resp.StatusCode, string(audio))
		return ""
	}

	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}
