// Package detect provides the computer-vision detection gateway.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
)

// MaxImageBytes is the upload size ceiling (10 MiB).
const MaxImageBytes = 10 * 1024 * 1024

// Client calls the vision-inference endpoint
type Client struct {
	url        string
	httpClient *http.Client
}

// Config for the detection client
type Config struct {
	URL     string
	Timeout time.Duration
}

// NewClient creates a new detection client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// response is the inference endpoint's JSON body. Objects stay raw so one
// malformed entry cannot fail the whole decode.
type response struct {
	Objects []json.RawMessage `json:"objects"`
}

type rawObject struct {
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// Detect uploads an image and returns the detected items. A zero-detection
// result is a valid empty list, never an error. Validation failures are
// raised before any downstream call is made.
func (c *Client) Detect(ctx context.Context, image []byte, contentType, filename string) ([]core.ItemDetection, error) {
	if filename == "" {
		return nil, core.NewFault(core.FaultValidation, "No filename provided")
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		return nil, core.NewFault(core.FaultValidation, "File must be an image")
	}
	if len(image) == 0 {
		return nil, core.NewFault(core.FaultValidation, "Empty image file")
	}
	if len(image) > MaxImageBytes {
		return nil, core.NewFault(core.FaultValidation, "Image file too large (max 10MB)")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}
	if err := writer.Close(); err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	logging.WithField("bytes", len(image)).Info("Calling vision service: %s with file: %s", c.url, filename)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapFault(core.FaultCV, "Computer vision service failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		logging.Error("vision service unavailable: %s", string(respBody))
		return nil, core.NewFault(core.FaultServiceUnavailable, "Computer vision service is temporarily unavailable")
	case resp.StatusCode == http.StatusBadRequest:
		logging.Error("vision service rejected input: %s", string(respBody))
		return nil, core.NewFault(core.FaultValidation, "Invalid image format or size")
	case resp.StatusCode != http.StatusOK:
		logging.Error("vision call failed: %d %s", resp.StatusCode, string(respBody))
		return nil, core.Faultf(core.FaultCV, "Computer vision service failed")
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		logging.Error("invalid JSON from vision service: %v", err)
		return nil, core.WrapFault(core.FaultCV, "Invalid response from computer vision service", err)
	}

	items := make([]core.ItemDetection, 0, len(parsed.Objects))
	for _, raw := range parsed.Objects {
		var obj rawObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			logging.Warn("skipping invalid detection object: %s: %v", string(raw), err)
			continue
		}
		det := core.ItemDetection{Label: "unknown"}
		if obj.Label != nil {
			det.Label = *obj.Label
		}
		if obj.Confidence != nil {
			det.Confidence = *obj.Confidence
		}
		items = append(items, det)
	}

	logging.Info("processed image: %d objects detected", len(items))
	return items, nil
}
