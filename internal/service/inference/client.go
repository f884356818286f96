package inference

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStatus is returned (wrapped) when the sidecar answers with a non-2xx status.
var ErrStatus = errors.New("inference sidecar returned error status")

// LoadOptions describes a model load request. Trusted must be set explicitly
// for checkpoints that need unrestricted deserialization; it applies only to
// this load call.
type LoadOptions struct {
	Kind    string `json:"kind"` // "asr" or "diarization"
	ModelID string `json:"model_id"`
	Token   string `json:"token,omitempty"`
	Device  string `json:"device,omitempty"`
	Trusted bool   `json:"trusted"`
}

// ClientConfig contains sidecar client configuration.
type ClientConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Client talks to the model inference sidecar over HTTP.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a sidecar client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", config.Endpoint, err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Backoff <= 0 {
		config.Backoff = 200 * time.Millisecond
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log.With().Str("component", "inference-client").Str("endpoint", config.Endpoint).Logger(),
	}, nil
}

// Load asks the sidecar to load a model.
func (c *Client) Load(ctx context.Context, opts LoadOptions) error {
	body, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal load request: %w", err)
	}
	return c.post(ctx, "/v1/models/load", nil, "application/json", body, nil)
}

// PostSamples sends a waveform as float32 little-endian samples and decodes
// the JSON response into out.
func (c *Client) PostSamples(ctx context.Context, path string, query url.Values, samples []float32, out any) error {
	var buf bytes.Buffer
	buf.Grow(len(samples) * 4)
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	return c.post(ctx, path, query, "application/octet-stream", buf.Bytes(), out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, contentType string, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.Backoff << (attempt - 1)
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retry, err := c.doRequest(ctx, path, query, contentType, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.logger.Warn().
			Err(err).
			Str("path", path).
			Int("attempt", attempt+1).
			Msg("Inference request failed, retrying")
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values, contentType string, body []byte, out any) (bool, error) {
	u := strings.TrimRight(c.config.Endpoint, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(respBody)))
		return resp.StatusCode >= 500, err
	}

	if out == nil || len(respBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return false, nil
}
