// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/trifactor-tui/internal/logging"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is the fixed local service address.
	DefaultBaseURL = "http://127.0.0.1:5000"

	// DefaultTimeout bounds PIN and face requests.
	DefaultTimeout = 30 * time.Second

	// DefaultVoiceTimeout bounds the voice request, which includes the
	// service recording and transcribing audio.
	DefaultVoiceTimeout = 120 * time.Second

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 1 * 1024 * 1024
)

// Default endpoint paths.
const (
	DefaultPINPath   = "/validate-pin"
	DefaultFacePath  = "/face-auth"
	DefaultVoicePath = "/voice-auth"
)

// ClientConfig holds configuration options for the verification client.
type ClientConfig struct {
	// BaseURL is the service root (default: http://127.0.0.1:5000)
	BaseURL string

	// Timeout for PIN and face requests (default: 30s)
	Timeout time.Duration

	// VoiceTimeout for the voice request (default: 120s)
	VoiceTimeout time.Duration

	// Paths per stage, relative to BaseURL.
	PINPath   string
	FacePath  string
	VoicePath string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		VoiceTimeout: DefaultVoiceTimeout,
		PINPath:      DefaultPINPath,
		FacePath:     DefaultFacePath,
		VoicePath:    DefaultVoicePath,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// WithHTTPClient replaces the HTTP client. Its Jar is cleared so requests
// never carry cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		clone.Jar = nil
		c.httpClient = &clone
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends verification requests. It is safe for concurrent use, though
// the flow never issues overlapping calls.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client, filling zero config values with defaults.
func NewClient(config *ClientConfig, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.VoiceTimeout == 0 {
		cfg.VoiceTimeout = DefaultVoiceTimeout
	}
	if cfg.PINPath == "" {
		cfg.PINPath = DefaultPINPath
	}
	if cfg.FacePath == "" {
		cfg.FacePath = DefaultFacePath
	}
	if cfg.VoicePath == "" {
		cfg.VoicePath = DefaultVoicePath
	}

	c := &Client{
		config: &cfg,
		// Timeouts are applied per request through the context so the voice
		// stage can wait longer than the others.
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.config.BaseURL }

// Endpoint returns the absolute URL bound to stage.
func (c *Client) Endpoint(stage Stage) string {
	switch stage {
	case StagePIN:
		return c.config.BaseURL + c.config.PINPath
	case StageFace:
		return c.config.BaseURL + c.config.FacePath
	default:
		return c.config.BaseURL + c.config.VoicePath
	}
}

func (c *Client) timeout(stage Stage) time.Duration {
	if stage == StageVoice {
		return c.config.VoiceTimeout
	}
	return c.config.Timeout
}

// Verify sends exactly one request for stage and normalizes the answer.
// It never returns an error: every failure is folded into the Outcome.
func (c *Client) Verify(ctx context.Context, stage Stage, payload Payload) Outcome {
	log := c.logger.With(zap.String(logging.FieldStage, stage.String()))

	req, err := c.newRequest(ctx, stage, payload)
	if err != nil {
		log.Error("failed to build verification request", zap.Error(err))
		return unreachable()
	}

	ctx, cancel := context.WithTimeout(req.Context(), c.timeout(stage))
	defer cancel()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("verification service unreachable",
			zap.String("cause", transportCause(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return unreachable()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		log.Warn("verification response truncated", zap.Error(err))
		return unreachable()
	}

	outcome := c.interpret(stage, resp.StatusCode, body)
	log.Info("verification completed",
		zap.Int("status", resp.StatusCode),
		zap.String("reason", outcome.Label()),
		zap.Duration("elapsed", time.Since(start)))
	return outcome
}

func (c *Client) newRequest(ctx context.Context, stage Stage, payload Payload) (*http.Request, error) {
	var body io.Reader
	isJSON := false

	switch stage {
	case StagePIN:
		data, err := json.Marshal(pinRequest{PIN: payload.PIN})
		if err != nil {
			return nil, err
		}
		body, isJSON = bytes.NewReader(data), true
	case StageFace:
		data, err := json.Marshal(faceRequest{Image: payload.Image})
		if err != nil {
			return nil, err
		}
		body, isJSON = bytes.NewReader(data), true
	case StageVoice:
		// The service captures audio itself.
	default:
		return nil, fmt.Errorf("unknown stage %d", stage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(stage), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// interpret turns an HTTP answer into an Outcome.
func (c *Client) interpret(stage Stage, status int, body []byte) Outcome {
	var r response
	decodeErr := json.Unmarshal(body, &r)

	if status < 200 || status > 299 {
		if decodeErr == nil && r.Message != "" {
			return rejection(stage, r.Message, status)
		}
		return rejection(stage, fmt.Sprintf("Server error: %d", status), status)
	}

	if decodeErr != nil {
		return rejection(stage, "Invalid response from server", status)
	}
	if r.Success {
		return Outcome{Accepted: true, Reason: ReasonAccepted, RawMessage: r.Message, Status: status}
	}
	return rejection(stage, r.Message, status)
}

// Ping checks that the service answers at all. Any HTTP status counts as
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", transportCause(err), err)
	}
	resp.Body.Close()
	return nil
}

// transportCause names the kind of transport failure for logs.
func transportCause(err error) string {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "connection_refused"
	case errors.As(err, &urlErr) && urlErr.Timeout():
		return "timeout"
	default:
		return "transport"
	}
}
