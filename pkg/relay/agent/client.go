// Package agent calls the external reasoning backend that turns caller
// utterances into spoken replies. Every failure mode at this boundary is
// converted into fixed fallback text: a degraded spoken reply is always
// preferable to silence or a dropped call.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// FallbackApology is spoken when the backend cannot be reached or
	// returns garbage.
	FallbackApology = "I'm sorry, I'm having trouble answering right now. Could you say that again in a moment?"

	// FallbackNoAnswer is spoken when the backend answered but produced no
	// usable reply text.
	FallbackNoAnswer = "I'm sorry, I didn't quite catch that. Could you rephrase?"

	defaultTimeout = 15 * time.Second

	maxResponseBytes = 1 << 20
)

// Asker is the slice of the client the session state machine depends on.
type Asker interface {
	Ask(ctx context.Context, utterance string) string
}

type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   strings.TrimSpace(opts.Endpoint),
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

type askRequest struct {
	InputValue string `json:"input_value"`
	OutputType string `json:"output_type"`
	InputType  string `json:"input_type"`
}

// askResponse mirrors the nested result shape the backend populates on
// success, plus the top-level message some deployments return instead.
type askResponse struct {
	Outputs []struct {
		Outputs []struct {
			Results struct {
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
			} `json:"results"`
		} `json:"outputs"`
	} `json:"outputs"`
	Message string `json:"message"`
}

// Ask sends one utterance to the backend and returns the text to speak. It
// never returns an error: transport failures, bad status codes, malformed
// bodies, and missing configuration all collapse into fallback text. The call
// is bounded by the configured timeout so a hung backend cannot starve a
// session.
func (c *Client) Ask(ctx context.Context, utterance string) string {
	if c.endpoint == "" {
		c.logger.Error("agent endpoint not configured")
		return FallbackApology
	}

	body, err := json.Marshal(askRequest{
		InputValue: utterance,
		OutputType: "chat",
		InputType:  "chat",
	})
	if err != nil {
		c.logger.Error("agent request encode failed", "error", err)
		return FallbackApology
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("agent request build failed", "error", err)
		return FallbackApology
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("agent request failed", "error", err)
		return FallbackApology
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("agent returned error status", "status", resp.StatusCode)
		return FallbackApology
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn("agent response read failed", "error", err)
		return FallbackApology
	}

	var decoded askResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.logger.Warn("agent response decode failed", "error", err)
		return FallbackApology
	}

	return normalizeReply(decoded)
}

// normalizeReply extracts reply text from the first nested result path, then
// the top-level message field, then falls back to fixed text.
func normalizeReply(resp askResponse) string {
	if len(resp.Outputs) > 0 && len(resp.Outputs[0].Outputs) > 0 {
		if text := resp.Outputs[0].Outputs[0].Results.Message.Text; strings.TrimSpace(text) != "" {
			return text
		}
	}
	if strings.TrimSpace(resp.Message) != "" {
		return resp.Message
	}
	return FallbackNoAnswer
}
