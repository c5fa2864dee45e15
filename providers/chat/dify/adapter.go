// Package dify streams chat completions from a Dify-compatible backend and
// aggregates the SSE answer fragments into one response.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/logging"
	providerconfig "github.com/tiger/voice-gateway/internal/runtime/provider/config"
	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
	"github.com/tiger/voice-gateway/providers/common/httpadapter"
	"github.com/tiger/voice-gateway/providers/common/streamsse"
)

const ProviderID = "chat-dify"

type Config struct {
	APIKey   string
	Endpoint string
	User     string
	Timeout  time.Duration
}

type Adapter struct {
	cfg  Config
	http *http.Client
	log  *zap.SugaredLogger
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:   providerconfig.ResolveEnvValue("VGW_CHAT_DIFY_API_KEY", "VGW_CHAT_DIFY_API_KEY_REF", ""),
		Endpoint: defaultString(os.Getenv("VGW_CHAT_DIFY_ENDPOINT"), "https://api.dify.ai/v1/chat-messages"),
		User:     defaultString(os.Getenv("VGW_CHAT_DIFY_USER"), "vozai-user"),
		Timeout:  30 * time.Second,
	}
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	// The timeout bounds connection and response headers only. The SSE body
	// may stream for an arbitrarily long time; it ends with the stream or
	// with caller cancellation, never with a deadline of this adapter's.
	return &Adapter{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
		},
		log: logging.Sugar(),
	}
}

func NewAdapterFromEnv() *Adapter {
	return NewAdapter(ConfigFromEnv())
}

func (a *Adapter) ProviderID() string {
	return ProviderID
}

func (a *Adapter) Modality() contracts.Modality {
	return contracts.ModalityChat
}

type chatRequest struct {
	Query          string         `json:"query"`
	Inputs         map[string]any `json:"inputs"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID string         `json:"conversation_id"`
}

// StreamAnswer issues one streaming chat request and folds the SSE fragments
// into an aggregated answer. The backend always starts a fresh conversation;
// prior history is accepted for request-shape compatibility but the wire
// contract carries only the query.
func (a *Adapter) StreamAnswer(ctx context.Context, query string, history []contracts.Turn) (contracts.Answer, error) {
	if a.cfg.APIKey == "" {
		return contracts.Answer{}, contracts.ErrNotConfigured
	}

	payload := chatRequest{
		Query:          query,
		Inputs:         map[string]any{},
		ResponseMode:   "streaming",
		User:           a.cfg.User,
		ConversationID: "",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return contracts.Answer{}, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return contracts.Answer{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	if len(history) > 0 {
		a.log.Debugw("chat request starts a new conversation", "history_turns", len(history))
	}

	resp, err := a.http.Do(req)
	if err != nil {
		outcome := httpadapter.NormalizeNetworkError(err)
		a.log.Warnw("chat call failed", "outcome", outcome.Class, "reason", outcome.Reason, "err", err)
		return contracts.Answer{}, fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sample, _, readErr := httpadapter.ReadBodySample(resp.Body, 0)
		if readErr != nil {
			sample = []byte("response unreadable")
		}
		outcome := httpadapter.NormalizeStatus(resp.StatusCode)
		a.log.Warnw("chat backend returned non-success status",
			"status", resp.StatusCode, "outcome", outcome.Class, "body", string(sample))
		return contracts.Answer{}, fmt.Errorf("chat backend status %d", resp.StatusCode)
	}

	aggregator := &Aggregator{}
	err = streamsse.Parse(resp.Body, func(ev streamsse.Event) error {
		aggregator.Apply(ev.Data)
		if aggregator.Done() {
			return streamsse.ErrStop
		}
		return nil
	})
	if err != nil {
		// A broken stream converges with natural end-of-stream: keep
		// whatever was aggregated and let the caller judge emptiness.
		a.log.Warnw("chat stream ended abnormally", "err", err)
	}
	return aggregator.Answer(), nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
