// Package whisper calls an OpenAI-compatible audio transcription endpoint.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/logging"
	providerconfig "github.com/tiger/voice-gateway/internal/runtime/provider/config"
	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
	"github.com/tiger/voice-gateway/providers/common/httpadapter"
)

const ProviderID = "stt-whisper"

type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

type Adapter struct {
	cfg  Config
	http *http.Client
	log  *zap.SugaredLogger
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:   providerconfig.ResolveEnvValue("VGW_STT_WHISPER_API_KEY", "VGW_STT_WHISPER_API_KEY_REF", ""),
		Endpoint: defaultString(os.Getenv("VGW_STT_WHISPER_ENDPOINT"), "https://api.openai.com/v1/audio/transcriptions"),
		Model:    defaultString(os.Getenv("VGW_STT_WHISPER_MODEL"), "whisper-1"),
		Timeout:  15 * time.Second,
	}
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	// The unary transcription call is bounded by the client's own timeout
	// rather than a per-call deadline.
	return &Adapter{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logging.Sugar(),
	}
}

func NewAdapterFromEnv() *Adapter {
	return NewAdapter(ConfigFromEnv())
}

func (a *Adapter) ProviderID() string {
	return ProviderID
}

func (a *Adapter) Modality() contracts.Modality {
	return contracts.ModalitySTT
}

// Transcribe uploads audio bytes and returns the trimmed transcript. Upstream
// failures are logged and normalized to an empty transcript; they never
// propagate as errors. A missing API key is the only error path and is
// reported before any network call.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		return "", contracts.ErrNotConfigured
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename == "" {
		filename = "audio.wav"
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		a.log.Warnw("whisper form build failed", "err", err)
		return "", nil
	}
	if _, err := part.Write(audio); err != nil {
		a.log.Warnw("whisper form build failed", "err", err)
		return "", nil
	}
	if err := writer.WriteField("model", a.cfg.Model); err != nil {
		a.log.Warnw("whisper form build failed", "err", err)
		return "", nil
	}
	if err := writer.Close(); err != nil {
		a.log.Warnw("whisper form build failed", "err", err)
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, body)
	if err != nil {
		a.log.Warnw("whisper request build failed", "err", err)
		return "", nil
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.http.Do(req)
	if err != nil {
		outcome := httpadapter.NormalizeNetworkError(err)
		a.log.Warnw("whisper call failed", "outcome", outcome.Class, "reason", outcome.Reason, "err", err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sample, _, readErr := httpadapter.ReadBodySample(resp.Body, 0)
		if readErr != nil {
			sample = []byte("response unreadable")
		}
		outcome := httpadapter.NormalizeStatus(resp.StatusCode)
		a.log.Warnw("whisper returned non-success status",
			"status", resp.StatusCode, "outcome", outcome.Class, "body", string(sample))
		return "", nil
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		a.log.Warnw("whisper response decode failed", "err", err)
		return "", nil
	}
	return strings.TrimSpace(out.Text), nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
