// Package fishaudio bridges text to a live speech-synthesis WebSocket and
// republishes the synthesized audio as an outbound chunk stream.
package fishaudio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/logging"
	providerconfig "github.com/tiger/voice-gateway/internal/runtime/provider/config"
	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

const ProviderID = "tts-fishaudio"

// ErrSynthesisTimeout reports that the safety timer elapsed before the
// backend delivered a terminal event.
var ErrSynthesisTimeout = errors.New("tts synthesis timed out")

type Config struct {
	APIKey      string
	Endpoint    string
	Model       string
	ReferenceID string
	Format      string
	SampleRate  int
	Latency     string
	Timeout     time.Duration
}

type Adapter struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.SugaredLogger
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:      providerconfig.ResolveEnvValue("VGW_TTS_FISHAUDIO_API_KEY", "VGW_TTS_FISHAUDIO_API_KEY_REF", ""),
		Endpoint:    defaultString(os.Getenv("VGW_TTS_FISHAUDIO_ENDPOINT"), "wss://api.fish.audio/v1/tts/live"),
		Model:       defaultString(os.Getenv("VGW_TTS_FISHAUDIO_MODEL"), "s1"),
		ReferenceID: os.Getenv("VGW_TTS_FISHAUDIO_REFERENCE_ID"),
		Format:      "pcm",
		SampleRate:  24000,
		Latency:     "normal",
		Timeout:     20 * time.Second,
	}
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Format == "" {
		cfg.Format = "pcm"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Latency == "" {
		cfg.Latency = "normal"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logging.Sugar(),
	}
}

func NewAdapterFromEnv() *Adapter {
	return NewAdapter(ConfigFromEnv())
}

func (a *Adapter) ProviderID() string {
	return ProviderID
}

func (a *Adapter) Modality() contracts.Modality {
	return contracts.ModalityTTS
}

// Synthesize opens one WebSocket session, pushes the whole text for
// synthesis, and returns a stream of decoded audio chunks. The session owns
// the socket and its safety timer; both are released exactly once whether
// the stream completes, fails, times out, or the caller cancels ctx.
func (a *Adapter) Synthesize(ctx context.Context, text string) (<-chan contracts.AudioChunk, error) {
	if a.cfg.APIKey == "" {
		return nil, contracts.ErrNotConfigured
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	header.Set("model", a.cfg.Model)

	conn, resp, err := a.dialer.DialContext(ctx, a.cfg.Endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("tts socket dial: %w", err)
	}

	if err := a.sendRequestFrames(conn, text); err != nil {
		_ = conn.Close()
		return nil, err
	}

	session := newSession(ctx, conn, a.cfg.Timeout, a.log)
	go session.run()
	return session.chunks, nil
}

// sendRequestFrames pushes the start/text/flush sequence. The trailing space
// on the text payload works around downstream trimming of the final word.
func (a *Adapter) sendRequestFrames(conn *websocket.Conn, text string) error {
	frames := []any{
		startFrame{
			Event: "start",
			Request: startRequest{
				Text:        "",
				Latency:     a.cfg.Latency,
				Format:      a.cfg.Format,
				SampleRate:  a.cfg.SampleRate,
				Model:       a.cfg.Model,
				ReferenceID: a.cfg.ReferenceID,
			},
		},
		textFrame{Event: "text", Text: text + " "},
		flushFrame{Event: "flush"},
	}
	for _, frame := range frames {
		encoded, err := msgpack.Marshal(frame)
		if err != nil {
			return fmt.Errorf("encode tts frame: %w", err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, encoded); err != nil {
			return fmt.Errorf("send tts frame: %w", err)
		}
	}
	return nil
}

func defaultString(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
