// Package polly synthesizes speech through Amazon Polly. It is the fallback
// when no live synthesis socket is configured.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/tiger/voice-gateway/internal/logging"
	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

const ProviderID = "tts-amazon-polly"

// chunkSize is the read granularity for relaying the Polly audio stream.
const chunkSize = 32 * 1024

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type Config struct {
	Region     string
	VoiceID    string
	Engine     string
	SampleRate string
	Timeout    time.Duration
}

type Adapter struct {
	mu     sync.Mutex
	client synthClient
	cfg    Config
	log    *zap.SugaredLogger
}

func ConfigFromEnv() Config {
	return Config{
		Region:     defaultString(os.Getenv("VGW_TTS_POLLY_REGION"), defaultString(os.Getenv("AWS_REGION"), "us-east-1")),
		VoiceID:    defaultString(os.Getenv("VGW_TTS_POLLY_VOICE"), "Lupe"),
		Engine:     defaultString(os.Getenv("VGW_TTS_POLLY_ENGINE"), "neural"),
		SampleRate: defaultString(os.Getenv("VGW_TTS_POLLY_SAMPLE_RATE"), "16000"),
		Timeout:    15 * time.Second,
	}
}

func NewAdapter(cfg Config) *Adapter {
	return NewAdapterWithClient(cfg, nil)
}

func NewAdapterWithClient(cfg Config, client synthClient) *Adapter {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Lupe"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	if strings.TrimSpace(cfg.SampleRate) == "" {
		cfg.SampleRate = "16000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Adapter{client: client, cfg: cfg, log: logging.Sugar()}
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

// Synthesize issues one SynthesizeSpeech call and relays the returned audio
// body on the chunk stream.
func (a *Adapter) Synthesize(ctx context.Context, text string) (<-chan contracts.AudioChunk, error) {
	client, err := a.resolveClient()
	if err != nil {
		return nil, err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(a.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	output, err := client.SynthesizeSpeech(callCtx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatPcm,
		SampleRate:   &a.cfg.SampleRate,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(a.cfg.VoiceID),
	})
	if err != nil {
		cancel()
		outcome := normalizePollyError(err)
		a.log.Warnw("polly synthesis failed", "provider", ProviderID, "class", outcome.Class, "reason", outcome.Reason)
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	if output == nil || output.AudioStream == nil {
		cancel()
		return nil, errors.New("polly synthesize: empty audio stream")
	}

	chunks := make(chan contracts.AudioChunk, 4)
	go func() {
		defer close(chunks)
		defer cancel()
		defer output.AudioStream.Close()

		for {
			buf := make([]byte, chunkSize)
			n, err := output.AudioStream.Read(buf)
			if n > 0 {
				select {
				case chunks <- contracts.AudioChunk{Data: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					select {
					case chunks <- contracts.AudioChunk{Err: fmt.Errorf("polly audio stream: %w", err)}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()
	return chunks, nil
}

func normalizePollyError(err error) contracts.Outcome {
	if errors.Is(err, context.Canceled) {
		return contracts.Outcome{Class: contracts.OutcomeCancelled, Retryable: false, Reason: "provider_cancelled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.Outcome{Class: contracts.OutcomeTimeout, Retryable: true, Reason: "provider_timeout"}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException":
			return contracts.Outcome{Class: contracts.OutcomeOverload, Retryable: true, Reason: "provider_overload"}
		case "InvalidSsmlException", "TextLengthExceededException", "LexiconNotFoundException", "MarksNotSupportedForFormatException", "InvalidSampleRateException":
			return contracts.Outcome{Class: contracts.OutcomeBlocked, Retryable: false, Reason: "provider_client_error"}
		default:
			return contracts.Outcome{Class: contracts.OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_server_error"}
		}
	}

	return contracts.Outcome{Class: contracts.OutcomeInfrastructureFailure, Retryable: true, Reason: "provider_transport_error"}
}

func defaultString(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func (a *Adapter) resolveClient() (synthClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(a.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	a.client = polly.NewFromConfig(awsCfg)
	return a.client, nil
}
