package polly

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

type fakeSynthClient struct {
	lastInput *polly.SynthesizeSpeechInput
	output    *polly.SynthesizeSpeechOutput
	err       error
}

func (f *fakeSynthClient) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fakeAPIError struct {
	code string
}

func (f *fakeAPIError) Error() string                 { return f.code }
func (f *fakeAPIError) ErrorCode() string             { return f.code }
func (f *fakeAPIError) ErrorMessage() string          { return f.code }
func (f *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func drain(t *testing.T, stream <-chan contracts.AudioChunk) ([]byte, error) {
	t.Helper()
	var data []byte
	var firstErr error
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return data, firstErr
			}
			if chunk.Err != nil && firstErr == nil {
				firstErr = chunk.Err
			}
			data = append(data, chunk.Data...)
		case <-time.After(5 * time.Second):
			t.Fatalf("chunk stream did not close")
		}
	}
}

func TestSynthesizeStreamsAudioBody(t *testing.T) {
	t.Parallel()

	client := &fakeSynthClient{
		output: &polly.SynthesizeSpeechOutput{
			AudioStream: io.NopCloser(bytes.NewReader([]byte{1, 2, 3, 4})),
		},
	}
	adapter := NewAdapterWithClient(Config{VoiceID: "Lupe"}, client)

	stream, err := adapter.Synthesize(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	data, streamErr := drain(t, stream)
	if streamErr != nil {
		t.Fatalf("stream ended with error: %v", streamErr)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Fatalf("audio = %v, want [1 2 3 4]", data)
	}

	if client.lastInput == nil {
		t.Fatalf("client was never invoked")
	}
	if got := *client.lastInput.Text; got != "hola" {
		t.Fatalf("request text = %q, want hola", got)
	}
	if client.lastInput.OutputFormat != pollytypes.OutputFormatPcm {
		t.Fatalf("output format = %v, want pcm", client.lastInput.OutputFormat)
	}
	if client.lastInput.Engine != pollytypes.EngineNeural {
		t.Fatalf("engine = %v, want neural", client.lastInput.Engine)
	}
}

func TestSynthesizeCallError(t *testing.T) {
	t.Parallel()

	client := &fakeSynthClient{err: errors.New("dial tcp: connection refused")}
	adapter := NewAdapterWithClient(Config{}, client)

	_, err := adapter.Synthesize(context.Background(), "hola")
	if err == nil {
		t.Fatalf("expected error for failed synthesis call")
	}
}

func TestSynthesizeEmptyAudioStream(t *testing.T) {
	t.Parallel()

	client := &fakeSynthClient{output: &polly.SynthesizeSpeechOutput{}}
	adapter := NewAdapterWithClient(Config{}, client)

	_, err := adapter.Synthesize(context.Background(), "hola")
	if err == nil {
		t.Fatalf("expected error for missing audio stream")
	}
}

func TestNormalizePollyError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want contracts.OutcomeClass
	}{
		{name: "cancelled", err: context.Canceled, want: contracts.OutcomeCancelled},
		{name: "deadline", err: context.DeadlineExceeded, want: contracts.OutcomeTimeout},
		{name: "throttled", err: &fakeAPIError{code: "TooManyRequestsException"}, want: contracts.OutcomeOverload},
		{name: "client_error", err: &fakeAPIError{code: "TextLengthExceededException"}, want: contracts.OutcomeBlocked},
		{name: "server_error", err: &fakeAPIError{code: "ServiceFailureException"}, want: contracts.OutcomeInfrastructureFailure},
		{name: "transport", err: errors.New("dial tcp: timeout"), want: contracts.OutcomeInfrastructureFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizePollyError(tc.err)
			if got.Class != tc.want {
				t.Fatalf("class = %v, want %v", got.Class, tc.want)
			}
		})
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("VGW_TTS_POLLY_REGION", "")
	t.Setenv("VGW_TTS_POLLY_VOICE", "")
	t.Setenv("AWS_REGION", "")

	cfg := ConfigFromEnv()
	if cfg.Region != "us-east-1" {
		t.Fatalf("Region = %q", cfg.Region)
	}
	if cfg.VoiceID != "Lupe" {
		t.Fatalf("VoiceID = %q", cfg.VoiceID)
	}
	if cfg.Engine != "neural" {
		t.Fatalf("Engine = %q", cfg.Engine)
	}
	if cfg.SampleRate != "16000" {
		t.Fatalf("SampleRate = %q", cfg.SampleRate)
	}
}
