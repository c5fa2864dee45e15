package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Modality defines provider families supported by the gateway pipeline.
type Modality string

const (
	ModalitySTT  Modality = "stt"
	ModalityChat Modality = "chat"
	ModalityTTS  Modality = "tts"
)

// Validate enforces supported provider modality values.
func (m Modality) Validate() error {
	switch m {
	case ModalitySTT, ModalityChat, ModalityTTS:
		return nil
	default:
		return fmt.Errorf("unsupported modality: %q", m)
	}
}

// OutcomeClass is the normalized invocation-outcome taxonomy.
type OutcomeClass string

const (
	OutcomeSuccess               OutcomeClass = "success"
	OutcomeTimeout               OutcomeClass = "timeout"
	OutcomeOverload              OutcomeClass = "overload"
	OutcomeBlocked               OutcomeClass = "blocked"
	OutcomeInfrastructureFailure OutcomeClass = "infrastructure_failure"
	OutcomeCancelled             OutcomeClass = "cancelled"
)

// Validate enforces supported outcome classes.
func (o OutcomeClass) Validate() error {
	switch o {
	case OutcomeSuccess, OutcomeTimeout, OutcomeOverload, OutcomeBlocked, OutcomeInfrastructureFailure, OutcomeCancelled:
		return nil
	default:
		return fmt.Errorf("unsupported outcome_class: %q", o)
	}
}

// Outcome is an adapter-normalized upstream call result.
type Outcome struct {
	Class      OutcomeClass
	Retryable  bool
	Reason     string
	StatusCode int
}

// Validate enforces normalized outcome invariants.
func (o Outcome) Validate() error {
	if err := o.Class.Validate(); err != nil {
		return err
	}
	if o.Class != OutcomeSuccess && o.Reason == "" {
		return fmt.Errorf("reason is required for non-success outcomes")
	}
	return nil
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate enforces supported conversation roles.
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unsupported role: %q", r)
	}
}

// Turn is one prior conversation exchange supplied by the caller.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate enforces turn invariants.
func (t Turn) Validate() error {
	if err := t.Role.Validate(); err != nil {
		return err
	}
	if t.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// Answer is the aggregated chat backend response for one request.
type Answer struct {
	Text           string
	ConversationID string
}

// Empty reports whether no usable answer text was produced.
func (a Answer) Empty() bool {
	return strings.TrimSpace(a.Text) == ""
}

// AudioChunk is one element of an outbound synthesized-audio stream. A chunk
// with a non-nil Err terminates the stream; the channel closes afterwards.
type AudioChunk struct {
	Data []byte
	Err  error
}

// ErrNotConfigured marks a provider whose required credentials are absent.
// The pipeline surfaces it before any upstream call for that stage.
var ErrNotConfigured = errors.New("provider not configured")

// Provider is the identity shared by all stage adapters.
type Provider interface {
	ProviderID() string
	Modality() Modality
}

// Transcriber resolves audio bytes into plain text. Upstream failures are
// absorbed and logged by implementations; an empty transcript with a nil
// error means no usable text was produced.
type Transcriber interface {
	Provider
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ChatStreamer issues one streaming chat request and aggregates the answer.
type ChatStreamer interface {
	Provider
	StreamAnswer(ctx context.Context, query string, history []Turn) (Answer, error)
}

// Synthesizer converts text into a stream of audio chunks. The returned
// channel is single-pass; consumers cancel by cancelling ctx.
type Synthesizer interface {
	Provider
	Synthesize(ctx context.Context, text string) (<-chan AudioChunk, error)
}

// StaticTranscriber is a small utility adapter for tests and static catalogs.
type StaticTranscriber struct {
	ID           string
	TranscribeFn func(ctx context.Context, audio []byte, filename string) (string, error)
}

func (s StaticTranscriber) ProviderID() string { return s.ID }

func (s StaticTranscriber) Modality() Modality { return ModalitySTT }

func (s StaticTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.TranscribeFn != nil {
		return s.TranscribeFn(ctx, audio, filename)
	}
	return "", nil
}

// StaticChatStreamer is a test utility implementing ChatStreamer.
type StaticChatStreamer struct {
	ID       string
	StreamFn func(ctx context.Context, query string, history []Turn) (Answer, error)
}

func (s StaticChatStreamer) ProviderID() string { return s.ID }

func (s StaticChatStreamer) Modality() Modality { return ModalityChat }

func (s StaticChatStreamer) StreamAnswer(ctx context.Context, query string, history []Turn) (Answer, error) {
	if s.StreamFn != nil {
		return s.StreamFn(ctx, query, history)
	}
	return Answer{}, nil
}

// StaticSynthesizer is a test utility implementing Synthesizer.
type StaticSynthesizer struct {
	ID           string
	SynthesizeFn func(ctx context.Context, text string) (<-chan AudioChunk, error)
}

func (s StaticSynthesizer) ProviderID() string { return s.ID }

func (s StaticSynthesizer) Modality() Modality { return ModalityTTS }

func (s StaticSynthesizer) Synthesize(ctx context.Context, text string) (<-chan AudioChunk, error) {
	if s.SynthesizeFn != nil {
		return s.SynthesizeFn(ctx, text)
	}
	out := make(chan AudioChunk)
	close(out)
	return out, nil
}
