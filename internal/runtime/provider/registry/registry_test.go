package registry

import (
	"strings"
	"testing"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

func testProviders() []contracts.Provider {
	return []contracts.Provider{
		contracts.StaticTranscriber{ID: "stt-whisper"},
		contracts.StaticChatStreamer{ID: "chat-dify"},
		contracts.StaticSynthesizer{ID: "tts-fishaudio"},
		contracts.StaticSynthesizer{ID: "tts-amazon-polly"},
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog([]contracts.Provider{
		contracts.StaticSynthesizer{ID: "tts-fishaudio"},
		contracts.StaticSynthesizer{ID: "tts-fishaudio"},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate provider_id") {
		t.Fatalf("expected duplicate provider error, got %v", err)
	}
}

func TestNewCatalogRejectsNilAndEmptyID(t *testing.T) {
	t.Parallel()

	if _, err := NewCatalog([]contracts.Provider{nil}); err == nil {
		t.Fatalf("expected nil provider error")
	}
	if _, err := NewCatalog([]contracts.Provider{contracts.StaticTranscriber{}}); err == nil {
		t.Fatalf("expected empty provider_id error")
	}
}

func TestProviderIDsAreOrdered(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(testProviders())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	ids, err := catalog.ProviderIDs(contracts.ModalityTTS)
	if err != nil {
		t.Fatalf("provider ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "tts-amazon-polly" || ids[1] != "tts-fishaudio" {
		t.Fatalf("unexpected ordering: %v", ids)
	}
}

func TestTypedStageResolution(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(testProviders())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	transcriber, err := catalog.Transcriber("")
	if err != nil {
		t.Fatalf("resolve transcriber: %v", err)
	}
	if transcriber.ProviderID() != "stt-whisper" {
		t.Fatalf("unexpected transcriber %q", transcriber.ProviderID())
	}

	synth, err := catalog.Synthesizer("tts-fishaudio")
	if err != nil {
		t.Fatalf("resolve synthesizer: %v", err)
	}
	if synth.ProviderID() != "tts-fishaudio" {
		t.Fatalf("unexpected synthesizer %q", synth.ProviderID())
	}

	if _, err := catalog.Synthesizer("tts-unknown"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	if _, err := catalog.ChatStreamer("stt-whisper"); err == nil {
		t.Fatalf("expected modality mismatch error")
	}
}

func TestValidateCoverage(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(testProviders())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if err := catalog.ValidateCoverage(); err != nil {
		t.Fatalf("expected full coverage, got %v", err)
	}

	partial, err := NewCatalog([]contracts.Provider{contracts.StaticTranscriber{ID: "stt-whisper"}})
	if err != nil {
		t.Fatalf("new partial catalog: %v", err)
	}
	if err := partial.ValidateCoverage(); err == nil {
		t.Fatalf("expected coverage error for missing modalities")
	}
}
