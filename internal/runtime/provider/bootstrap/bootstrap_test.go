package bootstrap

import (
	"strings"
	"testing"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

func TestBuildCatalogDefaultSynthesizer(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "")

	catalog, err := BuildCatalog()
	if err != nil {
		t.Fatalf("BuildCatalog returned error: %v", err)
	}
	ids, err := catalog.ProviderIDs(contracts.ModalityTTS)
	if err != nil {
		t.Fatalf("ProviderIDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "tts-fishaudio" {
		t.Fatalf("tts providers = %v, want [tts-fishaudio]", ids)
	}
	if got, _ := catalog.ProviderIDs(contracts.ModalitySTT); len(got) != 1 || got[0] != "stt-whisper" {
		t.Fatalf("stt providers = %v, want [stt-whisper]", got)
	}
	if got, _ := catalog.ProviderIDs(contracts.ModalityChat); len(got) != 1 || got[0] != "chat-dify" {
		t.Fatalf("chat providers = %v, want [chat-dify]", got)
	}
}

func TestBuildCatalogPollySynthesizer(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "amazon-polly")

	catalog, err := BuildCatalog()
	if err != nil {
		t.Fatalf("BuildCatalog returned error: %v", err)
	}
	ids, err := catalog.ProviderIDs(contracts.ModalityTTS)
	if err != nil {
		t.Fatalf("ProviderIDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "tts-amazon-polly" {
		t.Fatalf("tts providers = %v, want [tts-amazon-polly]", ids)
	}
}

func TestBuildProvidersUnknownSynthesizer(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "espeak")

	if _, err := BuildProviders(); err == nil {
		t.Fatalf("expected error for unknown tts provider")
	}
}

func TestSummaryListsEveryModality(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "")

	catalog, err := BuildCatalog()
	if err != nil {
		t.Fatalf("BuildCatalog returned error: %v", err)
	}
	summary := Summary(catalog)
	for _, want := range []string{"stt: stt-whisper", "chat: chat-dify", "tts: tts-fishaudio"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}
