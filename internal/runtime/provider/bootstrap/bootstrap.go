// Package bootstrap assembles the provider catalog from environment
// configuration.
package bootstrap

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
	"github.com/tiger/voice-gateway/internal/runtime/provider/registry"
	"github.com/tiger/voice-gateway/providers/chat/dify"
	"github.com/tiger/voice-gateway/providers/stt/whisper"
	"github.com/tiger/voice-gateway/providers/tts/fishaudio"
	"github.com/tiger/voice-gateway/providers/tts/polly"
)

// BuildProviders constructs every configured adapter. The transcriber and
// chat streamer are fixed; the synthesizer is selected by VGW_TTS_PROVIDER
// (fishaudio by default, amazon-polly as fallback).
func BuildProviders() ([]contracts.Provider, error) {
	providers := []contracts.Provider{
		whisper.NewAdapterFromEnv(),
		dify.NewAdapterFromEnv(),
	}

	selector := strings.TrimSpace(os.Getenv("VGW_TTS_PROVIDER"))
	switch selector {
	case "", "fishaudio":
		providers = append(providers, fishaudio.NewAdapterFromEnv())
	case "amazon-polly":
		providers = append(providers, polly.NewAdapterFromEnv())
	default:
		return nil, fmt.Errorf("unknown tts provider %q", selector)
	}
	return providers, nil
}

// BuildCatalog builds the providers and indexes them by modality.
func BuildCatalog() (registry.Catalog, error) {
	providers, err := BuildProviders()
	if err != nil {
		return registry.Catalog{}, err
	}
	catalog, err := registry.NewCatalog(providers)
	if err != nil {
		return registry.Catalog{}, err
	}
	if err := catalog.ValidateCoverage(); err != nil {
		return registry.Catalog{}, err
	}
	return catalog, nil
}

// Summary renders one line per modality for startup logging.
func Summary(catalog registry.Catalog) string {
	modalities := []contracts.Modality{contracts.ModalitySTT, contracts.ModalityChat, contracts.ModalityTTS}
	lines := make([]string, 0, len(modalities))
	for _, modality := range modalities {
		ids, err := catalog.ProviderIDs(modality)
		if err != nil {
			ids = nil
		}
		sort.Strings(ids)
		lines = append(lines, fmt.Sprintf("%s: %s", modality, strings.Join(ids, ", ")))
	}
	return strings.Join(lines, "\n")
}
