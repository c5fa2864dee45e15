package registry

import (
	"fmt"
	"sort"

	"github.com/tiger/voice-gateway/internal/runtime/provider/contracts"
)

// Catalog stores deterministic provider adapters by modality.
type Catalog struct {
	providers map[contracts.Modality]map[string]contracts.Provider
	ordered   map[contracts.Modality][]string
}

// NewCatalog creates a deterministic provider catalog. Every registered
// provider must carry a valid modality and a unique id within it.
func NewCatalog(providers []contracts.Provider) (Catalog, error) {
	catalog := Catalog{
		providers: make(map[contracts.Modality]map[string]contracts.Provider),
		ordered:   make(map[contracts.Modality][]string),
	}

	for _, modality := range []contracts.Modality{contracts.ModalitySTT, contracts.ModalityChat, contracts.ModalityTTS} {
		catalog.providers[modality] = make(map[string]contracts.Provider)
	}

	for _, provider := range providers {
		if provider == nil {
			return Catalog{}, fmt.Errorf("provider cannot be nil")
		}
		modality := provider.Modality()
		if err := modality.Validate(); err != nil {
			return Catalog{}, err
		}
		providerID := provider.ProviderID()
		if providerID == "" {
			return Catalog{}, fmt.Errorf("provider_id is required")
		}
		if _, exists := catalog.providers[modality][providerID]; exists {
			return Catalog{}, fmt.Errorf("duplicate provider_id %q for modality %q", providerID, modality)
		}
		catalog.providers[modality][providerID] = provider
	}

	for modality, byID := range catalog.providers {
		ids := make([]string, 0, len(byID))
		for providerID := range byID {
			ids = append(ids, providerID)
		}
		sort.Strings(ids)
		catalog.ordered[modality] = ids
	}

	return catalog, nil
}

// Provider returns a single provider by modality/provider pair.
func (c Catalog) Provider(modality contracts.Modality, providerID string) (contracts.Provider, bool) {
	byID, ok := c.providers[modality]
	if !ok {
		return nil, false
	}
	provider, exists := byID[providerID]
	return provider, exists
}

// ProviderIDs returns deterministic provider ids for a modality.
func (c Catalog) ProviderIDs(modality contracts.Modality) ([]string, error) {
	if err := modality.Validate(); err != nil {
		return nil, err
	}
	ids, ok := c.ordered[modality]
	if !ok || len(ids) == 0 {
		return nil, fmt.Errorf("no providers registered for modality %q", modality)
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Transcriber resolves the stage adapter for the stt modality. An empty
// preferred id selects the first registered provider.
func (c Catalog) Transcriber(preferred string) (contracts.Transcriber, error) {
	provider, err := c.resolve(contracts.ModalitySTT, preferred)
	if err != nil {
		return nil, err
	}
	transcriber, ok := provider.(contracts.Transcriber)
	if !ok {
		return nil, fmt.Errorf("provider %q does not implement Transcriber", provider.ProviderID())
	}
	return transcriber, nil
}

// ChatStreamer resolves the stage adapter for the chat modality.
func (c Catalog) ChatStreamer(preferred string) (contracts.ChatStreamer, error) {
	provider, err := c.resolve(contracts.ModalityChat, preferred)
	if err != nil {
		return nil, err
	}
	streamer, ok := provider.(contracts.ChatStreamer)
	if !ok {
		return nil, fmt.Errorf("provider %q does not implement ChatStreamer", provider.ProviderID())
	}
	return streamer, nil
}

// Synthesizer resolves the stage adapter for the tts modality.
func (c Catalog) Synthesizer(preferred string) (contracts.Synthesizer, error) {
	provider, err := c.resolve(contracts.ModalityTTS, preferred)
	if err != nil {
		return nil, err
	}
	synth, ok := provider.(contracts.Synthesizer)
	if !ok {
		return nil, fmt.Errorf("provider %q does not implement Synthesizer", provider.ProviderID())
	}
	return synth, nil
}

func (c Catalog) resolve(modality contracts.Modality, preferred string) (contracts.Provider, error) {
	ids, ok := c.ordered[modality]
	if !ok || len(ids) == 0 {
		return nil, fmt.Errorf("no providers registered for modality %q", modality)
	}
	if preferred == "" {
		return c.providers[modality][ids[0]], nil
	}
	provider, exists := c.providers[modality][preferred]
	if !exists {
		return nil, fmt.Errorf("provider %q is not registered for modality %q", preferred, modality)
	}
	return provider, nil
}

// ValidateCoverage enforces that every pipeline stage has at least one provider.
func (c Catalog) ValidateCoverage() error {
	for _, modality := range []contracts.Modality{contracts.ModalitySTT, contracts.ModalityChat, contracts.ModalityTTS} {
		if len(c.providers[modality]) == 0 {
			return fmt.Errorf("modality %q requires at least one provider", modality)
		}
	}
	return nil
}
