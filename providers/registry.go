package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ModelPricing holds per-million-token prices in dollars.
type ModelPricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// ModelInfo describes one entry of a provider's static model catalog.
type ModelInfo struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Size          string        `json:"size,omitempty"`
	ContextLength int           `json:"context_length,omitempty"`
	Pricing       *ModelPricing `json:"pricing,omitempty"`
}

// ProviderConfig is the persisted configuration of one AI provider.
// At most one provider carries Enabled=true at a time.
type ProviderConfig struct {
	Name    string      `json:"name"`
	BaseURL string      `json:"base_url"`
	ApiKey  string      `json:"api_key,omitempty"`
	Models  []ModelInfo `json:"models"`
	Enabled bool        `json:"enabled"`
}

// Registry owns the provider catalog: built-in defaults overlaid with the
// user's persisted edits, plus the active-provider selection.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*ProviderConfig
	order     []string
	path      string
	logger    *zap.Logger
}

// defaultProviders returns the built-in provider definitions. New entries
// added here show up for existing users on the next load, because the
// persisted file is merged over these rather than replacing them.
func defaultProviders() []*ProviderConfig {
	return []*ProviderConfig{
		{
			Name:    "ollama",
			BaseURL: "http://localhost:11434/api",
			Enabled: true,
			Models: []ModelInfo{
				{ID: "llama3.1", Name: "Llama 3.1", Size: "8B", ContextLength: 131072},
				{ID: "qwen2.5-coder", Name: "Qwen 2.5 Coder", Size: "7B", ContextLength: 32768},
				{ID: "deepseek-coder-v2", Name: "DeepSeek Coder V2", Size: "16B", ContextLength: 163840},
			},
		},
		{
			Name:    "openai",
			BaseURL: "https://api.openai.com/v1",
			Models: []ModelInfo{
				{ID: "gpt-4o", Name: "GPT-4o", ContextLength: 128000, Pricing: &ModelPricing{InputPerMillion: 2.5, OutputPerMillion: 10}},
				{ID: "gpt-4o-mini", Name: "GPT-4o mini", ContextLength: 128000, Pricing: &ModelPricing{InputPerMillion: 0.15, OutputPerMillion: 0.6}},
			},
		},
		{
			Name:    "anthropic",
			BaseURL: "https://api.anthropic.com",
			Models: []ModelInfo{
				{ID: "claude-3-5-sonnet-latest", Name: "Claude 3.5 Sonnet", ContextLength: 200000, Pricing: &ModelPricing{InputPerMillion: 3, OutputPerMillion: 15}},
				{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", ContextLength: 200000, Pricing: &ModelPricing{InputPerMillion: 0.8, OutputPerMillion: 4}},
			},
		},
		{
			Name:    "deepseek",
			BaseURL: "https://api.deepseek.com",
			Models: []ModelInfo{
				{ID: "deepseek-chat", Name: "DeepSeek Chat", ContextLength: 65536, Pricing: &ModelPricing{InputPerMillion: 0.27, OutputPerMillion: 1.1}},
				{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", ContextLength: 65536, Pricing: &ModelPricing{InputPerMillion: 0.55, OutputPerMillion: 2.19}},
			},
		},
	}
}

// NewRegistry loads the registry from the persistence file at path, merging
// any persisted records over the built-in defaults. A missing or unreadable
// file yields the defaults untouched.
func NewRegistry(path string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := &Registry{
		providers: make(map[string]*ProviderConfig),
		path:      path,
		logger:    logger,
	}

	persisted := registry.readPersisted()

	for _, def := range defaultProviders() {
		merged := *def
		if raw, ok := persisted[def.Name]; ok {
			// Unmarshalling the persisted record onto a copy of the default
			// overrides exactly the fields the user saved.
			if err := json.Unmarshal(raw, &merged); err != nil {
				logger.Warn("ignoring malformed persisted provider record",
					zap.String("provider", def.Name), zap.Error(err))
				merged = *def
			}
		}
		registry.providers[merged.Name] = &merged
		registry.order = append(registry.order, merged.Name)
	}

	// Keep user-defined providers that have no built-in counterpart.
	for name, raw := range persisted {
		if _, exists := registry.providers[name]; exists {
			continue
		}
		var custom ProviderConfig
		if err := json.Unmarshal(raw, &custom); err != nil {
			logger.Warn("ignoring malformed persisted provider record",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		custom.Name = name
		registry.providers[name] = &custom
		registry.order = append(registry.order, name)
	}

	registry.enforceSingleActive()

	return registry
}

// readPersisted loads the raw persisted provider records keyed by name.
func (r *Registry) readPersisted() map[string]json.RawMessage {
	persisted := make(map[string]json.RawMessage)
	if r.path == "" {
		return persisted
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("failed to read providers file", zap.String("path", r.path), zap.Error(err))
		}
		return persisted
	}

	if err := json.Unmarshal(data, &persisted); err != nil {
		r.logger.Warn("failed to parse providers file", zap.String("path", r.path), zap.Error(err))
		return make(map[string]json.RawMessage)
	}

	return persisted
}

// enforceSingleActive keeps at most one provider enabled, first wins.
func (r *Registry) enforceSingleActive() {
	found := false
	for _, name := range r.order {
		provider := r.providers[name]
		if provider.Enabled {
			if found {
				provider.Enabled = false
			}
			found = true
		}
	}
}

// List returns all providers in registration order.
func (r *Registry) List() []ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProviderConfig, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, *r.providers[name])
	}
	return result
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return ProviderConfig{}, false
	}
	return *provider, true
}

// Active returns the single enabled provider, if any.
func (r *Registry) Active() (ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.providers[name].Enabled {
			return *r.providers[name], true
		}
	}
	return ProviderConfig{}, false
}

// ActiveModels returns the model catalog of the active provider.
func (r *Registry) ActiveModels() []ModelInfo {
	active, ok := r.Active()
	if !ok {
		return nil
	}
	return active.Models
}

// SetActiveProvider enables the named provider, disables every other one and
// persists the result.
func (r *Registry) SetActiveProvider(name string) error {
	r.mu.Lock()

	target, ok := r.providers[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown provider '%s'", name)
	}

	for _, provider := range r.providers {
		provider.Enabled = false
	}
	target.Enabled = true

	r.mu.Unlock()

	return r.Save()
}

// Update replaces the stored configuration for one provider and persists it.
func (r *Registry) Update(config ProviderConfig) error {
	r.mu.Lock()

	existing, ok := r.providers[config.Name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown provider '%s'", config.Name)
	}
	*existing = config

	r.mu.Unlock()

	if config.Enabled {
		return r.SetActiveProvider(config.Name)
	}
	return r.Save()
}

// Save writes all provider records to the persistence file keyed by name.
func (r *Registry) Save() error {
	r.mu.RLock()
	records := make(map[string]*ProviderConfig, len(r.providers))
	for name, provider := range r.providers {
		records[name] = provider
	}
	data, err := json.MarshalIndent(records, "", "  ")
	r.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal providers: %w", err)
	}

	if r.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create providers directory: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write providers file: %w", err)
	}

	return nil
}
