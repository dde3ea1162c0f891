package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meysamhadeli/codai-studio/providers/anthropic"
	"github.com/meysamhadeli/codai-studio/providers/contracts"
	"github.com/meysamhadeli/codai-studio/providers/deepseek"
	"github.com/meysamhadeli/codai-studio/providers/ollama"
	"github.com/meysamhadeli/codai-studio/providers/openai"
	contracts2 "github.com/meysamhadeli/codai-studio/token_management/contracts"
	"go.uber.org/zap"
)

// adapterFactory builds the wire adapter for one provider. Adding a provider
// means adding one entry here plus its package, nothing else.
type adapterFactory func(config ProviderConfig, model string, tokenManagement contracts2.ITokenManagement, logger *zap.Logger) contracts.IChatAIProvider

var adapterFactories = map[string]adapterFactory{
	"ollama": func(config ProviderConfig, model string, tokenManagement contracts2.ITokenManagement, logger *zap.Logger) contracts.IChatAIProvider {
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           model,
			TokenManagement: tokenManagement,
			Logger:          logger,
		})
	},
	"openai": func(config ProviderConfig, model string, _ contracts2.ITokenManagement, logger *zap.Logger) contracts.IChatAIProvider {
		return openai.NewOpenAIChatProvider(&openai.OpenAIConfig{
			BaseURL: config.BaseURL,
			Model:   model,
			ApiKey:  config.ApiKey,
			Logger:  logger,
		})
	},
	"deepseek": func(config ProviderConfig, model string, _ contracts2.ITokenManagement, logger *zap.Logger) contracts.IChatAIProvider {
		return deepseek.NewDeepSeekChatProvider(&deepseek.DeepSeekConfig{
			BaseURL: config.BaseURL,
			Model:   model,
			ApiKey:  config.ApiKey,
			Logger:  logger,
		})
	},
	"anthropic": func(config ProviderConfig, model string, _ contracts2.ITokenManagement, logger *zap.Logger) contracts.IChatAIProvider {
		return anthropic.NewAnthropicChatProvider(&anthropic.AnthropicConfig{
			BaseURL: config.BaseURL,
			Model:   model,
			ApiKey:  config.ApiKey,
			Logger:  logger,
		})
	},
}

// hostedProviders require a credential before any network call is made.
var hostedProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"deepseek":  true,
}

// NewChatProvider returns the wire adapter for the given provider record.
func NewChatProvider(config ProviderConfig, model string, tokenManagement contracts2.ITokenManagement, logger *zap.Logger) (contracts.IChatAIProvider, error) {
	factory, ok := adapterFactories[config.Name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider '%s'", config.Name)
	}
	if hostedProviders[config.Name] && config.ApiKey == "" {
		return nil, fmt.Errorf("api key is required for the %s provider", config.Name)
	}
	return factory(config, model, tokenManagement, logger), nil
}

// Dispatcher resolves the active provider and runs streaming completions
// against it.
type Dispatcher struct {
	Registry        *Registry
	TokenManagement contracts2.ITokenManagement
	Logger          *zap.Logger
}

// NewDispatcher creates a dispatcher bound to a registry.
func NewDispatcher(registry *Registry, tokenManagement contracts2.ITokenManagement, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		Registry:        registry,
		TokenManagement: tokenManagement,
		Logger:          logger,
	}
}

// ChatStream sends the prompt to the active provider and returns the final
// accumulated text. onDelta, when set, receives the full accumulated text
// after every decoded delta, in wire order.
//
// Configuration problems (no active provider, missing credential, unknown
// provider) are returned as errors before any network activity. Transport
// failures mid-flight are converted into a descriptive text result so callers
// never need to handle an error from that layer.
func (d *Dispatcher) ChatStream(ctx context.Context, userInput string, prompt string, model string, onDelta func(accumulated string)) (string, error) {
	active, ok := d.Registry.Active()
	if !ok {
		return "", errors.New("no active AI provider is configured")
	}

	if model == "" {
		if len(active.Models) == 0 {
			return "", fmt.Errorf("provider '%s' has no models configured", active.Name)
		}
		model = active.Models[0].ID
	}

	provider, err := NewChatProvider(active, model, d.TokenManagement, d.Logger)
	if err != nil {
		return "", err
	}

	var accumulated strings.Builder

	responseChan := provider.ChatCompletionRequest(ctx, userInput, prompt)
	for response := range responseChan {
		if response.Err != nil {
			d.Logger.Warn("chat stream failed",
				zap.String("provider", active.Name),
				zap.String("model", model),
				zap.Error(response.Err))
			if accumulated.Len() > 0 {
				return accumulated.String(), nil
			}
			return fmt.Sprintf("The AI request could not be completed: %v", response.Err), nil
		}

		if response.Content != "" {
			accumulated.WriteString(response.Content)
			if onDelta != nil {
				onDelta(accumulated.String())
			}
		}

		if response.Done {
			break
		}
	}

	return accumulated.String(), nil
}
