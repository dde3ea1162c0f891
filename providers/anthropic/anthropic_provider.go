package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meysamhadeli/codai-studio/providers/contracts"
	"github.com/meysamhadeli/codai-studio/providers/models"
	"go.uber.org/zap"
)

// AnthropicConfig implements the Provider interface for the Anthropic messages API.
type AnthropicConfig struct {
	BaseURL     string
	Model       string
	ApiKey      string
	ApiVersion  string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultApiVersion = "2023-06-01"

	requestTimeout = 60 * time.Second
)

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent covers the typed SSE events of the messages API. Only
// content_block_delta carries text; message_stop ends the stream.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// NewAnthropicChatProvider initializes a new Anthropic provider.
func NewAnthropicChatProvider(config *AnthropicConfig) contracts.IChatAIProvider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.ApiVersion == "" {
		config.ApiVersion = defaultApiVersion
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return config
}

func (anthropicProvider *AnthropicConfig) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	go func() {
		defer close(responseChan)

		if anthropicProvider.ApiKey == "" {
			responseChan <- models.StreamResponse{Err: errors.New("api key is required for the anthropic provider")}
			return
		}

		reqBody := messagesRequest{
			Model:  anthropicProvider.Model,
			System: prompt,
			Messages: []message{
				{Role: "user", Content: userInput},
			},
			Stream:      true,
			Temperature: anthropicProvider.Temperature,
			MaxTokens:   anthropicProvider.MaxTokens,
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %v", err)}
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/messages", anthropicProvider.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error creating request: %v", err)}
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", anthropicProvider.ApiKey)
		req.Header.Set("anthropic-version", anthropicProvider.ApiVersion)

		client := &http.Client{Timeout: requestTimeout}
		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				responseChan <- models.StreamResponse{Err: fmt.Errorf("request canceled: %v", err)}
				return
			}
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error sending request: %v", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			var apiError models.AIError
			if err := json.Unmarshal(body, &apiError); err != nil || apiError.Error.Message == "" {
				responseChan <- models.StreamResponse{Err: fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, string(body))}
				return
			}
			responseChan <- models.StreamResponse{Err: fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, apiError.Error.Message)}
			return
		}

		reader := bufio.NewReader(resp.Body)

		// A final event without a trailing newline arrives together with
		// io.EOF and still has to be decoded.
		for {
			line, readErr := reader.ReadString('\n')
			if readErr != nil && readErr != io.EOF {
				responseChan <- models.StreamResponse{Err: fmt.Errorf("error reading stream: %v", readErr)}
				return
			}

			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "data:") {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

				var event streamEvent
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					anthropicProvider.Logger.Warn("skipping unparsable stream chunk", zap.Error(err))
				} else {
					switch event.Type {
					case "content_block_delta":
						if event.Delta.Text != "" {
							responseChan <- models.StreamResponse{Content: event.Delta.Text}
						}
					case "message_stop":
						responseChan <- models.StreamResponse{Done: true}
						return
					}
				}
			}

			if readErr == io.EOF {
				break
			}
		}

		responseChan <- models.StreamResponse{Done: true}
	}()

	return responseChan
}
