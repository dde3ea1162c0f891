package openai

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

// OpenAIConfig implements the Provider interface for the OpenAI chat completions API.
type OpenAIConfig struct {
	BaseURL     string
	Model       string
	ApiKey      string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

const (
	defaultBaseURL = "https://api.openai.com/v1"

	requestTimeout = 60 * time.Second
)

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// NewOpenAIChatProvider initializes a new OpenAI provider.
func NewOpenAIChatProvider(config *OpenAIConfig) contracts.IChatAIProvider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
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

func (openAIProvider *OpenAIConfig) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	go func() {
		defer close(responseChan)

		if openAIProvider.ApiKey == "" {
			responseChan <- models.StreamResponse{Err: errors.New("api key is required for the openai provider")}
			return
		}

		reqBody := chatCompletionRequest{
			Model: openAIProvider.Model,
			Messages: []message{
				{Role: "system", Content: prompt},
				{Role: "user", Content: userInput},
			},
			Stream:      true,
			Temperature: openAIProvider.Temperature,
			MaxTokens:   openAIProvider.MaxTokens,
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %v", err)}
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", openAIProvider.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error creating request: %v", err)}
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+openAIProvider.ApiKey)

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
				if payload == "[DONE]" {
					responseChan <- models.StreamResponse{Done: true}
					return
				}

				var chunk chatCompletionChunk
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					openAIProvider.Logger.Warn("skipping unparsable stream chunk", zap.Error(err))
				} else if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
					responseChan <- models.StreamResponse{Content: chunk.Choices[0].Delta.Content}
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
