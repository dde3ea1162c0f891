package ollama

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
	contracts2 "github.com/meysamhadeli/codai-studio/token_management/contracts"
	"go.uber.org/zap"
)

// OllamaConfig implements the Provider interface for a local Ollama server.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	Temperature     float32
	MaxTokens       int
	ContextWindow   int
	TokenManagement contracts2.ITokenManagement
	Logger          *zap.Logger
}

const (
	defaultBaseURL = "http://localhost:11434/api"

	// Local servers answer fast or not at all.
	requestTimeout = 30 * time.Second
)

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaChatProvider initializes a new Ollama provider.
func NewOllamaChatProvider(config *OllamaConfig) contracts.IChatAIProvider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.ContextWindow == 0 {
		config.ContextWindow = 8192
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return config
}

func (ollamaProvider *OllamaConfig) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	go func() {
		defer close(responseChan)

		// The generate endpoint takes one flat prompt, so the system
		// instruction is concatenated ahead of the user request.
		reqBody := generateRequest{
			Model:  ollamaProvider.Model,
			Prompt: fmt.Sprintf("%s\n\n%s", prompt, userInput),
			Stream: true,
			Options: map[string]interface{}{
				"temperature": ollamaProvider.Temperature,
				"num_predict": ollamaProvider.MaxTokens,
				"num_ctx":     ollamaProvider.ContextWindow,
			},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %v", err)}
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/generate", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			responseChan <- models.StreamResponse{Err: fmt.Errorf("error creating request: %v", err)}
			return
		}

		req.Header.Set("Content-Type", "application/json")

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

		// Stream processing. A final line without a trailing newline arrives
		// together with io.EOF and still has to be decoded.
		for {
			line, readErr := reader.ReadString('\n')
			if readErr != nil && readErr != io.EOF {
				responseChan <- models.StreamResponse{Err: fmt.Errorf("error reading stream: %v", readErr)}
				return
			}

			if strings.TrimSpace(line) != "" {
				var response generateResponse
				if err := json.Unmarshal([]byte(line), &response); err != nil {
					// A mangled chunk is not fatal to the stream.
					ollamaProvider.Logger.Warn("skipping unparsable stream chunk", zap.Error(err))
				} else {
					if response.Response != "" {
						responseChan <- models.StreamResponse{Content: response.Response}
					}

					if response.Done {
						if response.PromptEvalCount > 0 && ollamaProvider.TokenManagement != nil {
							ollamaProvider.TokenManagement.UsedTokens(response.PromptEvalCount, response.EvalCount)
						}
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
