package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/meysamhadeli/codai-studio/token_management"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRegistry returns a registry whose active ollama provider points at
// the given server.
func newTestRegistry(t *testing.T, serverURL string) *Registry {
	t.Helper()
	registry := NewRegistry(filepath.Join(t.TempDir(), "providers.json"), nil)

	ollama, ok := registry.Get("ollama")
	require.True(t, ok)
	ollama.BaseURL = serverURL
	ollama.Enabled = true
	require.NoError(t, registry.Update(ollama))

	return registry
}

// The delta callback receives the full accumulated text after every decoded
// chunk, in wire order.
func TestDispatcher_ChatStream_DeltaCallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		w.Write([]byte("{\"response\":\"a\"}\n"))
		w.Write([]byte("{\"response\":\"b\"}\n"))
		w.Write([]byte("{\"done\":true,\"prompt_eval_count\":5,\"eval_count\":7}\n"))
	}))
	defer server.Close()

	tokenManagement := token_management.NewTokenManager()
	dispatcher := NewDispatcher(newTestRegistry(t, server.URL), tokenManagement, nil)

	var deltas []string
	result, err := dispatcher.ChatStream(context.Background(), "hi", "system prompt", "", func(accumulated string) {
		deltas = append(deltas, accumulated)
	})

	require.NoError(t, err)
	assert.Equal(t, "ab", result)
	assert.Equal(t, []string{"a", "ab"}, deltas)

	total, input, output := tokenManagement.GetCurrentTokenUsage()
	assert.Equal(t, 12, total)
	assert.Equal(t, 5, input)
	assert.Equal(t, 7, output)
}

// Unparsable chunks are skipped without ending the stream.
func TestDispatcher_ChatStream_SkipsMangledChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"response\":\"ok\"}\n"))
		w.Write([]byte("this is not json\n"))
		w.Write([]byte("{\"done\":true}\n"))
	}))
	defer server.Close()

	dispatcher := NewDispatcher(newTestRegistry(t, server.URL), token_management.NewTokenManager(), nil)

	result, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

// A final stream line without a trailing newline is still decoded, so the
// last delta and the done sentinel's token counts are not lost.
func TestDispatcher_ChatStream_FinalLineWithoutNewline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"response\":\"head\"}\n"))
		w.Write([]byte("{\"response\":\" tail\",\"done\":true,\"prompt_eval_count\":3,\"eval_count\":4}"))
	}))
	defer server.Close()

	tokenManagement := token_management.NewTokenManager()
	dispatcher := NewDispatcher(newTestRegistry(t, server.URL), tokenManagement, nil)

	result, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "head tail", result)

	total, _, _ := tokenManagement.GetCurrentTokenUsage()
	assert.Equal(t, 7, total)
}

// Transport failures surface as a descriptive text result, never as an error.
func TestDispatcher_ChatStream_TransportErrorBecomesText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("{\"error\":{\"message\":\"model overloaded\",\"type\":\"server_error\"}}"))
	}))
	defer server.Close()

	dispatcher := NewDispatcher(newTestRegistry(t, server.URL), token_management.NewTokenManager(), nil)

	result, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "The AI request could not be completed")
	assert.Contains(t, result, "model overloaded")
}

// When the stream breaks after content already arrived, the partial text is
// the result.
func TestDispatcher_ChatStream_PartialResultOnMidStreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more body than is sent so the client hits an unexpected EOF
		// after the first chunk.
		w.Header().Set("Content-Length", "4096")
		w.Write([]byte("{\"response\":\"partial\"}\n"))
	}))
	defer server.Close()

	dispatcher := NewDispatcher(newTestRegistry(t, server.URL), token_management.NewTokenManager(), nil)

	result, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", result)
}

// Configuration problems are returned as errors before any network call.
func TestDispatcher_ChatStream_ConfigurationErrors(t *testing.T) {
	t.Run("no active provider", func(t *testing.T) {
		registry := NewRegistry(filepath.Join(t.TempDir(), "providers.json"), nil)
		ollama, _ := registry.Get("ollama")
		ollama.Enabled = false
		require.NoError(t, registry.Update(ollama))

		dispatcher := NewDispatcher(registry, token_management.NewTokenManager(), nil)
		_, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no active AI provider")
	})

	t.Run("hosted provider without api key", func(t *testing.T) {
		registry := NewRegistry(filepath.Join(t.TempDir(), "providers.json"), nil)
		require.NoError(t, registry.SetActiveProvider("openai"))

		dispatcher := NewDispatcher(registry, token_management.NewTokenManager(), nil)
		_, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api key is required")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewChatProvider(ProviderConfig{Name: "mystery"}, "m", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

// The default model is the first entry of the active provider's catalog.
func TestDispatcher_ChatStream_DefaultsToFirstModel(t *testing.T) {
	var requestedModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requestedModel, _ = body["model"].(string)
		w.Write([]byte("{\"done\":true}\n"))
	}))
	defer server.Close()

	registry := newTestRegistry(t, server.URL)
	dispatcher := NewDispatcher(registry, token_management.NewTokenManager(), nil)

	_, err := dispatcher.ChatStream(context.Background(), "hi", "prompt", "", nil)
	require.NoError(t, err)

	active, _ := registry.Active()
	assert.Equal(t, active.Models[0].ID, requestedModel)
}
