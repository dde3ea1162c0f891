package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meysamhadeli/codai-studio/code_analyzer"
	"github.com/meysamhadeli/codai-studio/providers"
	"github.com/meysamhadeli/codai-studio/session"
	"github.com/meysamhadeli/codai-studio/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher replays canned responses and records the prompts it saw.
type fakeDispatcher struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeDispatcher) ChatStream(ctx context.Context, userInput string, prompt string, model string, onDelta func(accumulated string)) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	response := f.responses[f.calls%len(f.responses)]
	f.calls++
	if onDelta != nil {
		onDelta(response)
	}
	return response, nil
}

func newTestOrchestrator(t *testing.T, dispatcher inference, withWorkspace bool) (*Orchestrator, string) {
	t.Helper()

	registry := providers.NewRegistry(filepath.Join(t.TempDir(), "providers.json"), nil)

	var fileSystem workspace.FileSystem
	root := ""
	if withWorkspace {
		root = t.TempDir()
		localFS, err := workspace.NewLocalFileSystem(root, nil)
		require.NoError(t, err)
		fileSystem = localFS
	}

	orch := New(registry, dispatcher, code_analyzer.NewContextDistiller(nil, nil), fileSystem, nil)
	orch.PacingInterval = 0
	return orch, root
}

// Ask mode appends exactly one user and one assistant message and never
// touches the file map.
func TestHandleRequest_AskMode(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: []string{"The answer is 42."}}
	orch, _ := newTestOrchestrator(t, dispatcher, false)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModeAsk, "what is the answer?")
	require.NoError(t, err)

	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "what is the answer?", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "The answer is 42.", messages[1].Content)
	assert.Equal(t, session.ModeAsk, messages[1].Mode)

	assert.Empty(t, sess.Files())
	assert.Equal(t, 1, dispatcher.calls)
	assert.Contains(t, dispatcher.prompts[0], "PROJECT CONTEXT")
}

// Requests are rejected up front when no provider is active.
func TestHandleRequest_NoActiveProvider(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeDispatcher{responses: []string{"x"}}, false)

	ollama, _ := orch.Registry.Get("ollama")
	ollama.Enabled = false
	require.NoError(t, orch.Registry.Update(ollama))

	sess := session.NewSession()
	err := orch.HandleRequest(context.Background(), sess, session.ModeAsk, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active AI provider")
	assert.Empty(t, sess.Messages())
}

// An unknown mode is rejected before anything is appended to the log.
func TestHandleRequest_UnknownMode(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &fakeDispatcher{responses: []string{"x"}}, false)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ChatMode("review"), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chat mode")
	assert.Empty(t, sess.Messages())
}

// Plan mode writes the generated plan into a timestamped file and posts only
// a summary to the conversation log.
func TestHandleRequest_PlanMode(t *testing.T) {
	planText := "## Step 1\nDo the thing.\n\n## Step 2\nDo the other thing."
	dispatcher := &fakeDispatcher{responses: []string{planText}}
	orch, root := newTestOrchestrator(t, dispatcher, true)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModePlan, "add dark mode")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	planFile := entries[0].Name()
	assert.True(t, strings.HasPrefix(planFile, "plan-"))
	assert.True(t, strings.HasSuffix(planFile, ".md"))

	written, err := os.ReadFile(filepath.Join(root, planFile))
	require.NoError(t, err)
	assert.Contains(t, string(written), "_Request: add dark mode_")
	assert.Contains(t, string(written), "## Step 2")

	// The session mirrors the file and selects it.
	content, ok := sess.File(planFile)
	require.True(t, ok)
	assert.Contains(t, content, "Do the other thing.")
	assert.Equal(t, planFile, sess.ActiveFile())

	// The full plan text is not duplicated into the log.
	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].Content, "Plan written to")
	assert.NotContains(t, messages[1].Content, "## Step 1")

	_, liveWriting := sess.LiveWriting()
	assert.False(t, liveWriting, "live-writing marker is cleared when the plan completes")
}

// A plan body full of code must not rename the session entry away from the
// on-disk markdown file: every live-write batch lands under the one key the
// file was created with.
func TestHandleRequest_PlanModeKeepsFileKeyWithCodeContent(t *testing.T) {
	planText := "## Step 1\nAdd this helper:\n\n" +
		"function toggleTheme() {\n  const next = current === 'dark' ? 'light' : 'dark';\n  return next;\n}\n\n" +
		"## Step 2\nimport { toggleTheme } from './theme';\n"
	dispatcher := &fakeDispatcher{responses: []string{planText}}
	orch, root := newTestOrchestrator(t, dispatcher, true)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModePlan, "add dark mode")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	planFile := entries[0].Name()
	assert.True(t, strings.HasSuffix(planFile, ".md"))

	// Exactly one session entry, under the file's own name, with the full
	// plan including the code.
	files := sess.Files()
	require.Len(t, files, 1)
	content, ok := sess.File(planFile)
	require.True(t, ok)
	assert.Contains(t, content, "function toggleTheme()")
	assert.Contains(t, content, "## Step 2")

	assert.Equal(t, planFile, sess.ActiveFile())

	// The session entry mirrors the on-disk file byte for byte.
	written, err := os.ReadFile(filepath.Join(root, planFile))
	require.NoError(t, err)
	assert.Equal(t, string(written), content)
}

// Without a workspace the plan degrades to a chat message.
func TestHandleRequest_PlanModeFallsBackToChat(t *testing.T) {
	planText := "## Step 1\nOnly in chat."
	dispatcher := &fakeDispatcher{responses: []string{planText}}
	orch, _ := newTestOrchestrator(t, dispatcher, false)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModePlan, "add dark mode")
	require.NoError(t, err)

	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, planText, messages[1].Content)
	assert.Empty(t, sess.Files())
}

// Agent mode runs the analysis stage, then the code stage, applies every
// extracted action and selects the first changed file.
func TestHandleRequest_AgentMode(t *testing.T) {
	analysis := "We need a component and a stylesheet."
	code := "[CREATE: src/toggle.js]\nexport const toggle = () => {};\n[/CREATE]\n" +
		"[CREATE: src/toggle.css]\n.toggle { display: flex; }\n[/CREATE]\n"
	dispatcher := &fakeDispatcher{responses: []string{analysis, code}}
	orch, root := newTestOrchestrator(t, dispatcher, true)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModeAgent, "add a toggle")
	require.NoError(t, err)

	assert.Equal(t, 2, dispatcher.calls)
	// The second stage carries the first stage's analysis.
	assert.Contains(t, dispatcher.prompts[1], analysis)

	written, err := os.ReadFile(filepath.Join(root, "src/toggle.js"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "export const toggle")

	_, err = os.Stat(filepath.Join(root, "src/toggle.css"))
	require.NoError(t, err)

	content, ok := sess.File("src/toggle.js")
	require.True(t, ok)
	assert.Contains(t, content, "toggle")
	assert.Equal(t, "src/toggle.js", sess.ActiveFile())

	// The raw output stays in the log for the user to inspect.
	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].Content, "[CREATE: src/toggle.js]")
}

// A per-file apply failure is skipped; the rest of the batch still lands.
func TestHandleRequest_AgentModeSkipsFailedActions(t *testing.T) {
	code := "[CREATE: ../escape.js]\nexport const bad = 1;\n[/CREATE]\n" +
		"[CREATE: good.js]\nexport const good = 1;\n[/CREATE]\n"
	dispatcher := &fakeDispatcher{responses: []string{"analysis", code}}
	orch, root := newTestOrchestrator(t, dispatcher, true)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModeAgent, "do it")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "good.js"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.js"))
	assert.True(t, os.IsNotExist(err), "actions may not escape the workspace")
}

// Dispatcher errors propagate without polluting the conversation log with an
// assistant entry.
func TestHandleRequest_DispatcherError(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("credential rejected")}
	orch, _ := newTestOrchestrator(t, dispatcher, false)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModeAsk, "hello")
	require.Error(t, err)

	messages := sess.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
}

// Debug mode behaves like ask with its own prompt template.
func TestHandleRequest_DebugMode(t *testing.T) {
	dispatcher := &fakeDispatcher{responses: []string{"Null pointer on line 3."}}
	orch, _ := newTestOrchestrator(t, dispatcher, false)
	sess := session.NewSession()

	err := orch.HandleRequest(context.Background(), sess, session.ModeDebug, "TypeError: x is undefined")
	require.NoError(t, err)

	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, session.ModeDebug, messages[1].Mode)
}
