package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meysamhadeli/codai-studio/actions"
	"github.com/meysamhadeli/codai-studio/code_analyzer/models"
)

// ChatMode selects which prompt template and post-processing branch the
// orchestrator runs.
type ChatMode string

const (
	ModeAsk   ChatMode = "ask"
	ModePlan  ChatMode = "plan"
	ModeAgent ChatMode = "agent"
	ModeDebug ChatMode = "debug"
)

// ValidModes lists the accepted chat modes.
var ValidModes = []ChatMode{ModeAsk, ModePlan, ModeAgent, ModeDebug}

// ChatMessage is one entry of the append-only conversation log.
type ChatMessage struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	Mode      ChatMode
}

// Session holds the mutable state of one assistant session: the file map,
// the conversation log and the active-file selection. Sessions are explicit
// objects so several can run independently and tests can construct isolated
// instances.
type Session struct {
	mu              sync.Mutex
	files           models.FileMap
	messages        []ChatMessage
	activeFile      string
	liveWritingFile string
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		files: make(models.FileMap),
	}
}

// AppendMessage adds one entry to the conversation log and returns it.
func (s *Session) AppendMessage(role string, content string, mode ChatMode) ChatMessage {
	message := ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Mode:      mode,
	}

	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()

	return message
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// ClearHistory drops the conversation log. Only explicit user action calls
// this.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// SetFile merges one file into the session's file map, last write wins. The
// key is normalized so it always carries a content-appropriate extension.
func (s *Session) SetFile(path string, content string) string {
	normalized := actions.NormalizeFilename(path, content)

	s.mu.Lock()
	s.files[normalized] = content
	s.mu.Unlock()

	return normalized
}

// UpdateFile replaces one file's content under its exact key. Unlike SetFile
// the key is not re-normalized; callers use it when the path is already
// fixed, e.g. a file that exists on disk under that name.
func (s *Session) UpdateFile(path string, content string) {
	s.mu.Lock()
	s.files[path] = content
	s.mu.Unlock()
}

// File returns one file's content.
func (s *Session) File(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[path]
	return content, ok
}

// Files returns a copy of the session's file map.
func (s *Session) Files() models.FileMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(models.FileMap, len(s.files))
	for path, content := range s.files {
		copied[path] = content
	}
	return copied
}

// ActiveFile returns the currently selected file path.
func (s *Session) ActiveFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFile
}

// SetActiveFile switches the selection.
func (s *Session) SetActiveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeFile = path
}

// SetLiveWriting marks the file currently receiving streamed plan output.
func (s *Session) SetLiveWriting(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveWritingFile = path
}

// ClearLiveWriting clears the live-writing marker.
func (s *Session) ClearLiveWriting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveWritingFile = ""
}

// LiveWriting reports the live-writing target, if any.
func (s *Session) LiveWriting() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveWritingFile, s.liveWritingFile != ""
}
