package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meysamhadeli/codai-studio/utils"
	"go.uber.org/zap"
)

// FileEntry is one file inside a workspace snapshot.
type FileEntry struct {
	Content   string `json:"content"`
	Size      int    `json:"size"`
	Extension string `json:"extension"`
}

// Context is an aggregate snapshot of the workspace, keyed by relative path.
type Context struct {
	Workspace  string               `json:"workspace"`
	Files      map[string]FileEntry `json:"files"`
	TotalFiles int                  `json:"totalFiles"`
}

// FileSystem is the capability set the assistant consumes from the host file
// system. Paths are workspace-relative.
type FileSystem interface {
	SetWorkspace(path string) error
	ListDirectory(path string) ([]string, error)
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	CreateFile(path string, content string) error
	DeleteFile(path string) error
	CreateDirectory(path string) error
	GetWorkspaceContext() (*Context, error)
}

// Files above this size are left out of workspace snapshots.
const maxSnapshotFileSize = 100 * 1024

// LocalFileSystem implements FileSystem against a local directory tree with
// path containment: no operation may escape the workspace root.
type LocalFileSystem struct {
	mu     sync.RWMutex
	root   string
	logger *zap.Logger
}

// NewLocalFileSystem creates a workspace rooted at the given directory.
func NewLocalFileSystem(root string, logger *zap.Logger) (*LocalFileSystem, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	localFS := &LocalFileSystem{logger: logger}
	if err := localFS.SetWorkspace(root); err != nil {
		return nil, err
	}
	return localFS, nil
}

// SetWorkspace switches the workspace root. The directory must exist.
func (l *LocalFileSystem) SetWorkspace(path string) error {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace path: %w", err)
	}

	info, err := os.Stat(absolute)
	if err != nil {
		return fmt.Errorf("workspace does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace path '%s' is not a directory", path)
	}

	l.mu.Lock()
	l.root = absolute
	l.mu.Unlock()
	return nil
}

// resolve joins a workspace-relative path onto the root and rejects any path
// that escapes it.
func (l *LocalFileSystem) resolve(relativePath string) (string, error) {
	l.mu.RLock()
	root := l.root
	l.mu.RUnlock()

	if root == "" {
		return "", fmt.Errorf("no workspace configured")
	}

	full := filepath.Clean(filepath.Join(root, relativePath))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' escapes the workspace", relativePath)
	}
	return full, nil
}

func (l *LocalFileSystem) ListDirectory(path string) ([]string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func (l *LocalFileSystem) ReadFile(path string) (string, error) {
	full, err := l.resolve(path)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

func (l *LocalFileSystem) WriteFile(path string, content string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// CreateFile writes a new file. Unlike WriteFile it refuses to clobber an
// existing one.
func (l *LocalFileSystem) CreateFile(path string, content string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("file '%s' already exists", path)
	}
	return l.WriteFile(path, content)
}

func (l *LocalFileSystem) DeleteFile(path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalFileSystem) CreateDirectory(path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(full, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// GetWorkspaceContext walks the workspace and returns a snapshot of every
// file that survives the ignore rules and the size cap.
func (l *LocalFileSystem) GetWorkspaceContext() (*Context, error) {
	l.mu.RLock()
	root := l.root
	l.mu.RUnlock()

	if root == "" {
		return nil, fmt.Errorf("no workspace configured")
	}

	ignorePatterns, err := utils.GetIgnorePatterns(root)
	if err != nil {
		return nil, err
	}

	snapshot := &Context{
		Workspace: root,
		Files:     make(map[string]FileEntry),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relativePath = strings.ReplaceAll(relativePath, "\\", "/")

		if utils.IsDefaultIgnored(relativePath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to get file info: %s, error: %w", relativePath, err)
		}
		if info.Size() > maxSnapshotFileSize {
			return nil
		}

		if utils.IsIgnored(relativePath, ignorePatterns) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("skipping unreadable file", zap.String("path", relativePath), zap.Error(err))
			return nil
		}

		snapshot.Files[relativePath] = FileEntry{
			Content:   string(content),
			Size:      len(content),
			Extension: strings.TrimPrefix(filepath.Ext(relativePath), "."),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot.TotalFiles = len(snapshot.Files)
	return snapshot, nil
}
