package alarm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// StateStore keeps the level that last triggered a notification across
// restarts. A nil level means none.
type StateStore interface {
	LoadLastNotified() (*int, error)
	SaveLastNotified(level *int) error
}

// FileState stores the alarm state as a small JSON document.
type FileState struct {
	path string
}

func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

type fileState struct {
	LastNotifiedLevel *int `json:"lastNotifiedLevel,omitempty"`
}

// LoadLastNotified returns nil when the file is missing or empty.
func (f *FileState) LoadLastNotified() (*int, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to read alarm state %s", f.path)
	}
	if strings.TrimSpace(string(b)) == "" {
		return nil, nil
	}

	var st fileState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal alarm state %s", f.path)
	}
	return st.LastNotifiedLevel, nil
}

func (f *FileState) SaveLastNotified(level *int) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.path)
	}

	b, err := json.MarshalIndent(fileState{LastNotifiedLevel: level}, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal alarm state")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", tmp)
	}
	return pkgerrors.Wrapf(os.Rename(tmp, f.path), "failed to replace %s", f.path)
}

// MemoryState keeps the alarm state in memory only.
type MemoryState struct {
	mu    sync.Mutex
	level *int
}

func (m *MemoryState) LoadLastNotified() (*int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, nil
}

func (m *MemoryState) SaveLastNotified(level *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
	return nil
}
