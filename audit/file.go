package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileLog keeps entries as a single JSON array in a file. Each Append
// rewrites the file through a temporary sibling and a rename, so readers
// never see a half-written array. A missing file is created on first
// Append. Entries already present are kept verbatim even if they are not in
// Entry's shape.
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog returns a log writing to path.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path returns the log file path.
func (l *FileLog) Path() string {
	return l.path
}

// Append implements Sink.
func (l *FileLog) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e.Stamped())
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.readRaw()
	if err != nil {
		return err
	}
	existing = append(existing, data)

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal log: %w", err)
	}
	return l.replace(out)
}

// Entries reads every entry back.
func (l *FileLog) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := l.readRaw()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for i, r := range raw {
		var e Entry
		if err := json.Unmarshal(r, &e); err != nil {
			return nil, fmt.Errorf("audit: %s entry %d: %w", l.path, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *FileLog) readRaw() ([]json.RawMessage, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", l.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("audit: %s is not a JSON array: %w", l.path, err)
	}
	return raw, nil
}

func (l *FileLog) replace(data []byte) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("audit: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(l.path)+".*")
	if err != nil {
		return fmt.Errorf("audit: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("audit: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("audit: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("audit: replace %s: %w", l.path, err)
	}
	return nil
}
