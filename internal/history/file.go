package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// FileStore appends history to a flat text file, one line per chat.
type FileStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func OpenFile(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return &FileStore{path: path, f: f}, nil
}

func (s *FileStore) AppendLine(line string) error {
	line = strings.TrimRight(line, "\r\n") + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.f.WriteString(line); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *FileStore) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	return string(b), nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.f.Close()
}
