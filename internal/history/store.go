//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_history_store.go -package=mocks
package history

import (
	"errors"
	"fmt"
	"log/slog"
)

// Store is the append-only chat history.
type Store interface {
	// AppendLine records one chat line.
	AppendLine(line string) error
	// ReadAll returns every recorded line, each newline-terminated.
	ReadAll() (string, error)
	Close() error
}

const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

var ErrUnknownBackend = errors.New("unknown history backend")

// Open builds the Store selected by backend.
func Open(backend, filePath, badgerPath string, logger *slog.Logger) (Store, error) {
	switch backend {
	case "", BackendFile:
		return OpenFile(filePath)
	case BackendBadger:
		return OpenBadger(badgerPath, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
