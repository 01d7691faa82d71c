package history

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var (
	linePrefix = []byte("history:line:")
	seqKey     = []byte("history:seq")
)

// BadgerStore keeps history lines in BadgerDB under sequence-ordered keys
// "history:line:{seq padded to 20 digits}", so a prefix scan returns them
// in append order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// OpenBadger opens the database at path. An empty path runs in memory.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", path, err)
	}
	seq, err := db.GetSequence(seqKey, 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, log: logger}, nil
}

func (s *BadgerStore) AppendLine(line string) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("history sequence: %w", err)
	}
	key := fmt.Appendf(append([]byte(nil), linePrefix...), "%020d", n)
	value := []byte(strings.TrimRight(line, "\r\n"))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) ReadAll() (string, error) {
	var sb strings.Builder
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = linePrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(linePrefix); it.ValidForPrefix(linePrefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			sb.Write(v)
			sb.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	return sb.String(), nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.Warn("release history sequence", "error", err)
	}
	return s.db.Close()
}
