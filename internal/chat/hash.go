package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrHashFailed = errors.New("credential hashing failed")

// HashFunc turns a secret into a fixed-length hex digest. An empty result
// means hashing failed.
type HashFunc func(secret string) string

func SHA256Hex(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func (s *Server) digest(secret string) (string, error) {
	d := s.hash(secret)
	if d == "" {
		return "", ErrHashFailed
	}
	return d, nil
}
