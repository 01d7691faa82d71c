package registry

import (
	"crypto/subtle"
	"errors"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
)

var (
	ErrServerExists   = errors.New("server already exists")
	ErrServerNotFound = errors.New("server not found")
	ErrWrongPassword  = errors.New("wrong root password")
)

// ServerEntry is one federation directory record. Fixed entries are
// seeded at startup and cannot be removed.
type ServerEntry struct {
	Name         string
	Address      string
	Port         int
	RootDigest   string
	ServerDigest string
	Fixed        bool
}

// HostPort is the dialable "address:port" form sent to clients.
func (e ServerEntry) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// Servers is the federation directory keyed by server name.
type Servers struct {
	mu      sync.RWMutex
	entries map[string]ServerEntry
}

func NewServers(fixed ...ServerEntry) *Servers {
	s := &Servers{entries: make(map[string]ServerEntry, len(fixed))}
	for _, e := range fixed {
		e.Fixed = true
		s.entries[e.Name] = e
	}
	return s
}

func (s *Servers) Add(e ServerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.Name]; ok {
		return ErrServerExists
	}
	e.Fixed = false
	s.entries[e.Name] = e
	return nil
}

// Remove deletes name if rootDigest matches the stored root digest.
func (s *Servers) Remove(name, rootDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok || e.Fixed {
		return ErrServerNotFound
	}
	if rootDigest == "" || subtle.ConstantTimeCompare([]byte(e.RootDigest), []byte(rootDigest)) != 1 {
		return ErrWrongPassword
	}
	delete(s.entries, name)
	return nil
}

func (s *Servers) lookup(name string) (ServerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	return e, ok
}

// List returns a snapshot sorted by name.
func (s *Servers) List() []ServerEntry {
	s.mu.RLock()
	entries := lo.Values(s.entries)
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b ServerEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries
}

// Directory returns the name -> "address:port" view clients receive.
func (s *Servers) Directory() map[string]string {
	return lo.SliceToMap(s.List(), func(e ServerEntry) (string, string) {
		return e.Name, e.HostPort()
	})
}
