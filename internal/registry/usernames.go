package registry

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Usernames is the set of claimed display names.
type Usernames struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func NewUsernames() *Usernames {
	return &Usernames{names: make(map[string]struct{})}
}

// TryClaim returns false when name is already taken.
func (u *Usernames) TryClaim(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, taken := u.names[name]; taken {
		return false
	}
	u.names[name] = struct{}{}
	return true
}

func (u *Usernames) Release(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	delete(u.names, name)
}

func (u *Usernames) taken(name string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	_, taken := u.names[name]
	return taken
}

// sorted returns the claimed names in order.
func (u *Usernames) sorted() []string {
	u.mu.Lock()
	names := lo.Keys(u.names)
	u.mu.Unlock()

	slices.Sort(names)
	return names
}
