package session

import (
	"sync"

	"github.com/example/storefront/internal/checkout"
)

// Holder is a SessionProvider whose identity changes on login and logout.
type Holder struct {
	mu       sync.RWMutex
	identity checkout.Identity
}

func NewHolder() *Holder {
	return &Holder{}
}

// NewAuthenticated returns a Holder already bound to id.
func NewAuthenticated(id checkout.Identity) *Holder {
	return &Holder{identity: id}
}

func (h *Holder) Current() (checkout.Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity, h.identity.UID != ""
}

func (h *Holder) Login(id checkout.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identity = id
}

func (h *Holder) Logout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identity = checkout.Identity{}
}
