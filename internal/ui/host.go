package ui

import (
	"sync"

	"github.com/five82/vininsight/internal/view"
)

// host collects what the selection controller pushes while a message is being
// handled. The Model drains it once the controller call returns.
type host struct {
	mu        sync.Mutex
	panels    view.Panels
	active    view.Panel
	activated bool
	notices   []view.Notification
}

func (h *host) ShowPanels(p view.Panels) {
	h.mu.Lock()
	h.panels = p
	h.mu.Unlock()
}

func (h *host) ActivatePanel(p view.Panel) {
	h.mu.Lock()
	h.active = p
	h.activated = true
	h.mu.Unlock()
}

func (h *host) Notify(n view.Notification) {
	h.mu.Lock()
	h.notices = append(h.notices, n)
	h.mu.Unlock()
}

func (h *host) Panels() view.Panels {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.panels
}

// takeActivation returns the last requested panel, if any, and resets it.
func (h *host) takeActivation() (view.Panel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.active, h.activated
	h.activated = false
	return p, ok
}

func (h *host) takeNotices() []view.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.notices
	h.notices = nil
	return out
}
