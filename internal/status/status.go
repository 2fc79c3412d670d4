// Package status is the adapter's connection status side-channel. One Hub
// belongs to one connection controller; observers receive every transition
// plus the current state on subscription.
package status

import (
	"encoding/base64"
	"sync"

	qrCode "github.com/skip2/go-qrcode"
)

type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseQRCode   Phase = "qrcode"
	PhaseSuccess  Phase = "success"
	PhaseOffline  Phase = "offline"
	PhaseError    Phase = "error"
	PhaseContinue Phase = "continue"
)

// Update is one status transition. Image carries a data-URL encoded QR PNG
// for PhaseQRCode updates.
type Update struct {
	Status  Phase  `json:"status"`
	Message string `json:"message,omitempty"`
	Image   string `json:"image,omitempty"`
}

type Hub struct {
	mu        sync.RWMutex
	current   Update
	observers []func(Update)
}

func NewHub() *Hub {
	return &Hub{current: Update{Status: PhaseInit}}
}

// Subscribe registers an observer and immediately delivers the current
// status so late subscribers do not miss the connection state.
func (h *Hub) Subscribe(fn func(Update)) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	current := h.current
	h.mu.Unlock()
	fn(current)
}

func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	h.current = u
	observers := make([]func(Update), len(h.observers))
	copy(observers, h.observers)
	h.mu.Unlock()
	for _, fn := range observers {
		fn(u)
	}
}

func (h *Hub) Current() Update {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// QRImageDataURL renders a pairing payload as a data-URL encoded PNG,
// suitable for the Image field of a PhaseQRCode update.
func QRImageDataURL(code string) (string, error) {
	qrPNG, err := qrCode.Encode(code, qrCode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG), nil
}
