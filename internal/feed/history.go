package feed

import (
	"sort"
	"sync"
)

// DefaultHistorySize bounds each symbol's price window.
const DefaultHistorySize = 200

// History maintains a bounded, chronological price window per symbol.
type History struct {
	mu      sync.RWMutex
	size    int
	windows map[string][]float64
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, windows: make(map[string][]float64)}
}

// Push appends price to symbol's window, evicting the oldest point when full.
func (h *History) Push(symbol string, price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := append(h.windows[symbol], price)
	if len(w) > h.size {
		w = append(w[:0:0], w[len(w)-h.size:]...)
	}
	h.windows[symbol] = w
}

// Window returns a copy of symbol's prices, oldest first.
func (h *History) Window(symbol string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w := h.windows[symbol]
	out := make([]float64, len(w))
	copy(out, w)
	return out
}

// Last returns the most recent price for symbol.
func (h *History) Last(symbol string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w := h.windows[symbol]
	if len(w) == 0 {
		return 0, false
	}
	return w[len(w)-1], true
}

func (h *History) Len(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.windows[symbol])
}

// Symbols returns all tracked symbols, sorted.
func (h *History) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.windows))
	for id := range h.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load replaces symbol's window, keeping only the newest size points.
func (h *History) Load(symbol string, prices []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(prices) > h.size {
		prices = prices[len(prices)-h.size:]
	}
	h.windows[symbol] = append([]float64(nil), prices...)
}
