package strategyconfig

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Holder owns the live strategy and its watchlist.
// ⭐ SSOT: 관심종목 변경은 Holder 메서드로만 (전역 상태 금지)
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps cfg; path is where Save writes (empty = in-memory only)
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Config returns a copy of the current strategy
func (h *Holder) Config() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c := *h.cfg
	c.Watchlist = append([]string(nil), h.cfg.Watchlist...)
	c.Technical.MAPeriods = append([]int(nil), h.cfg.Technical.MAPeriods...)
	return c
}

// Watchlist returns a copy of the watchlist
func (h *Holder) Watchlist() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.cfg.Watchlist...)
}

// Add appends symbols not already present. Returns the symbols added.
func (h *Holder) Add(symbols ...string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing := make(map[string]bool, len(h.cfg.Watchlist))
	for _, s := range h.cfg.Watchlist {
		existing[s] = true
	}

	var added []string
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" || existing[s] {
			continue
		}
		existing[s] = true
		h.cfg.Watchlist = append(h.cfg.Watchlist, s)
		added = append(added, s)
	}
	return added
}

// Remove drops symbols. Returns the symbols removed.
func (h *Holder) Remove(symbols ...string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	drop := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		drop[NormalizeSymbol(s)] = true
	}

	kept := h.cfg.Watchlist[:0]
	var removed []string
	for _, s := range h.cfg.Watchlist {
		if drop[s] {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	h.cfg.Watchlist = kept
	sort.Strings(removed)
	return removed
}

// Save persists the strategy to the holder's path
func (h *Holder) Save() error {
	if h.path == "" {
		return fmt.Errorf("strategy holder has no file path")
	}

	c := h.Config()
	return Write(h.path, &c)
}

// NormalizeSymbol upper-cases and trims a ticker
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
