package testutil

import (
	"fmt"
	"sync"
)

// CaptureIDs generates predictable capture ids: "<prefix>-0001",
// "<prefix>-0002" and so on. It satisfies store.IDGenerator and is safe for
// concurrent use.
type CaptureIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCaptureIDs returns a generator; an empty prefix means "capture".
func NewCaptureIDs(prefix string) *CaptureIDs {
	if prefix == "" {
		prefix = "capture"
	}
	return &CaptureIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *CaptureIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *CaptureIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
