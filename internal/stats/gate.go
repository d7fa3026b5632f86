// Package stats renders the per-file statistics table of a job.
//
// Render requests may arrive concurrently (stream completion, job selection,
// manual refresh). Gate serializes them: at most one render runs at a time,
// a caller that finds the gate busy is retried shortly, and the panel is
// replaced in a single write so a half-built table is never observed.
package stats

import (
	"bytes"
	"log"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knx2openhab/dashboard/internal/models"
)

// DefaultRetryDelay is how long a busy render waits before trying again.
const DefaultRetryDelay = 100 * time.Millisecond

// Panel receives the finished table.
type Panel interface {
	Replace(html string)
}

// PanelFunc adapts a function to Panel.
type PanelFunc func(html string)

// Replace calls f.
func (f PanelFunc) Replace(html string) { f(html) }

// Builder renders rows into buf.
type Builder func(buf *bytes.Buffer, table Table) error

// Gate is the single render path for the statistics panel.
type Gate struct {
	panel      Panel
	build      Builder
	retryDelay time.Duration

	busy     atomic.Bool
	seq      atomic.Uint64
	rendered uint64 // guarded by busy

	mu   sync.RWMutex
	last map[string]models.FileStat

	pending sync.WaitGroup
}

// NewGate creates a gate that renders with build into panel.
func NewGate(panel Panel, build Builder, retryDelay time.Duration) *Gate {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Gate{
		panel:      panel,
		build:      build,
		retryDelay: retryDelay,
	}
}

// Render draws stats. If another render is in progress the request is
// deferred and retried. A deferred request that wakes up after a newer
// request has already been drawn is discarded.
func (g *Gate) Render(stats map[string]models.FileStat) {
	seq := g.seq.Add(1)
	g.pending.Add(1)
	g.attempt(seq, maps.Clone(stats))
}

func (g *Gate) attempt(seq uint64, stats map[string]models.FileStat) {
	if !g.busy.CompareAndSwap(false, true) {
		time.AfterFunc(g.retryDelay, func() { g.attempt(seq, stats) })
		return
	}
	defer g.pending.Done()
	defer g.busy.Store(false)

	if seq < g.rendered {
		return
	}

	var buf bytes.Buffer
	if err := g.build(&buf, BuildTable(stats)); err != nil {
		log.Printf("[Stats] render failed, keeping previous table: %v", err)
		return
	}

	g.panel.Replace(buf.String())
	g.rendered = seq

	g.mu.Lock()
	g.last = stats
	g.mu.Unlock()
}

// Wait blocks until every requested render, including deferred ones, has
// finished.
func (g *Gate) Wait() {
	g.pending.Wait()
}

// Busy reports whether a render is currently running.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Last returns a copy of the last successfully rendered statistics.
func (g *Gate) Last() map[string]models.FileStat {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.last)
}
