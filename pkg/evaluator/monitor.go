package evaluator

import (
	"context"
	"sync"
	"time"
)

// lowWaterMonitor tracks the minimum free-VRAM sample observed during one
// GetScores call. Its writes are synchronized with the final read via mu,
// satisfying spec.md §4.1's "writes... are synchronized with the final
// read" requirement.
type lowWaterMonitor struct {
	mu        sync.Mutex
	min       uint64
	hasSample bool
}

func newLowWaterMonitor() *lowWaterMonitor {
	return &lowWaterMonitor{}
}

func (m *lowWaterMonitor) observe(free uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSample || free < m.min {
		m.min = free
		m.hasSample = true
	}
}

func (m *lowWaterMonitor) value() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.min, m.hasSample
}

// runLowWaterMonitor samples free VRAM at n.sampleEvery until ctx is
// cancelled, then takes one final sample before closing done. This mirrors
// the ticker/stop-channel shape of the teacher's monitoring/collector
// package, adapted to a cancellation context instead of a stop channel so a
// caller-side GetScores cancellation also stops the sampler promptly
// (spec.md §5, "Cancellation").
func (n *Node) runLowWaterMonitor(ctx context.Context, monitor *lowWaterMonitor, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(n.sampleEvery)
	defer ticker.Stop()

	if stats, err := n.memory.Report(); err == nil {
		monitor.observe(stats.Free)
	}

	for {
		select {
		case <-ctx.Done():
			// Any sample in flight is discarded; take one final sample and
			// exit promptly (spec.md §4.1).
			if stats, err := n.memory.Report(); err == nil {
				monitor.observe(stats.Free)
			}
			return
		case <-ticker.C:
			if stats, err := n.memory.Report(); err == nil {
				monitor.observe(stats.Free)
			}
		}
	}
}
