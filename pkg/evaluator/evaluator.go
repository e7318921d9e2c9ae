// Package evaluator implements the evaluator node: the RPC servicer that
// wraps a scoring.Evaluator with in-flight task accounting, a concurrent
// VRAM low-water monitor, and the last-execution hint the balancer uses to
// estimate per-task memory cost (spec.md §4.1).
package evaluator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jihwankim/sentimentd/pkg/logging"
	"github.com/jihwankim/sentimentd/pkg/metrics"
	"github.com/jihwankim/sentimentd/pkg/rpcpb"
	"github.com/jihwankim/sentimentd/pkg/scoring"
)

// defaultSampleInterval is the cadence of the VRAM low-water monitor
// (spec.md §4.1: "≈100 ms between samples").
const defaultSampleInterval = 100 * time.Millisecond

// Node is the evaluator servicer. It satisfies transport.Servicer.
type Node struct {
	id          string
	scorer      scoring.Evaluator
	memory      scoring.MemoryReporter
	sampleEvery time.Duration
	logger      *logging.Logger

	tasks int64 // atomic; in-flight phrase count

	mu            sync.Mutex
	lastExecution *rpcpb.LastExecution

	metrics *metrics.EvaluatorMetrics
}

// SetMetrics attaches Prometheus gauges that are updated on every Heartbeat
// call; GetScores does not update them. Optional; a Node with no metrics
// attached behaves identically.
func (n *Node) SetMetrics(m *metrics.EvaluatorMetrics) {
	n.metrics = m
}

// New builds a Node with a freshly generated, process-lifetime-stable id
// (spec.md §4.1: "id is generated once at startup as a fresh opaque
// identifier").
func New(scorer scoring.Evaluator, memory scoring.MemoryReporter, logger *logging.Logger) *Node {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Node{
		id:          uuid.NewString(),
		scorer:      scorer,
		memory:      memory,
		sampleEvery: defaultSampleInterval,
		logger:      logger,
	}
}

// ID returns this node's stable process identity.
func (n *Node) ID() string { return n.id }

// Heartbeat reports live task count and device/host memory figures. It is a
// pure read except for the memory query itself, which is the only way this
// call can fail.
func (n *Node) Heartbeat(ctx context.Context) (*rpcpb.HeartbeatResponse, error) {
	stats, err := n.memory.Report()
	if err != nil {
		return nil, fmt.Errorf("evaluator: heartbeat: %w", err)
	}

	n.mu.Lock()
	lastExecution := n.lastExecution
	n.mu.Unlock()

	if n.metrics != nil {
		n.metrics.Tasks.Set(float64(atomic.LoadInt64(&n.tasks)))
		n.metrics.FreeVRAM.Set(float64(stats.Free))
		n.metrics.TotalVRAM.Set(float64(stats.Total))
	}

	return &rpcpb.HeartbeatResponse{
		Tasks:         uint64(atomic.LoadInt64(&n.tasks)),
		FreeVRAM:      stats.Free,
		TotalVRAM:     stats.Total,
		ID:            n.id,
		LastExecution: lastExecution,
	}, nil
}

// GetScores scores every phrase in req, in order. A scorer failure is
// reported in-band (ok=false); the RPC itself never fails for that reason
// (spec.md §4.1).
func (n *Node) GetScores(ctx context.Context, req *rpcpb.GetScoresRequest) (*rpcpb.GetScoresResponse, error) {
	count := len(req.Phrases)
	if count == 0 {
		return &rpcpb.GetScoresResponse{OK: true, Scores: []rpcpb.Score{}}, nil
	}

	atomic.AddInt64(&n.tasks, int64(count))
	defer atomic.AddInt64(&n.tasks, -int64(count))

	content := make([]string, count)
	for i, p := range req.Phrases {
		content[i] = p.Content
	}

	monitor := newLowWaterMonitor()
	monitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go n.runLowWaterMonitor(monitorCtx, monitor, done)

	evals, err := n.scorer.Evaluate(ctx, content)

	// Cancellation must be prompt and joined before the final read, so the
	// write to the low-water variable happens-before we use it below
	// (spec.md §5, "Ordering guarantees").
	cancel()
	<-done

	if min, ok := monitor.value(); ok {
		n.mu.Lock()
		n.lastExecution = &rpcpb.LastExecution{Tasks: uint64(count), FreeVRAM: min}
		n.mu.Unlock()
	}

	if err != nil {
		n.logger.Warn("scoring failed", "phrases", count, "error", err)
		return &rpcpb.GetScoresResponse{OK: false, ErrMsg: err.Error(), Scores: []rpcpb.Score{}}, nil
	}

	scores := make([]rpcpb.Score, len(evals))
	for i, e := range evals {
		scores[i] = rpcpb.Score{
			Positivity: e.Positivity(),
			Negativity: e.Negativity(),
			Neutrality: e.Neutrality(),
		}
	}
	return &rpcpb.GetScoresResponse{OK: true, Scores: scores}, nil
}
