// Package scoring models the scorer boundary spec.md §1 treats as opaque:
// a capability that turns phrases into sentiment evaluations, plus the
// device-memory reporting the evaluator node needs for heartbeats.
package scoring

import (
	"context"

	"github.com/jihwankim/sentimentd/pkg/sentiment"
)

// Evaluator is the capability the evaluator node scores phrases through.
// Callers hold this interface, never a concrete implementation, so a real
// GPU-resident model and a test double are interchangeable (spec.md DESIGN
// NOTES, "Polymorphism over the scorer").
type Evaluator interface {
	// Evaluate scores each phrase in content, returning one Evaluation per
	// entry in the same order. An empty input returns an empty, nil-error
	// result without doing any work.
	Evaluate(ctx context.Context, content []string) ([]sentiment.Evaluation, error)
}

// MemoryStats is a device- or host-memory snapshot, using a single
// consistent unit across the Total/Free pair (spec.md §4.1).
type MemoryStats struct {
	Total uint64
	Free  uint64
}

// MemoryReporter reports the current memory footprint backing an Evaluator.
type MemoryReporter interface {
	Report() (MemoryStats, error)
}
