// Package balancer implements the load-balancer dispatch engine: the
// per-worker view maintained by refresh (spec.md §4.2), the predicted-memory
// allocation algorithm (spec.md §4.3), and the fan-out/gather GetScores loop
// with mid-request failure routing (spec.md §4.4).
package balancer

import (
	"github.com/jihwankim/sentimentd/pkg/rpcpb"
	"github.com/jihwankim/sentimentd/pkg/transport"
)

// WorkerDescriptor is the balancer's view of one configured worker. It is
// owned exclusively by the Balancer instance that holds it; there is no
// external reader (spec.md §5, "Shared-resource policy").
type WorkerDescriptor struct {
	Address string // immutable, set at construction

	ID    *string // nil until the first successful heartbeat
	Tasks int     // -1 means unknown (never heard from)

	FreeVRAM  uint64
	TotalVRAM uint64
	IdleVRAM  uint64

	LastExecution *rpcpb.LastExecution

	client *transport.Client
}

// newDescriptor builds the descriptor for address in its initial, never-
// heard-from state (spec.md §3, "Lifecycles").
func newDescriptor(address string, client *transport.Client) *WorkerDescriptor {
	return &WorkerDescriptor{
		Address: address,
		Tasks:   -1,
		client:  client,
	}
}

// known reports whether this worker has ever reported a heartbeat. A worker
// with no id is never eligible for dispatch (spec.md §3, invariants).
func (d *WorkerDescriptor) known() bool {
	return d.ID != nil
}

// applyHeartbeat copies a successful heartbeat response into the descriptor
// and updates idle_vram when the worker reports itself idle (spec.md §4.2,
// "Per-worker update").
func (d *WorkerDescriptor) applyHeartbeat(resp *rpcpb.HeartbeatResponse) {
	id := resp.ID
	d.ID = &id
	d.Tasks = int(resp.Tasks)
	d.FreeVRAM = resp.FreeVRAM
	d.TotalVRAM = resp.TotalVRAM
	d.LastExecution = resp.LastExecution

	if resp.Tasks == 0 {
		d.IdleVRAM = d.TotalVRAM - d.FreeVRAM
	}
}
