package balancer

import "sort"

// Allocation is one (worker, chunk size) pair in a dispatch plan (spec.md
// §4.3).
type Allocation struct {
	Worker *WorkerDescriptor
	Count  int
}

// candidate is a worker's eligibility figures for one allocation pass.
type candidate struct {
	worker       *WorkerDescriptor
	memPerTask   uint64
	predictedFree int64 // signed: predicted free VRAM can go negative
}

// memPerTask estimates the per-task memory cost of w, per the three-branch
// formula of spec.md §4.3. The "tasks == 0 and no usable last_evaluation"
// case falls through to the max(free, 1) fallback, resolving the Open
// Question in spec.md §9 exactly as directed.
func memPerTask(w *WorkerDescriptor) uint64 {
	active := int64(w.TotalVRAM) - int64(w.FreeVRAM) - int64(w.IdleVRAM)
	if active < 0 {
		active = 0
	}

	if w.Tasks > 0 {
		return uint64(active) / uint64(w.Tasks)
	}
	if w.LastExecution != nil && w.LastExecution.Tasks > 0 {
		last := int64(w.TotalVRAM) - int64(w.LastExecution.FreeVRAM) - int64(w.IdleVRAM)
		if last < 0 {
			last = 0
		}
		return uint64(last) / w.LastExecution.Tasks
	}
	if w.FreeVRAM > 0 {
		return w.FreeVRAM
	}
	return 1
}

// chooseAllocation picks the workers and chunk sizes that will serve N
// phrases, in ascending predicted-free-memory order (spec.md §4.3): the
// worker with the tightest nonzero headroom is exhausted first, so that
// workers with more slack remain free for future requests. Returns nil if no
// eligible worker exists.
func chooseAllocation(workers []*WorkerDescriptor, n int, exceptions map[string]bool) []Allocation {
	var candidates []candidate
	for _, w := range workers {
		if !w.known() || exceptions[w.Address] {
			continue
		}
		cost := memPerTask(w)
		candidates = append(candidates, candidate{
			worker:        w,
			memPerTask:    cost,
			predictedFree: int64(w.FreeVRAM) - int64(cost)*int64(n),
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].predictedFree < candidates[j].predictedFree
	})

	var plan []Allocation
	allocated := 0
	for _, c := range candidates {
		var due int
		if c.memPerTask > 0 {
			due = int(c.worker.FreeVRAM / c.memPerTask)
		} else {
			due = n - allocated
		}
		plan = append(plan, Allocation{Worker: c.worker, Count: due})
		allocated += due
		// Strict inequality preserved per spec.md §9's explicit Open
		// Question resolution: the exact-fit case may leave one extra chunk.
		if allocated > n {
			break
		}
	}
	return plan
}
