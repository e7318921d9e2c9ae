package scoring

import (
	"fmt"

	"github.com/shirou/gopsutil/mem"
)

// HostMemoryReporter implements MemoryReporter for the "otherwise" branch of
// spec.md §4.1's VRAM reporting contract: a scorer not resident on an
// accelerator device reports host memory total/available instead. This
// mirrors the Python original's own fallback to psutil.virtual_memory().
type HostMemoryReporter struct{}

// Report returns the current host memory total and available figures.
func (HostMemoryReporter) Report() (MemoryStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, fmt.Errorf("scoring: read host memory: %w", err)
	}
	return MemoryStats{Total: vm.Total, Free: vm.Available}, nil
}

// DeviceMemoryReporter implements MemoryReporter for a scorer resident on an
// accelerator: it reports that device's total memory and the memory
// currently available to this process on it. The accelerator query itself
// is supplied by the caller (the device/driver binding is out of scope per
// spec.md §1); this just adapts a raw (total, free) pair into the interface.
type DeviceMemoryReporter struct {
	Query func() (total, free uint64, err error)
}

// Report delegates to Query.
func (d DeviceMemoryReporter) Report() (MemoryStats, error) {
	total, free, err := d.Query()
	if err != nil {
		return MemoryStats{}, fmt.Errorf("scoring: read device memory: %w", err)
	}
	return MemoryStats{Total: total, Free: free}, nil
}
