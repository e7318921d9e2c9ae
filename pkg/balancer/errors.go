package balancer

import "fmt"

// SubnodeUnavailableError is raised by refresh when a worker cannot be
// reached, or reports an id matching the balancer's own (loop-back
// misconfiguration) (spec.md §7, kinds 1 and 3).
type SubnodeUnavailableError struct {
	Address string
	Cause   error
}

func (e *SubnodeUnavailableError) Error() string {
	return fmt.Sprintf("balancer: worker %s unavailable: %v", e.Address, e.Cause)
}

func (e *SubnodeUnavailableError) Unwrap() error { return e.Cause }

// errLoopback is the cause recorded when a worker's reported id equals the
// balancer's own (spec.md §4.2, step 2).
var errLoopback = fmt.Errorf("loopback")
