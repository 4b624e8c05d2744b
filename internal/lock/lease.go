// Package lock provides leases that keep a background pass from
// running on more than one replica at a time.
package lock

import "context"

type Lease interface {
	// Acquire returns true when this process holds the lease for one
	// pass. A false return is not an error; another holder simply won.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lease up early. Safe to call without holding it.
	Release(ctx context.Context)
}
