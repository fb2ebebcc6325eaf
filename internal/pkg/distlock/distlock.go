// Package distlock provides distributed locking for harmonization runs.
//
// The artifact store gives last-writer-wins semantics on the "latest"
// names, so overlapping runs over the same input can interleave writes.
// When Redis is configured, the harmonize handler takes a short-TTL lock
// per input file to serialize such runs; without Redis the pipeline
// degrades to plain last-writer-wins.
package distlock

import "context"

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
	// Extend resets the lock's TTL if we still own it. Returns true if
	// the lock was still held.
	Extend(ctx context.Context) (bool, error)
}
