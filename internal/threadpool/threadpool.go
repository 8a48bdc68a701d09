// Package threadpool provides interchangeable task-execution strategies
// for the server: spawn-per-connection, a fixed worker pool over a shared
// queue, and a pool backed by a third-party work-stealing scheduler.
package threadpool

import (
	"fmt"
	"log/slog"
)

// Kind names a pool implementation, as configured in config.yml.
type Kind string

const (
	KindNaive       Kind = "naive"
	KindSharedQueue Kind = "shared_queue"
	KindAnts        Kind = "ants"
)

// Pool executes submitted tasks, each a plain func(), on some number of
// background goroutines.
type Pool interface {
	// Submit schedules task for execution. It returns immediately.
	Submit(task func())
	// Release stops accepting new tasks and releases pool resources.
	// In-flight tasks are not waited on.
	Release()
}

// New constructs the pool named by kind with size workers (size is
// ignored by KindNaive, which has no fixed worker count).
func New(kind Kind, size int) (Pool, error) {
	switch kind {
	case KindNaive, "":
		return NaiveNew(size)
	case KindSharedQueue:
		return SharedQueueNew(size)
	case KindAnts:
		return AntsNew(size)
	default:
		return nil, fmt.Errorf("threadpool: unknown pool kind %q", kind)
	}
}

var _ Pool = (*NaivePool)(nil)
var _ Pool = (*SharedQueuePool)(nil)
var _ Pool = (*AntsPool)(nil)

// recoverTask runs task and logs (rather than propagates) a panic, so one
// bad request can never take down a worker goroutine silently.
func recoverTask(task func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("threadpool: task panicked", "recovered", r)
			}
		}()
		task()
	}
}
