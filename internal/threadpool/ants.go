package threadpool

import (
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// AntsPool delegates to a ready-made work-stealing goroutine pool
// (panjf2000/ants), standing in for a library-backed scheduler the way
// the Rust original delegates to rayon.
type AntsPool struct {
	pool *ants.Pool
}

// AntsNew constructs a pool capped at size concurrent goroutines. size <=
// 0 means ants.DefaultAntsPoolSize.
func AntsNew(size int) (*AntsPool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(r interface{}) {
		slog.Error("threadpool: ants task panicked", "recovered", r)
	}))
	if err != nil {
		return nil, err
	}
	return &AntsPool{pool: pool}, nil
}

// Submit implements Pool.
func (p *AntsPool) Submit(task func()) {
	if err := p.pool.Submit(task); err != nil {
		slog.Error("threadpool: ants submit failed", "error", err)
	}
}

// Release implements Pool.
func (p *AntsPool) Release() {
	p.pool.Release()
}
