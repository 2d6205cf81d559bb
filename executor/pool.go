package executor

import (
	"runtime"
	"sync"
)

// Pool runs completion callbacks on a fixed set of worker goroutines so
// that user code never executes on a transport's loop goroutine.
type Pool struct {
	tasks chan func()
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		tasks: make(chan func(), workers*16),
		quit:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Schedule queues fn for execution on some worker. Scheduling after
// Shutdown is a no-op.
func (p *Pool) Schedule(fn func()) {
	select {
	case p.tasks <- fn:
	case <-p.quit:
	}
}

// Shutdown stops the workers after they drain what was already queued.
// Idempotent.
func (p *Pool) Shutdown() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case fn := <-p.tasks:
			run(fn)
		case <-p.quit:
			for {
				select {
				case fn := <-p.tasks:
					run(fn)
				default:
					return
				}
			}
		}
	}
}

func run(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
