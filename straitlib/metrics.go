package straitlib

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var DefaultTickerDuration = 1 * time.Second

var zeroTime time.Time

var pendingRequestPool = &PendingRequestPool{m: newPoolMetrics()}

var (
	requestsSent      = metrics.NewCounter("strait_requests_sent_total")
	repliesMatched    = metrics.NewCounter("strait_replies_matched_total")
	deadlinesExceeded = metrics.NewCounter("strait_deadlines_exceeded_total")
	lateReplies       = metrics.NewCounter("strait_late_replies_total")
	droppedCallbacks  = metrics.NewCounter("strait_dropped_callbacks_total")
	droppedWrites     = metrics.NewCounter("strait_dropped_writes_total")
)

// na + nr equal the total number of acquires
// na + nr - np equal the number of still running.
type PoolMetrics struct {
	na uint32 // number of new acquires
	nr uint32 // number of reuse from pool
	np uint32 // number of put back to pool

	naa uint64 // accumulative
	nra uint64 // accumulative
	npa uint64 // accumulative

	done    chan struct{}
	started uint32 // atomic

	startOnce sync.Once
	stopOnce  sync.Once
}

func newPoolMetrics() *PoolMetrics {
	pm := &PoolMetrics{}
	pm.done = make(chan struct{})

	return pm
}

// release stops the ticker goroutine. Idempotent; a no-op before start.
func (p *PoolMetrics) release() {
	if atomic.LoadUint32(&p.started) == 0 {
		return
	}
	p.stopOnce.Do(func() {
		p.done <- struct{}{}
	})
}

func (p *PoolMetrics) setMetrics() {
	atomic.AddUint64(&p.naa, uint64(atomic.SwapUint32(&p.na, uint32(0))))
	atomic.AddUint64(&p.nra, uint64(atomic.SwapUint32(&p.nr, uint32(0))))
	atomic.AddUint64(&p.npa, uint64(atomic.SwapUint32(&p.np, uint32(0))))
}

func (p *PoolMetrics) start() {
	p.startOnce.Do(func() {
		atomic.StoreUint32(&p.started, 1)
		timer := time.NewTicker(DefaultTickerDuration)

		go func() {
			defer timer.Stop()
			defer close(p.done)

			for {
				select {
				case <-timer.C:
					p.setMetrics()
				case <-p.done:
					p.setMetrics()
					return
				}
			}
		}()
	})
}

func (p *PoolMetrics) metricsString() string {
	return fmt.Sprintf("[ %v|%v|%v, %v|%v|%v ]", p.na, p.nr, p.np, p.naa, p.nra, p.npa)
}

func StartPoolMetrics() {
	pendingRequestPool.m.start()
}

func ReleasePoolMetrics() {
	pendingRequestPool.m.release()
}

func JsonStringPoolMetrics() string {
	return fmt.Sprintf("{\"pendingRequestPool\" = %s}", pendingRequestPool.m.metricsString())
}
