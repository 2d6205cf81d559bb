package straitlib

import (
	"sync"
	"sync/atomic"
	"time"
)

// pendingRequest tracks one in-flight request from send until it
// resolves. Acquired, resolved and released exclusively by the manager's
// loop goroutine, exactly once per request.
type pendingRequest struct {
	resp     *RemoteResponse
	callback func()        // handed to the executor on resolution, may be nil
	start    time.Time
	deadline time.Duration // <= 0 means no deadline
}

type PendingRequestPool struct {
	sp sync.Pool
	m  *PoolMetrics
}

func (p *PendingRequestPool) acquire(resp *RemoteResponse, callback func(), start time.Time, deadline time.Duration) *pendingRequest {
	v := p.sp.Get()
	if v == nil {
		v = &pendingRequest{}
		atomic.AddUint32(&p.m.na, uint32(1))
	} else {
		atomic.AddUint32(&p.m.nr, uint32(1))
	}
	pr := v.(*pendingRequest)
	pr.resp = resp
	pr.callback = callback
	pr.start = start
	pr.deadline = deadline
	return pr
}

func (p *PendingRequestPool) release(pr *pendingRequest) {
	pr.resp = nil
	pr.callback = nil
	pr.start = zeroTime
	p.sp.Put(pr)
	atomic.AddUint32(&p.m.np, uint32(1))
}
