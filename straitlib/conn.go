package straitlib

import "time"

// Conn is a lightweight copyable handle to one outbound connection. There
// is no close operation: a connection lives as long as its manager.
type Conn struct {
	mgr *Manager
	id  uint64
}

// ID returns the connection's index within its manager.
func (c Conn) ID() uint64 { return c.id }

// SendRequest issues an asynchronous request and returns immediately.
// resp and payload must stay valid until the request resolves. A
// deadline <= 0 means none: if the remote never replies, resp stays
// StatusPending forever. The deadline is measured from this call, not
// from when the loop goroutine picks the command up. callback, if
// non-nil, runs exactly once on the manager's executor when the request
// resolves, whichever way it resolves. Callers observe completion by
// polling resp.Status() or through the callback.
func (c Conn) SendRequest(payload [][]byte, resp *RemoteResponse, deadline time.Duration, callback func()) {
	c.mgr.owner.post(&command{
		op:       opRequest,
		connID:   c.id,
		payload:  payload,
		resp:     resp,
		start:    time.Now(),
		deadline: deadline,
		callback: callback,
	})
}
