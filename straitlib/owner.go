package straitlib

import (
	"fmt"
	"log"
	"sync"

	"github.com/TheSmallBoat/strait/reactor"
	"github.com/lithdew/bytesutil"
)

// owner is the single goroutine owning all mutable transport state.
// Commands from caller goroutines and replies from connection readers
// both arrive as loop callbacks, so the reply path and the timeout path
// of one request can never run concurrently: whichever fires first
// removes the correlation entry, and the loser finds the key missing and
// does nothing. Every pending request therefore resolves exactly once.
type owner struct {
	exec Executor
	loop *reactor.Loop

	conns   []*managedConn             // connection table, loop goroutine only
	pending map[uint64]*pendingRequest // correlation table, loop goroutine only
	ids     *eventIDGenerator

	wg sync.WaitGroup // dialer, reader and writer goroutines
}

func newOwner(exec Executor) *owner {
	return &owner{
		exec:    exec,
		loop:    reactor.NewLoop(0),
		pending: make(map[uint64]*pendingRequest),
		ids:     newEventIDGenerator(),
	}
}

func (o *owner) post(cmd *command) {
	o.loop.Post(func() { o.handleCommand(cmd) })
}

func (o *owner) run() {
	o.loop.Run()
	for _, mc := range o.conns {
		mc.close()
	}
	o.wg.Wait()
}

func (o *owner) handleCommand(cmd *command) {
	switch cmd.op {
	case opConnect:
		o.handleConnect(cmd)
	case opRequest:
		o.handleRequest(cmd)
	case opQuit:
		o.loop.Stop()
	}
}

func (o *owner) handleConnect(cmd *command) {
	mc := newManagedConn(cmd.endpoint, &o.wg, o.deliver)
	o.conns = append(o.conns, mc)
	cmd.connected <- uint64(len(o.conns) - 1)
}

func (o *owner) handleRequest(cmd *command) {
	if cmd.connID >= uint64(len(o.conns)) {
		panic(fmt.Sprintf("strait: request for unknown connection %d", cmd.connID))
	}

	id := o.ids.next()
	pr := pendingRequestPool.acquire(cmd.resp, cmd.callback, cmd.start, cmd.deadline)
	o.pending[id] = pr
	if pr.deadline > 0 {
		o.loop.RunAt(pr.start.Add(pr.deadline), func() { o.handleTimeout(id) })
	}

	frames := make([][]byte, 0, 2+len(cmd.payload))
	frames = append(frames, nil, bytesutil.AppendUint64BE(nil, id))
	frames = append(frames, cmd.payload...)
	o.conns[cmd.connID].send(frames)
	requestsSent.Inc()
}

// deliver runs on a connection's reader goroutine and hops onto the loop.
func (o *owner) deliver(frames [][]byte) {
	o.loop.Post(func() { o.handleReply(frames) })
}

func (o *owner) handleReply(frames [][]byte) {
	if len(frames) < 2 || len(frames[0]) != 0 || len(frames[1]) != 8 {
		panic("strait: malformed reply message")
	}
	id := bytesutil.Uint64BE(frames[1])

	pr, ok := o.pending[id]
	if !ok {
		// Already resolved by a deadline, or spurious. Expected race.
		lateReplies.Inc()
		return
	}
	delete(o.pending, id)

	pr.resp.resolve(StatusDone, frames[2:])
	repliesMatched.Inc()
	o.finish(pr)
}

func (o *owner) handleTimeout(id uint64) {
	pr, ok := o.pending[id]
	if !ok {
		// The reply won the race.
		return
	}
	delete(o.pending, id)

	pr.resp.resolve(StatusDeadlineExceeded, nil)
	deadlinesExceeded.Inc()
	o.finish(pr)
}

func (o *owner) finish(pr *pendingRequest) {
	if pr.callback != nil {
		if o.exec != nil {
			o.exec.Schedule(pr.callback)
		} else {
			log.Printf("strait: dropping completion callback: no executor configured")
			droppedCallbacks.Inc()
		}
	}
	pendingRequestPool.release(pr)
}
