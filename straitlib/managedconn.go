package straitlib

import (
	"sync"
	"time"

	"github.com/TheSmallBoat/strait/wire"
	"github.com/eapache/queue"
	"github.com/jpillora/backoff"
	"github.com/valyala/bytebufferpool"
)

// maxWriterQueue bounds how many assembled messages may wait on a
// connection that is slow or still dialing. Overflow is dropped: a
// request riding a dropped write resolves only through its deadline.
const maxWriterQueue = 1024

// managedConn is one outbound connection. Dialing is asynchronous with
// backoff, so connecting never fails from the caller's point of view; an
// unreachable endpoint simply never produces replies. The writer drains
// a FIFO of pre-assembled messages, keeping the loop goroutine off the
// socket entirely.
type managedConn struct {
	endpoint string
	deliver  func(frames [][]byte)
	wg       *sync.WaitGroup

	mu     sync.Mutex
	cond   sync.Cond
	writes *queue.Queue // of *bytebufferpool.ByteBuffer
	wc     *wire.Conn   // nil until dialed
	failed bool         // write side broke; further sends are dropped
	done   bool

	stop chan struct{}
}

func newManagedConn(endpoint string, wg *sync.WaitGroup, deliver func([][]byte)) *managedConn {
	mc := &managedConn{
		endpoint: endpoint,
		deliver:  deliver,
		wg:       wg,
		writes:   queue.New(),
		stop:     make(chan struct{}),
	}
	mc.cond.L = &mc.mu
	wg.Add(1)
	go mc.dial()
	return mc
}

func (mc *managedConn) dial() {
	defer mc.wg.Done()

	b := &backoff.Backoff{
		Factor: 1.25,
		Jitter: true,
		Min:    50 * time.Millisecond,
		Max:    1 * time.Second,
	}

	for {
		wc, err := wire.Dial(mc.endpoint)
		if err == nil {
			mc.attach(wc)
			return
		}

		select {
		case <-mc.stop:
			return
		case <-time.After(b.Duration()):
		}
	}
}

func (mc *managedConn) attach(wc *wire.Conn) {
	mc.mu.Lock()
	if mc.done {
		mc.mu.Unlock()
		_ = wc.Close()
		return
	}
	mc.wc = wc
	mc.mu.Unlock()

	mc.wg.Add(2)
	go mc.readLoop(wc)
	go mc.writeLoop(wc)
}

func (mc *managedConn) readLoop(wc *wire.Conn) {
	defer mc.wg.Done()
	for {
		frames, err := wc.ReadMessage()
		if err != nil {
			return
		}
		mc.deliver(frames)
	}
}

func (mc *managedConn) writeLoop(wc *wire.Conn) {
	defer mc.wg.Done()
	for {
		mc.mu.Lock()
		for mc.writes.Length() == 0 && !mc.done {
			mc.cond.Wait()
		}
		if mc.writes.Length() == 0 {
			mc.mu.Unlock()
			return
		}
		buf := mc.writes.Remove().(*bytebufferpool.ByteBuffer)
		mc.mu.Unlock()

		err := wc.WriteBytes(buf.B)
		bytebufferpool.Put(buf)
		if err != nil {
			mc.fail()
			return
		}
	}
}

func (mc *managedConn) fail() {
	mc.mu.Lock()
	mc.failed = true
	for mc.writes.Length() > 0 {
		bytebufferpool.Put(mc.writes.Remove().(*bytebufferpool.ByteBuffer))
	}
	mc.mu.Unlock()
}

// send queues one assembled message. Called from the loop goroutine only.
func (mc *managedConn) send(frames [][]byte) {
	buf := bytebufferpool.Get()
	buf.B = wire.AppendMessage(buf.B, frames)

	mc.mu.Lock()
	if mc.done || mc.failed || mc.writes.Length() >= maxWriterQueue {
		mc.mu.Unlock()
		bytebufferpool.Put(buf)
		droppedWrites.Inc()
		return
	}
	mc.writes.Add(buf)
	mc.cond.Signal()
	mc.mu.Unlock()
}

// close wakes every goroutine attached to the connection. There is no
// graceful teardown: queued writes go down with the socket.
func (mc *managedConn) close() {
	mc.mu.Lock()
	if mc.done {
		mc.mu.Unlock()
		return
	}
	mc.done = true
	wc := mc.wc
	mc.cond.Broadcast()
	mc.mu.Unlock()

	close(mc.stop)
	if wc != nil {
		_ = wc.Close()
	}
}
