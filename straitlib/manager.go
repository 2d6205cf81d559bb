package straitlib

import "sync"

// Executor runs completion callbacks away from the manager's loop
// goroutine, so user code can never stall the loop.
type Executor interface {
	Schedule(fn func())
}

// Manager multiplexes many outbound connections on one loop goroutine.
// Arbitrary goroutines issue commands over the loop's injection channel;
// the loop goroutine is the sole mutator of the connection table, the
// correlation table and the id generator, so none of them are locked.
type Manager struct {
	owner *owner
	done  chan struct{}
	once  sync.Once
}

// NewManager spawns the owner goroutine and returns immediately. exec may
// be nil, in which case completion callbacks are dropped; statuses are
// still finalized.
func NewManager(exec Executor) *Manager {
	m := &Manager{done: make(chan struct{})}
	m.owner = newOwner(exec)
	go func() {
		defer close(m.done)
		m.owner.run()
	}()
	return m
}

// Connect opens an outbound connection to endpoint and blocks until the
// owner goroutine assigns its index. Indices start at 0, increase by one
// per connection and are never reused. Safe to call from many goroutines
// at once. Connecting never fails: an unreachable endpoint yields a
// connection whose requests resolve only through their deadlines.
func (m *Manager) Connect(endpoint string) Conn {
	cmd := &command{op: opConnect, endpoint: endpoint, connected: make(chan uint64, 1)}
	m.owner.post(cmd)
	return Conn{mgr: m, id: <-cmd.connected}
}

// Shutdown stops the owner goroutine and waits for its connections to
// wind down. Outstanding requests are abandoned, not resolved: their
// terminal state is unspecified. Callers must not race Connect or
// SendRequest against Shutdown. Idempotent.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.owner.post(&command{op: opQuit})
		<-m.done
	})
}
