package reactor

import (
	"container/heap"
	"time"
)

// Loop is a single-goroutine event multiplexer. Callbacks injected by
// arbitrary goroutines through Post run in order on the loop goroutine,
// interleaved with absolute-time timers scheduled through RunAt. State
// confined to loop callbacks is single-writer by construction, with no
// locks anywhere.
type Loop struct {
	events chan func()

	timers timerHeap // loop goroutine only
	quit   bool      // loop goroutine only

	stopping chan struct{} // closed as Run tears down
	done     chan struct{} // closed once Run has returned
}

func NewLoop(backlog int) *Loop {
	if backlog <= 0 {
		backlog = 1024
	}
	return &Loop{
		events:   make(chan func(), backlog),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Post queues fn to run on the loop goroutine. Safe to call from any
// goroutine, even before Run starts. Once the loop is stopping the
// callback is silently dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.events <- fn:
	case <-l.stopping:
	}
}

// RunAt schedules fn to fire on the loop goroutine at the given time.
// Must be called from a loop callback.
func (l *Loop) RunAt(at time.Time, fn func()) {
	heap.Push(&l.timers, &timerEvent{at: at, fn: fn})
}

// Stop makes Run return after the current iteration. Must be called from
// a loop callback. Pending timers and queued events are abandoned.
func (l *Loop) Stop() { l.quit = true }

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes events until Stop is called from within a callback.
func (l *Loop) Run() {
	defer close(l.done)
	defer close(l.stopping)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for !l.quit {
		var timerC <-chan time.Time
		if len(l.timers) > 0 {
			d := time.Until(l.timers[0].at)
			if d <= 0 {
				ev := heap.Pop(&l.timers).(*timerEvent)
				ev.fn()
				continue
			}
			timer.Reset(d)
			timerC = timer.C
		}

		select {
		case fn := <-l.events:
			fn()
		case <-timerC:
			continue
		}

		if timerC != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

type timerEvent struct {
	at time.Time
	fn func()
}

type timerHeap []*timerEvent

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerEvent)) }

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}
