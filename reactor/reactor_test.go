package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoopRunsPostedCallbacksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(0)
	go l.Run()

	var got []int
	for i := 0; i < 64; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { l.Stop() })
	<-l.Done()

	require.Len(t, got, 64)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestRunAtFiresInDeadlineOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(0)
	go l.Run()

	var got []string
	l.Post(func() {
		now := time.Now()
		l.RunAt(now.Add(30*time.Millisecond), func() { got = append(got, "b") })
		l.RunAt(now.Add(10*time.Millisecond), func() { got = append(got, "a") })
		l.RunAt(now.Add(20*time.Millisecond), func() { got = append(got, "c") })
		l.RunAt(now.Add(60*time.Millisecond), func() { l.Stop() })
	})
	<-l.Done()

	require.Equal(t, []string{"a", "c", "b"}, got)
}

func TestRunAtDueTimerFiresBeforeWaiting(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(0)
	go l.Run()

	fired := make(chan struct{})
	l.Post(func() {
		l.RunAt(time.Now().Add(-time.Millisecond), func() {
			close(fired)
			l.Stop()
		})
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("overdue timer did not fire")
	}
	<-l.Done()
}

func TestPostBeforeRunIsNotLost(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(0)

	ran := false
	l.Post(func() { ran = true })
	l.Post(func() { l.Stop() })

	go l.Run()
	<-l.Done()

	require.True(t, ran)
}

func TestPostAfterStopIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop(0)
	go l.Run()
	l.Post(func() { l.Stop() })
	<-l.Done()

	// Must neither block nor panic.
	l.Post(func() { t.Error("callback ran after stop") })
}
