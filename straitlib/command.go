package straitlib

import "time"

type commandOp uint8

const (
	opConnect commandOp = iota
	opRequest
	opQuit
)

// command is the control protocol between caller goroutines and the loop
// goroutine: a typed message over the loop's injection channel instead of
// frames over a thread-local socket. The connect reply travels back on a
// buffered channel.
type command struct {
	op commandOp

	// opConnect
	endpoint  string
	connected chan uint64 // receives the assigned connection index

	// opRequest
	connID   uint64
	payload  [][]byte
	resp     *RemoteResponse
	start    time.Time
	deadline time.Duration
	callback func()
}
