package straitlib

import "sync/atomic"

type Status uint32

const (
	StatusPending Status = iota
	StatusDone
	StatusDeadlineExceeded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusDone:
		return "DONE"
	case StatusDeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	}
	return "UNKNOWN"
}

// RemoteResponse is written exactly once by the manager's loop goroutine
// and read by the caller. The status store is the release signal: the
// reply frames must not be touched until Status() != StatusPending.
type RemoteResponse struct {
	status uint32
	reply  [][]byte
}

func (r *RemoteResponse) Status() Status {
	return Status(atomic.LoadUint32(&r.status))
}

// Reply returns the reply frames. Valid only once Status is StatusDone.
func (r *RemoteResponse) Reply() [][]byte { return r.reply }

func (r *RemoteResponse) resolve(status Status, reply [][]byte) {
	r.reply = reply
	atomic.StoreUint32(&r.status, uint32(status))
}
