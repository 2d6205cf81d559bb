package wire

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lithdew/bytesutil"
	"github.com/valyala/bytebufferpool"
)

// A message is a short sequence of opaque frames. Anything past these
// limits is an internal protocol violation, not a legitimate payload.
const (
	MaxFrames    = 64
	MaxFrameSize = 1 << 24
)

var DefaultDialTimeout = 3 * time.Second

// Conn frames multipart messages over a stream transport. The read side
// belongs to a single reader goroutine and the write side to a single
// writer goroutine; Conn itself does no locking.
type Conn struct {
	raw net.Conn
	br  *bufio.Reader
	bw  *bufio.Writer
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, br: bufio.NewReader(raw), bw: bufio.NewWriter(raw)}
}

// Dial opens an outbound connection with linger disabled, so undelivered
// bytes are dropped instantly when the socket shuts down.
func Dial(endpoint string) (*Conn, error) {
	raw, err := net.DialTimeout("tcp", endpoint, DefaultDialTimeout)
	if err != nil {
		return nil, err
	}
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
		_ = tcp.SetNoDelay(true)
	}
	return NewConn(raw), nil
}

// AppendMessage appends the encoding of a frame list to dst: a u32 frame
// count, then per frame a u32 length followed by its bytes.
func AppendMessage(dst []byte, frames [][]byte) []byte {
	dst = bytesutil.AppendUint32BE(dst, uint32(len(frames)))
	for _, frame := range frames {
		dst = bytesutil.AppendUint32BE(dst, uint32(len(frame)))
		dst = append(dst, frame...)
	}
	return dst
}

func (c *Conn) WriteMessage(frames [][]byte) error {
	buf := bytebufferpool.Get()
	buf.B = AppendMessage(buf.B, frames)
	err := c.WriteBytes(buf.B)
	bytebufferpool.Put(buf)
	return err
}

// WriteBytes writes an already-assembled message and flushes it.
func (c *Conn) WriteBytes(b []byte) error {
	if _, err := c.bw.Write(b); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) ReadMessage() ([][]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(c.br, hdr[:]); err != nil {
		return nil, err
	}
	count := bytesutil.Uint32BE(hdr[:])
	if count == 0 || count > MaxFrames {
		return nil, fmt.Errorf("wire: message claims %d frames", count)
	}

	frames := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(c.br, hdr[:]); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		size := bytesutil.Uint32BE(hdr[:])
		if size > MaxFrameSize {
			return nil, fmt.Errorf("wire: frame of %d bytes exceeds limit", size)
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(c.br, frame); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (c *Conn) Close() error { return c.raw.Close() }
