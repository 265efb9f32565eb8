package transport

import "io"

// Token identifies a registered socket. ListenerToken is reserved for the
// listening endpoint; client tokens start at 1.
type Token uint64

const ListenerToken Token = 0

// Interest 注册时关心的就绪事件
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Event is one readiness notification returned by Poller.Wait.
type Event struct {
	Token    Token
	Readable bool
	Writable bool
}

// Stream is a non-blocking byte stream.
// Read returns io.EOF when the peer closed and ErrWouldBlock when no data is
// available right now; Write returns ErrWouldBlock when the send buffer is full.
type Stream interface {
	io.ReadWriteCloser
	Fd() int
	RemoteAddr() string
}
