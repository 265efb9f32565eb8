package chat

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/transport"
)

// Client 单个连接的状态，只在控制循环中被访问
type Client struct {
	Handle transport.Token
	ID     string // session id for logs
	Name   string

	stream   transport.Stream
	in       *lineBuffer
	out      outbox
	writable bool
	closed   bool
}

func newClient(h transport.Token, s transport.Stream, opt Options) *Client {
	return &Client{
		Handle: h,
		ID:     uuid.NewString(),
		Name:   fmt.Sprintf("user:%d", h),
		stream: s,
		in:     newLineBuffer(opt.MaxLineBytes),
		out:    outbox{limit: opt.MaxOutboxBytes},
	}
}

// Send queues p and, if the socket is known to be writable, flushes at once.
func (c *Client) Send(p *Payload) error {
	if c.closed {
		return ErrClientClosed
	}
	if err := c.out.push(p); err != nil {
		return err
	}
	if c.writable {
		return c.Flush()
	}
	return nil
}

// Flush writes as much of the outbox as the socket accepts. Running out of
// send buffer space is not an error; the client just stops being writable
// until the next write-readiness event.
func (c *Client) Flush() error {
	n, err := c.out.flush(c.stream)
	if n > 0 {
		observe.AddBytesWritten(n)
	}
	if errors.Is(err, transport.ErrWouldBlock) {
		c.writable = false
		return nil
	}
	return err
}

// sendNow queues p and tries one flush regardless of the writable flag.
// Used for the last words to a client that is about to be dropped.
func (c *Client) sendNow(p *Payload) {
	if c.out.push(p) == nil {
		_ = c.Flush()
	}
}

// Pending reports the number of queued payloads.
func (c *Client) Pending() int { return c.out.len() }

func (c *Client) RemoteAddr() string { return c.stream.RemoteAddr() }

// fill reads until the socket would block, the peer closes or an error
// occurs, handing every complete line to onLine. It reports whether the peer
// closed. Lines terminated before a close or error are still delivered; an
// unterminated tail is dropped with the connection.
func (c *Client) fill(onLine func([]byte)) (eof bool, err error) {
	for {
		if c.in.full() {
			if !c.drain(onLine) {
				return false, nil
			}
			if c.in.full() {
				return false, ErrLineTooLong
			}
		}
		n, rerr := c.stream.Read(c.in.free())
		if n > 0 {
			c.in.commit(n)
			observe.AddBytesRead(n)
		}
		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, transport.ErrWouldBlock):
			if c.drain(onLine) && c.in.full() {
				return false, ErrLineTooLong
			}
			return false, nil
		case errors.Is(rerr, io.EOF):
			c.drain(onLine)
			return true, nil
		default:
			c.drain(onLine)
			return false, rerr
		}
	}
}

// drain dispatches every buffered complete line, then compacts. It returns
// false if the client was closed while handling a line.
func (c *Client) drain(onLine func([]byte)) bool {
	for !c.closed {
		line, ok := c.in.next()
		if !ok {
			break
		}
		onLine(line)
	}
	c.in.compact()
	return !c.closed
}
