package chat

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hongjun500/chat-relay/internal/transport"
)

// fakeStream replays scripted reads and accepts writes up to room bytes.
type fakeStream struct {
	fd        int
	reads     [][]byte
	eof       bool
	rerr      error
	out       bytes.Buffer
	room      int // -1 = unlimited
	werr      error
	zeroWrite bool
	closed    bool
}

func newFakeStream(fd int) *fakeStream { return &fakeStream{fd: fd, room: -1} }

func (f *fakeStream) feed(chunks ...string) {
	for _, c := range chunks {
		f.reads = append(f.reads, []byte(c))
	}
}

func (f *fakeStream) Read(p []byte) (int, error) {
	if len(f.reads) > 0 {
		n := copy(p, f.reads[0])
		if n < len(f.reads[0]) {
			f.reads[0] = f.reads[0][n:]
		} else {
			f.reads = f.reads[1:]
		}
		return n, nil
	}
	if f.rerr != nil {
		return 0, f.rerr
	}
	if f.eof {
		return 0, io.EOF
	}
	return 0, transport.ErrWouldBlock
}

func (f *fakeStream) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("write on closed stream")
	}
	if f.werr != nil {
		return 0, f.werr
	}
	if f.zeroWrite {
		return 0, nil
	}
	if f.room == 0 {
		return 0, transport.ErrWouldBlock
	}
	n := len(p)
	if f.room > 0 && n > f.room {
		n = f.room
	}
	if f.room > 0 {
		f.room -= n
	}
	f.out.Write(p[:n])
	return n, nil
}

// take returns and clears everything written so far.
func (f *fakeStream) take() string {
	s := f.out.String()
	f.out.Reset()
	return s
}

func (f *fakeStream) Fd() int            { return f.fd }
func (f *fakeStream) RemoteAddr() string { return "fake" }
func (f *fakeStream) Close() error       { f.closed = true; return nil }

type fakeListener struct {
	pending []transport.Stream
	err     error
	closed  bool
}

func (l *fakeListener) Accept() (transport.Stream, error) {
	if l.err != nil {
		return nil, l.err
	}
	if len(l.pending) == 0 {
		return nil, transport.ErrWouldBlock
	}
	s := l.pending[0]
	l.pending = l.pending[1:]
	return s, nil
}

func (l *fakeListener) Fd() int      { return 3 }
func (l *fakeListener) Addr() string { return "fake:0" }
func (l *fakeListener) Close() error { l.closed = true; return nil }

type fakeMux struct {
	registered map[int]transport.Token
	batches    chan []transport.Event
	woke       chan struct{}
	wakeOnce   sync.Once
	regErr     error
	closed     bool
}

func newFakeMux() *fakeMux {
	return &fakeMux{
		registered: make(map[int]transport.Token),
		batches:    make(chan []transport.Event, 16),
		woke:       make(chan struct{}),
	}
}

func (m *fakeMux) Register(fd int, tok transport.Token, _ transport.Interest) error {
	if m.regErr != nil && tok != transport.ListenerToken {
		return m.regErr
	}
	m.registered[fd] = tok
	return nil
}

func (m *fakeMux) Deregister(fd int) error {
	if _, ok := m.registered[fd]; !ok {
		return transport.ErrNotRegistered
	}
	delete(m.registered, fd)
	return nil
}

func (m *fakeMux) Wait(buf []transport.Event) ([]transport.Event, error) {
	select {
	case b := <-m.batches:
		return append(buf[:0], b...), nil
	case <-m.woke:
		return buf[:0], nil
	}
}

func (m *fakeMux) Wake() error {
	m.wakeOnce.Do(func() { close(m.woke) })
	return nil
}

func (m *fakeMux) Close() error { m.closed = true; return nil }

// harness drives Server.process directly, one batch at a time.
type harness struct {
	t   *testing.T
	s   *Server
	ln  *fakeListener
	mux *fakeMux
	fd  int
}

func newHarness(t *testing.T, opt Options) *harness {
	t.Helper()
	opt.Logger = zap.NewNop()
	ln := &fakeListener{}
	mux := newFakeMux()
	s, err := NewServer(ln, mux, opt)
	require.NoError(t, err)
	return &harness{t: t, s: s, ln: ln, mux: mux, fd: 100}
}

// accept queues a connection and delivers the listener event. The new client
// has not seen write readiness yet.
func (h *harness) accept() (transport.Token, *fakeStream) {
	h.t.Helper()
	h.fd++
	st := newFakeStream(h.fd)
	h.ln.pending = append(h.ln.pending, st)
	h.process(transport.Event{Token: transport.ListenerToken, Readable: true})
	return h.s.next, st
}

// connect accepts a client, lets it flush the banner and discards it.
func (h *harness) connect() (transport.Token, *fakeStream) {
	h.t.Helper()
	tok, st := h.accept()
	h.process(transport.Event{Token: tok, Writable: true})
	require.Equal(h.t, welcome.String(), st.take())
	return tok, st
}

func (h *harness) send(tok transport.Token, st *fakeStream, chunks ...string) {
	h.t.Helper()
	st.feed(chunks...)
	h.process(transport.Event{Token: tok, Readable: true})
}

func (h *harness) process(evs ...transport.Event) {
	h.t.Helper()
	require.NoError(h.t, h.s.process(evs))
}

func (h *harness) client(tok transport.Token) *Client {
	h.t.Helper()
	c, ok := h.s.hub.Get(tok)
	require.True(h.t, ok, "client %d not registered", tok)
	return c
}

func (h *harness) connected(tok transport.Token) bool {
	_, ok := h.s.hub.Get(tok)
	return ok
}
