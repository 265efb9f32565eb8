package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/transport"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const (
	defaultMaxLineBytes  = 4096
	defaultEventCapacity = 1024
)

// disconnect reasons, also used as metric labels
const (
	reasonEOF          = "eof"
	reasonError        = "error"
	reasonLineTooLong  = "line_too_long"
	reasonSlowConsumer = "slow_consumer"
	reasonShutdown     = "shutdown"
)

// Options configures a Server.
type Options struct {
	MaxLineBytes   int // receive buffer size per client, default 4096
	MaxOutboxBytes int // unsent bytes allowed per client; 0 = unbounded
	EventCapacity  int // initial poll batch size, default 1024
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = defaultMaxLineBytes
	}
	if o.MaxOutboxBytes < 0 {
		o.MaxOutboxBytes = 0
	}
	if o.EventCapacity <= 0 {
		o.EventCapacity = defaultEventCapacity
	}
	if o.Logger == nil {
		o.Logger = logger.L()
	}
	return o
}

// Multiplexer reports socket readiness. *transport.Poller implements it.
type Multiplexer interface {
	Register(fd int, tok transport.Token, in transport.Interest) error
	Deregister(fd int) error
	Wait(buf []transport.Event) ([]transport.Event, error)
	Wake() error
	Close() error
}

// Acceptor is a non-blocking listening endpoint. *transport.Listener
// implements it.
type Acceptor interface {
	Accept() (transport.Stream, error)
	Fd() int
	Addr() string
	Close() error
}

type doomed struct {
	c      *Client
	reason string
	err    error
}

// Server is the chat relay. All of its state is owned by the goroutine
// running Run.
type Server struct {
	opt    Options
	ln     Acceptor
	mux    Multiplexer
	hub    *Hub
	next   transport.Token
	events []transport.Event
	dead   []doomed
	log    *zap.SugaredLogger
}

// NewServer registers ln with mux. Run takes ownership of both.
func NewServer(ln Acceptor, mux Multiplexer, opt Options) (*Server, error) {
	opt = opt.withDefaults()
	if err := mux.Register(ln.Fd(), transport.ListenerToken, transport.Readable); err != nil {
		return nil, fmt.Errorf("register listener: %w", err)
	}
	return &Server{
		opt:    opt,
		ln:     ln,
		mux:    mux,
		hub:    NewHub(),
		events: make([]transport.Event, 0, opt.EventCapacity),
		log:    opt.Logger.Sugar(),
	}, nil
}

func (s *Server) Addr() string { return s.ln.Addr() }

// Run drives the control loop until ctx is cancelled or the listener or
// multiplexer fails. Client socket errors only drop that client. On return
// every client, the listener and the multiplexer are closed.
func (s *Server) Run(ctx context.Context) error {
	defer s.shutdown()
	stop := context.AfterFunc(ctx, func() { _ = s.mux.Wake() })
	defer stop()

	s.log.Infow("tcp_listen", "addr", s.ln.Addr())
	for {
		evs, err := s.mux.Wait(s.events)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		s.events = evs
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.process(evs); err != nil {
			return err
		}
	}
}

// process handles one batch of readiness events. For each client, read
// readiness is handled before write readiness.
func (s *Server) process(evs []transport.Event) error {
	observe.ObservePollBatch(len(evs))
	for _, ev := range evs {
		if ev.Token == transport.ListenerToken {
			if err := s.acceptAll(); err != nil {
				return err
			}
			continue
		}
		c, ok := s.hub.Get(ev.Token)
		if !ok {
			// torn down earlier in this batch
			continue
		}
		if ev.Readable {
			s.readable(c)
		}
		if ev.Writable && !c.closed {
			c.writable = true
			if err := c.Flush(); err != nil {
				s.kill(c, reasonFor(err), err)
			}
		}
		s.reap()
	}
	return nil
}

func (s *Server) acceptAll() error {
	for {
		st, err := s.ln.Accept()
		if errors.Is(err, transport.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		s.next++
		h := s.next
		if err := s.mux.Register(st.Fd(), h, transport.Readable|transport.Writable); err != nil {
			_ = st.Close()
			return fmt.Errorf("register client %d: %w", h, err)
		}
		c := newClient(h, st, s.opt)
		s.hub.RegisterClient(c)
		observe.IncAccepted()
		observe.AddOnline(1)
		s.log.Infow("client_connected", "handle", h, "sid", c.ID, "addr", st.RemoteAddr())
		if err := c.Send(welcome); err != nil {
			s.kill(c, reasonFor(err), err)
			s.reap()
		}
	}
}

func (s *Server) readable(c *Client) {
	eof, err := c.fill(func(line []byte) { s.processLine(c, line) })
	switch {
	case errors.Is(err, ErrLineTooLong):
		c.sendNow(lineTooLongNote)
		s.kill(c, reasonLineTooLong, err)
	case err != nil:
		s.kill(c, reasonError, err)
	case eof:
		s.kill(c, reasonEOF, nil)
	}
}

func (s *Server) reply(c *Client, p *Payload) {
	if err := c.Send(p); err != nil {
		s.kill(c, reasonFor(err), err)
	}
}

// kill marks c for teardown. The client stays in the hub until reap so that
// a broadcast in progress can keep iterating.
func (s *Server) kill(c *Client, reason string, err error) {
	if c.closed {
		return
	}
	c.closed = true
	s.dead = append(s.dead, doomed{c: c, reason: reason, err: err})
}

func (s *Server) reap() {
	for _, d := range s.dead {
		s.drop(d.c, d.reason, d.err)
	}
	s.dead = s.dead[:0]
}

func (s *Server) drop(c *Client, reason string, err error) {
	if _, ok := s.hub.UnregisterClient(c.Handle); !ok {
		return
	}
	if derr := s.mux.Deregister(c.stream.Fd()); derr != nil {
		s.log.Warnw("deregister_error", "handle", c.Handle, "err", derr)
	}
	_ = c.stream.Close()
	c.in.reset()
	observe.AddOnline(-1)
	observe.IncDisconnect(reason)
	fields := []any{"handle", c.Handle, "sid", c.ID, "name", c.Name, "addr", c.RemoteAddr(), "reason", reason}
	if err != nil {
		s.log.Warnw("client_disconnected", append(fields, "err", err)...)
		return
	}
	s.log.Infow("client_disconnected", fields...)
}

func (s *Server) shutdown() {
	s.reap()
	var all []*Client
	s.hub.Each(func(c *Client) { all = append(all, c) })
	for _, c := range all {
		c.closed = true
		s.drop(c, reasonShutdown, nil)
	}
	_ = s.mux.Deregister(s.ln.Fd())
	if err := s.ln.Close(); err != nil {
		s.log.Warnw("listener_close_error", "err", err)
	}
	if err := s.mux.Close(); err != nil {
		s.log.Warnw("poller_close_error", "err", err)
	}
	s.log.Infow("server_stopped", "addr", s.ln.Addr())
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrOutboxFull):
		return reasonSlowConsumer
	case errors.Is(err, errZeroWrite):
		return reasonEOF
	default:
		return reasonError
	}
}
