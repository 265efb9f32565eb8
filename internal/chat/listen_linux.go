package chat

import (
	"github.com/hongjun500/chat-relay/internal/transport"
)

// Listen binds addr and returns a Server backed by epoll.
func Listen(addr string, opt Options) (*Server, error) {
	ln, err := transport.Listen(addr)
	if err != nil {
		return nil, err
	}
	p, err := transport.NewPoller(opt.EventCapacity)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	s, err := NewServer(ln, p, opt)
	if err != nil {
		_ = p.Close()
		_ = ln.Close()
		return nil, err
	}
	return s, nil
}
