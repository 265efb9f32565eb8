package transport

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const initialEvents = 128

// Poller is an edge-triggered epoll instance. It is not safe for concurrent
// use except for Wake, which may be called from any goroutine.
type Poller struct {
	epfd   int
	wakefd int
	tokens map[int32]Token
	events []unix.EpollEvent
}

// NewPoller 创建 epoll 实例以及用于唤醒的 eventfd
func NewPoller(capacity int) (*Poller, error) {
	if capacity <= 0 {
		capacity = initialEvents
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll_ctl wakefd: %w", err)
	}
	return &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		tokens: make(map[int32]Token),
		events: make([]unix.EpollEvent, capacity),
	}, nil
}

// Register adds fd to the interest list under tok.
func (p *Poller) Register(fd int, tok Token, in Interest) error {
	ev := unix.EpollEvent{Events: epollFlags(in), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd=%d: %w", fd, err)
	}
	p.tokens[int32(fd)] = tok
	return nil
}

// Deregister removes fd from the interest list. It must be called before the
// fd is closed, otherwise a reused fd number could inherit the old token.
func (p *Poller) Deregister(fd int) error {
	if _, ok := p.tokens[int32(fd)]; !ok {
		return ErrNotRegistered
	}
	delete(p.tokens, int32(fd))
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks until at least one registered fd is ready or Wake is called,
// and appends the ready events to buf[:0]. A wake-up alone yields an empty
// batch.
func (p *Poller) Wait(buf []Event) ([]Event, error) {
	buf = buf[:0]
	var n int
	var err error
	for {
		n, err = unix.EpollWait(p.epfd, p.events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EBADF {
				return buf, ErrPollerClosed
			}
			return buf, fmt.Errorf("epoll_wait: %w", err)
		}
		break
	}
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		if int(ev.Fd) == p.wakefd {
			p.drainWake()
			continue
		}
		tok, ok := p.tokens[ev.Fd]
		if !ok {
			continue
		}
		buf = append(buf, Event{
			Token:    tok,
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	// 事件缓冲区被填满说明可能还有就绪事件，扩容供下一次 Wait 使用
	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, 2*len(p.events))
	}
	return buf, nil
}

// Wake interrupts a blocked Wait.
func (p *Poller) Wake() error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], 1)
	_, err := unix.Write(p.wakefd, b[:])
	if err == unix.EAGAIN {
		// counter saturated, a wake-up is already pending
		return nil
	}
	return err
}

func (p *Poller) drainWake() {
	var b [8]byte
	for {
		if _, err := unix.Read(p.wakefd, b[:]); err != nil {
			return
		}
	}
}

// Close releases the epoll instance. Registered fds are left open.
func (p *Poller) Close() error {
	err := unix.Close(p.wakefd)
	if cerr := unix.Close(p.epfd); err == nil {
		err = cerr
	}
	return err
}

func epollFlags(in Interest) uint32 {
	flags := uint32(unix.EPOLLET)
	if in&Readable != 0 {
		flags |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if in&Writable != 0 {
		flags |= unix.EPOLLOUT
	}
	return flags
}
