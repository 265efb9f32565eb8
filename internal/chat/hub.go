package chat

import (
	"slices"

	"github.com/hongjun500/chat-relay/internal/transport"
)

// Hub is the registry of connected clients, keyed by handle. It is owned by
// the control loop and never locked.
type Hub struct {
	clients map[transport.Token]*Client
	order   []transport.Token // ascending
}

func NewHub() *Hub {
	return &Hub{clients: make(map[transport.Token]*Client)}
}

// RegisterClient 注册客户端
func (h *Hub) RegisterClient(c *Client) {
	if _, ok := h.clients[c.Handle]; ok {
		return
	}
	h.clients[c.Handle] = c
	i, _ := slices.BinarySearch(h.order, c.Handle)
	h.order = slices.Insert(h.order, i, c.Handle)
}

// UnregisterClient 注销客户端，返回是否存在
func (h *Hub) UnregisterClient(handle transport.Token) (*Client, bool) {
	c, ok := h.clients[handle]
	if !ok {
		return nil, false
	}
	delete(h.clients, handle)
	if i, found := slices.BinarySearch(h.order, handle); found {
		h.order = slices.Delete(h.order, i, i+1)
	}
	return c, true
}

func (h *Hub) Get(handle transport.Token) (*Client, bool) {
	c, ok := h.clients[handle]
	return c, ok
}

func (h *Hub) Len() int { return len(h.clients) }

// Each visits clients in ascending handle order.
func (h *Hub) Each(fn func(*Client)) {
	for _, handle := range h.order {
		fn(h.clients[handle])
	}
}

// Broadcast queues the same payload on every live client except src and
// returns how many accepted it. Clients whose Send fails are reported to
// onErr; removing them is left to the caller.
func (h *Hub) Broadcast(src transport.Token, p *Payload, onErr func(*Client, error)) int {
	delivered := 0
	for _, handle := range h.order {
		if handle == src {
			continue
		}
		c := h.clients[handle]
		if c.closed {
			continue
		}
		if err := c.Send(p); err != nil {
			onErr(c, err)
			continue
		}
		delivered++
	}
	return delivered
}
