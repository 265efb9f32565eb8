package chat

import (
	"errors"
	"io"
)

// errZeroWrite reports a write that accepted no bytes of a non-empty tail;
// the peer is treated as gone.
var errZeroWrite = errors.New("zero-length write")

type outboxItem struct {
	p   *Payload
	off int
}

// outbox is a FIFO of payloads waiting to be written to one client.
type outbox struct {
	items   []outboxItem
	pending int // unsent bytes across all items
	limit   int // 0 = unbounded
}

func (o *outbox) push(p *Payload) error {
	if p.Len() == 0 {
		return nil
	}
	if o.limit > 0 && o.pending+p.Len() > o.limit {
		return ErrOutboxFull
	}
	o.items = append(o.items, outboxItem{p: p})
	o.pending += p.Len()
	return nil
}

func (o *outbox) empty() bool { return len(o.items) == 0 }

func (o *outbox) len() int { return len(o.items) }

// flush writes queued items in order until the queue drains or w returns an
// error. Partially written items keep their offset for the next call.
func (o *outbox) flush(w io.Writer) (int, error) {
	written := 0
	for len(o.items) > 0 {
		it := &o.items[0]
		n, err := w.Write(it.p.data[it.off:])
		if n > 0 {
			it.off += n
			o.pending -= n
			written += n
		}
		if it.off == it.p.Len() {
			o.items[0] = outboxItem{}
			o.items = o.items[1:]
		}
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, errZeroWrite
		}
	}
	o.items = nil
	return written, nil
}
