package chat

import "bytes"

// lineBuffer accumulates received bytes and cuts them into '\n'-terminated
// lines. Capacity is fixed; leftover partial lines are moved to the front by
// compact, so a line longer than the capacity can never complete.
type lineBuffer struct {
	buf   []byte
	start int // first unconsumed byte
	end   int // write cursor
}

func newLineBuffer(size int) *lineBuffer {
	return &lineBuffer{buf: make([]byte, size)}
}

// free returns the writable tail of the buffer.
func (b *lineBuffer) free() []byte { return b.buf[b.end:] }

func (b *lineBuffer) commit(n int) { b.end += n }

func (b *lineBuffer) full() bool { return b.end == len(b.buf) }

func (b *lineBuffer) buffered() int { return b.end - b.start }

// next returns the next complete line without its terminator. The slice
// aliases the buffer and is only valid until the next compact or read.
func (b *lineBuffer) next() ([]byte, bool) {
	i := bytes.IndexByte(b.buf[b.start:b.end], '\n')
	if i < 0 {
		return nil, false
	}
	line := b.buf[b.start : b.start+i]
	b.start += i + 1
	return line, true
}

func (b *lineBuffer) compact() {
	if b.start == 0 {
		return
	}
	b.end = copy(b.buf, b.buf[b.start:b.end])
	b.start = 0
}

func (b *lineBuffer) reset() { b.start, b.end = 0, 0 }
