package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func write(b *lineBuffer, s string) int {
	n := copy(b.free(), s)
	b.commit(n)
	return n
}

func TestLineBuffer_NextAndCompact(t *testing.T) {
	b := newLineBuffer(16)
	write(b, "ab\ncd\nef")

	line, ok := b.next()
	assert.True(t, ok)
	assert.Equal(t, "ab", string(line))
	line, ok = b.next()
	assert.True(t, ok)
	assert.Equal(t, "cd", string(line))
	_, ok = b.next()
	assert.False(t, ok)

	b.compact()
	assert.Equal(t, 2, b.buffered())
	assert.Equal(t, 14, len(b.free()))

	write(b, "g\n")
	line, ok = b.next()
	assert.True(t, ok)
	assert.Equal(t, "efg", string(line))
}

func TestLineBuffer_FullWithoutTerminator(t *testing.T) {
	b := newLineBuffer(4)
	assert.Equal(t, 4, write(b, "abcdef"))
	assert.True(t, b.full())
	_, ok := b.next()
	assert.False(t, ok)
	b.compact()
	assert.True(t, b.full())

	b.reset()
	assert.Equal(t, 0, b.buffered())
	assert.False(t, b.full())
}

func TestLineBuffer_EmptyLines(t *testing.T) {
	b := newLineBuffer(8)
	write(b, "\n\n")
	for i := 0; i < 2; i++ {
		line, ok := b.next()
		assert.True(t, ok)
		assert.Empty(t, line)
	}
	_, ok := b.next()
	assert.False(t, ok)
}
