// Package instream provides the input side of the stream processor: a
// rune reader with a small pushback window and block/blank sub-readers,
// plus a fixed-capacity circular buffer of symbol codes that gives the
// processor a bounded rewind window for longest-match backtracking.
package instream

import (
	"github.com/apertium/lttoolbox-go/alphabet"
)

// DefaultBufferSize is the capacity used by NewBuffer when the caller
// passes a non-positive size.
const DefaultBufferSize = 2048

// Buffer is a fixed-capacity circular buffer of symbol codes. Positions
// returned by Pos and accepted by SetPos are raw ring indices; they wrap at
// the capacity, so they are only meaningful within one rewind window.
type Buffer struct {
	buf        []alphabet.Symbol
	currentpos int
	lastpos    int
}

// NewBuffer returns a Buffer with the given capacity (DefaultBufferSize if
// size <= 0).
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{buf: make([]alphabet.Symbol, size)}
}

// Add stores value at the write position and moves the read position past
// it.
func (b *Buffer) Add(value alphabet.Symbol) alphabet.Symbol {
	if b.lastpos == len(b.buf) {
		b.lastpos = 0
	}
	b.buf[b.lastpos] = value
	b.lastpos++
	b.currentpos = b.lastpos
	return value
}

// Next consumes and returns the value at the read position. At the write
// position it returns the last value added without advancing.
func (b *Buffer) Next() alphabet.Symbol {
	if b.currentpos == b.lastpos {
		return b.Last()
	}
	if b.currentpos == len(b.buf) {
		b.currentpos = 0
	}
	v := b.buf[b.currentpos]
	b.currentpos++
	return v
}

// Peek returns the value at the read position without consuming it.
func (b *Buffer) Peek() alphabet.Symbol {
	if b.currentpos == b.lastpos {
		return b.Last()
	}
	pos := b.currentpos
	if pos == len(b.buf) {
		pos = 0
	}
	return b.buf[pos]
}

// Last returns the most recently added value.
func (b *Buffer) Last() alphabet.Symbol {
	if b.lastpos != 0 {
		return b.buf[b.lastpos-1]
	}
	return b.buf[len(b.buf)-1]
}

// Pos returns the current read position.
func (b *Buffer) Pos() int { return b.currentpos }

// SetPos rewinds (or advances) the read position to a position previously
// obtained from Pos.
func (b *Buffer) SetPos(pos int) { b.currentpos = pos }

// Back moves the read position n places backwards and returns the value
// now under it.
func (b *Buffer) Back(n int) alphabet.Symbol {
	if b.currentpos >= n {
		b.currentpos -= n
	} else {
		b.currentpos = len(b.buf) - (n - b.currentpos)
	}
	return b.buf[b.currentpos]
}

// DiffPrevPos returns the distance from prevpos forward to the read
// position, accounting for wraparound.
func (b *Buffer) DiffPrevPos(prevpos int) int {
	if b.currentpos >= prevpos {
		return b.currentpos - prevpos
	}
	return b.currentpos + len(b.buf) - prevpos
}

// DiffPostPos returns the distance from the read position forward to
// postpos, accounting for wraparound.
func (b *Buffer) DiffPostPos(postpos int) int {
	if postpos >= b.currentpos {
		return postpos - b.currentpos
	}
	return postpos + len(b.buf) - b.currentpos
}

// IsEmpty reports whether the read position has caught up with the write
// position.
func (b *Buffer) IsEmpty() bool { return b.currentpos == b.lastpos }
