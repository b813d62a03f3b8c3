package symtab

import (
	"bytes"
	"errors"
)

const (
	// escapeByte prefixes a literal byte the table has no symbol for, so
	// codes 0x00..0xFE are free for learned symbols.
	escapeByte = 0xFF

	// maxSymbols is the number of single-byte codes available for learned
	// symbols.
	maxSymbols = 255

	// maxSymbolLen caps learned symbols at eight bytes. Dictionary bodies
	// are dominated by short tag names and delta-integer runs; longer
	// symbols buy almost nothing and grow the table.
	maxSymbolLen = 8
)

// tableVersion is the first byte of a serialized table.
const tableVersion = 1

var (
	// ErrBadVersion is returned when a serialized table carries a version
	// byte this reader does not understand.
	ErrBadVersion = errors.New("symtab: unsupported table version")
	// ErrCorrupt is returned when a serialized table is truncated or
	// declares an impossible symbol.
	ErrCorrupt = errors.New("symtab: corrupt table")
)

// Table maps up to 255 learned byte strings (1-8 bytes each) onto
// single-byte codes. Input bytes not covered by any symbol are written as
// an escape pair, so every byte stream round-trips regardless of what the
// table was trained on.
//
// Build one with Train, persist it with MarshalBinary, restore it with
// UnmarshalBinary. A Table is read-only after training; lazily built
// encoder state makes EncodeAll non-reentrant, so share tables across
// goroutines only for decoding.
type Table struct {
	syms [][]byte // code -> symbol bytes

	// byFirst lists, per leading byte, the codes of every symbol starting
	// with that byte, longest symbol first, so encoding is a first-byte
	// bucket scan for the longest match.
	byFirst [256][]byte
	indexed bool
}

// SymbolCount returns the number of learned symbols.
func (t *Table) SymbolCount() int { return len(t.syms) }

func (t *Table) buildIndex() {
	if t.indexed {
		return
	}
	for i := range t.byFirst {
		t.byFirst[i] = nil
	}
	for length := maxSymbolLen; length >= 1; length-- {
		for code, s := range t.syms {
			if len(s) == length {
				t.byFirst[s[0]] = append(t.byFirst[s[0]], byte(code))
			}
		}
	}
	t.indexed = true
}

// match returns the code and length of the longest symbol prefixing src,
// or n == 0 when no symbol matches. src must be non-empty.
func (t *Table) match(src []byte) (code byte, n int) {
	for _, c := range t.byFirst[src[0]] {
		if s := t.syms[c]; len(s) <= len(src) && bytes.HasPrefix(src, s) {
			return c, len(s)
		}
	}
	return 0, 0
}

// EncodeAll compresses src into a newly allocated slice. Bytes no symbol
// covers cost two bytes each (escape + literal), so the output is at worst
// twice the input.
func (t *Table) EncodeAll(src []byte) []byte {
	t.buildIndex()
	out := make([]byte, 0, len(src))
	for pos := 0; pos < len(src); {
		if c, n := t.match(src[pos:]); n > 0 {
			out = append(out, c)
			pos += n
		} else {
			out = append(out, escapeByte, src[pos])
			pos++
		}
	}
	return out
}

// DecodeAll expands src into a newly allocated slice. Decoding never
// fails: a code beyond the symbol count decodes to nothing and a trailing
// escape is dropped, so corrupt input degrades instead of panicking.
func (t *Table) DecodeAll(src []byte) []byte {
	out := make([]byte, 0, len(src)*3)
	for pos := 0; pos < len(src); {
		c := src[pos]
		pos++
		if c == escapeByte {
			if pos < len(src) {
				out = append(out, src[pos])
				pos++
			}
			continue
		}
		if int(c) < len(t.syms) {
			out = append(out, t.syms[c]...)
		}
	}
	return out
}

// MarshalBinary serializes the table: a version byte, the symbol count,
// then each symbol as a length byte followed by its bytes.
func (t *Table) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tableVersion)
	buf.WriteByte(byte(len(t.syms)))
	for _, s := range t.syms {
		buf.WriteByte(byte(len(s)))
		buf.Write(s)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a table written by MarshalBinary, replacing any
// existing contents.
func (t *Table) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return ErrCorrupt
	}
	if data[0] != tableVersion {
		return ErrBadVersion
	}
	count := int(data[1])
	syms := make([][]byte, 0, count)
	pos := 2
	for i := 0; i < count; i++ {
		if pos >= len(data) {
			return ErrCorrupt
		}
		length := int(data[pos])
		pos++
		if length < 1 || length > maxSymbolLen || pos+length > len(data) {
			return ErrCorrupt
		}
		syms = append(syms, append([]byte(nil), data[pos:pos+length]...))
		pos += length
	}
	t.syms = syms
	t.indexed = false
	return nil
}
