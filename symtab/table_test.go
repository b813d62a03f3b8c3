package symtab

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// tagBody imitates a serialized alphabet: a run of bracketed tag names
// sharing prefixes, the workload the table exists for.
func tagBody() []byte {
	var buf bytes.Buffer
	tags := []string{"n", "vblex", "vbser", "adj", "adv", "det", "sent", "pl", "sg"}
	for i := 0; i < 60; i++ {
		buf.WriteByte('<')
		buf.WriteString(tags[i%len(tags)])
		buf.WriteByte('>')
	}
	return buf.Bytes()
}

// deltaBody imitates a serialized transducer: runs of small delta-coded
// integers with a few repeating patterns.
func deltaBody() []byte {
	var out []byte
	for i := 0; i < 200; i++ {
		out = append(out, byte(i%7), 1, byte(i%3), 0)
	}
	return out
}

func TestRoundTripTagNames(t *testing.T) {
	body := tagBody()
	tbl := Train([][]byte{body})
	require.Equal(t, body, tbl.DecodeAll(tbl.EncodeAll(body)))
}

func TestRoundTripDeltaIntegers(t *testing.T) {
	body := deltaBody()
	tbl := Train([][]byte{body})
	require.Equal(t, body, tbl.DecodeAll(tbl.EncodeAll(body)))
}

func TestCompressesRepetitiveBodies(t *testing.T) {
	body := bytes.Repeat([]byte("<vblex><n>"), 50)
	tbl := Train([][]byte{body})
	enc := tbl.EncodeAll(body)
	require.Less(t, len(enc), len(body))
	require.Equal(t, body, tbl.DecodeAll(enc))
}

func TestEscapeFallbackRoundTrips(t *testing.T) {
	// Bytes the table never saw still round-trip, at two bytes each.
	tbl := Train([][]byte{[]byte("aaaa")})
	unseen := []byte{0xFF, 0x00, 'z', 0xFE}
	enc := tbl.EncodeAll(unseen)
	require.Equal(t, unseen, tbl.DecodeAll(enc))
	require.LessOrEqual(t, len(enc), 2*len(unseen))
}

func TestEmptyInput(t *testing.T) {
	tbl := Train(nil)
	require.Empty(t, tbl.EncodeAll(nil))
	require.Empty(t, tbl.DecodeAll(nil))
	require.Equal(t, []byte("xy"), tbl.DecodeAll(tbl.EncodeAll([]byte("xy"))))
}

func TestSymbolLengthCap(t *testing.T) {
	tbl := Train([][]byte{tagBody()})
	require.LessOrEqual(t, tbl.SymbolCount(), maxSymbols)
	for _, s := range tbl.syms {
		require.GreaterOrEqual(t, len(s), 1)
		require.LessOrEqual(t, len(s), maxSymbolLen)
	}
}

func TestMarshalUnmarshalPreservesEncoding(t *testing.T) {
	body := tagBody()
	tbl := Train([][]byte{body})
	enc := tbl.EncodeAll(body)

	data, err := tbl.MarshalBinary()
	require.NoError(t, err)

	var restored Table
	require.NoError(t, restored.UnmarshalBinary(data))
	require.Equal(t, tbl.SymbolCount(), restored.SymbolCount())
	require.Equal(t, enc, restored.EncodeAll(body))
	require.Equal(t, body, restored.DecodeAll(enc))
}

func TestUnmarshalRejectsBadVersion(t *testing.T) {
	var tbl Table
	require.ErrorIs(t, tbl.UnmarshalBinary([]byte{99, 0}), ErrBadVersion)
}

func TestUnmarshalRejectsCorrupt(t *testing.T) {
	var tbl Table
	require.ErrorIs(t, tbl.UnmarshalBinary(nil), ErrCorrupt)
	// Declares one symbol but carries none.
	require.ErrorIs(t, tbl.UnmarshalBinary([]byte{tableVersion, 1}), ErrCorrupt)
	// Symbol length beyond the cap.
	require.ErrorIs(t, tbl.UnmarshalBinary([]byte{tableVersion, 1, 9, 'a'}), ErrCorrupt)
	// Symbol bytes cut short.
	require.ErrorIs(t, tbl.UnmarshalBinary([]byte{tableVersion, 1, 3, 'a'}), ErrCorrupt)
}

func TestDecodeCorruptInputNeverPanics(t *testing.T) {
	tbl := Train([][]byte{[]byte("abcabc")})
	// Codes past the symbol count and a trailing escape must not panic.
	_ = tbl.DecodeAll([]byte{0xFE, 0xFD, escapeByte})
	_ = tbl.DecodeAll([]byte{escapeByte})
}
