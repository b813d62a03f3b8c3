package alphabet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairDecodeRoundTrip(t *testing.T) {
	a := New()
	p1 := a.Pair(104, 72) // 'h', 'H'
	in, out := a.Decode(p1)
	require.Equal(t, Symbol(104), in)
	require.Equal(t, Symbol(72), out)

	// Re-inserting the same pair returns the same code.
	p2 := a.Pair(104, 72)
	require.Equal(t, p1, p2)

	// A new pair gets the next code, equal to the prior size.
	p3 := a.Pair(72, 104)
	require.Equal(t, Pair(a.PairCount()-1), p3)
	require.NotEqual(t, p1, p3)
}

func TestEpsilonPairReserved(t *testing.T) {
	a := New()
	require.Equal(t, Pair(0), a.Pair(Epsilon, Epsilon))
}

func TestIncludeSymbolIdempotent(t *testing.T) {
	a := New()
	a.IncludeSymbol("<n>")
	a.IncludeSymbol("<vblex>")
	a.IncludeSymbol("<n>")
	require.Equal(t, 2, a.TagCount())
	c, ok := a.LookupConst("<n>")
	require.True(t, ok)
	require.Equal(t, Symbol(-1), c)
	c, ok = a.LookupConst("<vblex>")
	require.True(t, ok)
	require.Equal(t, Symbol(-2), c)
}

func TestLookupOrZeroVsLookupConst(t *testing.T) {
	a := New()
	require.Equal(t, Epsilon, a.LookupOrZero("<missing>"))
	_, ok := a.LookupConst("<missing>")
	require.False(t, ok)
	require.Equal(t, 0, a.TagCount(), "LookupOrZero must not insert")
}

func TestTokenizeTags(t *testing.T) {
	a := New()
	codes := a.Tokenize(`cat<n><pl>`)
	require.Len(t, codes, 5)
	require.Equal(t, []Symbol{'c', 'a', 't'}, codes[:3])
	require.True(t, codes[3].IsTag())
	require.Equal(t, "<n>", a.TagName(codes[3]))
	require.Equal(t, "<pl>", a.TagName(codes[4]))
}

func TestTokenizeEscapedAngle(t *testing.T) {
	a := New()
	codes := a.Tokenize(`a\<b`)
	require.Equal(t, []Symbol{'a', '<', 'b'}, codes)
	require.Zero(t, a.TagCount())
}

func TestGetSymbol(t *testing.T) {
	a := New()
	a.IncludeSymbol("<n>")
	var b strings.Builder
	a.GetSymbol(&b, 'h', false)
	a.GetSymbol(&b, a.LookupOrZero("<n>"), false)
	a.GetSymbol(&b, Epsilon, false)
	require.Equal(t, "h<n>", b.String())
}

func TestGetSymbolUppercase(t *testing.T) {
	a := New()
	var b strings.Builder
	a.GetSymbol(&b, 'h', true)
	require.Equal(t, "H", b.String())
}

func TestSameSymbolAnys(t *testing.T) {
	a := New()
	b := New()
	anyChar := Symbol(0)
	a.IncludeSymbol(AnyChar)
	anyChar = a.LookupOrZero(AnyChar)
	require.True(t, a.SameSymbol(anyChar, b, 'x', true))
	require.False(t, a.SameSymbol(anyChar, b, 'x', false))
}

func TestSameSymbolTagsByName(t *testing.T) {
	a := New()
	b := New()
	a.IncludeSymbol("<n>")
	b.IncludeSymbol("<other>")
	b.IncludeSymbol("<n>")
	require.True(t, a.SameSymbol(a.LookupOrZero("<n>"), b, b.LookupOrZero("<n>"), false))
}

func TestCreateLoopbackSymbols(t *testing.T) {
	src := New()
	src.IncludeSymbol("<n>")
	src.Pair(src.LookupOrZero("<n>"), 'x')
	src.Pair('a', 'b')

	dest := New()
	loop := src.CreateLoopbackSymbols(dest, Left, true)
	require.Len(t, loop, 2) // <n> and 'a' on the left side

	_, ok := dest.LookupConst("<n>")
	require.True(t, ok, "tag names must be shared into dest")
}

func TestAlphabetBinaryRoundTrip(t *testing.T) {
	a := New()
	a.IncludeSymbol("<n>")
	a.IncludeSymbol("<vblex>")
	a.Pair(a.LookupOrZero("<n>"), 'x')
	a.Pair('a', 'b')

	var buf bytes.Buffer
	require.NoError(t, a.WriteTo(&buf))

	got := New()
	require.NoError(t, got.ReadFrom(&buf))

	require.Equal(t, a.AllTagNames(), got.AllTagNames())
	require.Equal(t, a.AllPairs(), got.AllPairs())
}
