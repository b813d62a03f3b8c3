package container

import (
	"bytes"
	"testing"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/fst"
	"github.com/stretchr/testify/require"
)

func buildSampleTransducer(a *alphabet.Alphabet, word string) *fst.Transducer {
	t := fst.New()
	cur := t.GetInitial()
	for _, r := range word {
		sym := alphabet.Symbol(r)
		pair := a.Pair(sym, sym)
		cur = t.InsertSingleTransduction(pair, cur, fst.DefaultWeight)
	}
	t.SetFinal(cur, fst.DefaultWeight, true)
	return t
}

func sampleContainer() *Container {
	a := alphabet.New()
	a.IncludeSymbol("<n>")
	return &Container{
		Letters:  []rune{'a', 'b', 'c', 'z'},
		Alphabet: a,
		Transducers: map[string]*fst.Transducer{
			"main@standard":  buildSampleTransducer(a, "cat"),
			"main@postblank": buildSampleTransducer(a, "dog"),
		},
	}
}

func TestRoundTripVarintForm(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, WriteOptions{WeightMode: true}))

	got, err := Load(&buf)
	require.NoError(t, err)
	require.ElementsMatch(t, c.Letters, got.Letters)
	require.Len(t, got.Transducers, 2)
	require.Contains(t, got.Transducers, "main@standard")
	require.Contains(t, got.Transducers, "main@postblank")
}

func TestRoundTripFixedForm(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, WriteOptions{Fixed: true, WeightMode: true}))

	got, err := Load(&buf)
	require.NoError(t, err)
	require.ElementsMatch(t, c.Letters, got.Letters)
	require.Len(t, got.Transducers, 2)
}

func TestRoundTripCompressedBody(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, WriteOptions{Compress: true, WeightMode: true}))

	got, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, got.Transducers, 2)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("XXXX00000000")))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, WriteOptions{WeightMode: true}))
	raw := buf.Bytes()
	raw[4] |= 0x80 // set a bit outside the known flag mask

	_, err := Load(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrUnknownFeatureFlag)
}

func TestUnweightedRoundTrip(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c, WriteOptions{WeightMode: false}))

	got, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, got.Transducers, 2)
}
