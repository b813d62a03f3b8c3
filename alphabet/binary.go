package alphabet

import (
	"io"
	"strings"

	"github.com/apertium/lttoolbox-go/varint"
)

// WriteTo serializes the alphabet body: tag count, then each tag name
// stripped of its angle brackets, then pair count, then each pair biased by
// the tag count so every field is non-negative before varint encoding.
func (a *Alphabet) WriteTo(w io.ByteWriter) error {
	if err := varint.WriteInt(w, uint32(len(a.tagName))); err != nil {
		return err
	}
	for _, name := range a.tagName {
		stripped := strings.TrimSuffix(strings.TrimPrefix(name, "<"), ">")
		if err := writeString(w, stripped); err != nil {
			return err
		}
	}

	bias := uint32(len(a.tagName))
	if err := varint.WriteInt(w, uint32(len(a.pairName))); err != nil {
		return err
	}
	for _, k := range a.pairName {
		if err := varint.WriteInt(w, uint32(int32(k.in))+bias); err != nil {
			return err
		}
		if err := varint.WriteInt(w, uint32(int32(k.out))+bias); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes an alphabet body written by WriteTo into a, which
// is reset first.
func (a *Alphabet) ReadFrom(r io.ByteReader) error {
	*a = *New()

	tagCount, err := varint.ReadInt(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < tagCount; i++ {
		name, err := readString(r)
		if err != nil {
			return err
		}
		a.IncludeSymbol("<" + name + ">")
	}

	bias := int32(tagCount)
	pairCount, err := varint.ReadInt(r)
	if err != nil {
		return err
	}
	a.pairName = a.pairName[:0]
	a.pairCode = make(map[pairKey]Pair, pairCount)
	for i := uint32(0); i < pairCount; i++ {
		in, err := varint.ReadInt(r)
		if err != nil {
			return err
		}
		out, err := varint.ReadInt(r)
		if err != nil {
			return err
		}
		k := pairKey{Symbol(int32(in) - bias), Symbol(int32(out) - bias)}
		a.pairCode[k] = Pair(len(a.pairName))
		a.pairName = append(a.pairName, k)
	}
	return nil
}

// writeString length-prefixes s with a varint byte count.
func writeString(w io.ByteWriter, s string) error {
	b := []byte(s)
	if err := varint.WriteInt(w, uint32(len(b))); err != nil {
		return err
	}
	for _, c := range b {
		if err := w.WriteByte(c); err != nil {
			return err
		}
	}
	return nil
}

func readString(r io.ByteReader) (string, error) {
	n, err := varint.ReadInt(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	for i := range b {
		c, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		b[i] = c
	}
	return string(b), nil
}
