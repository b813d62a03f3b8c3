// Package container reads and writes the compiled-dictionary binary format:
// a magic header, a feature-flag word, the set of alphabetic letters, an
// Alphabet body, and a set of named Transducers.
package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/fst"
	"github.com/apertium/lttoolbox-go/symtab"
	"github.com/apertium/lttoolbox-go/varint"
	"github.com/projectdiscovery/gologger"
)

// Magic values for the two container variants: "LTTB" is the
// variable-length form, "LTTD" is the fixed-width, mmap-friendly form.
// Readers must accept either.
var (
	magicVarint = [4]byte{'L', 'T', 'T', 'B'}
	magicFixed  = [4]byte{'L', 'T', 'T', 'D'}
)

// Feature flags, little-endian u64.
const (
	FlagMmapFormat     uint64 = 1 << 0
	FlagBodyCompressed uint64 = 1 << 1
	FlagWeighted       uint64 = 1 << 2
	knownFlagsMask     uint64 = FlagMmapFormat | FlagBodyCompressed | FlagWeighted
)

var (
	// ErrBadMagic is returned when the stream does not start with a
	// recognized magic value.
	ErrBadMagic = errors.New("container: bad magic")
	// ErrUnknownFeatureFlag is returned when a reserved or unrecognized
	// feature-flag bit is set, so a future format extension can't be
	// silently misread by an older reader.
	ErrUnknownFeatureFlag = errors.New("container: unknown feature flag bit set")
	// ErrTruncated wraps any short read encountered mid-container.
	ErrTruncated = errors.New("container: truncated stream")
)

// NamedTransducer pairs a compiled name (e.g. a dictionary section name
// with its @standard/@inconditional/@preblank/@postblank class suffix) with
// its built transducer.
type NamedTransducer struct {
	Name        string
	Transducer  *fst.Transducer
	Alphabet    *alphabet.Alphabet
	WriteWeight bool
}

// Container is the in-memory, fully-decoded form of a compiled dictionary
// file.
type Container struct {
	Letters     []rune
	Alphabet    *alphabet.Alphabet
	Transducers map[string]*fst.Transducer
}

// WriteOptions controls how Write lays out the container.
type WriteOptions struct {
	// Fixed selects the "LTTD" mmap-friendly fixed-width encoding instead
	// of the default "LTTB" variable-length encoding.
	Fixed bool
	// Compress, when true, trains a symtab.Table over the serialized
	// alphabet and transducer bodies and stores them compressed, setting
	// FlagBodyCompressed.
	Compress   bool
	WeightMode bool // whether per-edge/per-final weights are written at all
}

// Write serializes c to w per opts.
func Write(w io.Writer, c *Container, opts WriteOptions) error {
	bw := bufio.NewWriter(w)

	magic := magicVarint
	if opts.Fixed {
		magic = magicFixed
	}
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}

	flags := uint64(0)
	if opts.Fixed {
		flags |= FlagMmapFormat
	}
	if opts.WeightMode {
		flags |= FlagWeighted
	}

	// Serialize the bodies first (they are the training samples for the
	// compression table, which must exist before the flag word is written).
	lettersBody, err := encodeLetters(c.Letters, opts.Fixed)
	if err != nil {
		return err
	}
	alphaBody, err := encodeAlphabet(c.Alphabet)
	if err != nil {
		return err
	}
	names := sortedNames(c.Transducers)
	bodies := make([][]byte, len(names))
	for i, name := range names {
		b, err := encodeTransducer(c.Transducers[name], opts)
		if err != nil {
			return err
		}
		bodies[i] = b
	}

	var tbl *symtab.Table
	if opts.Compress {
		samples := append([][]byte{alphaBody}, bodies...)
		tbl = symtab.Train(samples)
		flags |= FlagBodyCompressed
	}

	var flagBytes [8]byte
	binary.LittleEndian.PutUint64(flagBytes[:], flags)
	if _, err := bw.Write(flagBytes[:]); err != nil {
		return err
	}

	if tbl != nil {
		tblBytes, err := tbl.MarshalBinary()
		if err != nil {
			return err
		}
		if err := varint.WriteInt(bw, uint32(len(tblBytes))); err != nil {
			return err
		}
		if _, err := bw.Write(tblBytes); err != nil {
			return err
		}
	}

	if _, err := bw.Write(lettersBody); err != nil {
		return err
	}

	if err := writeMaybeCompressed(bw, alphaBody, tbl); err != nil {
		return err
	}

	if err := varint.WriteInt(bw, uint32(len(names))); err != nil {
		return err
	}
	for i, name := range names {
		if err := writeName(bw, name, opts.Fixed); err != nil {
			return err
		}
		if err := writeMaybeCompressed(bw, bodies[i], tbl); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeMaybeCompressed(bw *bufio.Writer, body []byte, tbl *symtab.Table) error {
	payload := body
	if tbl != nil {
		payload = tbl.EncodeAll(body)
	}
	if err := varint.WriteInt(bw, uint32(len(payload))); err != nil {
		return err
	}
	_, err := bw.Write(payload)
	return err
}

// Load reads a Container from r, supporting both the "LTTB" and "LTTD"
// magic values and, when set, the FlagBodyCompressed extension.
func Load(r io.Reader) (*Container, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, ErrTruncated
	}
	fixed := magic == magicFixed
	if !fixed && magic != magicVarint {
		return nil, ErrBadMagic
	}

	var flagBytes [8]byte
	if _, err := io.ReadFull(br, flagBytes[:]); err != nil {
		return nil, ErrTruncated
	}
	flags := binary.LittleEndian.Uint64(flagBytes[:])
	if flags&^knownFlagsMask != 0 {
		gologger.Error().Msgf("container: refusing to load, unknown feature flag bits %#x", flags&^knownFlagsMask)
		return nil, ErrUnknownFeatureFlag
	}

	var tbl *symtab.Table
	if flags&FlagBodyCompressed != 0 {
		n, err := varint.ReadInt(br)
		if err != nil {
			return nil, ErrTruncated
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, ErrTruncated
		}
		tbl = &symtab.Table{}
		if err := tbl.UnmarshalBinary(raw); err != nil {
			return nil, err
		}
	}

	letters, err := decodeLetters(br, fixed)
	if err != nil {
		return nil, err
	}

	alphaBody, err := readMaybeCompressed(br, tbl)
	if err != nil {
		return nil, err
	}
	alpha := alphabet.New()
	if err := alpha.ReadFrom(bytes.NewReader(alphaBody)); err != nil {
		return nil, err
	}

	count, err := varint.ReadInt(br)
	if err != nil {
		return nil, ErrTruncated
	}
	transducers := make(map[string]*fst.Transducer, count)
	for i := uint32(0); i < count; i++ {
		name, err := readName(br, fixed)
		if err != nil {
			return nil, err
		}
		body, err := readMaybeCompressed(br, tbl)
		if err != nil {
			return nil, err
		}
		tr, err := fst.ReadFrom(bytes.NewReader(body), flags&FlagWeighted != 0)
		if err != nil {
			return nil, err
		}
		transducers[name] = tr
	}

	return &Container{Letters: letters, Alphabet: alpha, Transducers: transducers}, nil
}

func readMaybeCompressed(br *bufio.Reader, tbl *symtab.Table) ([]byte, error) {
	n, err := varint.ReadInt(br)
	if err != nil {
		return nil, ErrTruncated
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, ErrTruncated
	}
	if tbl == nil {
		return payload, nil
	}
	return tbl.DecodeAll(payload), nil
}

func encodeLetters(letters []rune, fixed bool) ([]byte, error) {
	var buf bytes.Buffer
	if fixed {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(letters)))
		buf.Write(n[:])
		for _, r := range letters {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(r))
			buf.Write(b[:])
		}
		return buf.Bytes(), nil
	}
	if err := varint.WriteInt(&buf, uint32(len(letters))); err != nil {
		return nil, err
	}
	for _, r := range letters {
		if err := varint.WriteInt(&buf, uint32(r)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeLetters(r *bufio.Reader, fixed bool) ([]rune, error) {
	if fixed {
		var n [4]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return nil, ErrTruncated
		}
		count := binary.LittleEndian.Uint32(n[:])
		out := make([]rune, count)
		for i := range out {
			var b [4]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, ErrTruncated
			}
			out[i] = rune(binary.LittleEndian.Uint32(b[:]))
		}
		return out, nil
	}
	count, err := varint.ReadInt(r)
	if err != nil {
		return nil, ErrTruncated
	}
	out := make([]rune, count)
	for i := range out {
		v, err := varint.ReadInt(r)
		if err != nil {
			return nil, ErrTruncated
		}
		out[i] = rune(v)
	}
	return out, nil
}

func encodeAlphabet(a *alphabet.Alphabet) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTransducer(t *fst.Transducer, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteTo(&buf, opts.WeightMode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeName(w *bufio.Writer, name string, fixed bool) error {
	b := []byte(name)
	if fixed {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
		if _, err := w.Write(n[:]); err != nil {
			return err
		}
		_, err := w.Write(b)
		return err
	}
	if err := varint.WriteInt(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readName(r *bufio.Reader, fixed bool) (string, error) {
	var n uint32
	if fixed {
		var nb [4]byte
		if _, err := io.ReadFull(r, nb[:]); err != nil {
			return "", ErrTruncated
		}
		n = binary.LittleEndian.Uint32(nb[:])
	} else {
		var err error
		n, err = varint.ReadInt(r)
		if err != nil {
			return "", ErrTruncated
		}
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", ErrTruncated
	}
	return string(b), nil
}

func sortedNames(m map[string]*fst.Transducer) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
