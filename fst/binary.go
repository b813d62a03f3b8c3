package fst

import (
	"io"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/varint"
)

// WriteTo serializes t in a compressed builder form: initial state,
// delta-encoded finals with var-double weights, state count, and per state
// a delta-encoded (pair, destination)
// edge list with optional var-double weights. Deltas are always taken
// against the previously emitted value of that field (against the current
// state id, modulo state count, for destinations), which keeps the typical
// edge — pointing a few states ahead with a nearby pair code — small.
func (t *Transducer) WriteTo(w io.ByteWriter, writeWeights bool) error {
	if err := varint.WriteInt(w, uint32(t.initial)); err != nil {
		return err
	}

	finalIDs := make([]StateID, 0, len(t.finals))
	for s := range t.finals {
		finalIDs = append(finalIDs, s)
	}
	sortStateIDs(finalIDs)

	if err := varint.WriteInt(w, uint32(len(finalIDs))); err != nil {
		return err
	}
	prev := StateID(0)
	for _, s := range finalIDs {
		if err := varint.WriteInt(w, uint32(s-prev)); err != nil {
			return err
		}
		prev = s
		if writeWeights {
			if err := varint.WriteDouble(w, t.finals[s]); err != nil {
				return err
			}
		}
	}

	if err := varint.WriteInt(w, uint32(t.numStates)); err != nil {
		return err
	}
	for _, s := range t.States() {
		edges := t.Edges(s)
		sortEdges(edges)
		if err := varint.WriteInt(w, uint32(len(edges))); err != nil {
			return err
		}
		prevPair := alphabet.Pair(0)
		for _, e := range edges {
			pairDelta := int64(e.Pair) - int64(prevPair)
			if err := varint.WriteInt(w, zigzag(pairDelta)); err != nil {
				return err
			}
			prevPair = e.Pair
			destDelta := mod(int64(e.Dest)-int64(s), int64(t.numStates))
			if err := varint.WriteInt(w, uint32(destDelta)); err != nil {
				return err
			}
			if writeWeights {
				if err := varint.WriteDouble(w, e.Weight); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ReadFrom deserializes a Transducer written by WriteTo.
func ReadFrom(r io.ByteReader, readWeights bool) (*Transducer, error) {
	t := newEmpty()

	initial, err := varint.ReadInt(r)
	if err != nil {
		return nil, err
	}
	t.initial = StateID(initial)

	finalCount, err := varint.ReadInt(r)
	if err != nil {
		return nil, err
	}
	type finalEntry struct {
		state  StateID
		weight float64
	}
	finals := make([]finalEntry, finalCount)
	prev := StateID(0)
	for i := uint32(0); i < finalCount; i++ {
		delta, err := varint.ReadInt(r)
		if err != nil {
			return nil, err
		}
		prev += StateID(delta)
		w := DefaultWeight
		if readWeights {
			w, err = varint.ReadDouble(r)
			if err != nil {
				return nil, err
			}
		}
		finals[i] = finalEntry{prev, w}
	}

	stateCount, err := varint.ReadInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < stateCount; i++ {
		t.NewState()
	}
	for _, f := range finals {
		t.SetFinal(f.state, f.weight, true)
	}

	for s := StateID(0); s < StateID(stateCount); s++ {
		edgeCount, err := varint.ReadInt(r)
		if err != nil {
			return nil, err
		}
		prevPair := alphabet.Pair(0)
		for i := uint32(0); i < edgeCount; i++ {
			deltaRaw, err := varint.ReadInt(r)
			if err != nil {
				return nil, err
			}
			prevPair = alphabet.Pair(int64(prevPair) + unzigzag(deltaRaw))
			destDelta, err := varint.ReadInt(r)
			if err != nil {
				return nil, err
			}
			dest := StateID(mod(int64(s)+int64(destDelta), int64(stateCount)))
			w := DefaultWeight
			if readWeights {
				w, err = varint.ReadDouble(r)
				if err != nil {
					return nil, err
				}
			}
			t.LinkStates(s, dest, prevPair, w)
		}
	}
	return t, nil
}

func sortStateIDs(s []StateID) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func sortEdges(e []Edge) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && less(e[j-1], e[j]); j-- {
			e[j-1], e[j] = e[j], e[j-1]
		}
	}
}

func less(a, b Edge) bool {
	if a.Pair != b.Pair {
		return a.Pair > b.Pair
	}
	return a.Dest > b.Dest
}

// zigzag/unzigzag map signed deltas onto the unsigned varint codec.
func zigzag(v int64) uint32   { return uint32((v << 1) ^ (v >> 63)) }
func unzigzag(v uint32) int64 { x := int64(v); return (x >> 1) ^ -(x & 1) }
func mod(v, m int64) int64 {
	if m == 0 {
		return 0
	}
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}
