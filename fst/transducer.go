// Package fst implements a weighted nondeterministic finite-state
// transducer: a mutable builder graph with construction primitives,
// normalization (reverse/determinize/minimize), structural queries
// (trim/compose/intersect), and both a builder-form and read-optimized
// executable binary representation.
package fst

import (
	"errors"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
)

// StateID is a dense, non-negative state identifier. It is never a pointer:
// the graph is addressed purely by integer, which keeps cycles trivially
// representable without any ownership model.
type StateID int32

// DefaultWeight is the weight assigned when callers don't specify one.
const DefaultWeight = 0.0

// Edge is one outgoing transition: on Pair, move to Dest with Weight added
// to the path's accumulated weight.
type Edge struct {
	Pair   alphabet.Pair
	Dest   StateID
	Weight float64
}

// Transducer is the mutable builder form of an FST.
type Transducer struct {
	initial     StateID
	finals      map[StateID]float64
	transitions map[StateID]map[alphabet.Pair][]Edge
	numStates   int32
}

// ErrEmptyFinals is returned by JoinFinals when the transducer has no final
// states at all.
var ErrEmptyFinals = errors.New("fst: join_finals on a transducer with no final states")

// New returns a Transducer with a single initial state and no final states.
func New() *Transducer {
	t := &Transducer{
		finals:      make(map[StateID]float64),
		transitions: make(map[StateID]map[alphabet.Pair][]Edge),
	}
	t.initial = t.NewState()
	return t
}

// GetInitial returns the initial state id.
func (t *Transducer) GetInitial() StateID { return t.initial }

// NewState allocates and returns a fresh state id.
func (t *Transducer) NewState() StateID {
	id := StateID(t.numStates)
	t.numStates++
	t.transitions[id] = make(map[alphabet.Pair][]Edge)
	return id
}

// NumStates returns the number of allocated states.
func (t *Transducer) NumStates() int { return int(t.numStates) }

// States returns every allocated state id.
func (t *Transducer) States() []StateID {
	out := make([]StateID, 0, t.numStates)
	for s := StateID(0); s < StateID(t.numStates); s++ {
		out = append(out, s)
	}
	return out
}

// Edges returns the outgoing edges of state s.
func (t *Transducer) Edges(s StateID) []Edge {
	var out []Edge
	for _, edges := range t.transitions[s] {
		out = append(out, edges...)
	}
	return out
}

// EdgesOn returns the outgoing edges of state s labeled pair.
func (t *Transducer) EdgesOn(s StateID, pair alphabet.Pair) []Edge {
	return t.transitions[s][pair]
}

// LinkStates adds an edge src -[pair]-> dst with the given weight. A
// duplicate edge (same src, dst, and pair already present) is a no-op.
func (t *Transducer) LinkStates(src, dst StateID, pair alphabet.Pair, weight float64) {
	for _, e := range t.transitions[src][pair] {
		if e.Dest == dst {
			return
		}
	}
	t.transitions[src][pair] = append(t.transitions[src][pair], Edge{Pair: pair, Dest: dst, Weight: weight})
}

// SetFinal marks (or, with isFinal=false, unmarks) state as a final state
// with the given weight.
func (t *Transducer) SetFinal(state StateID, weight float64, isFinal bool) {
	if isFinal {
		t.finals[state] = weight
	} else {
		delete(t.finals, state)
	}
}

// IsFinal reports whether state is final, and its weight if so.
func (t *Transducer) IsFinal(state StateID) (float64, bool) {
	w, ok := t.finals[state]
	return w, ok
}

// Finals returns a copy of the final-state weight map.
func (t *Transducer) Finals() map[StateID]float64 {
	out := make(map[StateID]float64, len(t.finals))
	for k, v := range t.finals {
		out[k] = v
	}
	return out
}

// InsertSingleTransduction returns a destination state reachable from
// source by pair, reusing an existing edge when one unambiguously exists:
//
//   - exactly one outgoing edge on pair: return its destination;
//   - exactly two outgoing edges on pair, one of which is a self-loop:
//     return the other (forward) destination;
//   - otherwise: allocate a fresh state, link it, and return it.
func (t *Transducer) InsertSingleTransduction(pair alphabet.Pair, source StateID, weight float64) StateID {
	edges := t.transitions[source][pair]
	switch len(edges) {
	case 1:
		return edges[0].Dest
	case 2:
		if edges[0].Dest == source && edges[1].Dest != source {
			return edges[1].Dest
		}
		if edges[1].Dest == source && edges[0].Dest != source {
			return edges[0].Dest
		}
	}
	dest := t.NewState()
	t.LinkStates(source, dest, pair, weight)
	return dest
}

// InsertNewSingleTransduction always allocates a fresh destination state
// and links source to it by pair.
func (t *Transducer) InsertNewSingleTransduction(pair alphabet.Pair, source StateID, weight float64) StateID {
	dest := t.NewState()
	t.LinkStates(source, dest, pair, weight)
	return dest
}

// JoinFinals coalesces every final state into a single new final state,
// linked from each old final via an epsilon edge labeled epsilonPair. If
// there is already exactly one final state, it is left unchanged. Returns
// ErrEmptyFinals if there are no final states.
func (t *Transducer) JoinFinals(epsilonPair alphabet.Pair) (StateID, error) {
	if len(t.finals) == 0 {
		return 0, ErrEmptyFinals
	}
	if len(t.finals) == 1 {
		for s := range t.finals {
			return s, nil
		}
	}
	joined := t.NewState()
	for old, w := range t.finals {
		t.LinkStates(old, joined, epsilonPair, w)
		delete(t.finals, old)
	}
	t.finals[joined] = DefaultWeight
	return joined, nil
}

// Closure returns the set of states reachable from state by following only
// edges labeled epsilonPair, including state itself.
func (t *Transducer) Closure(state StateID, epsilonPair alphabet.Pair) map[StateID]struct{} {
	out := map[StateID]struct{}{state: {}}
	stack := []StateID{state}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range t.transitions[s][epsilonPair] {
			if _, seen := out[e.Dest]; !seen {
				out[e.Dest] = struct{}{}
				stack = append(stack, e.Dest)
			}
		}
	}
	return out
}

// InsertTransducer copies other into t at source: other's final states are
// first coalesced into one via JoinFinals, then every state of other is
// given a fresh id in t, edges are copied through that mapping, an epsilon
// edge (epsilonPair) links source to the image of other's initial state,
// and the image of other's single final state is returned.
func (t *Transducer) InsertTransducer(source StateID, other *Transducer, epsilonPair alphabet.Pair) (StateID, error) {
	otherFinal, err := other.JoinFinals(epsilonPair)
	if err != nil {
		return 0, err
	}

	mapping := make(map[StateID]StateID, other.numStates)
	for _, s := range other.States() {
		mapping[s] = t.NewState()
	}
	for _, s := range other.States() {
		for _, e := range other.Edges(s) {
			t.LinkStates(mapping[s], mapping[e.Dest], e.Pair, e.Weight)
		}
	}
	t.LinkStates(source, mapping[other.initial], epsilonPair, DefaultWeight)
	return mapping[otherFinal], nil
}

// Optional rewrites t in place so that the empty string is also accepted,
// by linking the initial state directly to a (possibly newly-joined) final
// state via epsilon.
func (t *Transducer) Optional(epsilonPair alphabet.Pair) error {
	final, err := t.JoinFinals(epsilonPair)
	if err != nil {
		return err
	}
	t.LinkStates(t.initial, final, epsilonPair, DefaultWeight)
	return nil
}

// OneOrMore rewrites t in place so it accepts one or more concatenations of
// strings it previously accepted, by looping the final state back to the
// initial state via epsilon.
func (t *Transducer) OneOrMore(epsilonPair alphabet.Pair) error {
	final, err := t.JoinFinals(epsilonPair)
	if err != nil {
		return err
	}
	t.LinkStates(final, t.initial, epsilonPair, DefaultWeight)
	return nil
}

// ZeroOrMore is OneOrMore followed by Optional.
func (t *Transducer) ZeroOrMore(epsilonPair alphabet.Pair) error {
	if err := t.OneOrMore(epsilonPair); err != nil {
		return err
	}
	return t.Optional(epsilonPair)
}

// UnionWith merges other into t as a non-deterministic alternative reached
// from the initial state.
func (t *Transducer) UnionWith(other *Transducer, epsilonPair alphabet.Pair) error {
	final, err := t.InsertTransducer(t.initial, other, epsilonPair)
	if err != nil {
		return err
	}
	t.SetFinal(final, DefaultWeight, true)
	return nil
}

// Valid reports whether every accepted path is well-formed: a transducer is
// invalid if, reading the requested side through alpha, some accepted path
// is empty (reaches a final state having consumed zero non-epsilon symbols)
// or begins with a whitespace rune. side selects which half of each pair to
// read.
func (t *Transducer) Valid(alpha *alphabet.Alphabet, side alphabet.Side) bool {
	valid := true
	var walk func(s StateID, consumed int, seen map[StateID]bool)
	walk = func(s StateID, consumed int, seen map[StateID]bool) {
		if !valid || seen[s] {
			return
		}
		if _, ok := t.IsFinal(s); ok && consumed == 0 {
			valid = false
			return
		}
		seen[s] = true
		defer delete(seen, s)
		for _, edges := range t.transitions[s] {
			for _, e := range edges {
				in, out := alpha.Decode(e.Pair)
				sym := in
				if side == alphabet.Right {
					sym = out
				}
				next := consumed
				if sym != alphabet.Epsilon {
					next++
					if consumed == 0 && sym > 0 && unicode.IsSpace(rune(sym)) {
						valid = false
						return
					}
				}
				walk(e.Dest, next, seen)
				if !valid {
					return
				}
			}
		}
	}
	walk(t.initial, 0, map[StateID]bool{})
	return valid
}
