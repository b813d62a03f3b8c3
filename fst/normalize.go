package fst

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apertium/lttoolbox-go/alphabet"
)

// newEmpty returns a Transducer with zero states and no initial state set;
// callers finish wiring it up (used by the normalization and query
// algorithms below, which build their own state numbering from scratch).
func newEmpty() *Transducer {
	return &Transducer{
		finals:      make(map[StateID]float64),
		transitions: make(map[StateID]map[alphabet.Pair][]Edge),
	}
}

// subsetKey canonicalizes a set of states into a stable map key.
func subsetKey(set map[StateID]struct{}) (string, []StateID) {
	list := make([]StateID, 0, len(set))
	for s := range set {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	var sb strings.Builder
	for _, s := range list {
		fmt.Fprintf(&sb, "%d,", s)
	}
	return sb.String(), list
}

// Determinize performs subset construction over epsilon-closures: the
// output's states are equivalence classes of non-empty subsets of t's
// states, transitions are grouped by pair-code, a subset is final iff it
// intersects t's final set, and edge weight is the minimum weight among
// the merged edges. This does not compute a full weighted-semiring product:
// weights survive intact only when t is already unambiguous (every accepted
// string has one path); on ambiguous input the lowest-weight alternative
// wins at every merge point rather than tracking every alternative's exact
// weight through the merge.
func (t *Transducer) Determinize(epsilonPair alphabet.Pair) *Transducer {
	closures := make(map[StateID]map[StateID]struct{}, t.numStates)
	for _, s := range t.States() {
		closures[s] = t.Closure(s, epsilonPair)
	}

	out := newEmpty()
	subsetID := make(map[string]StateID)
	setOf := make(map[StateID][]StateID)

	key, list := subsetKey(closures[t.initial])
	out.initial = out.NewState()
	subsetID[key] = out.initial
	setOf[out.initial] = list

	queue := []StateID{out.initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curStates := setOf[cur]

		isFinal := false
		var finalWeight float64
		for _, s := range curStates {
			if w, ok := t.IsFinal(s); ok && (!isFinal || w < finalWeight) {
				finalWeight, isFinal = w, true
			}
		}
		if isFinal {
			out.SetFinal(cur, finalWeight, true)
		}

		byPair := make(map[alphabet.Pair][]Edge)
		for _, s := range curStates {
			for pair, edges := range t.transitions[s] {
				if pair == epsilonPair {
					continue
				}
				byPair[pair] = append(byPair[pair], edges...)
			}
		}
		for pair, edges := range byPair {
			destSet := make(map[StateID]struct{})
			minWeight := edges[0].Weight
			for _, e := range edges {
				for d := range closures[e.Dest] {
					destSet[d] = struct{}{}
				}
				if e.Weight < minWeight {
					minWeight = e.Weight
				}
			}
			dkey, dlist := subsetKey(destSet)
			dest, exists := subsetID[dkey]
			if !exists {
				dest = out.NewState()
				subsetID[dkey] = dest
				setOf[dest] = dlist
				queue = append(queue, dest)
			}
			out.LinkStates(cur, dest, pair, minWeight)
		}
	}
	return out
}

// Reverse coalesces t's finals via JoinFinals, then returns a new
// Transducer with every edge reversed and the initial/final roles of the
// (now single) final and initial states swapped.
func (t *Transducer) Reverse(epsilonPair alphabet.Pair) (*Transducer, error) {
	final, err := t.JoinFinals(epsilonPair)
	if err != nil {
		return nil, err
	}
	out := newEmpty()
	for i := int32(0); i < t.numStates; i++ {
		out.NewState()
	}
	for _, s := range t.States() {
		for _, e := range t.Edges(s) {
			out.LinkStates(e.Dest, s, e.Pair, e.Weight)
		}
	}
	out.initial = final
	out.SetFinal(t.initial, DefaultWeight, true)
	return out, nil
}

// Minimize reduces t to the (state-count-)minimal equivalent FST via
// Brzozowski's algorithm: reverse, determinize, reverse, determinize.
func (t *Transducer) Minimize(epsilonPair alphabet.Pair) (*Transducer, error) {
	r1, err := t.Reverse(epsilonPair)
	if err != nil {
		return nil, err
	}
	d1 := r1.Determinize(epsilonPair)
	r2, err := d1.Reverse(epsilonPair)
	if err != nil {
		return nil, err
	}
	return r2.Determinize(epsilonPair), nil
}
