package fst

import (
	"sort"

	"github.com/apertium/lttoolbox-go/alphabet"
)

// execEdge is one flattened, sorted outgoing transition.
type execEdge struct {
	In, Out alphabet.Symbol
	Pair    alphabet.Pair
	Dest    StateID
	Weight  float64
}

// execFinal pairs a final state with its weight, sorted by state id.
type execFinal struct {
	State  StateID
	Weight float64
}

// Executable is the read-optimized form of a Transducer: states are
// flattened to a dense 0..N-1 range, each state's out-edges are a
// contiguous, input-symbol-sorted slice of transitions, and finals are
// sorted by state id. Both are then searchable in O(log k).
//
// An Executable is immutable after Build and safe to share by pointer
// across goroutines, each driving its own traversal state over it.
type Executable struct {
	StateCount   int
	InitialState StateID
	finals       []execFinal
	offsets      []int32
	transitions  []execEdge
}

// Build flattens t (typically after Minimize) into an Executable, resolving
// every pair code through alpha so transitions can be compared by raw input
// symbol without a further alphabet lookup on the hot path.
func Build(t *Transducer, alpha *alphabet.Alphabet) *Executable {
	e := &Executable{
		StateCount:   t.NumStates(),
		InitialState: t.initial,
		offsets:      make([]int32, t.NumStates()+1),
	}

	for s := range t.finals {
		w := t.finals[s]
		e.finals = append(e.finals, execFinal{s, w})
	}
	sort.Slice(e.finals, func(i, j int) bool { return e.finals[i].State < e.finals[j].State })

	for s := StateID(0); s < StateID(t.NumStates()); s++ {
		e.offsets[s] = int32(len(e.transitions))
		for _, edge := range t.Edges(s) {
			in, out := alpha.Decode(edge.Pair)
			e.transitions = append(e.transitions, execEdge{
				In: in, Out: out, Pair: edge.Pair, Dest: edge.Dest, Weight: edge.Weight,
			})
		}
		slice := e.transitions[e.offsets[s]:]
		sort.Slice(slice, func(i, j int) bool {
			if slice[i].In != slice[j].In {
				return slice[i].In < slice[j].In
			}
			return slice[i].Out < slice[j].Out
		})
	}
	e.offsets[t.NumStates()] = int32(len(e.transitions))
	return e
}

// GetRange returns the half-open [begin, end) index range into the
// transitions of state whose input symbol equals sym, via binary search
// over the sorted per-state slice. O(log deg(state)).
func (e *Executable) GetRange(state StateID, sym alphabet.Symbol) (begin, end int) {
	lo, hi := int(e.offsets[state]), int(e.offsets[state+1])
	begin = sort.Search(hi-lo, func(i int) bool { return e.transitions[lo+i].In >= sym }) + lo
	end = sort.Search(hi-lo, func(i int) bool { return e.transitions[lo+i].In > sym }) + lo
	return begin, end
}

// Transition returns the i'th transition in the executable's flattened
// array, for callers that already hold an index from GetRange.
func (e *Executable) Transition(i int) (in, out alphabet.Symbol, dest StateID, weight float64) {
	t := e.transitions[i]
	return t.In, t.Out, t.Dest, t.Weight
}

// IsFinal reports whether state is a final state.
func (e *Executable) IsFinal(state StateID) bool {
	_, ok := e.finalWeight(state)
	return ok
}

// FinalWeight returns the weight of state as a final state, or 0 if it is
// not final.
func (e *Executable) FinalWeight(state StateID) float64 {
	w, _ := e.finalWeight(state)
	return w
}

func (e *Executable) finalWeight(state StateID) (float64, bool) {
	i := sort.Search(len(e.finals), func(i int) bool { return e.finals[i].State >= state })
	if i < len(e.finals) && e.finals[i].State == state {
		return e.finals[i].Weight, true
	}
	return 0, false
}
