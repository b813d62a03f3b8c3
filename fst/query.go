package fst

import "github.com/apertium/lttoolbox-go/alphabet"

// productKey addresses a state in a two-transducer product construction.
type productKey struct{ a, b StateID }

// Trim prunes t down to only those paths whose output side (as decoded by
// thisAlpha) can be consumed as input by other (as decoded by otherAlpha):
// a move is kept only when either t's edge produces nothing (epsilon
// output), or other has some edge whose input matches t's edge's output
// (cross-alphabet, allowing the <ANY_CHAR>/<ANY_TAG> loopback symbols
// CreateLoopbackSymbols installs). Edge labels are t's own, unchanged —
// Trim prunes, it does not transform. A product state is final iff both
// component states are final.
func (t *Transducer) Trim(other *Transducer, thisAlpha, otherAlpha *alphabet.Alphabet) *Transducer {
	out := newEmpty()
	ids := make(map[productKey]StateID)
	getID := func(k productKey) StateID {
		if id, ok := ids[k]; ok {
			return id
		}
		id := out.NewState()
		ids[k] = id
		return id
	}

	start := productKey{t.initial, other.initial}
	out.initial = getID(start)
	epsPair := thisAlpha.Pair(alphabet.Epsilon, alphabet.Epsilon)

	visited := make(map[productKey]bool)
	queue := []productKey{start}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		s1, s2 := k.a, k.b
		id := getID(k)

		if w1, f1 := t.IsFinal(s1); f1 {
			if w2, f2 := other.IsFinal(s2); f2 {
				out.SetFinal(id, w1+w2, true)
			}
		}

		for _, e1 := range t.Edges(s1) {
			_, out1 := thisAlpha.Decode(e1.Pair)
			if out1 == alphabet.Epsilon {
				nk := productKey{e1.Dest, s2}
				out.LinkStates(id, getID(nk), e1.Pair, e1.Weight)
				queue = append(queue, nk)
				continue
			}
			for _, e2 := range other.Edges(s2) {
				in2, _ := otherAlpha.Decode(e2.Pair)
				if in2 == alphabet.Epsilon {
					continue
				}
				if thisAlpha.SameSymbol(out1, otherAlpha, in2, true) {
					nk := productKey{e1.Dest, e2.Dest}
					out.LinkStates(id, getID(nk), e1.Pair, e1.Weight+e2.Weight)
					queue = append(queue, nk)
				}
			}
		}
		for _, e2 := range other.Edges(s2) {
			in2, _ := otherAlpha.Decode(e2.Pair)
			if in2 == alphabet.Epsilon {
				nk := productKey{s1, e2.Dest}
				out.LinkStates(id, getID(nk), epsPair, e2.Weight)
				queue = append(queue, nk)
			}
		}
	}
	return out
}

// Intersect returns the product of t and other restricted to moves where
// both components agree on pair (same input and same output, compared
// cross-alphabet via SameSymbol). The result is labeled with t's pairs.
func (t *Transducer) Intersect(other *Transducer, thisAlpha, otherAlpha *alphabet.Alphabet) *Transducer {
	out := newEmpty()
	ids := make(map[productKey]StateID)
	getID := func(k productKey) StateID {
		if id, ok := ids[k]; ok {
			return id
		}
		id := out.NewState()
		ids[k] = id
		return id
	}
	start := productKey{t.initial, other.initial}
	out.initial = getID(start)

	visited := make(map[productKey]bool)
	queue := []productKey{start}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		s1, s2 := k.a, k.b
		id := getID(k)
		if w1, f1 := t.IsFinal(s1); f1 {
			if w2, f2 := other.IsFinal(s2); f2 {
				out.SetFinal(id, w1+w2, true)
			}
		}
		for _, e1 := range t.Edges(s1) {
			in1, out1 := thisAlpha.Decode(e1.Pair)
			for _, e2 := range other.Edges(s2) {
				in2, out2 := otherAlpha.Decode(e2.Pair)
				if thisAlpha.SameSymbol(in1, otherAlpha, in2, true) && thisAlpha.SameSymbol(out1, otherAlpha, out2, true) {
					nk := productKey{e1.Dest, e2.Dest}
					out.LinkStates(id, getID(nk), e1.Pair, e1.Weight+e2.Weight)
					queue = append(queue, nk)
				}
			}
		}
	}
	return out
}

// Compose performs standard FST composition of t with other.
//
// When inverted is false, t's output side is matched against other's input
// side and the result pair is (t.input, other.output) — the usual
// "feed self's output into other" pipeline composition.
//
// When inverted is true, t's input side is matched against other's input
// side instead, and the result pair is (t.output, other.output) — used
// when both t and other are meant to be read against the same surface
// form rather than chained front-to-back.
//
// When anywhere is false, other must consume the whole of t's matched
// path (both must reach a final state together, exactly like Trim/
// Intersect). When anywhere is true, other is additionally allowed to sit
// idle: at any product state not currently inside a run of other, t's edge
// may instead pass through verbatim (result pair equal to t's own pair),
// letting other "wake up" from its initial state on a later edge. This lets
// a small rewriting FST rewrite only the substrings it recognizes while
// passing the rest of the surface through unchanged.
func (t *Transducer) Compose(other *Transducer, thisAlpha, otherAlpha *alphabet.Alphabet, inverted, anywhere bool) *Transducer {
	out := newEmpty()
	outAlpha := thisAlpha // the composed transducer's pairs live in t's alphabet space

	type composeKey struct {
		s1, s2  StateID
		engaged bool // true: s2 is mid-run inside other; false: other is idle (only meaningful when anywhere)
	}
	ids := make(map[composeKey]StateID)
	getID := func(k composeKey) StateID {
		if id, ok := ids[k]; ok {
			return id
		}
		id := out.NewState()
		ids[k] = id
		return id
	}

	startEngaged := !anywhere // without "anywhere", other is always engaged from the start
	start := composeKey{t.initial, other.initial, startEngaged}
	out.initial = getID(start)

	visited := make(map[composeKey]bool)
	queue := []composeKey{start}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		s1, s2, engaged := k.s1, k.s2, k.engaged
		id := getID(k)

		if w1, f1 := t.IsFinal(s1); f1 {
			if anywhere && !engaged {
				out.SetFinal(id, w1, true)
			} else if w2, f2 := other.IsFinal(s2); f2 {
				out.SetFinal(id, w1+w2, true)
			}
		}

		for _, e1 := range t.Edges(s1) {
			in1, out1 := thisAlpha.Decode(e1.Pair)
			selfSym := out1
			if inverted {
				selfSym = in1
			}

			matched := false
			for _, e2 := range other.Edges(s2) {
				in2, out2 := otherAlpha.Decode(e2.Pair)
				if in2 == alphabet.Epsilon {
					continue
				}
				if thisAlpha.SameSymbol(selfSym, otherAlpha, in2, true) {
					matched = true
					var resultPair alphabet.Pair
					if inverted {
						resultPair = outAlpha.Pair(out1, out2)
					} else {
						resultPair = outAlpha.Pair(in1, out2)
					}
					nk := composeKey{e1.Dest, e2.Dest, true}
					out.LinkStates(id, getID(nk), resultPair, e1.Weight+e2.Weight)
					queue = append(queue, nk)
				}
			}
			if selfSym == alphabet.Epsilon {
				// t itself produces nothing on the matched side: other doesn't need to move.
				nk := composeKey{e1.Dest, s2, engaged}
				out.LinkStates(id, getID(nk), e1.Pair, e1.Weight)
				queue = append(queue, nk)
				matched = true
			}
			if anywhere && !engaged && !matched {
				// Passthrough: other stays idle, t's own pair is emitted unchanged.
				nk := composeKey{e1.Dest, other.initial, false}
				out.LinkStates(id, getID(nk), e1.Pair, e1.Weight)
				queue = append(queue, nk)
			}
		}
		if anywhere && engaged {
			if _, f2 := other.IsFinal(s2); f2 {
				// Other just finished a run: allow dropping back to idle without
				// consuming a symbol so the next edge can re-evaluate passthrough.
				nk := composeKey{s1, other.initial, false}
				out.LinkStates(id, getID(nk), outAlpha.Pair(alphabet.Epsilon, alphabet.Epsilon), DefaultWeight)
				queue = append(queue, nk)
			}
		}
	}
	return out
}
