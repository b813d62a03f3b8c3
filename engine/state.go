// Package engine implements the multi-path traversal state that drives an
// executable transducer over an input stream: an ordered multiset of paths,
// each carrying its current node, an output trace, an accumulated weight,
// and a case-folding dirty flag.
package engine

import (
	"sort"
	"strings"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/fst"
)

// resetReserve is the arena length Init truncates back to, so the steady
// per-word allocation cost is zero once the arena has grown to a typical
// word's size.
const resetReserve = 4096

// FinalSet maps final states to their weights. The processor partitions the
// finals of its transducers into per-class sets (standard, inconditional,
// preblank, postblank) and passes whichever set a mode cares about.
type FinalSet map[fst.StateID]float64

// step is one link in a path: the node reached, the output symbol and
// weight of the edge that reached it, whether a case-folded alternative was
// used anywhere earlier on the path, and the arena index of the previous
// step.
type step struct {
	where  fst.StateID
	symbol alphabet.Symbol
	weight float64
	dirty  bool
	prev   int32
}

// State is a frontier of paths over one Executable. The arena of steps only
// grows within a word; the active frontier is the index range [start, end).
// A State is single-goroutine mutable; the Executable it walks is shared
// and read-only.
type State struct {
	exec  *fst.Executable
	steps []step
	start int
	end   int
}

// NewState returns a State ready for Init over exec.
func NewState(exec *fst.Executable) *State {
	return &State{exec: exec}
}

func (s *State) getOrCreate(index int) *step {
	for index >= len(s.steps) {
		s.steps = append(s.steps, step{})
	}
	return &s.steps[index]
}

// apply extends the frontier with every transition out of the step at pos
// on input. Output symbols equal to oldSym are recorded as newSym (the
// override used to strip control symbols); oldSym == 0 disables the
// rewrite. Returns whether any transition existed.
func (s *State) apply(input alphabet.Symbol, pos int, oldSym, newSym alphabet.Symbol, dirty bool) bool {
	prev := s.steps[pos]
	setDirty := prev.dirty || dirty
	begin, end := s.exec.GetRange(prev.where, input)
	for i := begin; i < end; i++ {
		_, out, dest, weight := s.exec.Transition(i)
		next := s.getOrCreate(s.end)
		next.where = dest
		next.symbol = out
		if oldSym != 0 && next.symbol == oldSym {
			next.symbol = newSym
		}
		next.weight = weight
		next.dirty = setDirty
		next.prev = int32(pos)
		s.end++
	}
	return begin != end
}

// epsilonClosure pushes every frontier step through all epsilon-input
// edges, including steps added during the closure itself. The frontier is
// always epsilon-closed between calls; running the closure twice in a row
// is a no-op apart from duplicated paths, which is why callers never do.
func (s *State) epsilonClosure() {
	for i := s.start; i < s.end; i++ {
		s.apply(alphabet.Epsilon, i, 0, 0, false)
	}
}

// Size returns the number of live paths in the frontier.
func (s *State) Size() int { return s.end - s.start }

// Init resets the arena to a single path at initial and epsilon-closes it.
// Arena capacity beyond a small reserve is released between words.
func (s *State) Init(initial fst.StateID) {
	if cap(s.steps) > resetReserve {
		s.steps = make([]step, 0, resetReserve)
	} else {
		s.steps = s.steps[:0]
	}
	s.start = 0
	s.end = 1
	first := s.getOrCreate(0)
	*first = step{where: initial}
	s.epsilonClosure()
}

// Reinit adds a fresh path at initial to the existing frontier without
// discarding the paths already there.
func (s *State) Reinit(initial fst.StateID) {
	startWas := s.start
	next := s.getOrCreate(s.end)
	*next = step{where: initial}
	s.start = s.end
	s.end++
	s.epsilonClosure()
	s.start = startWas
}

// stepLoop advances the frontier: body is called for every step of the old
// frontier, appending successors past end; afterwards the old frontier is
// abandoned and the appended steps are epsilon-closed.
func (s *State) stepLoop(body func(i int)) {
	newStart := s.end
	for i := s.start; i < newStart; i++ {
		body(i)
	}
	s.start = newStart
	s.epsilonClosure()
}

// Step advances every path on input, plus any case-folding alternatives.
// Paths taken via an alternative are marked dirty. An alternative equal to
// zero or to input is skipped.
func (s *State) Step(input alphabet.Symbol, alts ...alphabet.Symbol) {
	if input == 0 {
		s.start = s.end
		return
	}
	s.stepLoop(func(i int) {
		s.apply(input, i, 0, 0, false)
		seen := input
		for _, a := range alts {
			if a == 0 || a == input || a == seen {
				continue
			}
			seen = a
			s.apply(a, i, 0, 0, true)
		}
	})
}

// StepSet is Step with an arbitrary set of alternatives, used for
// character-equivalence (ACX/RCX) expansion.
func (s *State) StepSet(input alphabet.Symbol, alts map[alphabet.Symbol]struct{}) {
	if input == 0 {
		s.start = s.end
		return
	}
	s.stepLoop(func(i int) {
		s.apply(input, i, 0, 0, false)
		for a := range alts {
			if a == 0 || a == input {
				continue
			}
			s.apply(a, i, 0, 0, true)
		}
	})
}

// StepCareful advances on input, falling back to alt only for paths where
// input itself has no transition. Used by careful-case generation, where
// the folded case must not compete with an exact match.
func (s *State) StepCareful(input, alt alphabet.Symbol) {
	if alt == 0 || alt == input {
		s.Step(input)
		return
	}
	s.stepLoop(func(i int) {
		if !s.apply(input, i, 0, 0, false) {
			s.apply(alt, i, 0, 0, true)
		}
	})
}

// StepOverride is Step with output rewriting: any traversed edge whose
// output symbol equals oldSym records newSym instead.
func (s *State) StepOverride(input, oldSym, newSym alphabet.Symbol) {
	if input == 0 {
		s.start = s.end
		return
	}
	s.stepLoop(func(i int) {
		s.apply(input, i, oldSym, newSym, false)
	})
}

// StepCase advances on val, adding the lower-case alternative when val is
// an uppercase character symbol and the traversal is case-insensitive. Tag
// symbols have no case and step as-is.
func (s *State) StepCase(val alphabet.Symbol, caseSensitive bool) {
	if val <= 0 || caseSensitive || !unicode.IsUpper(rune(val)) {
		s.Step(val)
	} else {
		s.Step(val, alphabet.Symbol(unicode.ToLower(rune(val))))
	}
}

// IsFinal reports whether any live path sits on a state in finals.
func (s *State) IsFinal(finals FinalSet) bool {
	for i := s.start; i < s.end; i++ {
		if _, ok := finals[s.steps[i].where]; ok {
			return true
		}
	}
	return false
}

// extract walks from the step at pos back to the root, then emits the
// output symbols in forward order into sb, backslash-escaping symbols in
// escaped and upper-casing character symbols when uppercase is set. The
// path's edge weights are added to *weight.
func (s *State) extract(pos int, sb *strings.Builder, weight *float64, a *alphabet.Alphabet, escaped map[alphabet.Symbol]struct{}, uppercase bool) {
	var symbols []alphabet.Symbol
	for index := pos; index != 0; {
		st := &s.steps[index]
		*weight += st.weight
		if st.symbol != 0 {
			symbols = append(symbols, st.symbol)
		}
		index = int(st.prev)
	}
	for i := len(symbols) - 1; i >= 0; i-- {
		if _, ok := escaped[symbols[i]]; ok {
			sb.WriteByte('\\')
		}
		a.GetSymbol(sb, symbols[i], uppercase)
	}
}

// FilterConfig is the output-selection policy applied by FilterFinals.
// MaxAnalyses and MaxWeightClasses are unlimited when <= 0.
type FilterConfig struct {
	DisplayWeights   bool
	MaxAnalyses      int
	MaxWeightClasses int
	Uppercase        bool
	FirstUpper       bool
	FirstCharOffset  int
}

type reading struct {
	weight float64
	text   string
}

// nFinals caps readings at maxAnalyses entries, then at maxWeightClasses
// distinct weights, after sorting by ascending weight.
func nFinals(readings []reading, maxAnalyses, maxWeightClasses int) []reading {
	if len(readings) == 0 {
		return readings
	}
	sort.Slice(readings, func(i, j int) bool {
		if readings[i].weight != readings[j].weight {
			return readings[i].weight < readings[j].weight
		}
		return readings[i].text < readings[j].text
	})
	if maxAnalyses > 0 && maxAnalyses < len(readings) {
		readings = readings[:maxAnalyses]
	}
	if maxWeightClasses > 0 && maxWeightClasses < len(readings) {
		classes := 0
		lastWeight := readings[0].weight
		for i, r := range readings {
			if i == 0 || r.weight != lastWeight {
				lastWeight = r.weight
				classes++
				if classes > maxWeightClasses {
					return readings[:i]
				}
			}
		}
	}
	return readings
}

// FilterFinals collects the output of every live path sitting on a final
// state, ranks by total weight (path weights plus the final's own weight),
// caps per cfg, deduplicates by output string, and returns the readings
// concatenated as "/reading" each, optionally suffixed "<W:weight>".
//
// FirstUpper and Uppercase are applied only to paths marked dirty: a clean
// path matched the surface case exactly and its output is already right. A
// leading '~' (the post-generation wake-up mark) is skipped when
// upper-casing the first character.
func (s *State) FilterFinals(finals FinalSet, a *alphabet.Alphabet, escaped map[alphabet.Symbol]struct{}, cfg FilterConfig) string {
	var readings []reading
	for i := s.start; i < s.end; i++ {
		fw, ok := finals[s.steps[i].where]
		if !ok {
			continue
		}
		weight := fw
		var sb strings.Builder
		s.extract(i, &sb, &weight, a, escaped, cfg.Uppercase && s.steps[i].dirty)
		text := sb.String()
		if cfg.FirstUpper && s.steps[i].dirty {
			text = upperAt(text, cfg.FirstCharOffset)
		}
		readings = append(readings, reading{weight, text})
	}

	readings = nFinals(readings, cfg.MaxAnalyses, cfg.MaxWeightClasses)

	var out strings.Builder
	seen := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		if _, dup := seen[r.text]; dup {
			continue
		}
		seen[r.text] = struct{}{}
		out.WriteByte('/')
		out.WriteString(r.text)
		if cfg.DisplayWeights {
			out.WriteString(formatWeight(r.weight))
		}
	}
	return out.String()
}

// upperAt upper-cases the rune at rune-offset off, skipping a leading '~'
// wake-up mark.
func upperAt(text string, off int) string {
	runes := []rune(text)
	if off < len(runes) && runes[off] == '~' {
		off++
	}
	if off < len(runes) {
		runes[off] = unicode.ToUpper(runes[off])
	}
	return string(runes)
}

// lastPartHas reports whether the trace of the path ending at arena index
// pos contains symbol after the most recent separator. A separator of zero
// scans the whole trace.
func (s *State) lastPartHas(pos int, symbol, separator alphabet.Symbol) bool {
	for index := pos; index != 0; {
		st := &s.steps[index]
		if st.symbol == symbol {
			return true
		}
		if separator != 0 && st.symbol == separator {
			return false
		}
		index = int(st.prev)
	}
	return false
}

// HasSymbol reports whether any live path's trace contains symbol.
func (s *State) HasSymbol(symbol alphabet.Symbol) bool {
	for i := s.start; i < s.end; i++ {
		if s.lastPartHas(i, symbol, 0) {
			return true
		}
	}
	return false
}

// LastPartHasRequiredSymbol reports whether frontier path i (0-based
// within the frontier) contains symbol in its last separator-delimited
// segment.
func (s *State) LastPartHasRequiredSymbol(i int, symbol, separator alphabet.Symbol) bool {
	return s.lastPartHas(s.start+i, symbol, separator)
}

// PruneCompounds drops paths whose separator count exceeds maxElements or
// whose last segment lacks requiredSymbol, then keeps only the paths with
// the minimum surviving separator count: the decomposition into the fewest
// parts wins.
func (s *State) PruneCompounds(requiredSymbol, separator alphabet.Symbol, maxElements int) {
	min := maxElements
	size := s.Size()
	count := make([]int, size)
	for i := 0; i < size; i++ {
		found := false
		for index := s.start + i; index != 0; {
			st := &s.steps[index]
			if st.symbol == requiredSymbol && count[i] == 0 {
				found = true
			} else if st.symbol == separator {
				if found {
					count[i]++
				} else {
					count[i] = int(^uint(0) >> 1)
					break
				}
			}
			index = int(st.prev)
		}
		if count[i] < min {
			min = count[i]
		}
	}
	newStart := s.end
	for i := 0; i < size; i++ {
		if count[i] == min {
			st := s.steps[s.start+i]
			*s.getOrCreate(s.end) = st
			s.end++
		}
	}
	s.start = newStart
}

// RestartFinals gives compound analysis its second half: every path on a
// final state whose last segment contains requiredSymbol spawns a new path
// at restart, linked by separator, joining the live frontier after an
// epsilon closure of its own.
func (s *State) RestartFinals(finals FinalSet, requiredSymbol alphabet.Symbol, restart fst.StateID, separator alphabet.Symbol) {
	for i, limit := s.start, s.end; i < limit; i++ {
		if _, ok := finals[s.steps[i].where]; !ok {
			continue
		}
		if !s.lastPartHas(i, requiredSymbol, separator) {
			continue
		}
		startWas := s.start
		s.start = s.end
		s.end++
		next := s.getOrCreate(s.start)
		*next = step{where: restart, symbol: separator, prev: int32(i)}
		s.epsilonClosure()
		s.start = startWas
	}
}

// PruneStatesWithForbiddenSymbol drops every path whose last segment
// contains symbol.
func (s *State) PruneStatesWithForbiddenSymbol(symbol alphabet.Symbol) {
	newStart := s.end
	for i := s.start; i < newStart; i++ {
		if !s.lastPartHas(i, symbol, 0) {
			st := s.steps[i]
			*s.getOrCreate(s.end) = st
			s.end++
		}
	}
	s.start = newStart
}
