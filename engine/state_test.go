package engine

import (
	"testing"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/fst"
	"github.com/stretchr/testify/require"
)

// entry adds surface -> lexical to t as a fresh path from the initial
// state, returning the final state.
func entry(t *fst.Transducer, a *alphabet.Alphabet, surface string, lexical string, weight float64) fst.StateID {
	in := []alphabet.Symbol{}
	for _, r := range surface {
		in = append(in, alphabet.Symbol(r))
	}
	out := a.Tokenize(lexical)
	cur := t.GetInitial()
	n := len(in)
	if len(out) > n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		is, os := alphabet.Epsilon, alphabet.Epsilon
		if i < len(in) {
			is = in[i]
		}
		if i < len(out) {
			os = out[i]
		}
		w := 0.0
		if i == 0 {
			w = weight
		}
		cur = t.InsertNewSingleTransduction(a.Pair(is, os), cur, w)
	}
	t.SetFinal(cur, 0, true)
	return cur
}

func build(t *fst.Transducer, a *alphabet.Alphabet) (*fst.Executable, FinalSet) {
	e := fst.Build(t, a)
	finals := make(FinalSet)
	for s, w := range t.Finals() {
		finals[s] = w
	}
	return e, finals
}

var noEscapes = map[alphabet.Symbol]struct{}{}

func TestStepAndFilterFinals(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "cat", "cat<n>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	for _, r := range "cat" {
		st.Step(alphabet.Symbol(r))
	}
	require.True(t, st.IsFinal(finals))
	require.Equal(t, "/cat<n>", st.FilterFinals(finals, a, noEscapes, FilterConfig{}))
}

func TestStepDeterministicAcrossHistory(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "ab", "AB", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	run := func() string {
		st.Init(exec.InitialState)
		st.Step('a')
		st.Step('b')
		return st.FilterFinals(finals, a, noEscapes, FilterConfig{})
	}
	first := run()
	// A second word over the same State must not see the first word's arena.
	require.Equal(t, first, run())
	require.Equal(t, "/AB", first)
}

func TestStepDeadOnMissingSymbol(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "cat", "cat", 0)
	exec, _ := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('c')
	require.NotZero(t, st.Size())
	st.Step('x')
	require.Zero(t, st.Size())
}

func TestStepCaseMarksDirtyAndRestoresCase(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "cat", "cat<n>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	for _, r := range "Cat" {
		st.StepCase(alphabet.Symbol(r), false)
	}
	require.True(t, st.IsFinal(finals))
	got := st.FilterFinals(finals, a, noEscapes, FilterConfig{FirstUpper: true})
	require.Equal(t, "/Cat<n>", got)

	// Case-sensitive: the uppercase C has no transition.
	st.Init(exec.InitialState)
	st.StepCase('C', true)
	require.Zero(t, st.Size())
}

func TestFilterFinalsCleanPathIgnoresCaseFlags(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "cat", "cat<n>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	for _, r := range "cat" {
		st.StepCase(alphabet.Symbol(r), false)
	}
	// No folding happened, so FirstUpper must not rewrite the output.
	got := st.FilterFinals(finals, a, noEscapes, FilterConfig{FirstUpper: true})
	require.Equal(t, "/cat<n>", got)
}

func TestFilterFinalsWeightRanking(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "run", "run<vblex>", 1.0)
	entry(tr, a, "run", "run<n>", 2.0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	for _, r := range "run" {
		st.Step(alphabet.Symbol(r))
	}
	got := st.FilterFinals(finals, a, noEscapes, FilterConfig{DisplayWeights: true, MaxAnalyses: 2})
	require.Equal(t, "/run<vblex><W:1.000000>/run<n><W:2.000000>", got)

	got = st.FilterFinals(finals, a, noEscapes, FilterConfig{MaxAnalyses: 1})
	require.Equal(t, "/run<vblex>", got)

	got = st.FilterFinals(finals, a, noEscapes, FilterConfig{MaxWeightClasses: 1})
	require.Equal(t, "/run<vblex>", got)
}

func TestFilterFinalsDeduplicates(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "go", "go<v>", 0)
	entry(tr, a, "go", "go<v>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('g')
	st.Step('o')
	require.Equal(t, "/go<v>", st.FilterFinals(finals, a, noEscapes, FilterConfig{}))
}

func TestFilterFinalsEscapesSymbols(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "a", "a/b", 0)
	exec, finals := build(tr, a)

	escaped := map[alphabet.Symbol]struct{}{'/': {}}
	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('a')
	require.Equal(t, `/a\/b`, st.FilterFinals(finals, a, escaped, FilterConfig{}))
}

func TestStepOverrideRewritesOutput(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	cur := tr.InsertNewSingleTransduction(a.Pair('x', 'X'), tr.GetInitial(), 0)
	tr.SetFinal(cur, 0, true)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.StepOverride('x', 'X', 'Y')
	require.Equal(t, "/Y", st.FilterFinals(finals, a, noEscapes, FilterConfig{}))
}

func TestStepCarefulPrefersExactCase(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "A", "exact", 0)
	entry(tr, a, "a", "folded", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.StepCareful('A', 'a')
	require.Equal(t, "/exact", st.FilterFinals(finals, a, noEscapes, FilterConfig{}))
}

func TestEpsilonClosureOnInit(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	// initial -eps-> s1 -a-> final, so 'a' must match from the very first
	// step without an explicit epsilon move.
	s1 := tr.NewState()
	tr.LinkStates(tr.GetInitial(), s1, a.Pair(alphabet.Epsilon, alphabet.Epsilon), 0)
	final := tr.InsertNewSingleTransduction(a.Pair('a', 'a'), s1, 0)
	tr.SetFinal(final, 0, true)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('a')
	require.True(t, st.IsFinal(finals))
}

func TestRestartFinalsAndPruneCompounds(t *testing.T) {
	a := alphabet.New()
	a.IncludeSymbol("<compound-only-L>")
	a.IncludeSymbol("<compound-R>")
	cpL := a.LookupOrZero("<compound-only-L>")
	cpR := a.LookupOrZero("<compound-R>")

	tr := fst.New()
	entry(tr, a, "house", "house<compound-only-L>", 0)
	entry(tr, a, "boat", "boat<compound-R>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	word := "houseboat"
	runes := []rune(word)
	for i, r := range runes {
		st.Step(alphabet.Symbol(r))
		if i < len(runes)-1 {
			st.RestartFinals(finals, cpL, exec.InitialState, '+')
		}
		require.NotZero(t, st.Size(), "died at %q", string(runes[:i+1]))
	}
	st.PruneCompounds(cpR, '+', 4)
	got := st.FilterFinals(finals, a, noEscapes, FilterConfig{})
	require.Equal(t, "/house<compound-only-L>+boat<compound-R>", got)
}

func TestPruneStatesWithForbiddenSymbol(t *testing.T) {
	a := alphabet.New()
	a.IncludeSymbol("<bad>")
	bad := a.LookupOrZero("<bad>")

	tr := fst.New()
	entry(tr, a, "x", "x<bad>", 0)
	entry(tr, a, "x", "x<ok>", 0)
	exec, finals := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('x')
	st.PruneStatesWithForbiddenSymbol(bad)
	require.Equal(t, "/x<ok>", st.FilterFinals(finals, a, noEscapes, FilterConfig{}))
}

func TestHasSymbol(t *testing.T) {
	a := alphabet.New()
	a.IncludeSymbol("<tag>")
	tag := a.LookupOrZero("<tag>")

	tr := fst.New()
	entry(tr, a, "y", "y<tag>", 0)
	exec, _ := build(tr, a)

	st := NewState(exec)
	st.Init(exec.InitialState)
	require.False(t, st.HasSymbol(tag))
	st.Step('y')
	require.True(t, st.HasSymbol(tag))
}

func TestFilterFinalsSAOEmitsEntities(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	entry(tr, a, "cat", "cat<n>", 0)
	exec, _ := build(tr, a)
	finals := make(FinalSet)
	for s, w := range tr.Finals() {
		finals[s] = w
	}

	st := NewState(exec)
	st.Init(exec.InitialState)
	for _, r := range "cat" {
		st.Step(alphabet.Symbol(r))
	}
	require.Equal(t, "/cat&n;", st.FilterFinalsSAO(finals, a, noEscapes, false, false))
}

func TestFilterFinalsTMSubstitutesNumbers(t *testing.T) {
	a := alphabet.New()
	tr := fst.New()
	// Output "m @(1)"; the '@' is escaped on extraction, yielding the
	// \@(1) number reference the substitution looks for.
	cur := tr.GetInitial()
	for i, r := range []rune("m @(1)") {
		in := alphabet.Epsilon
		if i == 0 {
			in = 'n'
		}
		cur = tr.InsertNewSingleTransduction(a.Pair(in, alphabet.Symbol(r)), cur, 0)
	}
	tr.SetFinal(cur, 0, true)
	exec, _ := build(tr, a)
	finals := make(FinalSet)
	for s, w := range tr.Finals() {
		finals[s] = w
	}

	escaped := map[alphabet.Symbol]struct{}{'@': {}}
	st := NewState(exec)
	st.Init(exec.InitialState)
	st.Step('n')
	got := st.FilterFinalsTM(finals, a, escaped, func() (string, bool) { return "", false }, []string{"42"})
	require.Equal(t, "/m 42", got)
}
