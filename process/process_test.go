package process

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/container"
	"github.com/apertium/lttoolbox-go/fst"
	"github.com/stretchr/testify/require"
)

type pe struct {
	surface string
	lexical string
	weight  float64
}

// buildDict builds one dictionary section as a fresh path per entry, the
// entry weight carried on the first edge.
func buildDict(a *alphabet.Alphabet, entries []pe) *fst.Transducer {
	t := fst.New()
	for _, e := range entries {
		in := a.Tokenize(e.surface)
		out := a.Tokenize(e.lexical)
		n := len(in)
		if len(out) > n {
			n = len(out)
		}
		cur := t.GetInitial()
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
				w = e.weight
			}
			cur = t.InsertNewSingleTransduction(a.Pair(is, os), cur, w)
		}
		t.SetFinal(cur, 0, true)
	}
	return t
}

func makeProcessor(t *testing.T, cfg Config, sections map[string][]pe) *Processor {
	t.Helper()
	a := alphabet.New()
	transducers := make(map[string]*fst.Transducer, len(sections))
	for name, entries := range sections {
		transducers[name] = buildDict(a, entries)
	}
	p, err := New(&container.Container{Alphabet: a, Transducers: transducers}, cfg)
	require.NoError(t, err)
	return p
}

func analyze(t *testing.T, p *Processor, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, p.Analysis(strings.NewReader(input), &out))
	return out.String()
}

func TestAnalysisKnownWord(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {
			{"houses", "house<n><pl>", 0},
			{".", ".<sent>", 0},
		},
	})
	require.Equal(t, "^houses/house<n><pl>$^./.<sent>$", analyze(t, p, "houses."))
}

func TestAnalysisUnknownWordPreservesSpace(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"houses", "house<n><pl>", 0}},
	})
	require.Equal(t, "^xyz/*xyz$ ", analyze(t, p, "xyz "))
}

func TestAnalysisLongestMatchNeedsBoundary(t *testing.T) {
	// "houses" with only "house" in the dictionary: a standard match may
	// not end mid-run, so the whole run is unknown.
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"house", "house<n>", 0}},
	})
	require.Equal(t, "^houses/*houses$", analyze(t, p, "houses"))
}

func TestAnalysisInconditionalWinsMidRun(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@inconditional": {{"pre", "pre<pfx>", 0}},
	})
	require.Equal(t, "^pre/pre<pfx>$^fix/*fix$", analyze(t, p, "prefix"))
}

func TestAnalysisPostblankEmitsSpaceAfter(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@postblank": {{"l'", "el<det>", 0}},
		"main@standard":  {{"avion", "avion<n>", 0}},
	})
	require.Equal(t, "^l'/el<det>$ ^avion/avion<n>$", analyze(t, p, "l'avion"))
}

func TestAnalysisCaseFolding(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"cat", "cat<n>", 0}},
	})
	require.Equal(t, "^Cat/Cat<n>$", analyze(t, p, "Cat"))
	require.Equal(t, "^CAT/CAT<n>$", analyze(t, p, "CAT"))
	require.Equal(t, "^cat/cat<n>$", analyze(t, p, "cat"))
}

func TestAnalysisCaseSensitive(t *testing.T) {
	p := makeProcessor(t, Config{CaseSensitive: true}, map[string][]pe{
		"main@standard": {{"cat", "cat<n>", 0}},
	})
	require.Equal(t, "^Cat/*Cat$", analyze(t, p, "Cat"))
}

func TestAnalysisSuperblankPreserved(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {
			{"cat", "cat<n>", 0},
			{"dog", "dog<n>", 0},
		},
	})
	require.Equal(t, "^cat/cat<n>$ [<br/>] ^dog/dog<n>$",
		analyze(t, p, "cat [<br/>] dog"))
}

func TestAnalysisEscapedCharacterIsData(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"a$b", "ab<x>", 0}},
	})
	require.Equal(t, `^a\$b/ab<x>$`, analyze(t, p, `a\$b`))
}

func TestAnalysisWeightRanking(t *testing.T) {
	p := makeProcessor(t, Config{DisplayWeights: true, MaxAnalyses: 2}, map[string][]pe{
		"main@standard": {
			{"run", "run<vblex>", 1.0},
			{"run", "run<n>", 2.0},
		},
	})
	require.Equal(t, "^run/run<vblex><W:1.000000>/run<n><W:2.000000>$", analyze(t, p, "run"))
}

func TestAnalysisMaxAnalysesCaps(t *testing.T) {
	p := makeProcessor(t, Config{MaxAnalyses: 1}, map[string][]pe{
		"main@standard": {
			{"run", "run<vblex>", 1.0},
			{"run", "run<n>", 2.0},
		},
	})
	require.Equal(t, "^run/run<vblex>$", analyze(t, p, "run"))
}

func TestAnalysisCompoundDecomposition(t *testing.T) {
	p := makeProcessor(t, Config{Decomposition: true}, map[string][]pe{
		"main@standard": {
			{"house", "house<compound-only-L>", 0},
			{"boat", "boat<compound-R>", 0},
		},
	})
	require.Equal(t, "^houseboat/house<compound-only-L>+boat<compound-R>$",
		analyze(t, p, "houseboat"))
}

func TestAnalysisNullFlush(t *testing.T) {
	p := makeProcessor(t, Config{NullFlush: true}, map[string][]pe{
		"main@standard": {
			{"ab", "ab<x>", 0},
			{"cd", "cd<y>", 0},
		},
	})
	require.Equal(t, "^ab/ab<x>$\x00^cd/cd<y>$", analyze(t, p, "ab\x00cd"))
}

func TestAnalysisCharEquiv(t *testing.T) {
	p := makeProcessor(t, Config{
		CharEquiv: map[rune][]rune{'a': {'á'}},
	}, map[string][]pe{
		"main@standard": {{"más", "más<adv>", 0}},
	})
	require.Equal(t, "^mas/más<adv>$", analyze(t, p, "mas"))
}

func TestAnalysisIgnoredChars(t *testing.T) {
	p := makeProcessor(t, Config{
		IgnoredChars: map[rune]struct{}{'­': {}}, // soft hyphen
	}, map[string][]pe{
		"main@standard": {{"cat", "cat<n>", 0}},
	})
	require.Equal(t, "^cat/cat<n>$", analyze(t, p, "c­at"))
}

func generate(t *testing.T, p *Processor, mode GenerationMode, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, p.Generation(strings.NewReader(input), &out, mode))
	return out.String()
}

func genProcessor(t *testing.T) *Processor {
	return makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"house<n><pl>", "houses", 0}},
	})
}

func TestGenerationKnownForm(t *testing.T) {
	require.Equal(t, "houses", generate(t, genProcessor(t), GenClean, "^house<n><pl>$"))
}

func TestGenerationUnknownMarkerClean(t *testing.T) {
	require.Equal(t, "house<n><pl>", generate(t, genProcessor(t), GenClean, "^*house<n><pl>$"))
}

func TestGenerationUnknownMarkerKept(t *testing.T) {
	require.Equal(t, "*house<n><pl>", generate(t, genProcessor(t), GenUnknown, "^*house<n><pl>$"))
}

func TestGenerationUngeneratable(t *testing.T) {
	p := genProcessor(t)
	require.Equal(t, "#mouse", generate(t, p, GenUnknown, "^mouse<n><pl>$"))
	require.Equal(t, "mouse", generate(t, p, GenClean, "^mouse<n><pl>$"))
}

func TestGenerationBlanksPassThrough(t *testing.T) {
	p := genProcessor(t)
	require.Equal(t, "x [b] houses y",
		generate(t, p, GenClean, "x [b] ^house<n><pl>$ y"))
}

func TestGenerationCaseRecovery(t *testing.T) {
	p := genProcessor(t)
	require.Equal(t, "Houses", generate(t, p, GenClean, "^House<n><pl>$"))
}

func TestGenerationTagged(t *testing.T) {
	require.Equal(t, "^houses/house<n><pl>$",
		generate(t, genProcessor(t), GenTagged, "^house<n><pl>$"))
}

func bilingual(t *testing.T, p *Processor, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, p.Bilingual(strings.NewReader(input), &out, GenUnknown))
	return out.String()
}

func bidixProcessor(t *testing.T) *Processor {
	return makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {
			{"cat<n>", "gato<n>", 0},
			{"dog<n>", "perro<n>", 0},
		},
	})
}

func TestBilingualSuperblankPreserved(t *testing.T) {
	p := bidixProcessor(t)
	require.Equal(t, "^cat<n>/gato<n>$[ <br/> ]^dog<n>/perro<n>$",
		bilingual(t, p, "^cat<n>$[ <br/> ]^dog<n>$"))
}

func TestBilingualQueuesUnmatchedTags(t *testing.T) {
	p := bidixProcessor(t)
	require.Equal(t, "^cat<n><pl>/gato<n><pl>$", bilingual(t, p, "^cat<n><pl>$"))
}

func TestBilingualUnknownWord(t *testing.T) {
	p := bidixProcessor(t)
	require.Equal(t, "^mouse<n>/@mouse<n>$", bilingual(t, p, "^mouse<n>$"))
}

func TestBilingualStarPassesThrough(t *testing.T) {
	p := bidixProcessor(t)
	require.Equal(t, "^*mouse/*mouse$", bilingual(t, p, "^*mouse$"))
}

func TestPostGenerationRewrite(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"~xy", "z", 0}},
	})
	var out bytes.Buffer
	require.NoError(t, p.PostGeneration(strings.NewReader("a ~xy b"), &out))
	require.Equal(t, "a z b", out.String())
}

func TestPostGenerationNoMatchDropsTilde(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"~xy", "z", 0}},
	})
	var out bytes.Buffer
	require.NoError(t, p.PostGeneration(strings.NewReader("a ~qw b"), &out))
	require.Equal(t, "a qw b", out.String())
}

func TestPostGenerationLongestMatchRewind(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"~ab", "X", 0}},
	})
	var out bytes.Buffer
	// "~abc": the rule matches "~ab", the 'c' flows through untouched.
	require.NoError(t, p.PostGeneration(strings.NewReader("~abc"), &out))
	require.Equal(t, "Xc", out.String())
}

func TestTMAnalysisGeneralizesNumbers(t *testing.T) {
	a := alphabet.New()
	a.IncludeSymbol("<n>")
	nTag := a.LookupOrZero("<n>")

	// Surface "n <n>" -> output "m @(1)": on extraction the '@' gets its
	// backslash escape, forming the \@(1) capture reference.
	tr := fst.New()
	in := []alphabet.Symbol{'n', ' ', nTag}
	out := []alphabet.Symbol{'m', ' ', '@', '(', '1', ')'}
	cur := tr.GetInitial()
	for i := 0; i < len(out); i++ {
		is := alphabet.Epsilon
		if i < len(in) {
			is = in[i]
		}
		cur = tr.InsertNewSingleTransduction(a.Pair(is, out[i]), cur, 0)
	}
	tr.SetFinal(cur, 0, true)

	p, err := New(&container.Container{Alphabet: a, Transducers: map[string]*fst.Transducer{"tm@standard": tr}}, Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.TMAnalysis(strings.NewReader("n 42."), &buf))
	require.Equal(t, "[m 42].", buf.String())
}

func TestSAOKnownAndUnknown(t *testing.T) {
	p := makeProcessor(t, Config{}, map[string][]pe{
		"main@standard": {{"cat", "cat<n>", 0}},
	})
	var out bytes.Buffer
	require.NoError(t, p.SAO(strings.NewReader("cat "), &out))
	require.Equal(t, "cat&n; ", out.String())

	out.Reset()
	require.NoError(t, p.SAO(strings.NewReader("xyz "), &out))
	require.Equal(t, "<d>xyz</d> ", out.String())
}

func TestAnalysisAfterContainerRoundTrip(t *testing.T) {
	a := alphabet.New()
	main := buildDict(a, []pe{
		{"houses", "house<n><pl>", 0},
		{".", ".<sent>", 0},
	})
	c := &container.Container{
		Letters:     []rune{'h', 'o', 'u', 's', 'e'},
		Alphabet:    a,
		Transducers: map[string]*fst.Transducer{"main@standard": main},
	}

	var bin bytes.Buffer
	require.NoError(t, container.Write(&bin, c, container.WriteOptions{WeightMode: true}))
	loaded, err := container.Load(&bin)
	require.NoError(t, err)

	p, err := New(loaded, Config{})
	require.NoError(t, err)
	require.Equal(t, "^houses/house<n><pl>$^./.<sent>$", analyze(t, p, "houses."))
}

func TestComposeQueue(t *testing.T) {
	require.Equal(t, "/gato<n><pl>", composeQueue("/gato<n>", "<pl>"))
	require.Equal(t, "/a<x>/b<x>", composeQueue("/a/b", "<x>"))
}
