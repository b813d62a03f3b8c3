// Package process drives an engine.State over the tagged text stream of a
// machine-translation pipeline, in one of the six operating modes:
// analysis, generation, post-generation, bilingual transfer,
// translation-memory lookup, and SAO annotation. Compound decomposition
// rides inside analysis.
package process

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/container"
	"github.com/apertium/lttoolbox-go/engine"
	"github.com/apertium/lttoolbox-go/fst"
	"github.com/apertium/lttoolbox-go/instream"
	"github.com/projectdiscovery/gologger"
)

// Class is the final-state class of a dictionary section, selected by the
// suffix of the transducer name in the container.
type Class int

const (
	// Standard matches end only at word boundaries.
	Standard Class = iota
	// Inconditional matches win even against a longer standard match.
	Inconditional
	// PreBlank emits a space before the matched word.
	PreBlank
	// PostBlank emits a space after the matched word.
	PostBlank
)

// GenerationMode controls how generation treats unknown lexical forms and
// whether the original form is reinserted after the surface form.
type GenerationMode int

const (
	// GenClean strips unknown-word markers; tags are removed from
	// ungeneratable and '@'-marked forms but kept on '*'-marked ones.
	GenClean GenerationMode = iota
	// GenUnknown keeps the '#' marker on ungeneratable forms.
	GenUnknown
	// GenAll passes markers and forms through untouched.
	GenAll
	// GenTagged wraps output as ^surface/lexical-form$.
	GenTagged
	// GenTaggedNM is GenTagged without the unknown markers on the surface
	// side.
	GenTaggedNM
	// GenCarefulCase folds case only on paths where the exact case has no
	// transition.
	GenCarefulCase
)

// Config is the data half of the processor: case policy, output ranking,
// compound handling, and character-equivalence tables. The zero value is a
// usable default.
type Config struct {
	CaseSensitive  bool
	DictionaryCase bool
	// NullFlush makes a NUL in the input flush the output, reset all
	// processor state, and continue, instead of ending the run.
	NullFlush      bool
	DisplayWeights bool
	// MaxAnalyses and MaxWeightClasses cap filterFinals output; <= 0 is
	// unlimited.
	MaxAnalyses      int
	MaxWeightClasses int

	Decomposition       bool
	CompoundMaxElements int

	// CharEquiv is the ACX/RCX character-equivalence table: each rune maps
	// to the alternatives tried alongside it on every analysis step.
	CharEquiv map[rune][]rune

	// IgnoredChars (from an ICX file) are dropped from the analysis input
	// before the transducer ever sees them.
	IgnoredChars map[rune]struct{}

	// BiltransSurfaceForms selects ^surface/lexical$ input in bilingual
	// mode, where only the part after the first '/' is looked up.
	BiltransSurfaceForms bool

	// RereadSuffix makes post-generation re-read the unchanged common
	// suffix of a rewrite, so overlapping rules can chain.
	RereadSuffix bool
}

// defaultCompoundMaxElements bounds decomposition when the config doesn't.
const defaultCompoundMaxElements = 4

// Names the decomposition control tags may carry in a compiled dictionary,
// oldest convention last.
var compoundLeftNames = []string{
	"<:co:only-L>", "<:compound:only-L>", "<@co:only-L>", "<@compound:only-L>", "<compound-only-L>",
}
var compoundRightNames = []string{
	"<:co:R>", "<:compound:R>", "<@co:R>", "<@compound:R>", "<compound-R>",
}

// Processor owns everything one stream run needs: the combined executable
// transducer, per-class final sets, the traversal state, the rewind buffer,
// and the blank queues. It is single-goroutine; run several Processors over
// the same container to process streams in parallel.
type Processor struct {
	cfg   Config
	alpha *alphabet.Alphabet

	exec    *fst.Executable
	initial fst.StateID

	allFinals     engine.FinalSet
	standard      engine.FinalSet
	inconditional engine.FinalSet
	preblank      engine.FinalSet
	postblank     engine.FinalSet

	letters     map[rune]struct{}
	escapedSet  map[rune]struct{}
	escapedSyms map[alphabet.Symbol]struct{}

	compoundOnlyL alphabet.Symbol
	compoundR     alphabet.Symbol
	numberTag     alphabet.Symbol

	state *engine.State
	inbuf *instream.Buffer
	in    *instream.Reader
	out   *bufio.Writer

	blankqueue []string
	numbers    []string

	outOfWord   bool
	lastBlankTM bool
}

// New builds a Processor from a loaded container: every named transducer is
// copied into one combined graph reachable from a shared initial state by
// epsilon, and its finals are classified by name suffix.
func New(c *container.Container, cfg Config) (*Processor, error) {
	if cfg.CompoundMaxElements <= 0 {
		cfg.CompoundMaxElements = defaultCompoundMaxElements
	}

	p := &Processor{
		cfg:           cfg,
		alpha:         c.Alphabet,
		allFinals:     make(engine.FinalSet),
		standard:      make(engine.FinalSet),
		inconditional: make(engine.FinalSet),
		preblank:      make(engine.FinalSet),
		postblank:     make(engine.FinalSet),
		letters:       make(map[rune]struct{}, len(c.Letters)),
		escapedSet:    make(map[rune]struct{}),
		escapedSyms:   make(map[alphabet.Symbol]struct{}),
	}
	for _, r := range c.Letters {
		p.letters[r] = struct{}{}
	}
	for _, r := range "[]{}^$/\\@<>" {
		p.escapedSet[r] = struct{}{}
		p.escapedSyms[alphabet.Symbol(r)] = struct{}{}
	}

	root := fst.New()
	for name, t := range c.Transducers {
		class := classFromName(name)
		mapping := make(map[fst.StateID]fst.StateID, t.NumStates())
		for _, s := range t.States() {
			mapping[s] = root.NewState()
		}
		for _, s := range t.States() {
			for _, e := range t.Edges(s) {
				root.LinkStates(mapping[s], mapping[e.Dest], e.Pair, e.Weight)
			}
		}
		root.LinkStates(root.GetInitial(), mapping[t.GetInitial()], 0, fst.DefaultWeight)
		for old, w := range t.Finals() {
			s := mapping[old]
			root.SetFinal(s, w, true)
			p.allFinals[s] = w
			switch class {
			case Inconditional:
				p.inconditional[s] = w
			case PreBlank:
				p.preblank[s] = w
			case PostBlank:
				p.postblank[s] = w
			default:
				p.standard[s] = w
			}
		}
	}
	p.exec = fst.Build(root, c.Alphabet)
	p.initial = root.GetInitial()

	if cfg.Decomposition {
		p.compoundOnlyL = lookupAny(c.Alphabet, compoundLeftNames)
		p.compoundR = lookupAny(c.Alphabet, compoundRightNames)
		if p.compoundOnlyL == 0 || p.compoundR == 0 {
			gologger.Warning().Msg("process: decomposition requested but compound control tags missing from alphabet")
		}
	}
	p.numberTag = c.Alphabet.LookupOrZero("<n>")

	return p, nil
}

func classFromName(name string) Class {
	switch {
	case strings.HasSuffix(name, "@inconditional"):
		return Inconditional
	case strings.HasSuffix(name, "@preblank"):
		return PreBlank
	case strings.HasSuffix(name, "@postblank"):
		return PostBlank
	case strings.HasSuffix(name, "@standard"):
		return Standard
	default:
		gologger.Debug().Msgf("process: transducer %q has no class suffix, treating as standard", name)
		return Standard
	}
}

func lookupAny(a *alphabet.Alphabet, names []string) alphabet.Symbol {
	for _, n := range names {
		if sym := a.LookupOrZero(n); sym != 0 {
			return sym
		}
	}
	return 0
}

// begin wires a run's reader, writer, traversal state, and rewind buffer.
func (p *Processor) begin(input io.Reader, output io.Writer) {
	p.in = instream.NewReader(input)
	p.out = bufio.NewWriter(output)
	p.state = engine.NewState(p.exec)
	p.state.Init(p.initial)
	p.inbuf = instream.NewBuffer(0)
	p.blankqueue = p.blankqueue[:0]
	p.numbers = p.numbers[:0]
	p.outOfWord = false
	p.lastBlankTM = false
}

// reset clears per-document state after a NUL flush.
func (p *Processor) reset() {
	p.state.Init(p.initial)
	p.inbuf = instream.NewBuffer(0)
	p.blankqueue = p.blankqueue[:0]
	p.numbers = p.numbers[:0]
	p.outOfWord = false
	p.lastBlankTM = false
}

func (p *Processor) filterCfg(uppercase, firstupper bool) engine.FilterConfig {
	return engine.FilterConfig{
		DisplayWeights:   p.cfg.DisplayWeights,
		MaxAnalyses:      p.cfg.MaxAnalyses,
		MaxWeightClasses: p.cfg.MaxWeightClasses,
		Uppercase:        uppercase,
		FirstUpper:       firstupper,
	}
}

func (p *Processor) isAlphabetic(c alphabet.Symbol) bool {
	if c <= 0 {
		return false
	}
	r := rune(c)
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	_, ok := p.letters[r]
	return ok
}

func (p *Processor) isEscaped(r rune) bool {
	_, ok := p.escapedSet[r]
	return ok
}

// getSymbol appends the textual form of sym to sf.
func (p *Processor) getSymbol(sf []rune, sym alphabet.Symbol) []rune {
	switch {
	case sym > 0:
		return append(sf, rune(sym))
	case sym < 0:
		return append(sf, []rune(p.alpha.TagName(sym))...)
	}
	return sf
}

func (p *Processor) putcEsc(r rune) {
	if r == 0 {
		return
	}
	if p.isEscaped(r) {
		p.out.WriteByte('\\')
	}
	p.out.WriteRune(r)
}

func (p *Processor) writeEscaped(s []rune) {
	for _, r := range s {
		p.putcEsc(r)
	}
}

// writeEscapedPopBlanks writes s, popping one queued blank per space that
// matches a plain " " at the queue head. Returns how many non-plain blanks
// still owe an emission after the word.
func (p *Processor) writeEscapedPopBlanks(s []rune) int {
	postpop := 0
	for _, r := range s {
		p.putcEsc(r)
		if r == ' ' {
			if len(p.blankqueue) > 0 && p.blankqueue[0] == " " {
				p.blankqueue = p.blankqueue[1:]
			} else {
				postpop++
			}
		}
	}
	return postpop
}

// writeEscapedWithTags escapes the lemma part of s and passes everything
// from the first unescaped '<' through verbatim.
func (p *Processor) writeEscapedWithTags(s []rune) {
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && i >= 1 && s[i-1] != '\\' {
			p.out.WriteString(string(s[i:]))
			return
		}
		p.putcEsc(s[i])
	}
}

func (p *Processor) flushBlanks() {
	for _, b := range p.blankqueue {
		p.out.WriteString(b)
	}
	p.blankqueue = p.blankqueue[:0]
}

func (p *Processor) popBlank() (string, bool) {
	if len(p.blankqueue) == 0 {
		return "", false
	}
	b := p.blankqueue[0]
	p.blankqueue = p.blankqueue[1:]
	return b, true
}

// printSpace emits val's blank: the queued superblank if one is pending,
// the bare space otherwise.
func (p *Processor) printSpace(val rune) {
	if b, ok := p.popBlank(); ok {
		p.out.WriteString(b)
	} else {
		p.out.WriteRune(val)
	}
}

func (p *Processor) printChar(val rune) {
	if unicode.IsSpace(val) {
		p.printSpace(val)
	} else {
		p.putcEsc(val)
	}
}

func (p *Processor) printWord(sf []rune, lf string) {
	p.out.WriteByte('^')
	p.writeEscaped(sf)
	p.out.WriteString(lf)
	p.out.WriteByte('$')
}

func (p *Processor) printWordPopBlank(sf []rune, lf string) {
	p.out.WriteByte('^')
	postpop := p.writeEscapedPopBlanks(sf)
	p.out.WriteString(lf)
	p.out.WriteByte('$')
	for ; postpop > 0; postpop-- {
		if b, ok := p.popBlank(); ok {
			p.out.WriteString(b)
		}
	}
}

func (p *Processor) printUnknownWord(sf []rune) {
	p.out.WriteByte('^')
	p.writeEscaped(sf)
	p.out.WriteString("/*")
	p.writeEscaped(sf)
	p.out.WriteByte('$')
}

// skipUntil copies the stream through verbatim (honoring escapes and NUL
// flushes) until character is consumed.
func (p *Processor) skipUntil(character rune) {
	for {
		val := p.in.Get()
		switch val {
		case instream.RuneEOF:
			return
		case '\\':
			next := p.in.Get()
			if next == instream.RuneEOF {
				return
			}
			p.out.WriteByte('\\')
			p.out.WriteRune(next)
		case 0:
			p.out.WriteRune(val)
			if p.cfg.NullFlush {
				p.out.Flush()
			}
		default:
			if val == character {
				return
			}
			p.out.WriteRune(val)
		}
	}
}

// lastBlank returns the index of the last non-alphabetic rune in sf, or 0
// if every rune is alphabetic.
func (p *Processor) lastBlank(sf []rune) int {
	for i := len(sf) - 1; i >= 0; i-- {
		if !p.isAlphabetic(alphabet.Symbol(sf[i])) {
			return i
		}
	}
	return 0
}

// firstNotAlpha returns the index of the first non-alphabetic rune in sf,
// or -1 if there is none.
func (p *Processor) firstNotAlpha(sf []rune) int {
	for i, r := range sf {
		if !p.isAlphabetic(alphabet.Symbol(r)) {
			return i
		}
	}
	return -1
}
