package process

import (
	"io"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/engine"
	"github.com/apertium/lttoolbox-go/instream"
	"github.com/projectdiscovery/gologger"
)

// readAnalysis returns the next symbol of the raw-text stream: buffered
// symbols first, then fresh input. Tags are tokenized to their codes,
// superblanks and wblanks are queued and stand in as a single space, and a
// backslash passes the next rune through as data. Returns 0 at EOF and at
// the NUL stream-flush marker alike; the caller distinguishes via in.EOF().
func (p *Processor) readAnalysis() alphabet.Symbol {
	if !p.inbuf.IsEmpty() {
		val := p.inbuf.Next()
		for val > 0 {
			if _, skip := p.cfg.IgnoredChars[rune(val)]; !skip {
				break
			}
			val = p.inbuf.Next()
		}
		return val
	}

	val := p.in.Get()
	if val == instream.RuneEOF {
		return p.inbuf.Add(0)
	}
	for {
		if _, skip := p.cfg.IgnoredChars[val]; !skip {
			break
		}
		p.inbuf.Add(alphabet.Symbol(val))
		val = p.in.Get()
		if val == instream.RuneEOF {
			return p.inbuf.Add(0)
		}
	}

	if p.isEscaped(val) {
		switch val {
		case '<':
			alt := p.alpha.LookupOrZero(p.in.ReadBlock('<', '>'))
			return p.inbuf.Add(alt)
		case '[':
			c := p.in.Get()
			if c == '[' {
				p.blankqueue = append(p.blankqueue, p.in.FinishWBlank())
			} else {
				if c != instream.RuneEOF {
					p.in.Unget(c)
				}
				p.blankqueue = append(p.blankqueue, p.in.ReadBlock('[', ']'))
			}
			return p.inbuf.Add(' ')
		case '\\':
			c := p.in.Get()
			if c == instream.RuneEOF {
				return p.inbuf.Add(0)
			}
			return p.inbuf.Add(alphabet.Symbol(c))
		default:
			// A bare structural character in raw text is malformed per the
			// stream syntax; pass it through as data and keep going.
			gologger.Debug().Msgf("process: unescaped %q in analysis input", val)
			return p.inbuf.Add(alphabet.Symbol(val))
		}
	}
	if val == ' ' {
		p.blankqueue = append(p.blankqueue, " ")
	}
	return p.inbuf.Add(alphabet.Symbol(val))
}

// filterFinalsOf ranks st's final outputs with case flags recovered from
// casefrom.
func (p *Processor) filterFinalsOf(st *engine.State, casefrom []rune) string {
	firstupper, uppercase := false, false
	if !p.cfg.DictionaryCase && len(casefrom) > 0 {
		firstupper = unicode.IsUpper(casefrom[0])
		uppercase = firstupper && len(casefrom) > 1 && unicode.IsUpper(casefrom[len(casefrom)-1])
	}
	return st.FilterFinals(p.allFinals, p.alpha, p.escapedSyms, p.filterCfg(uppercase, firstupper))
}

func (p *Processor) pruneForbidden() {
	if p.cfg.Decomposition && p.compoundOnlyL != 0 {
		p.state.PruneStatesWithForbiddenSymbol(p.compoundOnlyL)
	}
}

// maxCompoundCombinations caps the path explosion of decomposition before
// giving up on a word.
const maxCompoundCombinations = 32767

// compoundAnalysis analyzes word as a compound: the traversal restarts from
// the initial state at every final whose last segment carries the
// compound-left tag, joining segments with '+', and the decomposition with
// the fewest parts that ends in a compound-right segment wins. Returns ""
// when word is not a compound.
func (p *Processor) compoundAnalysis(word []rune) string {
	if p.compoundOnlyL == 0 || p.compoundR == 0 {
		return ""
	}
	st := engine.NewState(p.exec)
	st.Init(p.initial)
	for i, r := range word {
		st.StepCase(alphabet.Symbol(r), p.cfg.CaseSensitive)
		if st.Size() > maxCompoundCombinations {
			gologger.Warning().Msgf("process: compound combination limit exceeded for %q", string(word))
			return ""
		}
		if i < len(word)-1 {
			st.RestartFinals(p.allFinals, p.compoundOnlyL, p.initial, '+')
		}
		if st.Size() == 0 {
			return ""
		}
	}
	st.PruneCompounds(p.compoundR, '+', p.cfg.CompoundMaxElements)
	return p.filterFinalsOf(st, word)
}

// Analysis reads raw text from input and writes the analyzed stream to
// output: ^surface/analysis...$ per matched word, ^surface/*surface$ per
// unknown word, everything else passed through with blanks preserved.
func (p *Processor) Analysis(input io.Reader, output io.Writer) error {
	p.begin(input, output)
	for {
		p.analyzeChunk()
		if !p.cfg.NullFlush || p.in.EOF() {
			break
		}
		p.out.WriteByte(0)
		if err := p.out.Flush(); err != nil {
			return err
		}
		p.reset()
	}
	return p.out.Flush()
}

// analyzeChunk runs the longest-match loop until EOF or a NUL flush
// marker.
func (p *Processor) analyzeChunk() {
	lastIncond := false
	lastPostblank := false
	lastPreblank := false
	p.state.Init(p.initial)
	var lf string   // last recorded analysis
	var sf []rune   // surface form
	var lfSpcmp string
	seenCpL := false // a <compound-only-L> path is alive, a space compound may follow
	last := 0        // buffer position after the last analysis
	lastSize := 0    // surface length at the last analysis

	var val alphabet.Symbol
	for {
		val = p.readAnalysis()

		// Test for final states.
		if p.state.IsFinal(p.allFinals) {
			switch {
			case p.state.IsFinal(p.inconditional):
				p.pruneForbidden()
				lf = p.filterFinalsOf(p.state, sf)
				lastIncond = true
				last = p.inbuf.Pos()
				lastSize = len(sf)
			case p.state.IsFinal(p.postblank):
				p.pruneForbidden()
				lf = p.filterFinalsOf(p.state, sf)
				lastPostblank = true
				last = p.inbuf.Pos()
				lastSize = len(sf)
			case p.state.IsFinal(p.preblank):
				p.pruneForbidden()
				lf = p.filterFinalsOf(p.state, sf)
				lastPreblank = true
				last = p.inbuf.Pos()
				lastSize = len(sf)
			case !p.isAlphabetic(val):
				p.pruneForbidden()
				lf = p.filterFinalsOf(p.state, sf)
				lastIncond = false
				lastPostblank = false
				lastPreblank = false
				last = p.inbuf.Pos()
				lastSize = len(sf)
			default:
				// A standard match mid-run only counts once the run ends;
				// just note whether a compound left half is in play.
				if p.cfg.Decomposition && p.compoundOnlyL != 0 && p.state.HasSymbol(p.compoundOnlyL) {
					seenCpL = true
				}
			}
		} else if len(sf) == 0 && val > 0 && unicode.IsSpace(rune(val)) {
			lf = "/*"
			lastIncond = false
			lastPostblank = false
			lastPreblank = false
			last = p.inbuf.Pos()
			lastSize = len(sf)
		}

		p.stepAnalysis(val)

		if p.state.Size() != 0 {
			if val != 0 {
				sf = p.getSymbol(sf, val)
			}
		} else {
			// Blank-crossing compound: both halves seen, try consuming the
			// rest of the run and decomposing the whole thing.
			lfSpcmp = ""
			if seenCpL && p.isAlphabetic(val) && len(sf) > 0 && lastSize <= p.lastBlank(sf) {
				oldval := val
				oldsf := append([]rune(nil), sf...)
				for {
					sf = p.getSymbol(sf, val)
					val = p.readAnalysis()
					if val == 0 || !p.isAlphabetic(val) {
						break
					}
				}
				lfSpcmp = p.compoundAnalysis(sf)
				if lfSpcmp == "" {
					p.inbuf.Back(len(sf) - len(oldsf))
					val = oldval
					sf = oldsf
				} else {
					p.inbuf.Back(1)
					val = p.inbuf.Peek()
				}
			}
			seenCpL = false

			switch {
			case lfSpcmp != "":
				p.printWordPopBlank(sf, lfSpcmp)
			case !p.isAlphabetic(val) && len(sf) == 0:
				if val > 0 {
					p.printChar(rune(val))
				}
			case lastPostblank:
				p.printWordPopBlank(sf[:lastSize], lf)
				p.out.WriteByte(' ')
				p.inbuf.SetPos(last)
				p.inbuf.Back(1)
			case lastPreblank:
				p.out.WriteByte(' ')
				p.printWordPopBlank(sf[:lastSize], lf)
				p.inbuf.SetPos(last)
				p.inbuf.Back(1)
			case lastIncond:
				p.printWordPopBlank(sf[:lastSize], lf)
				p.inbuf.SetPos(last)
				p.inbuf.Back(1)
			case p.isAlphabetic(val) && (lastSize > p.lastBlank(sf) || lf == ""):
				// The run continues past the recorded match (or there was
				// none): the whole run is one unknown word.
				sf, val = p.consumeRun(sf, val)
				p.emitUnknown(sf)
			case lf == "":
				p.emitUnknown(sf)
			default:
				p.printWordPopBlank(sf[:lastSize], lf)
				p.inbuf.SetPos(last)
				p.inbuf.Back(1)
			}

			if val == 0 && !p.inbuf.IsEmpty() {
				p.inbuf.SetPos(last + 1)
			}

			p.state.Init(p.initial)
			lf = ""
			sf = nil
			lastIncond = false
			lastPostblank = false
			lastPreblank = false
		}

		if val == 0 {
			break
		}
	}
	p.flushBlanks()
}

// consumeRun appends val and every following alphabetic symbol to sf,
// returning the extended surface and the terminating symbol.
func (p *Processor) consumeRun(sf []rune, val alphabet.Symbol) ([]rune, alphabet.Symbol) {
	for {
		sf = p.getSymbol(sf, val)
		val = p.readAnalysis()
		if val == 0 || !p.isAlphabetic(val) {
			break
		}
	}
	return sf, val
}

// emitUnknown prints sf's maximal alphabetic prefix as an unknown word
// (trying compound decomposition first when enabled) and rewinds the input
// past whatever it doesn't consume.
func (p *Processor) emitUnknown(sf []rune) {
	limit := p.firstNotAlpha(sf)
	size := len(sf)
	if limit == -1 {
		limit = size
	}
	if limit == 0 {
		p.inbuf.Back(size)
		p.writeEscaped(sf[:1])
		return
	}
	p.inbuf.Back(1 + (size - limit))
	unknown := sf[:limit]
	if p.cfg.Decomposition {
		if compound := p.compoundAnalysis(unknown); compound != "" {
			p.printWord(unknown, compound)
			return
		}
	}
	p.printUnknownWord(unknown)
}
