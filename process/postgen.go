package process

import (
	"io"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/instream"
)

// readPostgeneration returns the next symbol of the surface stream:
// buffered symbols first, tags as codes, blanks and wblanks queued behind a
// stand-in space, escapes passed through. Returns 0 at EOF and NUL.
func (p *Processor) readPostgeneration() alphabet.Symbol {
	if !p.inbuf.IsEmpty() {
		return p.inbuf.Next()
	}

	val := p.in.Get()
	switch val {
	case instream.RuneEOF:
		return p.inbuf.Add(0)
	case '<':
		return p.inbuf.Add(p.alpha.LookupOrZero(p.in.ReadBlock('<', '>')))
	case '[':
		c := p.in.Get()
		if c == '[' {
			// Wblank openers and closers ride the same queue as ordinary
			// superblanks; their stand-in spaces keep the emission order
			// exact.
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
		return p.inbuf.Add(alphabet.Symbol(val))
	}
}

// firstReading returns the lowest-weight reading of a filterFinals result:
// the span after the leading '/' up to the next unescaped '/'.
func firstReading(lf string) string {
	rs := []rune(lf)
	for i := 1; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case '/':
			return string(rs[1:i])
		}
	}
	if len(rs) > 0 {
		return string(rs[1:])
	}
	return ""
}

// commonSuffix returns the length of the longest common rune suffix of a
// and b.
func commonSuffix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// writeRewrite emits generated text, feeding each space through the blank
// queue so superblanks keep their place in the rewritten stream.
func (p *Processor) writeRewrite(s []rune) {
	for _, r := range s {
		if r == ' ' {
			p.printSpace(r)
		} else {
			p.out.WriteRune(r)
		}
	}
}

// PostGeneration applies the context-sensitive rewrite dictionary to a
// generated surface stream: a '~' wake-up mark opens a longest-match
// attempt, a successful match substitutes the dictionary output and resumes
// after it (re-reading the unchanged suffix under RereadSuffix), and a
// failed attempt drops the mark and passes the text through.
func (p *Processor) PostGeneration(input io.Reader, output io.Writer) error {
	p.begin(input, output)
	for {
		p.postgenChunk()
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

func (p *Processor) postgenChunk() {
	skipMode := true
	var sf []rune        // the '~'-prefixed span being matched
	var lf string        // last recorded rewrite
	var sfAtMatch []rune // sf as it stood when lf was recorded
	last := 0

	for {
		val := p.readPostgeneration()

		if skipMode {
			switch {
			case val == 0:
				p.flushBlanks()
				return
			case val == '~':
				sf = []rune{'~'}
				lf = ""
				sfAtMatch = nil
				p.state.Init(p.initial)
				p.state.StepCase('~', p.cfg.CaseSensitive)
				if p.state.Size() == 0 {
					// No rule wakes up here: swallow the mark.
					p.state.Init(p.initial)
					sf = nil
				} else {
					skipMode = false
				}
			case val > 0 && unicode.IsSpace(rune(val)):
				p.printSpace(rune(val))
			case val > 0:
				p.putcEsc(rune(val))
			default:
				p.out.WriteString(p.alpha.TagName(val))
			}
			continue
		}

		// Matching mode: record rewrites at finals, step, and on failure
		// fall back to the recorded rewrite or to the raw span.
		if p.state.IsFinal(p.allFinals) {
			firstupper, uppercase := false, false
			if !p.cfg.DictionaryCase && len(sf) > 1 {
				firstupper = unicode.IsUpper(sf[1])
				uppercase = firstupper && len(sf) > 2 && unicode.IsUpper(sf[2])
			}
			lf = p.state.FilterFinals(p.allFinals, p.alpha, p.escapedSyms, p.filterCfg(uppercase, firstupper))
			sfAtMatch = append(sfAtMatch[:0], sf...)
			last = p.inbuf.Pos()
		}

		dead := val == 0
		if !dead {
			p.state.StepCase(val, p.cfg.CaseSensitive)
			if p.state.Size() != 0 {
				sf = p.getSymbol(sf, val)
				continue
			}
			dead = true
		}

		if lf == "" {
			// No rewrite applies: drop the wake-up mark, emit the span, and
			// resume at any inner mark so overlapping spans still get their
			// chance.
			mark := len(sf)
			for i := 1; i < len(sf); i++ {
				if sf[i] == '~' {
					mark = i
					break
				}
			}
			p.writeRewrite(sf[1:mark])
			p.inbuf.Back(1 + (len(sf) - mark))
		} else {
			reading := []rune(firstReading(lf))
			rewind := 1
			if p.cfg.RereadSuffix {
				suf := commonSuffix(reading, sfAtMatch)
				reading = reading[:len(reading)-suf]
				rewind += suf
			}
			p.writeRewrite(reading)
			p.inbuf.SetPos(last)
			p.inbuf.Back(rewind)
		}

		p.state.Init(p.initial)
		sf = nil
		lf = ""
		sfAtMatch = nil
		skipMode = true
	}
}
