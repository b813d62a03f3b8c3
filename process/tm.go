package process

import (
	"io"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/instream"
)

// readTMAnalysis is readAnalysis with number generalization: a run of
// digits collapses to the generic <n> tag while the literal digits are
// captured for re-substitution into the match output.
func (p *Processor) readTMAnalysis() alphabet.Symbol {
	p.lastBlankTM = false
	if !p.inbuf.IsEmpty() {
		return p.inbuf.Next()
	}

	val := p.in.Get()
	if val == instream.RuneEOF {
		return p.inbuf.Add(0)
	}

	if p.isEscaped(val) || unicode.IsDigit(val) {
		switch {
		case val == '<':
			return p.inbuf.Add(p.alpha.LookupOrZero(p.in.ReadBlock('<', '>')))
		case val == '[':
			c := p.in.Get()
			if c == '[' {
				p.blankqueue = append(p.blankqueue, p.in.FinishWBlank())
			} else {
				if c != instream.RuneEOF {
					p.in.Unget(c)
				}
				p.blankqueue = append(p.blankqueue, p.in.ReadBlock('[', ']'))
			}
			p.lastBlankTM = true
			return p.inbuf.Add(' ')
		case val == '\\':
			c := p.in.Get()
			if c == instream.RuneEOF {
				return p.inbuf.Add(0)
			}
			return p.inbuf.Add(alphabet.Symbol(c))
		case unicode.IsDigit(val):
			var ws []rune
			for unicode.IsDigit(val) {
				ws = append(ws, val)
				val = p.in.Get()
			}
			if val != instream.RuneEOF {
				p.in.Unget(val)
			}
			p.numbers = append(p.numbers, string(ws))
			return p.inbuf.Add(p.numberTag)
		default:
			return p.inbuf.Add(alphabet.Symbol(val))
		}
	}

	return p.inbuf.Add(alphabet.Symbol(val))
}

// TMAnalysis looks the stream up in a translation-memory transducer:
// matches are emitted as bracketed suggestions with captured number
// literals substituted back in, everything else passes through.
func (p *Processor) TMAnalysis(input io.Reader, output io.Writer) error {
	p.begin(input, output)

	var lf string
	var sf []rune
	last := 0

	for {
		val := p.readTMAnalysis()
		if val == 0 {
			break
		}

		// Test for final states.
		if p.state.IsFinal(p.allFinals) {
			if val > 0 && unicode.IsPunct(rune(val)) {
				full := p.state.FilterFinalsTM(p.allFinals, p.alpha, p.escapedSyms, p.popBlank, p.numbers)
				if len(full) > 0 {
					lf = full[1:]
				}
				last = p.inbuf.Pos()
				p.numbers = p.numbers[:0]
			}
		} else if len(sf) == 0 && val > 0 && unicode.IsSpace(rune(val)) {
			lf = ""
			last = p.inbuf.Pos()
		}

		p.state.StepCase(val, false)

		if p.state.Size() != 0 {
			switch {
			case p.numberTag != 0 && val == p.numberTag && len(p.numbers) > 0:
				sf = append(sf, []rune(p.numbers[len(p.numbers)-1])...)
			case p.lastBlankTM && val == ' ' && len(p.blankqueue) > 0:
				sf = append(sf, []rune(p.blankqueue[len(p.blankqueue)-1])...)
			default:
				sf = p.getSymbol(sf, val)
			}
			continue
		}

		isSpace := val > 0 && unicode.IsSpace(rune(val))
		isPunct := val > 0 && unicode.IsPunct(rune(val))
		switch {
		case (isSpace || isPunct) && len(sf) == 0:
			p.printChar(rune(val))
		case !isSpace && !isPunct &&
			((len(sf)-p.inbuf.DiffPrevPos(last)) > p.lastBlank(sf) || lf == ""):
			// Consume the rest of the token and pass it through.
			for {
				switch {
				case p.numberTag != 0 && val == p.numberTag && len(p.numbers) > 0:
					sf = append(sf, []rune(p.numbers[len(p.numbers)-1])...)
				case p.lastBlankTM && val == ' ' && len(p.blankqueue) > 0:
					sf = append(sf, []rune(p.blankqueue[len(p.blankqueue)-1])...)
				default:
					sf = p.getSymbol(sf, val)
				}
				val = p.readTMAnalysis()
				if val == 0 || (val > 0 && (unicode.IsSpace(rune(val)) || unicode.IsPunct(rune(val)))) {
					break
				}
			}
			if val == 0 {
				p.out.WriteString(string(sf))
				return p.out.Flush()
			}
			p.inbuf.Back(1)
			p.out.WriteString(string(sf))
			p.dropBlanksButLastTM()
		case lf == "":
			p.inbuf.Back(1)
			p.out.WriteString(string(sf))
			p.dropBlanksButLastTM()
		default:
			p.out.WriteByte('[')
			p.out.WriteString(lf)
			p.out.WriteByte(']')
			p.inbuf.SetPos(last)
			p.inbuf.Back(1)
		}

		p.state.Init(p.initial)
		lf = ""
		sf = nil
	}

	p.flushBlanks()
	return p.out.Flush()
}

// dropBlanksButLastTM discards queued blanks already folded into a
// passed-through token, keeping the trailing one when it is still pending.
func (p *Processor) dropBlanksButLastTM() {
	for len(p.blankqueue) > 0 {
		if len(p.blankqueue) == 1 && p.lastBlankTM {
			break
		}
		p.blankqueue = p.blankqueue[1:]
	}
}
