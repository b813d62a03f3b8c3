package process

import (
	"io"
	"strings"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/instream"
	"github.com/projectdiscovery/gologger"
)

// saoEscaped is the reduced escape set of the SAO annotation stream, where
// markup travels as CDATA blocks rather than the usual bracket syntax.
var saoEscaped = map[rune]struct{}{'\\': {}, '<': {}, '>': {}}

// readSAO returns the next symbol of an SAO input stream: CDATA blocks are
// queued as blanks, other <...> markup is dropped and read as a space,
// backslash escapes pass one rune through, everything else is data.
func (p *Processor) readSAO() alphabet.Symbol {
	if !p.inbuf.IsEmpty() {
		return p.inbuf.Next()
	}

	val := p.in.Get()
	if val == instream.RuneEOF {
		return p.inbuf.Add(0)
	}

	if _, esc := saoEscaped[val]; esc {
		switch val {
		case '<':
			str := p.in.ReadBlock('<', '>')
			if strings.HasPrefix(str, "<![CDATA[") {
				for !strings.HasSuffix(str, "]]>") && !p.in.EOF() {
					more := p.in.ReadBlock('<', '>')
					if len(more) > 1 {
						str += more[1:]
					} else {
						break
					}
				}
				p.blankqueue = append(p.blankqueue, str)
				return p.inbuf.Add(' ')
			}
			gologger.Debug().Msgf("process: non-CDATA markup %q in SAO input", str)
			return p.inbuf.Add(' ')
		case '\\':
			c := p.in.Get()
			if c == instream.RuneEOF {
				return p.inbuf.Add(0)
			}
			return p.inbuf.Add(alphabet.Symbol(c))
		}
	}
	return p.inbuf.Add(alphabet.Symbol(val))
}

// printSAOWord emits the first reading of lf, up to its '/' separator.
func (p *Processor) printSAOWord(lf string) {
	for _, r := range lf {
		if r == '/' {
			break
		}
		p.out.WriteRune(r)
	}
}

// saoSyms is saoEscaped keyed by symbol code, for the extract escaping.
func saoSyms() map[alphabet.Symbol]struct{} {
	out := make(map[alphabet.Symbol]struct{}, len(saoEscaped))
	for r := range saoEscaped {
		out[alphabet.Symbol(r)] = struct{}{}
	}
	return out
}

// SAO analyzes the stream for the SAO annotation format: known words are
// emitted with their tags as SGML entities, unknown words wrapped in
// <d>...</d>.
func (p *Processor) SAO(input io.Reader, output io.Writer) error {
	p.begin(input, output)
	escaped := saoSyms()

	lastIncond := false
	lastPostblank := false
	var lf string
	var sf []rune
	last := 0

	for {
		val := p.readSAO()
		if val == 0 {
			break
		}

		if p.state.IsFinal(p.allFinals) {
			firstupper := len(sf) > 0 && unicode.IsUpper(sf[0])
			uppercase := firstupper && len(sf) > 1 && unicode.IsUpper(sf[len(sf)-1])
			switch {
			case p.state.IsFinal(p.inconditional):
				lf = p.state.FilterFinalsSAO(p.allFinals, p.alpha, escaped, uppercase, firstupper)
				lastIncond = true
				last = p.inbuf.Pos()
			case p.state.IsFinal(p.postblank):
				lf = p.state.FilterFinalsSAO(p.allFinals, p.alpha, escaped, uppercase, firstupper)
				lastPostblank = true
				last = p.inbuf.Pos()
			case !p.isAlphabetic(val):
				lf = p.state.FilterFinalsSAO(p.allFinals, p.alpha, escaped, uppercase, firstupper)
				lastIncond = false
				lastPostblank = false
				last = p.inbuf.Pos()
			}
		} else if len(sf) == 0 && val > 0 && unicode.IsSpace(rune(val)) {
			lf = "/*"
			lastIncond = false
			lastPostblank = false
			last = p.inbuf.Pos()
		}

		p.state.StepCase(val, p.cfg.CaseSensitive)

		if p.state.Size() != 0 {
			sf = p.getSymbol(sf, val)
			continue
		}

		switch {
		case !p.isAlphabetic(val) && len(sf) == 0:
			if val > 0 {
				p.printChar(rune(val))
			}
		case lastIncond:
			p.printSAOWord(lf[1:])
			p.inbuf.SetPos(last)
			p.inbuf.Back(1)
		case lastPostblank:
			p.printSAOWord(lf[1:])
			p.out.WriteByte(' ')
			p.inbuf.SetPos(last)
			p.inbuf.Back(1)
		case p.isAlphabetic(val) &&
			((len(sf)-p.inbuf.DiffPrevPos(last)) > p.lastBlank(sf) || lf == ""):
			sf, val = p.consumeRunSAO(sf, val)
			p.printSAOUnknown(sf)
		case lf == "":
			p.printSAOUnknown(sf)
		default:
			p.printSAOWord(lf[1:])
			p.inbuf.SetPos(last)
			p.inbuf.Back(1)
		}

		p.state.Init(p.initial)
		lf = ""
		sf = nil
		lastIncond = false
		lastPostblank = false
	}

	p.flushBlanks()
	return p.out.Flush()
}

func (p *Processor) consumeRunSAO(sf []rune, val alphabet.Symbol) ([]rune, alphabet.Symbol) {
	for {
		sf = p.getSymbol(sf, val)
		val = p.readSAO()
		if val == 0 || !p.isAlphabetic(val) {
			break
		}
	}
	return sf, val
}

// printSAOUnknown wraps sf's maximal alphabetic prefix in <d>...</d> and
// rewinds past what it leaves behind.
func (p *Processor) printSAOUnknown(sf []rune) {
	limit := p.firstNotAlpha(sf)
	size := len(sf)
	if limit == -1 {
		limit = size
	}
	p.inbuf.Back(1 + (size - limit))
	p.out.WriteString("<d>")
	p.out.WriteString(string(sf[:limit]))
	p.out.WriteString("</d>")
}
