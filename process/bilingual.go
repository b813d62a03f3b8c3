package process

import (
	"io"
	"strings"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/instream"
)

// readBilingual is readGeneration plus unknown-tag capture: a tag missing
// from the alphabet comes back as symbol text with code 0, so the caller
// can queue it instead of losing it.
func (p *Processor) readBilingual() (string, alphabet.Symbol, bool) {
	val := p.in.Get()
	if val == instream.RuneEOF {
		return "", 0, true
	}

	if p.outOfWord {
		switch val {
		case '^':
			val = p.in.Get()
			if val == instream.RuneEOF {
				return "", 0, true
			}
		case '\\':
			p.out.WriteByte('\\')
			next := p.in.Get()
			if next == instream.RuneEOF {
				return "", 0, true
			}
			p.out.WriteRune(next)
			p.skipUntil('^')
			val = p.in.Get()
			if val == instream.RuneEOF {
				return "", 0, true
			}
		default:
			p.out.WriteRune(val)
			if val == 0 && p.cfg.NullFlush {
				p.out.Flush()
			}
			p.skipUntil('^')
			val = p.in.Get()
			if val == instream.RuneEOF {
				return "", 0, true
			}
		}
		p.outOfWord = false
	}

	switch val {
	case '\\':
		c := p.in.Get()
		if c == instream.RuneEOF {
			return "", 0, true
		}
		return "", alphabet.Symbol(c), false
	case '$':
		p.outOfWord = true
		return "", '$', false
	case '<':
		cad := p.in.ReadBlock('<', '>')
		res := p.alpha.LookupOrZero(cad)
		if res == 0 {
			return cad, 0, false
		}
		return "", res, false
	case '[':
		c := p.in.Get()
		if c == '[' {
			p.out.WriteString(p.in.FinishWBlank())
		} else {
			if c != instream.RuneEOF {
				p.in.Unget(c)
			}
			p.out.WriteString(p.in.ReadBlock('[', ']'))
		}
		return p.readBilingual()
	default:
		return "", alphabet.Symbol(val), false
	}
}

// composeQueue splices the unconsumed tag queue into a translation: before
// every reading separator past the leading one and once at the end, so each
// reading carries the queued tags.
func composeQueue(lexforms, queue string) string {
	var out strings.Builder
	out.WriteByte('/')
	rs := []rune(lexforms)
	for i := 1; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			out.WriteRune('\\')
			i++
		case '/':
			out.WriteString(queue)
		}
		if i < len(rs) {
			out.WriteRune(rs[i])
		}
	}
	out.WriteString(queue)
	return out.String()
}

func (p *Processor) printWordBilingual(sf []rune, lf string) {
	p.out.WriteByte('^')
	p.out.WriteString(string(sf))
	p.out.WriteString(lf)
	p.out.WriteByte('$')
}

// Bilingual reads an analyzed stream of ^lexical-form$ units and writes
// ^lexical-form/translation$ units. Tags the bilingual dictionary does not
// consume after a successful partial match are queued and spliced back into
// every reading of the translation.
func (p *Processor) Bilingual(input io.Reader, output io.Writer, mode GenerationMode) error {
	p.begin(input, output)
	p.state.Init(p.initial)
	p.outOfWord = false
	p.skipUntil('^')

	var sf []rune      // source-language analysis
	var queue string   // unconsumed tags, appended to each target reading
	var result string  // bidix lookup result so far
	var surface []rune // the ^surface/ prefix under BiltransSurfaceForms
	seentags := false
	seensurface := false

	for {
		symbol, val, eof := p.readBilingual()

		if p.cfg.BiltransSurfaceForms && !seensurface && !p.outOfWord {
			for val != '/' && !eof {
				surface = append(surface, []rune(symbol)...)
				surface = p.getSymbol(surface, val)
				symbol, val, eof = p.readBilingual()
			}
			seensurface = true
			symbol, val, eof = p.readBilingual()
		}
		if eof {
			break
		}

		switch {
		case val == '$' && p.outOfWord:
			if !seentags {
				// No tags at all: only a complete match counts.
				firstupper, uppercase := false, false
				if len(sf) > 0 {
					firstupper = unicode.IsUpper(sf[0])
					uppercase = len(sf) > 1 && unicode.IsUpper(sf[1])
				}
				result = p.state.FilterFinals(p.allFinals, p.alpha, p.escapedSyms, p.filterCfg(uppercase, firstupper))
			}

			switch {
			case len(sf) > 0 && sf[0] == '*':
				if mode == GenClean {
					p.printWordBilingual(sf, "/"+string(sf[1:]))
				} else {
					p.printWordBilingual(sf, "/"+string(sf))
				}
			case result != "":
				p.printWordBilingual(sf, composeQueue(result, queue))
			default:
				prefix := "/@"
				if mode == GenAll {
					prefix = "/#"
				}
				if p.cfg.BiltransSurfaceForms {
					p.printWordBilingual(surface, prefix+string(surface))
				} else {
					p.printWordBilingual(sf, prefix+string(sf))
				}
			}

			seensurface = false
			surface = nil
			queue = ""
			result = ""
			p.state.Init(p.initial)
			sf = nil
			seentags = false

		case val > 0 && unicode.IsSpace(rune(val)) && len(sf) == 0:
			// Stray whitespace inside a unit: ignore.

		case len(sf) > 0 && sf[0] == '*':
			if val > 0 && p.isEscaped(rune(val)) {
				sf = append(sf, '\\')
			}
			sf = p.getSymbol(sf, val)
			if val == 0 {
				sf = append(sf, []rune(symbol)...)
			}

		default:
			if val > 0 && p.isEscaped(rune(val)) {
				sf = append(sf, '\\')
			}
			sf = p.getSymbol(sf, val)
			if val == 0 {
				sf = append(sf, []rune(symbol)...)
			}
			if val.IsTag() || val == 0 {
				seentags = true
			}
			if p.state.Size() != 0 {
				p.state.StepCase(val, p.cfg.CaseSensitive)
			}
			if p.state.IsFinal(p.allFinals) {
				firstupper := len(sf) > 0 && unicode.IsUpper(sf[0])
				uppercase := len(sf) > 1 && unicode.IsUpper(sf[1])
				queue = "" // the intervening tags were consumed after all
				result = p.state.FilterFinals(p.allFinals, p.alpha, p.escapedSyms, p.filterCfg(uppercase, firstupper))
			} else if result != "" {
				// A result exists but the analysis continues: queue known
				// and unknown tags for splicing; any other symbol after the
				// state has died makes the whole unit unknown.
				switch {
				case val.IsTag():
					queue += p.alpha.TagName(val)
				case val == 0:
					queue += symbol
				case p.state.Size() == 0:
					result = ""
				}
			}
		}
	}
	return p.out.Flush()
}
