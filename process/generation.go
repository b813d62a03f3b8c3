package process

import (
	"io"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
	"github.com/apertium/lttoolbox-go/instream"
)

// readGeneration returns the next symbol inside a lexical unit, writing
// everything between units (blanks, wblanks, escapes, NUL flushes) straight
// to the output. The second result is true at end of stream.
func (p *Processor) readGeneration() (alphabet.Symbol, bool) {
	val := p.in.Get()
	if val == instream.RuneEOF {
		return 0, true
	}

	if p.outOfWord {
		switch val {
		case '^':
			val = p.in.Get()
			if val == instream.RuneEOF {
				return 0, true
			}
		case '\\':
			p.out.WriteByte('\\')
			next := p.in.Get()
			if next == instream.RuneEOF {
				return 0, true
			}
			p.out.WriteRune(next)
			p.skipUntil('^')
			val = p.in.Get()
			if val == instream.RuneEOF {
				return 0, true
			}
		default:
			p.out.WriteRune(val)
			if val == 0 && p.cfg.NullFlush {
				p.out.Flush()
			}
			p.skipUntil('^')
			val = p.in.Get()
			if val == instream.RuneEOF {
				return 0, true
			}
		}
		p.outOfWord = false
	}

	switch val {
	case '\\':
		c := p.in.Get()
		if c == instream.RuneEOF {
			return 0, true
		}
		return alphabet.Symbol(c), false
	case '$':
		p.outOfWord = true
		return '$', false
	case '<':
		return p.alpha.LookupOrZero(p.in.ReadBlock('<', '>')), false
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
		return p.readGeneration()
	default:
		return alphabet.Symbol(val), false
	}
}

// removeTags truncates s at its first unescaped '<'.
func removeTags(s []rune) []rune {
	for i, r := range s {
		if r == '<' && i >= 1 && s[i-1] != '\\' {
			return s[:i]
		}
	}
	return s
}

// Generation reads ^lexical-form$ units from input and writes the surface
// forms to output. mode controls the treatment of forms marked unknown
// ('*', '%', '@') and of forms the transducer cannot generate.
func (p *Processor) Generation(input io.Reader, output io.Writer, mode GenerationMode) error {
	p.begin(input, output)
	p.state.Init(p.initial)
	p.outOfWord = false
	p.skipUntil('^')

	var sf []rune
	for {
		val, eof := p.readGeneration()
		if eof {
			break
		}

		if len(sf) == 0 && val == '=' {
			p.out.WriteByte('=')
			val, eof = p.readGeneration()
			if eof {
				break
			}
		}

		if val == '$' && p.outOfWord {
			p.generateWord(sf, mode)
			p.state.Init(p.initial)
			sf = nil
			continue
		}

		switch {
		case val > 0 && unicode.IsSpace(rune(val)) && len(sf) == 0:
			// Stray whitespace inside a unit: ignore.
		case len(sf) > 0 && (sf[0] == '*' || sf[0] == '%'):
			sf = p.getSymbol(sf, val)
		default:
			sf = p.getSymbol(sf, val)
			if p.state.Size() > 0 {
				if !val.IsTag() && val > 0 && unicode.IsUpper(rune(val)) && !p.cfg.CaseSensitive {
					lower := alphabet.Symbol(unicode.ToLower(rune(val)))
					if mode == GenCarefulCase {
						p.state.StepCareful(val, lower)
					} else {
						p.state.Step(val, lower)
					}
				} else {
					p.state.Step(val)
				}
			}
		}
	}
	return p.out.Flush()
}

// generateWord emits one unit's output at its closing '$'.
func (p *Processor) generateWord(sf []rune, mode GenerationMode) {
	switch {
	case len(sf) > 0 && (sf[0] == '*' || sf[0] == '%'):
		switch mode {
		case GenClean:
			p.writeEscapedWithTags(sf[1:])
		case GenTaggedNM:
			p.out.WriteByte('^')
			p.writeEscaped(removeTags(sf[1:]))
			p.out.WriteByte('/')
			p.writeEscapedWithTags(sf)
			p.out.WriteByte('$')
		default:
			p.writeEscapedWithTags(sf)
		}
	case len(sf) > 0 && sf[0] == '@':
		switch mode {
		case GenAll:
			p.writeEscapedWithTags(sf)
		case GenClean:
			p.writeEscaped(removeTags(sf[1:]))
		case GenUnknown, GenTagged, GenCarefulCase:
			p.writeEscaped(removeTags(sf))
		case GenTaggedNM:
			p.out.WriteByte('^')
			p.writeEscaped(removeTags(sf[1:]))
			p.out.WriteByte('/')
			p.writeEscapedWithTags(sf)
			p.out.WriteByte('$')
		}
	case p.state.IsFinal(p.allFinals):
		firstupper, uppercase := false, false
		if !p.cfg.DictionaryCase && len(sf) > 0 {
			firstupper = unicode.IsUpper(sf[0])
			uppercase = len(sf) > 1 && unicode.IsUpper(sf[1])
		}
		if mode == GenTagged || mode == GenTaggedNM {
			p.out.WriteByte('^')
		}
		lf := p.state.FilterFinals(p.allFinals, p.alpha, p.escapedSyms, p.filterCfg(uppercase, firstupper))
		if len(lf) > 0 {
			p.out.WriteString(lf[1:])
		}
		if mode == GenTagged || mode == GenTaggedNM {
			p.out.WriteByte('/')
			p.writeEscapedWithTags(sf)
			p.out.WriteByte('$')
		}
	default:
		switch mode {
		case GenAll:
			p.out.WriteByte('#')
			p.writeEscapedWithTags(sf)
		case GenClean:
			p.writeEscaped(removeTags(sf))
		case GenUnknown, GenTagged, GenCarefulCase:
			if len(sf) > 0 {
				p.out.WriteByte('#')
				p.writeEscaped(removeTags(sf))
			}
		case GenTaggedNM:
			p.out.WriteByte('^')
			p.writeEscaped(removeTags(sf))
			p.out.WriteString("/#")
			p.writeEscapedWithTags(sf)
			p.out.WriteByte('$')
		}
	}
}
