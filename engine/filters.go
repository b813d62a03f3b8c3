package engine

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
)

func formatWeight(w float64) string {
	return fmt.Sprintf("<W:%f>", w)
}

// FilterFinalsSAO is FilterFinals for the SAO annotation mode: tag symbols
// are emitted as SGML entities (&name;) instead of bracketed tags, and
// no weight ranking is applied.
func (s *State) FilterFinalsSAO(finals FinalSet, a *alphabet.Alphabet, escaped map[alphabet.Symbol]struct{}, uppercase, firstupper bool) string {
	var out strings.Builder
	for i := s.start; i < s.end; i++ {
		if _, ok := finals[s.steps[i].where]; !ok {
			continue
		}
		out.WriteByte('/')
		var symbols []alphabet.Symbol
		for index := i; index != 0; {
			st := &s.steps[index]
			if st.symbol != 0 {
				symbols = append(symbols, st.symbol)
			}
			index = int(st.prev)
		}
		var text strings.Builder
		for j := len(symbols) - 1; j >= 0; j-- {
			sym := symbols[j]
			if _, esc := escaped[sym]; esc {
				text.WriteByte('\\')
			}
			if sym.IsTag() {
				name := a.TagName(sym)
				text.WriteByte('&')
				text.WriteString(strings.Trim(name, "<>"))
				text.WriteByte(';')
			} else {
				a.GetSymbol(&text, sym, uppercase)
			}
		}
		emitted := text.String()
		if firstupper {
			emitted = upperAt(emitted, 0)
		}
		out.WriteString(emitted)
	}
	return out.String()
}

// FilterFinalsTM is FilterFinals for translation-memory lookup. The
// transducer output uses two in-band markers: "(#)" stands for a run of
// whitespace, replaced by the next queued blank (without its delimiters),
// and "\@(N)" stands for the N'th captured number literal, replaced from
// numbers. nextBlank pops the processor's blank queue; it returns ok=false
// when the queue is empty.
func (s *State) FilterFinalsTM(finals FinalSet, a *alphabet.Alphabet, escaped map[alphabet.Symbol]struct{}, nextBlank func() (string, bool), numbers []string) string {
	var raw strings.Builder
	for i := s.start; i < s.end; i++ {
		if _, ok := finals[s.steps[i].where]; !ok {
			continue
		}
		raw.WriteByte('/')
		var w float64
		s.extract(i, &raw, &w, a, escaped, false)
	}

	fragments := strings.Split(raw.String(), ")")
	var out strings.Builder
	for i, frag := range fragments {
		last := i == len(fragments)-1
		if last {
			out.WriteString(frag)
			break
		}
		if strings.HasSuffix(frag, "(#") {
			whitespace := " "
			if b, ok := nextBlank(); ok && len(b) >= 2 {
				whitespace = b[1 : len(b)-1]
			}
			out.WriteString(frag[:len(frag)-2])
			out.WriteString(whitespace)
			continue
		}
		if j := strings.LastIndex(frag, `\@(`); j >= 0 {
			num, valid := 0, j+3 < len(frag)
			for _, r := range frag[j+3:] {
				if !unicode.IsDigit(r) {
					valid = false
					break
				}
				num = num*10 + int(r-'0')
			}
			if valid && num >= 1 && num <= len(numbers) {
				out.WriteString(frag[:j])
				out.WriteString(numbers[num-1])
				continue
			}
		}
		out.WriteString(frag)
		out.WriteByte(')')
	}
	return out.String()
}
