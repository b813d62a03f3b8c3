// Package alphabet encodes the symbols and symbol pairs that label every
// transducer edge: single Unicode code points and bracketed multi-character
// tags such as <n> or <vblex>, folded into a dense, bijective integer space.
package alphabet

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Symbol is a signed symbol code. Zero is epsilon, positive values are
// Unicode scalar values, negative values index a tag name.
type Symbol int32

// Epsilon is the empty-string symbol; it never appears in the tag table.
const Epsilon Symbol = 0

// Pair is a dense, non-negative code naming an ordered (input, output)
// symbol pair. Pair(0) is always the epsilon pair (0, 0).
type Pair int32

// IsTag reports whether code names a multi-character tag rather than a
// single Unicode code point.
func (s Symbol) IsTag() bool { return s < 0 }

// pairKey is the lookup key for the pair table.
type pairKey struct {
	in, out Symbol
}

// Alphabet is a bijective encoder from tag names and symbol-pairs to dense
// integer codes. The zero value is not ready to use; construct one with New.
type Alphabet struct {
	tagCode map[string]Symbol // "<n>" -> -1, "<vblex>" -> -2, ...
	tagName []string          // index i holds the name for code -(i+1)

	pairCode map[pairKey]Pair
	pairName []pairKey // index i holds the pair for code i; index 0 is (0,0)

	caser cases.Caser
}

// New returns an empty Alphabet with pair-code 0 reserved for (Epsilon, Epsilon).
func New() *Alphabet {
	a := &Alphabet{
		tagCode:  make(map[string]Symbol),
		pairCode: make(map[pairKey]Pair),
		caser:    cases.Upper(language.Und),
	}
	a.pairName = append(a.pairName, pairKey{Epsilon, Epsilon})
	a.pairCode[pairKey{Epsilon, Epsilon}] = 0
	return a
}

// IncludeSymbol registers name (including its angle brackets) if unseen.
// Idempotent: calling it twice with the same name is a no-op the second
// time.
func (a *Alphabet) IncludeSymbol(name string) {
	if _, ok := a.tagCode[name]; ok {
		return
	}
	code := Symbol(-(len(a.tagName) + 1))
	a.tagName = append(a.tagName, name)
	a.tagCode[name] = code
}

// LookupOrZero returns the code assigned to name, or Epsilon if name has
// never been registered. It never inserts. Kept as a distinct method from
// LookupConst for callers that want to treat an unregistered name the same
// as Epsilon rather than branch on a found/not-found result.
func (a *Alphabet) LookupOrZero(name string) Symbol {
	if c, ok := a.tagCode[name]; ok {
		return c
	}
	return Epsilon
}

// LookupConst returns the code assigned to name and true, or false if name
// has never been registered. It never inserts.
func (a *Alphabet) LookupConst(name string) (Symbol, bool) {
	c, ok := a.tagCode[name]
	return c, ok
}

// TagName returns the bracketed name for a tag code. Panics if code is not
// a tag code registered with this Alphabet.
func (a *Alphabet) TagName(code Symbol) string {
	return a.tagName[-code-1]
}

// Pair returns the existing pair-code for (in, out), allocating a fresh one
// if this is the first time the pair has been seen.
func (a *Alphabet) Pair(in, out Symbol) Pair {
	key := pairKey{in, out}
	if p, ok := a.pairCode[key]; ok {
		return p
	}
	p := Pair(len(a.pairName))
	a.pairName = append(a.pairName, key)
	a.pairCode[key] = p
	return p
}

// Decode returns the (input, output) symbols named by pair-code p.
func (a *Alphabet) Decode(p Pair) (in, out Symbol) {
	k := a.pairName[p]
	return k.in, k.out
}

// PairCount returns the number of distinct pairs registered so far,
// including the reserved epsilon pair.
func (a *Alphabet) PairCount() int { return len(a.pairName) }

// TagCount returns the number of distinct tag names registered so far.
func (a *Alphabet) TagCount() int { return len(a.tagName) }

// GetSymbol appends the textual form of code to buf: the code point itself
// (optionally upper-cased) for code > 0, the bracketed tag name for code <
// 0, nothing for Epsilon.
func (a *Alphabet) GetSymbol(buf *strings.Builder, code Symbol, uppercase bool) {
	switch {
	case code > 0:
		r := rune(code)
		if uppercase {
			buf.WriteString(a.caser.String(string(r)))
		} else {
			buf.WriteRune(r)
		}
	case code < 0:
		buf.WriteString(a.TagName(code))
	}
}

// WriteSymbol is the io.Writer-backed counterpart of GetSymbol.
func (a *Alphabet) WriteSymbol(w stringWriter, code Symbol, uppercase bool) error {
	var b strings.Builder
	a.GetSymbol(&b, code, uppercase)
	_, err := w.WriteString(b.String())
	return err
}

type stringWriter interface {
	WriteString(s string) (int, error)
}

// IsTag reports whether code is a tag code.
func (a *Alphabet) IsTag(code Symbol) bool { return code.IsTag() }

// Tokenize splits text into a sequence of symbol codes. A `<...>` span
// (respecting `\<` escapes, which pass the `<` through as data instead of
// opening a tag) becomes one tag code, allocated on demand; every other
// rune becomes its own code point symbol.
func (a *Alphabet) Tokenize(text string) []Symbol {
	var out []Symbol
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			out = append(out, Symbol(runes[i+1]))
			i++
		case r == '<':
			j := i + 1
			for j < len(runes) && runes[j] != '>' {
				if runes[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(runes) {
				// Unterminated tag: treat '<' as a literal character.
				out = append(out, Symbol(r))
				continue
			}
			name := string(runes[i : j+1])
			a.IncludeSymbol(name)
			out = append(out, a.tagCode[name])
			i = j
		default:
			out = append(out, Symbol(r))
		}
	}
	return out
}

// Any-pseudo-tag names used by SameSymbol when allowAnys is set.
const (
	AnyChar = "<ANY_CHAR>"
	AnyTag  = "<ANY_TAG>"
)

// SameSymbol compares code in this alphabet to other in a different
// alphabet. Single-character codes compare directly; tag codes compare by
// name. If allowAnys, the pseudo-tags <ANY_CHAR>/<ANY_TAG> match any
// positive/negative code respectively.
func (a *Alphabet) SameSymbol(code Symbol, other *Alphabet, otherCode Symbol, allowAnys bool) bool {
	if allowAnys {
		if code < 0 && a.TagName(code) == AnyChar && otherCode > 0 {
			return true
		}
		if code < 0 && a.TagName(code) == AnyTag && otherCode < 0 {
			return true
		}
		if otherCode < 0 && other.TagName(otherCode) == AnyChar && code > 0 {
			return true
		}
		if otherCode < 0 && other.TagName(otherCode) == AnyTag && code < 0 {
			return true
		}
	}
	if code > 0 || otherCode > 0 {
		return code == otherCode
	}
	if code == Epsilon || otherCode == Epsilon {
		return code == otherCode
	}
	return a.TagName(code) == other.TagName(otherCode)
}

// SymbolsWhereLeftIs returns every pair-code whose input half equals sym.
func (a *Alphabet) SymbolsWhereLeftIs(sym Symbol) map[Pair]struct{} {
	out := make(map[Pair]struct{})
	for p, k := range a.pairName {
		if k.in == sym {
			out[Pair(p)] = struct{}{}
		}
	}
	return out
}

// Side selects which half of a pair CreateLoopbackSymbols projects.
type Side int

const (
	Left Side = iota
	Right
)

// CreateLoopbackSymbols builds, in dest, an identity pair (x, x) for every
// distinct symbol x that appears on side of one of this Alphabet's pairs.
// Tags are first registered in dest via IncludeSymbol so that tag names
// (not codes) are shared across the two alphabets. Used to build the
// "anything goes on one side" closure consumed by Trim.
func (a *Alphabet) CreateLoopbackSymbols(dest *Alphabet, side Side, includeNonTags bool) map[Pair]struct{} {
	out := make(map[Pair]struct{})
	seen := make(map[Symbol]struct{})
	for _, k := range a.pairName {
		sym := k.in
		if side == Right {
			sym = k.out
		}
		if sym == Epsilon {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		var destSym Symbol
		if sym < 0 {
			name := a.TagName(sym)
			dest.IncludeSymbol(name)
			destSym = dest.tagCode[name]
		} else {
			if !includeNonTags {
				continue
			}
			destSym = sym
		}
		out[dest.Pair(destSym, destSym)] = struct{}{}
	}
	return out
}

// AllTagNames returns a copy of the registered tag names in code order
// (index i is the name for code -(i+1)).
func (a *Alphabet) AllTagNames() []string {
	out := make([]string, len(a.tagName))
	copy(out, a.tagName)
	return out
}

// AllPairs returns a copy of the registered pairs in code order (index i is
// the pair for code i).
func (a *Alphabet) AllPairs() []struct{ In, Out Symbol } {
	out := make([]struct{ In, Out Symbol }, len(a.pairName))
	for i, k := range a.pairName {
		out[i] = struct{ In, Out Symbol }{k.in, k.out}
	}
	return out
}

// IsAlphabetic reports whether r is a letter, per unicode.IsLetter — used
// by the stream processor to decide where a lexical unit ends.
func IsAlphabetic(r rune) bool { return unicode.IsLetter(r) }
