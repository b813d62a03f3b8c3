package process

import (
	"unicode"

	"github.com/apertium/lttoolbox-go/alphabet"
)

// stepAnalysis steps the state on val with the configured case policy and
// character-equivalence alternatives: when the ACX/RCX table lists
// equivalents for the surface rune, each one is tried alongside it (plus
// the lower-case side of both under case-insensitive matching), marking the
// path dirty as any folded step does.
func (p *Processor) stepAnalysis(val alphabet.Symbol) {
	if val > 0 && len(p.cfg.CharEquiv) > 0 {
		r := rune(val)
		if equiv, ok := p.cfg.CharEquiv[r]; ok {
			alts := make(map[alphabet.Symbol]struct{}, len(equiv)+1)
			for _, e := range equiv {
				alts[alphabet.Symbol(e)] = struct{}{}
			}
			if unicode.IsUpper(r) && !p.cfg.CaseSensitive {
				lower := unicode.ToLower(r)
				alts[alphabet.Symbol(lower)] = struct{}{}
				for _, e := range p.cfg.CharEquiv[lower] {
					alts[alphabet.Symbol(e)] = struct{}{}
				}
			}
			p.state.StepSet(val, alts)
			return
		}
	}
	p.state.StepCase(val, p.cfg.CaseSensitive)
}

// MergeEquiv folds the entries of extra into table, deduplicating
// alternatives, so several ACX/RCX side-files can stack onto one Config.
func MergeEquiv(table map[rune][]rune, extra map[rune][]rune) map[rune][]rune {
	if table == nil {
		table = make(map[rune][]rune, len(extra))
	}
	for r, alts := range extra {
		seen := make(map[rune]struct{}, len(table[r])+len(alts))
		for _, a := range table[r] {
			seen[a] = struct{}{}
		}
		for _, a := range alts {
			if _, dup := seen[a]; !dup && a != r {
				seen[a] = struct{}{}
				table[r] = append(table[r], a)
			}
		}
	}
	return table
}
