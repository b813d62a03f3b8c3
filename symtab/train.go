package symtab

import "sort"

const (
	// trainRounds bounds the merge iterations. Each round can double the
	// longest useful symbol, so three rounds reach the 8-byte cap from
	// single bytes and five leave two to spare.
	trainRounds = 5

	// sampleBudget caps the total bytes examined per training run, and
	// samplePerInput caps any one body's contribution so a huge transducer
	// section cannot crowd out the alphabet body.
	sampleBudget   = 64 << 10
	samplePerInput = 8 << 10
)

// Train learns a Table from representative bodies. Each round parses the
// sample with the symbols learned so far, credits every emitted token and
// every in-limit join of adjacent tokens with the bytes it would cover,
// and keeps the highest-scoring candidates. Single bytes compete for
// codes like any other symbol; a byte that loses falls back to the escape
// pair at encode time.
func Train(inputs [][]byte) *Table {
	sample := gatherSample(inputs)
	t := &Table{}
	for round := 0; round < trainRounds; round++ {
		t.syms = selectSymbols(countGains(t, sample))
		t.indexed = false
	}
	t.buildIndex()
	return t
}

func gatherSample(inputs [][]byte) [][]byte {
	var sample [][]byte
	total := 0
	for _, in := range inputs {
		if len(in) == 0 {
			continue
		}
		take := in
		if len(take) > samplePerInput {
			take = take[:samplePerInput]
		}
		sample = append(sample, take)
		total += len(take)
		if total >= sampleBudget {
			break
		}
	}
	return sample
}

// countGains greedily tokenizes the sample with the current table (single
// literal bytes where nothing matches) and scores each token and each
// adjacent-token join by the input bytes it covers.
func countGains(t *Table, sample [][]byte) map[string]int {
	t.buildIndex()
	gains := make(map[string]int)
	for _, chunk := range sample {
		var prev []byte
		for pos := 0; pos < len(chunk); {
			tok := chunk[pos : pos+1]
			if _, n := t.match(chunk[pos:]); n > 0 {
				tok = chunk[pos : pos+n]
			}
			gains[string(tok)] += len(tok)
			if prev != nil && len(prev)+len(tok) <= maxSymbolLen {
				joined := string(prev) + string(tok)
				gains[joined] += len(joined)
			}
			prev = tok
			pos += len(tok)
		}
	}
	return gains
}

// selectSymbols keeps the top-gain candidates, ties broken by byte value
// so training is deterministic for a given sample.
func selectSymbols(gains map[string]int) [][]byte {
	type candidate struct {
		sym  string
		gain int
	}
	ranked := make([]candidate, 0, len(gains))
	for s, g := range gains {
		ranked = append(ranked, candidate{s, g})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].gain != ranked[j].gain {
			return ranked[i].gain > ranked[j].gain
		}
		return ranked[i].sym < ranked[j].sym
	})
	if len(ranked) > maxSymbols {
		ranked = ranked[:maxSymbols]
	}
	syms := make([][]byte, len(ranked))
	for i, c := range ranked {
		syms[i] = []byte(c.sym)
	}
	return syms
}
