package symtab

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrainDeterministic(t *testing.T) {
	bodies := [][]byte{tagBody(), deltaBody()}
	a, err := Train(bodies).MarshalBinary()
	require.NoError(t, err)
	b, err := Train(bodies).MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestTrainGrowsSymbolsAcrossRounds(t *testing.T) {
	// A strongly periodic body should end up with symbols longer than the
	// pairs a single round can learn.
	body := bytes.Repeat([]byte("<vblex>"), 80)
	tbl := Train([][]byte{body})
	longest := 0
	for _, s := range tbl.syms {
		if len(s) > longest {
			longest = len(s)
		}
	}
	require.Greater(t, longest, 2)
}

func TestTrainMultipleBodies(t *testing.T) {
	// One table serves both body shapes at once, as the container uses it.
	bodies := [][]byte{tagBody(), deltaBody()}
	tbl := Train(bodies)
	for _, body := range bodies {
		require.Equal(t, body, tbl.DecodeAll(tbl.EncodeAll(body)))
	}
}

func TestTrainEmptyAndNilInputs(t *testing.T) {
	tbl := Train([][]byte{nil, {}, []byte("abab")})
	require.Equal(t, []byte("abab"), tbl.DecodeAll(tbl.EncodeAll([]byte("abab"))))
}

func TestTrainSamplingCapsLargeBodies(t *testing.T) {
	// A body far beyond the sample budget still trains (on its prefix) and
	// the whole body still round-trips.
	big := bytes.Repeat([]byte("<n><det><adj>"), 20000)
	tbl := Train([][]byte{big})
	require.Equal(t, big, tbl.DecodeAll(tbl.EncodeAll(big)))
}

func TestGatherSampleBudget(t *testing.T) {
	huge := make([]byte, 4*samplePerInput)
	sample := gatherSample([][]byte{huge, huge, huge, huge, huge, huge, huge, huge, huge, huge})
	total := 0
	for _, s := range sample {
		require.LessOrEqual(t, len(s), samplePerInput)
		total += len(s)
	}
	require.LessOrEqual(t, total, sampleBudget)
}
