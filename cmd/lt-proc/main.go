// Command lt-proc runs a compiled dictionary over a text stream in one of
// the six processing modes.
package main

import (
	"io"
	"os"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"

	"github.com/apertium/lttoolbox-go/container"
	"github.com/apertium/lttoolbox-go/process"
)

type options struct {
	Mode       string
	GenMode    string
	Dictionary string
	Input      string
	Output     string

	CaseSensitive  bool
	DictionaryCase bool
	NullFlush      bool
	Weights        bool
	Decomposition  bool
	MaxAnalyses    int
	MaxWeights     int
	Verbose        bool
}

func parseFlags() *options {
	opts := &options{}
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`Finite-state morphological processor: analysis, generation, post-generation, bilingual transfer, translation-memory lookup, and SAO annotation over a compiled dictionary.`)

	flagSet.CreateGroup("mode", "Mode",
		flagSet.StringVarP(&opts.Mode, "mode", "m", "analysis", "processing mode (analysis, generation, postgeneration, bilingual, tm, sao)"),
		flagSet.StringVarP(&opts.GenMode, "gen-mode", "gm", "unknown", "generation submode (clean, unknown, all, tagged, tagged-nm, carefulcase)"),
	)

	flagSet.CreateGroup("input", "Input",
		flagSet.StringVarP(&opts.Dictionary, "dictionary", "d", "", "compiled dictionary file (required)"),
		flagSet.StringVarP(&opts.Input, "input", "i", "", "input file (default stdin)"),
		flagSet.StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.BoolVarP(&opts.CaseSensitive, "case-sensitive", "c", false, "match case exactly instead of trying the lower-case fold"),
		flagSet.BoolVarP(&opts.DictionaryCase, "dictionary-case", "dc", false, "output the dictionary's case instead of the surface case"),
		flagSet.BoolVarP(&opts.NullFlush, "null-flush", "z", false, "flush output on each NUL in the input"),
		flagSet.BoolVarP(&opts.Weights, "show-weights", "W", false, "print analysis weights"),
		flagSet.BoolVarP(&opts.Decomposition, "decompose", "e", false, "enable compound decomposition"),
		flagSet.IntVarP(&opts.MaxAnalyses, "max-analyses", "N", 0, "maximum analyses per word (0 = unlimited)"),
		flagSet.IntVarP(&opts.MaxWeights, "max-weight-classes", "L", 0, "maximum distinct weight classes per word (0 = unlimited)"),
		flagSet.BoolVarP(&opts.Verbose, "verbose", "v", false, "display verbose output"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("could not parse flags: %s", err)
	}
	return opts
}

var genModes = map[string]process.GenerationMode{
	"clean":       process.GenClean,
	"unknown":     process.GenUnknown,
	"all":         process.GenAll,
	"tagged":      process.GenTagged,
	"tagged-nm":   process.GenTaggedNM,
	"carefulcase": process.GenCarefulCase,
}

func main() {
	opts := parseFlags()
	if opts.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	}
	if opts.Dictionary == "" {
		gologger.Fatal().Msg("a compiled dictionary is required (-d)")
	}

	df, err := os.Open(opts.Dictionary)
	if err != nil {
		gologger.Fatal().Msgf("could not open dictionary: %s", err)
	}
	c, err := container.Load(df)
	df.Close()
	if err != nil {
		gologger.Fatal().Msgf("could not load %s: %s", opts.Dictionary, err)
	}
	gologger.Debug().Msgf("loaded %d transducer(s), %d letters", len(c.Transducers), len(c.Letters))

	proc, err := process.New(c, process.Config{
		CaseSensitive:    opts.CaseSensitive,
		DictionaryCase:   opts.DictionaryCase,
		NullFlush:        opts.NullFlush,
		DisplayWeights:   opts.Weights,
		MaxAnalyses:      opts.MaxAnalyses,
		MaxWeightClasses: opts.MaxWeights,
		Decomposition:    opts.Decomposition,
	})
	if err != nil {
		gologger.Fatal().Msgf("could not build processor: %s", err)
	}

	input := io.Reader(os.Stdin)
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			gologger.Fatal().Msgf("could not open input: %s", err)
		}
		defer f.Close()
		input = f
	}
	output := io.Writer(os.Stdout)
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			gologger.Fatal().Msgf("could not create output: %s", err)
		}
		defer f.Close()
		output = f
	}

	gm, ok := genModes[opts.GenMode]
	if !ok {
		gologger.Fatal().Msgf("invalid generation submode: %s", opts.GenMode)
	}

	switch opts.Mode {
	case "analysis":
		err = proc.Analysis(input, output)
	case "generation":
		err = proc.Generation(input, output, gm)
	case "postgeneration":
		err = proc.PostGeneration(input, output)
	case "bilingual":
		err = proc.Bilingual(input, output, gm)
	case "tm":
		err = proc.TMAnalysis(input, output)
	case "sao":
		err = proc.SAO(input, output)
	default:
		gologger.Fatal().Msgf("invalid mode: %s (must be analysis, generation, postgeneration, bilingual, tm, or sao)", opts.Mode)
	}
	if err != nil {
		gologger.Fatal().Msgf("processing failed: %s", err)
	}
}
