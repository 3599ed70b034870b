package cmd

import (
	"flag"

	"github.com/etnz/backtest/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors completes flag values by flag name. Other flags accept anything.
var flagPredictors = map[string]complete.Predictor{
	"config":   predict.Files("*.yaml"),
	"signal":   predict.Files("*.jsonl"),
	"o":        predict.Files("*"),
	"currency": predict.Set{"USD", "EUR", "GBP", "CHF", "JPY"},
}

// argPredictors completes the positional arguments of commands.
var argPredictors = map[string]complete.Predictor{
	"batch": predict.Files("*.yaml"),
}

// Complete answers the shell completion request, if any, and exits.
// It returns when the program was not invoked for completion.
//
// Install the completion with: COMP_INSTALL=1 bt
func Complete(c *subcommands.Commander) {
	completion := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: predictFlags(flag.CommandLine),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		completion.Sub[cmd.Name()] = &complete.Command{
			Flags: predictFlags(fs),
			Args:  argPredictors[cmd.Name()],
		}
	})
	if topic, ok := completion.Sub["topic"]; ok {
		if topics, err := docs.GetAllTopics(); err == nil {
			topic.Args = predict.Set(topics)
		}
	}
	completion.Complete(c.Name())
}

func predictFlags(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}
