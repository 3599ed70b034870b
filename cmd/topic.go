package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/docs"
	"github.com/google/subcommands"
)

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the bt documentation" }
func (*topicCmd) Usage() string {
	usage := `bt topic [<topic>...]

  Prints the documentation topics one after the other. Without a topic it
  prints the overview, '*' prints every topic.
`
	if topics, err := docs.GetAllTopics(); err == nil {
		usage += "\n  Topics: " + strings.Join(topics, ", ") + "\n"
	}
	return usage
}

func (*topicCmd) SetFlags(*flag.FlagSet) {}

func (*topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	names := f.Args()
	if len(names) == 0 {
		names = []string{"readme"}
	}
	doc, err := docs.GetTopics(names...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v, run 'bt help topic' for the list of topics\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
