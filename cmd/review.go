package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/agent"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// EnvGeminiAPIKey holds the Gemini API key used by the review.
const EnvGeminiAPIKey = "GEMINI_API_KEY"

type reviewCmd struct {
	config      string
	interactive bool
}

func (*reviewCmd) Name() string     { return "review" }
func (*reviewCmd) Synopsis() string { return "ask Gemini to review a rebalancing backtest" }
func (*reviewCmd) Usage() string {
	return `bt review -config <run.yaml> [-i] [<question>...]

  Runs the backtest and sends its report to Gemini for commentary. Extra
  arguments are asked as a question after the review. With -i, the session
  goes on with follow-up questions read from stdin.

  Needs the ` + EnvGeminiAPIKey + ` environment variable.
`
}

func (c *reviewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Run file (YAML) describing the backtest.")
	f.BoolVar(&c.interactive, "i", false, "Ask follow-up questions interactively.")
}

func (c *reviewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.config == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		return subcommands.ExitUsageError
	}
	key := os.Getenv(EnvGeminiAPIKey)
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: %s is not set\n", EnvGeminiAPIKey)
		return subcommands.ExitUsageError
	}

	run, res, err := runConfig(c.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report := renderer.RenderRebalance(rebalanceReport(run, res))

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	log := newLogger()
	researcher := agent.NewResearcher()
	researcher.Logger = log
	analyst := agent.NewAnalyst(researcher)
	analyst.Logger = log
	a := agent.New(stdout, os.Stdin, analyst, researcher)
	a.Render = renderMarkdown

	prompts := []string{"Review this backtest report:\n\n" + report}
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	if err := a.Review(ctx, client, c.interactive, prompts...); err != nil {
		fmt.Fprintln(os.Stderr, "Review failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
