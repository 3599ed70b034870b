// Package agent runs AI reviews of backtest reports with Gemini.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent is the review session between the user and an analyst.
type Agent struct {
	w       io.Writer
	r       *bufio.Reader
	Analyst *Expert
	// Experts are the experts the analyst can consult.
	Experts []*Expert
	// Render formats the analyst answers before printing. Answers are
	// printed as is when nil.
	Render func(markdown string) string
}

// New creates a new Agent.
//
// w receives the analyst answers (e.g. os.Stdout) and r the user
// follow-up questions (e.g. os.Stdin).
func New(w io.Writer, r io.Reader, analyst *Expert, experts ...*Expert) *Agent {
	return &Agent{
		w:       w,
		r:       bufio.NewReader(r),
		Analyst: analyst,
		Experts: experts,
	}
}

// Start creates the chats of the analyst and of every expert.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range a.Experts {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return a.Analyst.Start(ctx, client)
}

const prompt = "review> "

// Review sends the prompts to the analyst and prints its answers.
//
// When interactive, the session then reads follow-up questions until EOF or
// "bye".
func (a *Agent) Review(ctx context.Context, client *genai.Client, interactive bool, prompts ...string) error {
	if a.Analyst.chat == nil {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}

	for _, p := range prompts {
		if err := a.ask(ctx, p); err != nil {
			return err
		}
	}
	if !interactive {
		return nil
	}

	fmt.Fprintln(a.w, "Ask anything about this backtest. Type 'bye' to exit.")
	for {
		fmt.Fprint(a.w, prompt)
		input, err := a.r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil // Clean exit on Ctrl+D
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "bye" {
			return nil
		}
		if input == "" {
			continue
		}
		if err := a.ask(ctx, input); err != nil {
			return err
		}
	}
}

func (a *Agent) ask(ctx context.Context, input string) error {
	content, err := a.Analyst.Ask(ctx, &genai.Part{Text: input})
	if err != nil {
		return err
	}
	answer := content.Parts[0].Text
	if a.Render != nil {
		answer = a.Render(answer)
	}
	fmt.Fprintln(a.w, answer)
	return nil
}
