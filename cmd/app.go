// Package cmd implements the bt command line application.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&rebalanceCmd{}, "simulations")
	c.Register(&ledgerCmd{}, "simulations")
	c.Register(&batchCmd{}, "simulations")
	c.Register(&reviewCmd{}, "simulations")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

// Verbose enables debug logs on stderr.
var Verbose = flag.Bool("v", envBool(EnvVerbose), "Verbose output: log the simulation steps on stderr.")
var defaultCurrency = flag.String("currency", envString(EnvDefaultCurrency, "USD"), "Currency of the ledger amounts.")

// stdout receives the command outputs.
var stdout io.Writer = os.Stdout

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// newLogger returns the console logger of the commands: warnings only, unless verbose.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if *Verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// printMarkdown prints md to stdout, styled when stdout is a terminal.
func printMarkdown(md string) {
	fmt.Fprintln(stdout, renderMarkdown(md))
}

func renderMarkdown(md string) string {
	f, ok := stdout.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// createOutput creates a file for writing, or returns stdout for "-".
func createOutput(filename string) (io.WriteCloser, error) {
	if filename == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot create %q: %w", filename, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
