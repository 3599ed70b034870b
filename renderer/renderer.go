package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"text/template"

	"github.com/etnz/backtest"
)

//go:embed *.md
var templates embed.FS

// funcs are the helpers available in every template.
var funcs = template.FuncMap{
	// ratio formats a unitless ratio like Sharpe or Beta.
	"ratio": func(v float64) string {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", v)
	},
	// pct formats a ratio (0.125) as a percent (12.50%).
	"pct": func(v float64) string { return backtest.Pct(v).String() },
}

// RenderRebalance renders a rebalancing backtest report to markdown.
func RenderRebalance(r *RebalanceReport) string {
	partials := map[string]string{
		"rebalance_title":   "rebalance_title.md",
		"rebalance_weights": "rebalance_weights.md",
		"performance":       "performance.md",
	}
	return renderTemplate("rebalance", "rebalance.md", partials, r)
}

// RenderLedger renders a position ledger report to markdown.
func RenderLedger(r *LedgerReport, opts LedgerRenderOptions) string {
	partials := map[string]string{
		"ledger_title": "ledger_title.md",
		"performance":  "performance.md",
	}
	// An empty file name results in an empty template.
	if opts.SkipTrades {
		partials["ledger_trades"] = ""
	} else {
		partials["ledger_trades"] = "ledger_trades.md"
	}
	return renderTemplate("ledger", "ledger.md", partials, r)
}

// RenderBatch renders the comparison of several backtests to markdown.
func RenderBatch(b *BatchReport) string {
	return renderTemplate("batch", "batch.md", nil, b)
}

// LedgerRenderOptions holds configuration for rendering a ledger report.
type LedgerRenderOptions struct {
	SkipTrades bool // Do not render the trade log.
}

// renderTemplate renders a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
