package agent

import (
	"context"
	"strings"

	"github.com/etnz/backtest/docs"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// NewAnalyst creates the expert reviewing a backtest report.
//
// The analyst can read the bt documentation and consult the given experts.
func NewAnalyst(experts ...*Expert) *Expert {
	lib := []Function{Documentation}
	for _, e := range experts {
		lib = append(lib, e)
	}
	return &Expert{
		Name:      "Analyst",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a quantitative analyst reviewing the report of a backtest run with the bt tool.
			The report is in Markdown: run parameters, performance per timeframe (annualized return,
			volatility, max drawdown, Sharpe, Sortino and, with a benchmark, beta and information ratio)
			and the final allocation or the trade log.

			Comment on the risk adjusted performance, compare it to the benchmark when there is one,
			and point out what looks fragile: few rebalances, short history, high drawdown, costs.
			Read the documentation with the tools when you are unsure how a figure is computed.
			Answer in concise Markdown.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// NewResearcher creates an expert grounded on Google Search.
func NewResearcher() *Expert {
	return &Expert{
		Name: "Researcher",
		Description: `This is a market researcher, aware of financial products, indices and
		market history. Ask the Researcher for context about an instrument or a period.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a market researcher. You search about instruments, indices and market events
			and relate them to the question. Leverage Google Search to ground your assertions.
			`}}},
		},
	}
}

// Func implements a simple Function
type Func struct {
	// Declare this function
	Decl *genai.FunctionDeclaration
	// Call this function
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

// Documentation reads bt documentation topics.
var Documentation = &Func{
	Decl: &genai.FunctionDeclaration{
		Name:        "documentation",
		Description: "Returns the bt documentation for a topic. The 'readme' topic lists all the others.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"topic": {
					Type:        genai.TypeString,
					Description: "The topic name, like 'rebalance' or 'ledger'.",
				},
			},
			Required: []string{"topic"},
		},
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "The topic in Markdown.",
		},
	},
	Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
		topic, _ := args["topic"].(string)
		content, err := docs.GetTopic(strings.TrimSpace(topic))
		if err != nil {
			return errorResponse(id, "documentation", err)
		}
		return &genai.FunctionResponse{
			ID:       id,
			Name:     "documentation",
			Response: map[string]any{"output": content},
		}
	},
}
