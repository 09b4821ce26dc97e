package scanner

import (
	"context"

	"github.com/shopspring/decimal"
)

// Answer is the operator's reply to an unknown barcode.
type Answer struct {
	Add   bool            `json:"add"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Prompter asks the operator what to do with a code that matched nothing.
// It may block until the operator answers.
type Prompter interface {
	PromptUnknown(ctx context.Context, code string) (Answer, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, code string) (Answer, error)

// PromptUnknown calls f.
func (f PrompterFunc) PromptUnknown(ctx context.Context, code string) (Answer, error) {
	return f(ctx, code)
}

// DeclinePrompter abandons every unknown code.
type DeclinePrompter struct{}

// PromptUnknown always declines.
func (DeclinePrompter) PromptUnknown(context.Context, string) (Answer, error) {
	return Answer{}, nil
}

type answerKey struct{}

// WithAnswer attaches a pre-supplied answer to ctx, for callers that collect
// the operator's decision before submitting the code.
func WithAnswer(ctx context.Context, a Answer) context.Context {
	return context.WithValue(ctx, answerKey{}, a)
}

// ContextPrompter answers with the value attached by WithAnswer, declining
// when none is present.
type ContextPrompter struct{}

// PromptUnknown returns the answer carried by ctx.
func (ContextPrompter) PromptUnknown(ctx context.Context, _ string) (Answer, error) {
	a, _ := ctx.Value(answerKey{}).(Answer)
	return a, nil
}
