// Package convo assembles follow-up question context from a report's
// digest, its latest insights, and the prior Q&A turns in order.
package convo

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
	"github.com/Saai416/CSV-Insights-dashboard/internal/insight"
	"github.com/Saai416/CSV-Insights-dashboard/internal/tokens"
)

// Question length bounds, enforced before any generation call.
const (
	MinQuestionLen = 3
	MaxQuestionLen = 300
)

// Turn is one stored (question, answer) pair. Turns are append-only and
// always carry both a question and a non-empty answer.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidationError indicates caller input that can be corrected and
// resubmitted. The message is safe to surface.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ValidateQuestion enforces the question length bounds. Bounds are in
// characters, not bytes, so multibyte questions are measured fairly.
func ValidateQuestion(q string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(q))
	if n < MinQuestionLen {
		return &ValidationError{Msg: "question must be at least 3 characters"}
	}
	if n > MaxQuestionLen {
		return &ValidationError{Msg: "question too long (max 300 characters)"}
	}
	return nil
}

// ContextBuilder assembles the prompt context under a token budget.
type ContextBuilder struct {
	// TokenBudget caps the whole context block. When the turn history
	// would overflow it, the oldest turns are dropped first; the digest
	// is never dropped.
	TokenBudget int
}

// DefaultTokenBudget leaves room for the question and the answer within
// typical model context windows.
const DefaultTokenBudget = 1500

// Build renders the context block: digest, condensed insights (if any),
// and prior turns oldest to newest.
func (b ContextBuilder) Build(d *digest.Digest, ins *insight.Result, turns []Turn) string {
	budget := b.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	var fixed strings.Builder
	fixed.WriteString("Dataset Summary:\n")
	fixed.WriteString(d.Render())
	if ins != nil {
		if condensed := ins.Condensed(); condensed != "" {
			fixed.WriteString("\nKey Insights:\n")
			fixed.WriteString(condensed)
			fixed.WriteString("\n")
		}
	}

	remaining := budget - tokens.Count(fixed.String())
	included := fitTurns(turns, remaining)
	if len(included) > 0 {
		fixed.WriteString("\nPrevious Q&A:\n")
		for _, t := range included {
			fixed.WriteString("Q: ")
			fixed.WriteString(t.Question)
			fixed.WriteString("\nA: ")
			fixed.WriteString(t.Answer)
			fixed.WriteString("\n")
		}
	}
	return fixed.String()
}

// fitTurns returns the newest suffix of turns that fits the budget,
// preserving chronological order. Oldest turns fall off first.
func fitTurns(turns []Turn, budget int) []Turn {
	if budget <= 0 || len(turns) == 0 {
		return nil
	}
	used := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := tokens.Count(turns[i].Question) + tokens.Count(turns[i].Answer) + 2
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}
	if start == len(turns) {
		return nil
	}
	return turns[start:]
}
