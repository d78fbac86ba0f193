// Package insight turns a digest into narrative analysis via the
// external generation service, enforcing a strict five-field JSON
// contract on everything the service returns.
package insight

import (
	"fmt"
	"strings"

	"github.com/Saai416/CSV-Insights-dashboard/internal/digest"
)

// SystemInstruction constrains insight generation output shape.
const SystemInstruction = "You are a data analyst. Return only valid JSON, no markdown formatting."

// AnswerSystemInstruction constrains follow-up answers to the context.
const AnswerSystemInstruction = "You are a helpful data analyst. Answer strictly based on the provided data context."

// InsufficientDataAnswer is what the model is told to say when the
// context cannot answer a question. It is a normal answer, not an error.
const InsufficientDataAnswer = "Insufficient data in the dataset to answer this question."

// BuildInsightPrompt renders the fixed instruction template around the
// digest. It is a pure function of the digest: the same digest always
// yields the same prompt text.
func BuildInsightPrompt(d *digest.Digest) string {
	var b strings.Builder
	b.WriteString("You are a senior data analyst generating a professional business report.\n")
	b.WriteString("Analyze this dataset and return ONLY valid JSON (no markdown, no code blocks).\n\n")
	b.WriteString("Dataset Summary:\n")
	b.WriteString(d.Render())
	b.WriteString("\nSTRICT INSTRUCTIONS:\n")
	b.WriteString("1. Use ONLY the computed statistics provided above.\n")
	b.WriteString("2. Do NOT invent values, counts, or columns.\n")
	b.WriteString("3. If category counts are tied, clearly state they are tied.\n")
	b.WriteString("4. Avoid generic statements; interpret patterns instead of just ranking values.\n\n")
	b.WriteString("Return JSON with this exact structure:\n")
	b.WriteString(`{
  "summary": "High-level executive summary focused on distribution and variability.",
  "trends": ["Trend 1", "Trend 2"],
  "outliers": ["List specific outliers with values"],
  "risks": ["Potential risks based on the data"],
  "recommendations": ["Actionable recommendations"]
}
`)
	b.WriteString("\nIf no outliers, risks, or recommendations are found, return empty arrays.\n")
	return b.String()
}

// BuildAnswerPrompt renders the follow-up question template around the
// assembled context block.
func BuildAnswerPrompt(question, context string) string {
	var b strings.Builder
	b.WriteString("Using the provided dataset context, answer the user's question.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Answer ONLY using the provided information.\n")
	b.WriteString("- Do not fabricate columns or values.\n")
	fmt.Fprintf(&b, "- If the answer cannot be determined from the context, state %q.\n", InsufficientDataAnswer)
	b.WriteString("- Keep the answer professional and concise.\n")
	return b.String()
}
