package insight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the validated five-field structured output. Fields absent
// from the raw response become empty strings/lists, never nil slices
// left unserialized as null.
type Result struct {
	Summary         string   `json:"summary"`
	Trends          []string `json:"trends"`
	Outliers        []string `json:"outliers"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
}

// Condensed renders a short form of the result for follow-up context.
func (r *Result) Condensed() string {
	var b strings.Builder
	if r.Summary != "" {
		b.WriteString(r.Summary)
		b.WriteString("\n")
	}
	for _, t := range r.Trends {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// MalformedInsightError indicates the generation service returned output
// that could not be parsed or validated even after repair.
type MalformedInsightError struct {
	Reason string
}

func (e *MalformedInsightError) Error() string {
	return "generation service returned malformed output: " + e.Reason
}

// ParseResult parses and validates raw generation output against the
// Result schema. Unknown fields are ignored; missing fields default to
// empty values.
//
// Coercion policy: a bare string where a list is expected becomes a
// single-element list; any other type mismatch fails the whole
// validation, since guessing at numbers or nested objects would put
// words in the model's mouth.
func ParseResult(raw string) (*Result, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Trends:          []string{},
		Outliers:        []string{},
		Risks:           []string{},
		Recommendations: []string{},
	}
	if v, ok := obj["summary"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, &MalformedInsightError{Reason: "field summary is not a string"}
		}
		res.Summary = s
	}
	fields := []struct {
		name string
		dst  *[]string
	}{
		{"trends", &res.Trends},
		{"outliers", &res.Outliers},
		{"risks", &res.Risks},
		{"recommendations", &res.Recommendations},
	}
	for _, f := range fields {
		v, ok := obj[f.name]
		if !ok || v == nil {
			continue
		}
		list, err := coerceStringList(f.name, v)
		if err != nil {
			return nil, err
		}
		*f.dst = list
	}
	return res, nil
}

// parseObject decodes raw text as a JSON object, applying one repair
// pass (stripping code fences and surrounding noise) before giving up.
func parseObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}
	repaired := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, &MalformedInsightError{Reason: "response is not a JSON object"}
	}
	return obj, nil
}

// stripCodeFence removes surrounding ``` / ```json markers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func coerceStringList(field string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}, nil
		}
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, &MalformedInsightError{Reason: fmt.Sprintf("field %s contains a non-string entry", field)}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &MalformedInsightError{Reason: fmt.Sprintf("field %s is neither a list nor a string", field)}
	}
}
