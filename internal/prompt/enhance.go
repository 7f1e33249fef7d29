package prompt

import (
	"context"
	"strings"

	"promptreel/internal/gateway"
)

// Enhancer rewrites subtitle text into generation-friendly prompts
// through the gateway and normalizes the results.
type Enhancer struct {
	Gateway gateway.Gateway
}

// Keywords asks the backend for vivid keywords describing text,
// avoiding the excluded words. Returns the normalized keyword string
// and a short title stem.
func (e *Enhancer) Keywords(ctx context.Context, text string, excluded []string) (string, string, error) {
	kw, stem, err := e.Gateway.RewritePromptKeywords(ctx, text, excluded)
	if err != nil {
		return "", "", err
	}
	kw = Normalize(kw)
	return kw, pickStem(stem, kw), nil
}

// Enhanced asks the backend for one enhanced descriptive sentence.
func (e *Enhancer) Enhanced(ctx context.Context, text string) (string, string, error) {
	enhanced, stem, err := e.Gateway.RewritePromptEnhanced(ctx, text)
	if err != nil {
		return "", "", err
	}
	enhanced = Normalize(enhanced)
	return enhanced, pickStem(stem, enhanced), nil
}

// Normalize cleans backend output: digits, dots, backslashes and
// special punctuation are stripped, comma runs collapse to one, and the
// result is trimmed.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '\\':
		case r == '!' || r == '?' || r == ';' || r == ':' || r == '"' || r == '\'' ||
			r == '(' || r == ')' || r == '[' || r == ']' || r == '{' || r == '}' ||
			r == '*' || r == '#' || r == '/':
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, ",,") {
		out = strings.ReplaceAll(out, ",,", ",")
	}
	out = strings.ReplaceAll(out, " ,", ",")
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.Trim(out, " ,\t\n")
}

// TitleStem returns the last token of a normalized text, usable as a
// short stable title.
func TitleStem(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

func pickStem(backendStem, normalized string) string {
	stem := strings.TrimSpace(strings.ToLower(backendStem))
	if stem != "" {
		return stem
	}
	return TitleStem(normalized)
}
