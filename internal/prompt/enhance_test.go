package prompt

import (
	"context"
	"testing"

	"promptreel/internal/gateway"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A vivid scene, with 4 dogs.", "A vivid scene, with dogs"},
		{"sunset,, over,,, the sea", "sunset, over, the sea"},
		{"hello , world", "hello, world"},
		{`C:\path\to\file`, "Cpathtofile"},
		{"  trailing, ", "trailing"},
		{"(parens) [brackets] {braces} *stars* #tags /slashes/", "parens brackets braces stars tags slashes"},
		{"keep-dashes and_underscores", "keep-dashes and_underscores"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTitleStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a calm forest stream", "stream"},
		{"red, green, Blue", "blue"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := TitleStem(tc.in); got != tc.want {
			t.Errorf("TitleStem(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnhancerKeywords(t *testing.T) {
	e := &Enhancer{Gateway: gateway.NewStub(t.TempDir())}
	kw, stem, err := e.Keywords(context.Background(), "Lonely Fox 7", nil)
	if err != nil {
		t.Fatal(err)
	}
	if kw != "Lonely, Fox" {
		t.Fatalf("keywords: got %q", kw)
	}
	if stem != "lonely" {
		t.Fatalf("stem: got %q", stem)
	}
}

// emptyStemGateway rewrites without providing a title stem.
type emptyStemGateway struct {
	*gateway.Stub
}

func (emptyStemGateway) RewritePromptEnhanced(context.Context, string) (string, string, error) {
	return "A stormy night.", "", nil
}

func TestEnhancedFallsBackToLastToken(t *testing.T) {
	e := &Enhancer{Gateway: emptyStemGateway{Stub: gateway.NewStub(t.TempDir())}}
	enhanced, stem, err := e.Enhanced(context.Background(), "ignored")
	if err != nil {
		t.Fatal(err)
	}
	if enhanced != "A stormy night" {
		t.Fatalf("enhanced: got %q", enhanced)
	}
	if stem != "night" {
		t.Fatalf("stem: got %q", stem)
	}
}
