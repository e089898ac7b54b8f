package scoring

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"hello", "hello", 0},
		{"hello", "hwllo", 1},
		{"flaw", "lawn", 2},
	}
	for _, c := range cases {
		if got := Levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarity_Identical(t *testing.T) {
	for _, s := range []string{"a", "hello", "the quick brown fox"} {
		if got := Similarity(s, s); !almostEqual(got, 1.0) {
			t.Fatalf("Similarity(%q, %q) = %f, want 1.0", s, s, got)
		}
	}
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	if got := Similarity("", ""); !almostEqual(got, 1.0) {
		t.Fatalf("Similarity of two empty strings = %f, want 1.0", got)
	}
	if got := Similarity("hello", ""); !almostEqual(got, 0.0) {
		t.Fatalf("Similarity(\"hello\", \"\") = %f, want 0.0", got)
	}
	if got := Similarity("", "hello"); !almostEqual(got, 0.0) {
		t.Fatalf("Similarity(\"\", \"hello\") = %f, want 0.0", got)
	}
	// Whitespace-only input normalizes to empty.
	if got := Similarity("   ", "hello"); !almostEqual(got, 0.0) {
		t.Fatalf("Similarity of blank vs text = %f, want 0.0", got)
	}
}

func TestSimilarity_SingleSubstitution(t *testing.T) {
	// Length 5, distance 1: 1 - 1/5 = 0.8.
	if got := Similarity("hello", "hwllo"); !almostEqual(got, 0.8) {
		t.Fatalf("Similarity(\"hello\", \"hwllo\") = %f, want 0.8", got)
	}
}

func TestSimilarity_Normalizes(t *testing.T) {
	if got := Similarity("  HELLO  ", "hello"); !almostEqual(got, 1.0) {
		t.Fatalf("Similarity should trim and lowercase, got %f", got)
	}
}

func TestSuggestions_NoSpeech(t *testing.T) {
	got := Suggestions(0.0, true)
	if len(got) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(got))
	}
	if !strings.Contains(got[0], "No speech detected") {
		t.Fatalf("unexpected message: %q", got[0])
	}
}

func TestSuggestions_Tiers(t *testing.T) {
	cases := []struct {
		score     float64
		wantCount int
		wantFirst string
	}{
		{1.0, 1, "Excellent"},
		{0.9, 1, "Excellent"}, // lower bound is inclusive
		{0.89, 2, "Good pronunciation"},
		{0.7, 2, "Good pronunciation"},
		{0.69, 2, "Practice needed"},
		{0.5, 2, "Practice needed"},
		{0.49, 3, "Significant"},
		{0.0, 3, "Significant"},
	}
	for _, c := range cases {
		got := Suggestions(c.score, false)
		if len(got) != c.wantCount {
			t.Fatalf("Suggestions(%f): got %d messages, want %d", c.score, len(got), c.wantCount)
		}
		if !strings.HasPrefix(got[0], c.wantFirst) {
			t.Fatalf("Suggestions(%f): first message %q, want prefix %q", c.score, got[0], c.wantFirst)
		}
	}
}

func TestSuggestions_GoodTierForMinorError(t *testing.T) {
	score := Similarity("hello", "hwllo")
	got := Suggestions(score, false)
	if len(got) != 2 {
		t.Fatalf("expected two messages for the good tier, got %d", len(got))
	}
	if !strings.Contains(got[0], "Minor improvements") {
		t.Fatalf("expected a minor-improvements message first, got %q", got[0])
	}
}
