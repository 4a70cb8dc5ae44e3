package textutil

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"The.Matrix.1999.1080p", []string{"the", "matrix", "1999", "1080p"}},
		{"Up (2009)", []string{"2009"}},
		{"  ", []string{}},
		{"Amélie", []string{"lie"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.input)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewFingerprintWithoutTokens(t *testing.T) {
	if fp := NewFingerprint("a b c"); fp != nil {
		t.Fatalf("expected nil fingerprint, got %#v", fp)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "The Matrix", "the.matrix", 1},
		{"disjoint", "The Matrix", "Finding Nemo", 0},
		{"no tokens", "Up", "Up", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(NewFingerprint(tt.a), NewFingerprint(tt.b))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityPartialIsSymmetric(t *testing.T) {
	a := NewFingerprint("The Matrix Reloaded")
	b := NewFingerprint("The Matrix")
	ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a)
	if ab <= 0 || ab >= 1 {
		t.Fatalf("expected partial similarity, got %v", ab)
	}
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"Mission: Impossible":     "Mission- Impossible",
		"What If...?":             "What If...",
		" AC/DC Live ":            "AC-DC Live",
		`Say "Cheese" <Extended>`: "Say Cheese Extended",
	}
	for input, want := range tests {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestStripProhibitedChars(t *testing.T) {
	tests := map[string]string{
		"Movies: 4K":     "Movies 4K",
		"Shows/Kids?":    "ShowsKids",
		"Archive. ":      "Archive",
		"Tab\there":      "Tabhere",
		"  plain name  ": "plain name",
	}
	for input, want := range tests {
		if got := StripProhibitedChars(input); got != want {
			t.Errorf("StripProhibitedChars(%q) = %q, want %q", input, got, want)
		}
	}
}
