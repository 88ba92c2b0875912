package matcher

import "testing"

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "Machine Learning", "Machine Learning", 1.0, 1.0},
		{"case insensitive", "machine learning", "MACHINE LEARNING", 1.0, 1.0},
		{"typos stay above half", "Programing Languges", "Programming Languages", 0.5, 0.99},
		{"unrelated stays low", "Quantum Chromodynamics", "Cooking for Beginners", 0.0, 0.45},
		{"both empty", "", "", 1.0, 1.0},
		{"one empty", "", "anything", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Ratio(%q, %q) = %.3f, want within [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Programing Languges", "Programming Languages"},
		{"abcd", "bcde"},
		{"", "x"},
	}
	for _, p := range pairs {
		if Ratio(p[0], p[1]) != Ratio(p[1], p[0]) {
			t.Errorf("Ratio not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestRatioBounds(t *testing.T) {
	got := Ratio("abcabc", "xyzxyz")
	if got < 0 || got > 1 {
		t.Fatalf("Ratio out of range: %f", got)
	}
}

func TestNormalize(t *testing.T) {
	// U+00E9 (precomposed) decomposes to 'e' + U+0301.
	composed := "café"
	decomposed := "café"
	if Normalize(composed) != Normalize(decomposed) {
		t.Errorf("NFKD forms differ: %q vs %q", Normalize(composed), Normalize(decomposed))
	}
	if Normalize("plain title") != "plain title" {
		t.Error("ASCII input should pass through unchanged")
	}
}

func TestNormalizedFormsScoreEqual(t *testing.T) {
	a := Normalize("Café Chemistry")
	b := Normalize("Café Chemistry")
	if Ratio(a, b) != 1.0 {
		t.Errorf("normalized forms should be identical, ratio = %f", Ratio(a, b))
	}
}
