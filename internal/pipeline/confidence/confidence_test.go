package confidence

import (
	"testing"
)

func TestScore(t *testing.T) {
	t.Parallel()

	t.Run("stays in range", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			raw      float64
			provider string
			quality  float64
			textLen  int
			duration float64
		}{
			{1.5, "openai", 100, 30, 3},
			{-0.5, "whisper.cpp", 0, 0, 0},
			{0.9, "unknown-engine", 110, 200, 50},
			{0, "", 0, 1, 0.1},
		}
		for _, c := range cases {
			got := Score(c.raw, c.provider, c.quality, c.textLen, c.duration)
			if got < 0 || got > 1 {
				t.Errorf("Score(%+v) = %v, out of [0,1]", c, got)
			}
		}
	})

	t.Run("provider reliability orders equal inputs", func(t *testing.T) {
		t.Parallel()
		openai := Score(0.9, "openai", 80, 30, 3)
		gemini := Score(0.9, "gemini", 80, 30, 3)
		unknown := Score(0.9, "no-such-engine", 80, 30, 3)
		if !(openai > gemini) {
			t.Errorf("openai %v should outrank gemini %v", openai, gemini)
		}
		if !(gemini > unknown) {
			t.Errorf("gemini %v should outrank unknown %v", gemini, unknown)
		}
	})

	t.Run("weighted blend", func(t *testing.T) {
		t.Parallel()
		// duration in range (+0.05) and text length in range (+0.03).
		want := 0.7*(0.9*0.95) + 0.3*0.8 + 0.05 + 0.03
		got := Score(0.9, "openai", 80, 30, 3)
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Score = %v, want %v", got, want)
		}
	})

	t.Run("very short text penalized", func(t *testing.T) {
		t.Parallel()
		long := Score(0.9, "openai", 80, 30, 3)
		short := Score(0.9, "openai", 80, 2, 3)
		if !(short < long) {
			t.Errorf("short-text score %v should be below %v", short, long)
		}
	})
}

func TestTranslationScore(t *testing.T) {
	t.Parallel()

	const (
		source = "আমি আজ স্কুলে যাব এবং বন্ধুদের সাথে দেখা করব।"
		good   = "I will go to school today and meet my friends."
	)

	base := TranslationScore(0.9, "gemini", 90, source, good, 3)

	tests := []struct {
		name       string
		translated string
	}{
		{"suspicious length ratio", "No."},
		{"error marker", "[unable to translate this segment]"},
		{"source echoed verbatim", source},
		{"dropped terminal punctuation", "I will go to school today and meet my friends"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TranslationScore(0.9, "gemini", 90, source, tt.translated, 3)
			if !(got < base) {
				t.Errorf("TranslationScore(%q) = %v, want below baseline %v", tt.translated, got, base)
			}
			if got < 0 || got > 1 {
				t.Errorf("TranslationScore(%q) = %v, out of [0,1]", tt.translated, got)
			}
		})
	}

	t.Run("clean translation not penalized", func(t *testing.T) {
		t.Parallel()
		if base <= 0.5 {
			t.Errorf("baseline score %v unexpectedly low", base)
		}
	})
}
