package subtitle

import (
	"strings"
	"testing"
)

func TestParseVTT(t *testing.T) {
	t.Parallel()

	content := `WEBVTT

1
00:00:01.000 --> 00:00:03.500
আমি ভাত খাই

2
00:00:04.250 --> 00:00:06.000
সে স্কুলে যায়
দ্বিতীয় লাইন
`

	cues := ParseVTT(content)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Start != 1.0 || cues[0].End != 3.5 {
		t.Errorf("cue 0 timing = %v-%v", cues[0].Start, cues[0].End)
	}
	if cues[0].Text != "আমি ভাত খাই" {
		t.Errorf("cue 0 text = %q", cues[0].Text)
	}
	if cues[1].Start != 4.25 {
		t.Errorf("cue 1 start = %v", cues[1].Start)
	}
	if cues[1].Text != "সে স্কুলে যায়\nদ্বিতীয় লাইন" {
		t.Errorf("multiline cue = %q", cues[1].Text)
	}
}

func TestParseVTTCommaTimestamps(t *testing.T) {
	t.Parallel()

	// Some encoders emit SRT-style comma separators.
	cues := ParseVTT("WEBVTT\n\n00:01:02,500 --> 00:01:04,000\ntext line\n")
	if len(cues) != 1 {
		t.Fatalf("got %d cues", len(cues))
	}
	if cues[0].Start != 62.5 || cues[0].End != 64.0 {
		t.Errorf("timing = %v-%v", cues[0].Start, cues[0].End)
	}
}

func TestParseVTTEmpty(t *testing.T) {
	t.Parallel()

	if cues := ParseVTT(""); len(cues) != 0 {
		t.Errorf("got %d cues from empty input", len(cues))
	}
	if cues := ParseVTT("WEBVTT\n"); len(cues) != 0 {
		t.Errorf("got %d cues from header-only input", len(cues))
	}
}

func TestCuesToVTTRoundTrip(t *testing.T) {
	t.Parallel()

	in := []Cue{
		{Index: 1, Start: 0, End: 2.5, Text: "first cue"},
		{Index: 2, Start: 3, End: 6.75, Text: "second cue\nsecond line"},
	}

	out := CuesToVTT(in)
	if !strings.HasPrefix(out, "WEBVTT\n") {
		t.Errorf("missing header: %q", out)
	}

	back := ParseVTT(out)
	if len(back) != len(in) {
		t.Fatalf("round trip lost cues: %d != %d", len(back), len(in))
	}
	for i := range in {
		if back[i].Text != in[i].Text {
			t.Errorf("cue %d text = %q, want %q", i, back[i].Text, in[i].Text)
		}
		if back[i].Start != in[i].Start || back[i].End != in[i].End {
			t.Errorf("cue %d timing = %v-%v, want %v-%v",
				i, back[i].Start, back[i].End, in[i].Start, in[i].End)
		}
	}
}
