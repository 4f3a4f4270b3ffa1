package prune

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortTextUntouched(t *testing.T) {
	t.Parallel()

	in := "short reply"
	if got := Truncate(in, Config{MaxRunes: 50}); got != in {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestTruncateRespectsRuneBudget(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("血糖", 4000)
	got := Truncate(in, Config{MaxRunes: 100})
	if n := utf8.RuneCountInString(got); n > 100 {
		t.Fatalf("expected at most 100 runes, got %d", n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("expected valid utf-8 output")
	}
	if !strings.HasSuffix(got, DefaultMarker) {
		t.Fatalf("expected marker suffix, got %q", got)
	}
}

func TestTruncatePrefersLineBreak(t *testing.T) {
	t.Parallel()

	in := "first line\nsecond line that is rather long and will be cut"
	got := Truncate(in, Config{MaxRunes: 30, Marker: "...", LineSlack: 30})
	if got != "first line\n..." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestMessageFitsPlatformLimit(t *testing.T) {
	t.Parallel()

	got := Message(strings.Repeat("a", MaxMessageRunes+10))
	if n := utf8.RuneCountInString(got); n > MaxMessageRunes {
		t.Fatalf("expected at most %d runes, got %d", MaxMessageRunes, n)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	chunks := Split("aaaa\nbbbb\ncccc", 10)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "aaaa\nbbbb" || chunks[1] != "cccc" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 10 {
			t.Fatalf("chunk too long: %q", c)
		}
	}
}
