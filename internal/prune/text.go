package prune

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMarker is appended to text that had to be cut.
	DefaultMarker = "…(truncated)"
	// MaxMessageRunes is the per-message character limit of the messaging platform.
	MaxMessageRunes = 5000
)

type Config struct {
	MaxRunes int
	Marker   string
	// LineSlack is how far back (in runes) a cut may move to land on a
	// line break instead of mid-sentence.
	LineSlack int
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxRunes <= 0 {
		cfg.MaxRunes = MaxMessageRunes
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.LineSlack < 0 {
		cfg.LineSlack = 0
	}
	return cfg
}

// Exceeds reports whether s holds more than maxRunes characters.
func Exceeds(s string, maxRunes int) bool {
	return utf8.RuneCountInString(s) > maxRunes
}

// Message fits s into a single outgoing text message.
func Message(s string) string {
	return Truncate(s, Config{LineSlack: 200})
}

// Truncate cuts s so that the result, marker included, holds at most
// cfg.MaxRunes characters. Cuts never split a UTF-8 sequence.
func Truncate(s string, cfg Config) string {
	cfg = normalizeConfig(cfg)
	if !Exceeds(s, cfg.MaxRunes) {
		return s
	}
	markerRunes := utf8.RuneCountInString(cfg.Marker)
	if markerRunes >= cfg.MaxRunes {
		return runePrefix(cfg.Marker, cfg.MaxRunes)
	}
	budget := cfg.MaxRunes - markerRunes - 1
	head := runePrefix(s, budget)
	if cfg.LineSlack > 0 {
		if idx := strings.LastIndexByte(head, '\n'); idx >= 0 {
			if utf8.RuneCountInString(head[idx:]) <= cfg.LineSlack {
				head = head[:idx]
			}
		}
	}
	head = strings.TrimRight(head, " \t\n")
	return head + "\n" + cfg.Marker
}

// Split breaks s into chunks of at most maxRunes characters, preferring line
// breaks as chunk boundaries.
func Split(s string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = MaxMessageRunes
	}
	var chunks []string
	for Exceeds(s, maxRunes) {
		head := runePrefix(s, maxRunes)
		if idx := strings.LastIndexByte(head, '\n'); idx > 0 {
			head = head[:idx+1]
		}
		chunks = append(chunks, strings.TrimRight(head, "\n"))
		s = s[len(head):]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
