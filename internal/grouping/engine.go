// Package grouping computes destination folder keys from extracted metadata
// and a validated rule set. ComputeKey is a pure function: identical metadata
// and rules always yield an identical key, and nothing here reads the clock.
package grouping

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"shoebox/internal/media"
	"shoebox/internal/rules"
)

var invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Engine applies a rule set to metadata. It is immutable after construction.
type Engine struct {
	rules *rules.Set
}

// NewEngine builds an engine over a validated rule set; nil means no rules.
func NewEngine(set *rules.Set) *Engine {
	if set == nil {
		set = rules.Empty()
	}
	return &Engine{rules: set}
}

// ComputeKey derives the destination key for a file. locationLabel is the
// resolver's output (a place name or one of the geocode sentinels). Rule order:
// a custom date-range event wins first, then builtin holidays; year/month come
// from the capture time when present, otherwise the NoDate bucket; the location
// label, passed through the alias table, forms the sub-segment.
func (e *Engine) ComputeKey(meta media.Metadata, locationLabel string) Key {
	location := Sanitize(e.rules.Alias(locationLabel))

	key := Key{Location: location}
	if !meta.HasCaptureTime() {
		return key
	}

	captured := *meta.CapturedAt
	key.Year = captured.Year()
	key.Month = captured.Month()

	event := e.rules.MatchCustomEvent(captured, location)
	if event == "" {
		event = rules.BuiltinEvent(captured)
	}
	key.Event = Sanitize(e.rules.Override(event))
	return key
}

// Sanitize turns an arbitrary label into a compact, filesystem-safe folder
// segment: diacritics folded, invalid path characters replaced, whitespace
// removed. An empty label stays empty; a non-empty label that cleans down to
// nothing becomes "Unknown".
func Sanitize(label string) string {
	if label == "" {
		return ""
	}
	folded := foldDiacritics(label)
	cleaned := invalidPathChars.ReplaceAllString(folded, "_")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return "Unknown"
	}
	return cleaned
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
