package rules_test

import (
	"testing"
	"time"

	"shoebox/internal/rules"
	"shoebox/internal/testsupport"
)

func TestParseNormalizesKeys(t *testing.T) {
	set, err := rules.Parse([]byte(`
location_aliases:
  " Paris ": "Paris"
  NYC: "NewYork"
event_overrides:
  Xmas: "Christmas"
custom_events:
  - name: Wedding
    start: 2022-07-14
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := set.Alias("nyc"); got != "NewYork" {
		t.Errorf("Alias(nyc) = %q", got)
	}
	if got := set.Alias("NYC"); got != "NewYork" {
		t.Errorf("Alias(NYC) = %q", got)
	}
	if got := set.Alias("Berlin"); got != "Berlin" {
		t.Errorf("unknown alias should pass through, got %q", got)
	}
	if got := set.Override("XMAS"); got != "Christmas" {
		t.Errorf("Override(XMAS) = %q", got)
	}
	// A single-day event defaults its end to its start.
	day := time.Date(2022, 7, 14, 18, 30, 0, 0, time.UTC)
	if got := set.MatchCustomEvent(day, "Paris"); got != "Wedding" {
		t.Errorf("MatchCustomEvent = %q, want Wedding", got)
	}
	if got := set.MatchCustomEvent(day.AddDate(0, 0, 1), "Paris"); got != "" {
		t.Errorf("day after single-day event matched %q", got)
	}
}

func TestParseRejectsMalformedRules(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "location_aliases: ["},
		{"empty alias value", "location_aliases:\n  paris: \"\""},
		{"empty event name", "custom_events:\n  - name: \"\"\n    start: 2022-01-01"},
		{"missing start", "custom_events:\n  - name: Trip"},
		{"end before start", "custom_events:\n  - name: Trip\n    start: 2022-05-10\n    end: 2022-05-01"},
		{"bad date", "custom_events:\n  - name: Trip\n    start: not-a-date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rules.Parse([]byte(tc.yaml)); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestMatchCustomEventDeclarationOrderWins(t *testing.T) {
	set, err := rules.Parse([]byte(`
custom_events:
  - name: First
    start: 2022-06-01
    end: 2022-06-30
  - name: Second
    start: 2022-06-10
    end: 2022-06-20
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	day := time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := set.MatchCustomEvent(day, "Anywhere"); got != "First" {
		t.Fatalf("MatchCustomEvent = %q, want First", got)
	}
}

func TestMatchCustomEventLocationConstraint(t *testing.T) {
	set, err := rules.Parse([]byte(`
custom_events:
  - name: ParisTrip
    start: 2022-07-01
    end: 2022-07-31
    location: Paris
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	day := time.Date(2022, 7, 10, 0, 0, 0, 0, time.UTC)
	if got := set.MatchCustomEvent(day, "Paris"); got != "ParisTrip" {
		t.Errorf("matching location = %q, want ParisTrip", got)
	}
	if got := set.MatchCustomEvent(day, "Berlin"); got != "" {
		t.Errorf("non-matching location matched %q", got)
	}
}

func TestLoadEmptyPathYieldsEmptySet(t *testing.T) {
	set, err := rules.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set.LocationAliases) != 0 || len(set.EventOverrides) != 0 || len(set.CustomEvents) != 0 {
		t.Fatal("expected empty set")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := testsupport.WriteFile(t, t.TempDir(), "rules.yaml", "location_aliases:\n  nyc: NewYork\n")
	set, err := rules.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := set.Alias("nyc"); got != "NewYork" {
		t.Fatalf("Alias = %q", got)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := rules.Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}
