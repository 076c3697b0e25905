package grouping_test

import (
	"testing"
	"time"

	"shoebox/internal/geocode"
	"shoebox/internal/grouping"
	"shoebox/internal/media"
	"shoebox/internal/rules"
)

func metaAt(t time.Time) media.Metadata {
	return media.Metadata{CapturedAt: &t, Kind: media.KindPhoto}
}

func TestComputeKeyDatedWithLocation(t *testing.T) {
	engine := grouping.NewEngine(nil)
	key := engine.ComputeKey(metaAt(time.Date(2022, 7, 14, 15, 4, 5, 0, time.UTC)), "Paris")

	if got := key.Render(); got != "2022/07/Paris" {
		t.Fatalf("Render = %q, want 2022/07/Paris", got)
	}
}

func TestComputeKeyNoDateUsesFallbackBucket(t *testing.T) {
	engine := grouping.NewEngine(nil)
	key := engine.ComputeKey(media.Metadata{Kind: media.KindPhoto}, geocode.NoLocationLabel)

	if key.HasDate() {
		t.Fatal("key without capture time must not carry a date")
	}
	if got := key.Render(); got != "NoDate/NoLocation" {
		t.Fatalf("Render = %q, want NoDate/NoLocation", got)
	}
}

func TestComputeKeyNoDateNeverGetsEvent(t *testing.T) {
	// Even on a holiday-shaped rules setup, a file without a capture time can
	// never match a date-based event.
	set, err := rules.Parse([]byte("custom_events:\n  - name: Trip\n    start: 2000-01-01\n    end: 2100-01-01\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := grouping.NewEngine(set)
	key := engine.ComputeKey(media.Metadata{Kind: media.KindPhoto}, "Paris")
	if key.Event != "" {
		t.Fatalf("event = %q, want empty", key.Event)
	}
}

func TestComputeKeyAppliesAliasBeforeEventMatching(t *testing.T) {
	set, err := rules.Parse([]byte(`
location_aliases:
  paris: Lutetia
custom_events:
  - name: Wedding
    start: 2022-07-14
    location: Lutetia
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := grouping.NewEngine(set)
	key := engine.ComputeKey(metaAt(time.Date(2022, 7, 14, 10, 0, 0, 0, time.UTC)), "Paris")

	if got := key.Render(); got != "2022/07/Lutetia/Wedding" {
		t.Fatalf("Render = %q, want 2022/07/Lutetia/Wedding", got)
	}
}

func TestComputeKeyCustomEventBeatsBuiltin(t *testing.T) {
	set, err := rules.Parse([]byte("custom_events:\n  - name: FamilyDinner\n    start: 2022-12-25\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := grouping.NewEngine(set)
	key := engine.ComputeKey(metaAt(time.Date(2022, 12, 25, 13, 0, 0, 0, time.UTC)), "Paris")
	if key.Event != "FamilyDinner" {
		t.Fatalf("event = %q, want FamilyDinner", key.Event)
	}
}

func TestComputeKeyBuiltinEventWithOverride(t *testing.T) {
	set, err := rules.Parse([]byte("event_overrides:\n  christmas: Weihnachten\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := grouping.NewEngine(set)
	key := engine.ComputeKey(metaAt(time.Date(2022, 12, 25, 13, 0, 0, 0, time.UTC)), "Berlin")
	if got := key.Render(); got != "2022/12/Berlin/Weihnachten" {
		t.Fatalf("Render = %q, want 2022/12/Berlin/Weihnachten", got)
	}
}

func TestComputeKeyIsDeterministic(t *testing.T) {
	set, err := rules.Parse([]byte("location_aliases:\n  nyc: NewYork\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := grouping.NewEngine(set)
	meta := metaAt(time.Date(2021, 3, 17, 9, 0, 0, 0, time.UTC))

	first := engine.ComputeKey(meta, "NYC")
	for i := 0; i < 10; i++ {
		if got := engine.ComputeKey(meta, "NYC"); got != first {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
	if got := first.Render(); got != "2021/03/NewYork/StPatricks" {
		t.Fatalf("Render = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Paris", "Paris"},
		{"São Paulo", "SaoPaulo"},
		{"New York", "NewYork"},
		{"a/b:c", "a_b_c"},
		{"", ""},
		{"  ", "Unknown"},
		{"Zürich", "Zurich"},
	}
	for _, tc := range cases {
		if got := grouping.Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKeyRenderEquality(t *testing.T) {
	a := grouping.Key{Year: 2022, Month: time.July, Location: "Paris"}
	b := grouping.Key{Year: 2022, Month: time.July, Location: "Paris"}
	if a != b {
		t.Fatal("equal keys compare unequal")
	}
	if a.Render() != b.Render() {
		t.Fatal("equal keys render differently")
	}
}
