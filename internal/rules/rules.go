// Package rules holds the user-configurable grouping rules: location aliases,
// event label overrides, and custom date-range events. Rules are data, not
// code; a validated Set is immutable once loaded and is snapshotted into each
// job so mid-job edits to the rules file cannot change a running grouping.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Event is a user-defined date-range rule. When a capture date falls inside
// [Start, End] (and Location, if set, matches the resolved place) the event
// name becomes the GroupKey's event label.
type Event struct {
	Name     string `yaml:"name" json:"name"`
	Start    Date   `yaml:"start" json:"start"`
	End      Date   `yaml:"end" json:"end"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
}

// Set is the full validated rule configuration.
type Set struct {
	LocationAliases map[string]string `yaml:"location_aliases" json:"locationAliases,omitempty"`
	EventOverrides  map[string]string `yaml:"event_overrides" json:"eventOverrides,omitempty"`
	CustomEvents    []Event           `yaml:"custom_events" json:"customEvents,omitempty"`
}

// Empty returns a rule set with no entries.
func Empty() *Set {
	return &Set{
		LocationAliases: map[string]string{},
		EventOverrides:  map[string]string{},
	}
}

// Load reads and validates a YAML rules file. An empty path yields the empty
// set. Malformed content fails here, before any job is created.
func Load(path string) (*Set, error) {
	if strings.TrimSpace(path) == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML rule content.
func Parse(data []byte) (*Set, error) {
	set := Empty()
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	set.normalize()
	return set, nil
}

func (s *Set) validate() error {
	for key, value := range s.LocationAliases {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return fmt.Errorf("location alias %q -> %q: neither side may be empty", key, value)
		}
	}
	for key, value := range s.EventOverrides {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return fmt.Errorf("event override %q -> %q: neither side may be empty", key, value)
		}
	}
	for i, event := range s.CustomEvents {
		if strings.TrimSpace(event.Name) == "" {
			return fmt.Errorf("custom event %d: name is required", i)
		}
		if event.Start.IsZero() {
			return fmt.Errorf("custom event %q: start date is required", event.Name)
		}
		if !event.End.IsZero() && event.End.Before(event.Start.Time) {
			return fmt.Errorf("custom event %q: end %s precedes start %s", event.Name, event.End, event.Start)
		}
	}
	return nil
}

func (s *Set) normalize() {
	aliases := make(map[string]string, len(s.LocationAliases))
	for key, value := range s.LocationAliases {
		aliases[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	s.LocationAliases = aliases

	overrides := make(map[string]string, len(s.EventOverrides))
	for key, value := range s.EventOverrides {
		overrides[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	s.EventOverrides = overrides

	for i := range s.CustomEvents {
		event := &s.CustomEvents[i]
		event.Name = strings.TrimSpace(event.Name)
		event.Location = strings.ToLower(strings.TrimSpace(event.Location))
		if event.End.IsZero() {
			event.End = event.Start
		}
	}
}

// Alias maps a place label through the alias table; unknown labels pass through.
func (s *Set) Alias(place string) string {
	if alias, ok := s.LocationAliases[strings.ToLower(place)]; ok {
		return alias
	}
	return place
}

// Override maps an event label through the override table.
func (s *Set) Override(event string) string {
	if event == "" {
		return event
	}
	if replaced, ok := s.EventOverrides[strings.ToLower(event)]; ok {
		return replaced
	}
	return event
}

// MatchCustomEvent returns the first custom event whose range contains day and
// whose location constraint (if any) matches place. Declaration order decides
// ties, so the rule order in the file is significant.
func (s *Set) MatchCustomEvent(day time.Time, place string) string {
	placeKey := strings.ToLower(place)
	dateOnly := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	for _, event := range s.CustomEvents {
		if dateOnly.Before(event.Start.Time) || dateOnly.After(event.End.Time) {
			continue
		}
		if event.Location != "" && event.Location != placeKey {
			continue
		}
		return event.Name
	}
	return ""
}
