package grouping

import (
	"fmt"
	"path"
	"time"
)

// NoDateLabel replaces the year/month segments when a file has no capture time.
const NoDateLabel = "NoDate"

// Key is the computed destination-folder identity for a file. Two files with
// an equal Key always render to the identical destination folder.
type Key struct {
	Year     int        `json:"year,omitempty"`
	Month    time.Month `json:"month,omitempty"`
	Location string     `json:"location"`
	Event    string     `json:"event,omitempty"`
}

// HasDate reports whether the key carries a year/month pair.
func (k Key) HasDate() bool {
	return k.Year != 0 && k.Month >= time.January && k.Month <= time.December
}

// Render produces the destination folder path for the key:
// "YYYY/MM/Location" with an optional trailing event segment, or
// "NoDate/Location" when the capture time is unknown.
func (k Key) Render() string {
	var segments []string
	if k.HasDate() {
		segments = append(segments, fmt.Sprintf("%04d", k.Year), fmt.Sprintf("%02d", int(k.Month)))
	} else {
		segments = append(segments, NoDateLabel)
	}
	segments = append(segments, k.Location)
	if k.Event != "" {
		segments = append(segments, k.Event)
	}
	return path.Join(segments...)
}

func (k Key) String() string {
	return k.Render()
}
