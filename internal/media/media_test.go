package media_test

import (
	"testing"
	"time"

	"shoebox/internal/media"
)

func TestKindForExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want media.Kind
	}{
		{".jpg", media.KindPhoto},
		{"JPEG", media.KindPhoto},
		{" .HEIC ", media.KindPhoto},
		{"mov", media.KindVideo},
		{".mp4", media.KindVideo},
		{".txt", media.KindUnknown},
		{"", media.KindUnknown},
	}
	for _, tc := range cases {
		if got := media.KindForExtension(tc.ext); got != tc.want {
			t.Errorf("KindForExtension(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}

func TestCoordinatesValid(t *testing.T) {
	valid := media.Coordinates{Lat: 48.8584, Lon: 2.2945}
	if !valid.Valid() {
		t.Error("Paris coordinates reported invalid")
	}
	for _, c := range []media.Coordinates{
		{Lat: 91, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: 0, Lon: -181},
	} {
		if c.Valid() {
			t.Errorf("%+v reported valid", c)
		}
	}
}

func TestCoordinatesKey(t *testing.T) {
	a := media.Coordinates{Lat: 48.85840001, Lon: 2.29450001}
	b := media.Coordinates{Lat: 48.85840002, Lon: 2.29450002}
	if a.Key() != b.Key() {
		t.Errorf("near-identical positions got distinct keys: %q vs %q", a.Key(), b.Key())
	}
	far := media.Coordinates{Lat: 48.8585, Lon: 2.2945}
	if a.Key() == far.Key() {
		t.Error("distinct positions share a key")
	}
}

func TestFileRecordSameIdentity(t *testing.T) {
	now := time.Now()
	base := media.FileRecord{Path: "/photos/a.jpg", Size: 100, ModTime: now}

	if !base.SameIdentity(media.FileRecord{Path: "/photos/a.jpg", Size: 100, ModTime: now}) {
		t.Error("identical record not recognized")
	}
	// ModTime comparison is semantic, not struct equality.
	if !base.SameIdentity(media.FileRecord{Path: "/photos/a.jpg", Size: 100, ModTime: now.UTC()}) {
		t.Error("equal instants in different locations not recognized")
	}
	for _, other := range []media.FileRecord{
		{Path: "/photos/b.jpg", Size: 100, ModTime: now},
		{Path: "/photos/a.jpg", Size: 101, ModTime: now},
		{Path: "/photos/a.jpg", Size: 100, ModTime: now.Add(time.Second)},
	} {
		if base.SameIdentity(other) {
			t.Errorf("%+v reported same identity", other)
		}
	}
}

func TestMetadataPredicates(t *testing.T) {
	var m media.Metadata
	if m.HasCaptureTime() || m.HasLocation() {
		t.Error("empty metadata reports fields present")
	}

	when := time.Date(2022, 7, 14, 12, 0, 0, 0, time.UTC)
	m.CapturedAt = &when
	m.Location = &media.Coordinates{Lat: 48.8584, Lon: 2.2945}
	if !m.HasCaptureTime() || !m.HasLocation() {
		t.Error("populated metadata reports fields absent")
	}

	m.Location = &media.Coordinates{Lat: 200, Lon: 0}
	if m.HasLocation() {
		t.Error("out-of-range coordinates reported as a location")
	}
}
