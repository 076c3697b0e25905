package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a media file by its container family.
type Kind string

const (
	KindPhoto   Kind = "photo"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// KindForExtension maps a file extension (with or without leading dot) to a Kind.
func KindForExtension(ext string) Kind {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch normalized {
	case "jpg", "jpeg", "png", "gif", "tiff", "webp", "heic", "hif", "dng", "arw", "cr2", "nef", "raf":
		return KindPhoto
	case "mp4", "mov", "avi", "mkv":
		return KindVideo
	default:
		return KindUnknown
	}
}

// Coordinates is a GPS position in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Valid reports whether both components fall inside WGS84 ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Key renders a stable cache key for the position. Six decimal places keeps
// lookups for near-identical positions shared without conflating distinct ones.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// FileRecord is the identity snapshot of a candidate file. Size and ModTime
// guard cache validity; a record is never mutated after the stat that built it.
type FileRecord struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Name returns the base file name.
func (r FileRecord) Name() string {
	return filepath.Base(r.Path)
}

// SameIdentity reports whether another record describes the same unchanged file.
func (r FileRecord) SameIdentity(other FileRecord) bool {
	return r.Path == other.Path && r.Size == other.Size && r.ModTime.Equal(other.ModTime)
}

// Metadata holds everything extraction learned about a file. Absent fields mean
// unknown; nothing here is ever inferred from neighboring files or file times.
type Metadata struct {
	CapturedAt *time.Time
	Location   *Coordinates
	Kind       Kind
}

// HasCaptureTime reports whether a capture timestamp was decoded.
func (m Metadata) HasCaptureTime() bool {
	return m.CapturedAt != nil
}

// HasLocation reports whether GPS coordinates were decoded.
func (m Metadata) HasLocation() bool {
	return m.Location != nil && m.Location.Valid()
}
