// Package metadata extracts capture timestamps and GPS coordinates from media
// files and memoizes the results keyed by file identity.
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"shoebox/internal/media"
)

// Decoder reads raw metadata for one file format family. A decoder error means
// "no metadata available", never a failed extraction.
type Decoder interface {
	Decode(r io.Reader) (media.Metadata, error)
}

// Extractor resolves a file path to media metadata via registered decoders.
// It holds no mutable state after construction and is safe for concurrent use.
type Extractor struct {
	decoders map[string]Decoder
}

// NewExtractor returns an extractor with the EXIF decoder registered for the
// photo formats that commonly embed EXIF blocks.
func NewExtractor() *Extractor {
	e := &Extractor{decoders: make(map[string]Decoder)}
	e.Register(exifDecoder{}, ".jpg", ".jpeg", ".tiff", ".heic", ".hif", ".dng", ".arw", ".cr2", ".nef", ".raf")
	return e
}

// Register associates a decoder with the given extensions (leading dot,
// matched case-insensitively). Later registrations win.
func (e *Extractor) Register(dec Decoder, exts ...string) {
	for _, ext := range exts {
		e.decoders[strings.ToLower(ext)] = dec
	}
}

// Extract reads metadata for the file at path. An unreadable file returns an
// error; a readable file whose format has no decoder, or whose decoder cannot
// make sense of the bytes, returns metadata with unknown fields and no error.
func (e *Extractor) Extract(path string) (media.Metadata, error) {
	ext := strings.ToLower(filepath.Ext(path))
	meta := media.Metadata{Kind: media.KindForExtension(ext)}

	dec, ok := e.decoders[ext]
	if !ok {
		return meta, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	decoded, err := dec.Decode(file)
	if err != nil {
		// Corrupt or EXIF-less file: the fields stay unknown.
		return meta, nil
	}
	decoded.Kind = meta.Kind
	if decoded.Location != nil && !decoded.Location.Valid() {
		decoded.Location = nil
	}
	return decoded, nil
}
