package metadata

import (
	"io"

	"github.com/rwcarlsen/goexif/exif"

	"shoebox/internal/media"
)

// exifDecoder parses EXIF blocks from JPEG/TIFF-family files.
type exifDecoder struct{}

func (exifDecoder) Decode(r io.Reader) (media.Metadata, error) {
	raw, err := exif.Decode(r)
	if err != nil {
		return media.Metadata{}, err
	}

	var meta media.Metadata
	if captured, err := raw.DateTime(); err == nil {
		meta.CapturedAt = &captured
	}
	if lat, lon, err := raw.LatLong(); err == nil {
		coords := media.Coordinates{Lat: lat, Lon: lon}
		if coords.Valid() {
			meta.Location = &coords
		}
	}
	return meta, nil
}
