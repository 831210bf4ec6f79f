package extract

import (
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"time"

	// Image format decoders for dimension probing
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"

	"frame-cache/internal/database"
	"frame-cache/internal/logging"
)

// Extractor is the metadata extraction capability consumed by the cache's
// update cycle. Implementations return best-effort metadata; an error means
// the file itself could not be read.
type Extractor interface {
	Extract(path string) (*database.Meta, error)
}

// Exif extracts metadata using the file's EXIF block and a header-only
// image decode for pixel dimensions.
type Exif struct{}

// NewExif returns the EXIF-based Extractor.
func NewExif() *Exif {
	return &Exif{}
}

// exifTimeLayout is the timestamp format EXIF uses for DateTimeOriginal.
const exifTimeLayout = "2006:01:02 15:04:05"

// ratingField is not in goexif's standard field table; looked up by name so
// images written by tools that include it still get a rating.
const ratingField = exif.FieldName("Rating")

// Extract reads metadata for the image at path. Fields that cannot be
// decoded fall back to schema defaults; the capture time falls back to the
// file's modification time. Only a stat/open failure returns an error.
func (e *Exif) Extract(path string) (*database.Meta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	meta := database.NewMeta()
	meta.TakenAt = unixSeconds(info.ModTime())

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	} else {
		logging.Debug("no decodable image header in %s: %v", path, err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return &meta, nil
	}

	x, err := exif.Decode(f)
	if err != nil {
		// Common for PNGs and files written without EXIF; dimensions and
		// mtime fallback above still apply.
		logging.Debug("no EXIF data in %s: %v", path, err)
		return &meta, nil
	}

	fillExif(&meta, x)
	meta.Width, meta.Height = orientDimensions(meta.Orientation, meta.Width, meta.Height)

	return &meta, nil
}

// fillExif copies the interesting EXIF tags into meta.
func fillExif(meta *database.Meta, x *exif.Exif) {
	if v, ok := intTag(x, exif.Orientation); ok {
		meta.Orientation = v
	}
	if v, ok := ratTag(x, exif.FNumber); ok {
		meta.FNumber = v
	}
	if v, ok := intTag(x, exif.ISOSpeedRatings); ok {
		meta.ISO = float64(v)
	}
	if s, ok := exposureTag(x); ok {
		meta.ExposureTime = &s
	}
	if v, ok := ratTag(x, exif.FocalLength); ok {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		meta.FocalLength = &s
	}
	if s, ok := stringTag(x, exif.Make); ok {
		meta.Make = &s
	}
	if s, ok := stringTag(x, exif.Model); ok {
		meta.Model = &s
	}
	if s, ok := stringTag(x, exif.LensModel); ok {
		meta.Lens = &s
	}
	if v, ok := intTag(x, ratingField); ok {
		r := int64(v)
		meta.Rating = &r
	}
	if s, ok := stringTag(x, exif.DateTimeOriginal); ok {
		if t, err := time.ParseInLocation(exifTimeLayout, s, time.Local); err == nil {
			meta.TakenAt = unixSeconds(t)
		}
	}
	if lat, lon, err := x.LatLong(); err == nil {
		rlat, rlon := RoundCoord(lat), RoundCoord(lon)
		meta.Latitude = &rlat
		meta.Longitude = &rlon
	}
}

// orientDimensions swaps width and height for the side-on rotations
// (EXIF orientations 5 through 8) so stored dimensions reflect the image
// as displayed.
func orientDimensions(orientation, width, height int) (int, int) {
	switch orientation {
	case 5, 6, 7, 8:
		return height, width
	default:
		return width, height
	}
}

// RoundCoord rounds a GPS coordinate to 4 decimal places, the resolution
// at which near-duplicate readings collapse onto one cached geocode result.
func RoundCoord(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func intTag(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

func ratTag(x *exif.Exif, name exif.FieldName) (float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// exposureTag formats the exposure time the way cameras report it, as a
// fraction for sub-second exposures.
func exposureTag(x *exif.Exif) (string, bool) {
	tag, err := x.Get(exif.ExposureTime)
	if err != nil {
		return "", false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return "", false
	}
	if den == 1 {
		return strconv.FormatInt(num, 10), true
	}
	return fmt.Sprintf("%d/%d", num, den), true
}
