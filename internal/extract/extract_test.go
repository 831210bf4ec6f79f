package extract

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRoundCoord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "westminster lat", in: 51.50123456, want: 51.5012},
		{name: "westminster lon", in: -0.12783210, want: -0.1278},
		{name: "already rounded", in: 48.8584, want: 48.8584},
		{name: "zero", in: 0, want: 0},
		{name: "negative rounds away", in: -12.34567, want: -12.3457},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RoundCoord(tt.in); got != tt.want {
				t.Errorf("RoundCoord(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrientDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		orientation           int
		wantWidth, wantHeight int
	}{
		{orientation: 1, wantWidth: 400, wantHeight: 300},
		{orientation: 2, wantWidth: 400, wantHeight: 300},
		{orientation: 3, wantWidth: 400, wantHeight: 300},
		{orientation: 4, wantWidth: 400, wantHeight: 300},
		{orientation: 5, wantWidth: 300, wantHeight: 400},
		{orientation: 6, wantWidth: 300, wantHeight: 400},
		{orientation: 7, wantWidth: 300, wantHeight: 400},
		{orientation: 8, wantWidth: 300, wantHeight: 400},
		{orientation: 0, wantWidth: 400, wantHeight: 300},
	}

	for _, tt := range tests {
		w, h := orientDimensions(tt.orientation, 400, 300)
		if w != tt.wantWidth || h != tt.wantHeight {
			t.Errorf("orientDimensions(%d, 400, 300) = %d, %d, want %d, %d",
				tt.orientation, w, h, tt.wantWidth, tt.wantHeight)
		}
	}
}

// writePNG writes a small PNG and pins its modification time.
func writePNG(t *testing.T, dir, name string, width, height int, mtime time.Time) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestExtractPNGDimensionsAndMtimeFallback(t *testing.T) {
	t.Parallel()

	mtime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	path := writePNG(t, t.TempDir(), "shot.png", 640, 480, mtime)

	meta, err := NewExif().Extract(path)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if meta.Width != 640 || meta.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", meta.Width, meta.Height)
	}
	if meta.Orientation != 1 {
		t.Errorf("Orientation = %d, want default 1", meta.Orientation)
	}
	// PNGs carry no EXIF, so the capture time is the file's mtime.
	if got := meta.TakenAt; math.Abs(got-float64(mtime.Unix())) > 1e-6 {
		t.Errorf("TakenAt = %v, want %v", got, mtime.Unix())
	}
	if meta.Latitude != nil || meta.Longitude != nil {
		t.Error("expected no coordinates without EXIF GPS data")
	}
	if meta.Make != nil || meta.Model != nil || meta.Rating != nil {
		t.Error("expected nil camera fields without EXIF data")
	}
}

func TestExtractUndecodableFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	mtime := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// An unreadable payload is not an extraction error; everything falls
	// back to defaults so the file still gets an index row.
	meta, err := NewExif().Extract(path)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if meta.Width != 0 || meta.Height != 0 {
		t.Errorf("dimensions = %dx%d, want 0x0", meta.Width, meta.Height)
	}
	if math.Abs(meta.TakenAt-float64(mtime.Unix())) > 1e-6 {
		t.Errorf("TakenAt = %v, want %v", meta.TakenAt, mtime.Unix())
	}
}

func TestExtractMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := NewExif().Extract(filepath.Join(t.TempDir(), "gone.jpg")); err == nil {
		t.Error("Extract() succeeded on a missing file")
	}
}
