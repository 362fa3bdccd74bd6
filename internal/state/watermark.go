// Package state persists the run watermark and reads the exclude list.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Watermark is the epoch-seconds boundary of the last completed run.
// Content is eligible when its shifted update time is >= the watermark.
type Watermark int64

// ParseWatermark reads the watermark file format: either the fixed
// timestamp layout this tool writes, or a bare epoch-seconds integer.
// No timezone offset is applied, unlike cache.ContentEpoch.
func ParseWatermark(s string) (Watermark, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty watermark")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Watermark(n), nil
	}
	t, err := cache.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return Watermark(t.Unix()), nil
}

// FormatWatermark renders now's wall clock in the fixed write layout.
// The wall clock is written as-is with a literal "Z", so a local clock in
// the +8 frame produces values comparable with shifted content dates.
func FormatWatermark(now time.Time) string {
	return now.Format(cache.TimestampWriteLayout)
}

// WatermarkFile reads and writes the watermark at a fixed path.
type WatermarkFile struct {
	path string
}

// NewWatermarkFile creates a handle for the watermark at path.
func NewWatermarkFile(path string) *WatermarkFile {
	return &WatermarkFile{path: path}
}

// Path returns the watermark file path.
func (w *WatermarkFile) Path() string {
	return w.path
}

// Read returns the stored watermark. A missing file yields 0 with no error.
// A malformed file yields 0 with an ErrCodeWatermarkMalformed warning error
// so callers can log it and index everything.
func (w *WatermarkFile) Read() (Watermark, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, synerr.New(synerr.ErrCodeWatermarkMalformed,
			fmt.Sprintf("error loading last index time from %s", w.path), err)
	}

	wm, err := ParseWatermark(string(data))
	if err != nil {
		return 0, synerr.New(synerr.ErrCodeWatermarkMalformed,
			fmt.Sprintf("error loading last index time from %s", w.path), err).
			WithDetail("path", w.path)
	}
	return wm, nil
}

// Write stores now as the new watermark, replacing the file atomically.
func (w *WatermarkFile) Write(now time.Time) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".watermark-*")
	if err != nil {
		return fmt.Errorf("failed to create temp watermark file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(FormatWatermark(now)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close watermark file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace watermark file: %w", err)
	}
	return nil
}
