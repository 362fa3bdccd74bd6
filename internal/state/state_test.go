package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

func TestParseWatermark(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Watermark
	}{
		{"epoch seconds", "1469239200", 1469239200},
		{"epoch with whitespace", " 1469239200\n", 1469239200},
		{"timestamp no offset", "2016-07-23T02:00:00.000000Z", 1469239200},
		{"timestamp millis", "2016-07-23T02:00:00.000Z", 1469239200},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWatermark(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWatermark_Malformed(t *testing.T) {
	for _, s := range []string{"", "   ", "last tuesday", "2016/07/23"} {
		_, err := ParseWatermark(s)
		assert.Error(t, err, s)
	}
}

func TestFormatWatermark_UsesWallClock(t *testing.T) {
	// Given: a local clock in a +8 zone
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2026, 10, 16, 20, 30, 15, 123456000, loc)

	// Then: the wall clock is written with a literal Z
	assert.Equal(t, "2026-10-16T20:30:15.123456Z", FormatWatermark(now))
}

func TestWatermarkFile_MissingFileIsZero(t *testing.T) {
	wf := NewWatermarkFile(filepath.Join(t.TempDir(), ".es-last-index-time"))

	wm, err := wf.Read()

	require.NoError(t, err)
	assert.Equal(t, Watermark(0), wm)
}

func TestWatermarkFile_MalformedFallsBackToZero(t *testing.T) {
	// Given: a corrupted watermark file
	path := filepath.Join(t.TempDir(), ".es-last-index-time")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	// When: reading it
	wm, err := NewWatermarkFile(path).Read()

	// Then: zero watermark with a non-fatal warning
	assert.Equal(t, Watermark(0), wm)
	require.Error(t, err)
	assert.Equal(t, synerr.ErrCodeWatermarkMalformed, synerr.GetCode(err))
	assert.False(t, synerr.IsFatal(err))
}

func TestWatermarkFile_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".es-last-index-time")
	wf := NewWatermarkFile(path)
	now := time.Date(2016, 7, 23, 2, 0, 0, 0, time.UTC)

	require.NoError(t, wf.Write(now))
	wm, err := wf.Read()

	require.NoError(t, err)
	assert.Equal(t, Watermark(1469239200), wm)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2016-07-23T02:00:00.000000Z", string(data))
}

func TestParseExcludes_TrimsLines(t *testing.T) {
	set, err := ParseExcludes(strings.NewReader("/about/index.html  \n\n  /t/hello.html\r\n"))

	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("/about/index.html"))
	assert.True(t, set.Contains("/t/hello.html"))
	assert.False(t, set.Contains(""))
}

func TestLoadExcludes_MissingFileIsEmpty(t *testing.T) {
	set, err := LoadExcludes(filepath.Join(t.TempDir(), ".es-exclude-articles"))

	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestLoadExcludes_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".es-exclude-articles")
	require.NoError(t, os.WriteFile(path, []byte("/secret.html\n"), 0o644))

	set, err := LoadExcludes(path)

	require.NoError(t, err)
	assert.True(t, set.Contains("/secret.html"))
}
