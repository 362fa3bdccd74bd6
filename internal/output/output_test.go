package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔍", "Pinging engine...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Pinging engine...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_PlainModeIsByteExact(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing through every styled method
	w.Success("2 articles indexed successfully, 1 failed.")
	w.Warning("- Article Secret omitted")
	w.Error("# Broken> failed to parse (bad date)")
	w.Dim("Loaded post: Hello\tWorld")
	w.Header("RUN")

	// Then: no escape codes and no tab expansion
	assert.Equal(t,
		"2 articles indexed successfully, 1 failed.\n"+
			"- Article Secret omitted\n"+
			"# Broken> failed to parse (bad date)\n"+
			"Loaded post: Hello\tWorld\n"+
			"RUN\n",
		buf.String())
}

func TestWriter_ColorModeKeepsText(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewColor(buf)

	w.Error("boom")

	assert.Contains(t, buf.String(), "boom")
}

func TestWriter_Statusf_FormatsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Statusf("📂", "Loaded %d articles from %s", 42, "db.json")

	assert.Contains(t, buf.String(), "Loaded 42 articles from db.json")
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Newline()

	assert.Equal(t, "\n", buf.String())
}

func TestWriter_Table_AlignsColumns(t *testing.T) {
	// Given: rows of varying width
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a table
	w.Table([][]string{
		{"ID", "OUTCOME", "INDEXED"},
		{"1", "all_succeeded", "3"},
		{"12", "fatal", "0"},
	})

	// Then: columns are padded to the widest cell
	assert.Equal(t,
		"ID  OUTCOME        INDEXED\n"+
			"1   all_succeeded  3\n"+
			"12  fatal          0\n",
		buf.String())
}

func TestWriter_Table_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Table(nil)
	assert.Empty(t, buf.String())
}

func TestNewAuto_NonTTYIsPlain(t *testing.T) {
	// Given: a regular file, never a terminal
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	// When: creating an auto writer
	w := NewAuto(f)

	// Then: color is disabled
	assert.False(t, w.useColor)
	assert.False(t, IsTTY(f))
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestGetStyles(t *testing.T) {
	plain := GetStyles(true)
	assert.Equal(t, "x", plain.Error.Render("x"))
}
