// Package output provides consistent CLI output formatting with optional colors.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
	styles   Styles
}

// New creates a plain output Writer.
func New(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: NoColorStyles(),
	}
}

// NewColor creates a Writer that always styles output.
func NewColor(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: true,
		styles:   DefaultStyles(),
	}
}

// NewAuto creates a Writer that styles output when out is a terminal
// and NO_COLOR is unset.
func NewAuto(out io.Writer) *Writer {
	if IsTTY(out) && !DetectNoColor() {
		return NewColor(out)
	}
	return New(out)
}

// render applies style only in color mode so plain output stays byte-exact.
func (w *Writer) render(style lipgloss.Style, msg string) string {
	if !w.useColor {
		return msg
	}
	return style.Render(msg)
}

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Line prints msg verbatim followed by a newline.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted line.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Dim prints a de-emphasized line.
func (w *Writer) Dim(msg string) {
	w.Line(w.render(w.styles.Dim, msg))
}

// Dimf prints a formatted de-emphasized line.
func (w *Writer) Dimf(format string, args ...any) {
	w.Dim(fmt.Sprintf(format, args...))
}

// Header prints a bold header line.
func (w *Writer) Header(msg string) {
	w.Line(w.render(w.styles.Header, msg))
}

// Status prints a status message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Line(w.render(w.styles.Success, msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Line(w.render(w.styles.Warning, msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Line(w.render(w.styles.Error, msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Table prints rows as left-aligned columns separated by two spaces.
// The first row is rendered as a header.
func (w *Writer) Table(rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, 0)
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for r, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i < len(row)-1 {
				b.WriteString(cell + strings.Repeat(" ", widths[i]-len([]rune(cell))))
			} else {
				b.WriteString(cell)
			}
		}
		if r == 0 {
			w.Header(b.String())
		} else {
			w.Line(b.String())
		}
	}
}
