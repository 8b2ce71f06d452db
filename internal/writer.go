package internal

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/docker/cli/cli/streams"
	"github.com/fatih/color"
	"github.com/moby/term"
)

const (
	// resultColumnWidth is the width reserved at the end of a status line for
	// its result ("OK!", "[ 42.00%]", ...).
	resultColumnWidth = 10

	defaultTerminalWidth = 80
)

var (
	ColorOK        = color.New(color.FgGreen, color.Bold)
	ColorWarning   = color.New(color.FgYellow, color.Bold)
	ColorFailure   = color.New(color.FgRed, color.Bold)
	ColorHighlight = color.New(color.FgMagenta, color.Bold)
)

var ansiEscapePattern = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// Writer provides methods for output operations that library code needs.
// This allows callers to control where and how output is written, rather than
// forcing library code to use global state like fmt.Print or log.Fatal.
type Writer interface {
	// Print writes a message to the output stream.
	Print(v ...interface{})

	// Printf writes a formatted message to the output stream.
	Printf(format string, v ...interface{})

	// Println writes a message with a newline to the output stream.
	Println(v ...interface{})

	// Warning writes a warning message to the error stream.
	Warning(v ...interface{})

	// Warningf writes a formatted warning message to the error stream.
	Warningf(format string, v ...interface{})

	// Status starts a status line describing a step in progress.
	Status(message string)

	// Result ends the current status line with an outcome such as "OK!".
	// c may be nil for uncolored output.
	Result(message string, c *color.Color)

	// Progress replaces the result column of the current status line with a
	// percentage.
	Progress(percent float64)

	// GetWriter returns the underlying io.Writer for direct writing.
	GetWriter() io.Writer
}

// StandardWriter implements Writer on top of a terminal aware output stream.
// When the output is not a terminal, status lines are printed plainly and
// progress updates are dropped.
type StandardWriter struct {
	out *streams.Out
	err io.Writer
}

// NewStandardWriter creates a Writer that outputs to stdout and stderr.
func NewStandardWriter() *StandardWriter {
	_, stdout, stderr := term.StdStreams()
	return &StandardWriter{
		out: streams.NewOut(stdout),
		err: stderr,
	}
}

// NewCustomWriter creates a Writer with custom output streams.
// The out stream is used for normal output, while err is used for warnings.
func NewCustomWriter(out, err io.Writer) *StandardWriter {
	return &StandardWriter{
		out: streams.NewOut(out),
		err: err,
	}
}

// Print writes a message to the output stream without adding a newline.
func (w *StandardWriter) Print(v ...interface{}) {
	fmt.Fprint(w.out, v...)
}

// Printf writes a formatted message to the output stream.
func (w *StandardWriter) Printf(format string, v ...interface{}) {
	fmt.Fprintf(w.out, format, v...)
}

// Println writes a message with a newline to the output stream.
func (w *StandardWriter) Println(v ...interface{}) {
	fmt.Fprintln(w.out, v...)
}

// Warning writes a warning message to the error stream with a "Warning: " prefix.
func (w *StandardWriter) Warning(v ...interface{}) {
	fmt.Fprint(w.err, "Warning: ")
	fmt.Fprintln(w.err, v...)
}

// Warningf writes a formatted warning message to the error stream with a "Warning: " prefix.
func (w *StandardWriter) Warningf(format string, v ...interface{}) {
	fmt.Fprintf(w.err, "Warning: "+format+"\n", v...)
}

// Status pads message to the terminal width so that Result can right-align
// its outcome on the same line.
func (w *StandardWriter) Status(message string) {
	if !w.out.IsTerminal() {
		fmt.Fprint(w.out, message)
		return
	}

	padding := w.width() - 1 - VisibleLength(message)
	fmt.Fprint(w.out, message+strings.Repeat(" ", max(padding, 0)))
}

// Result writes message into the result column and ends the line.
func (w *StandardWriter) Result(message string, c *color.Color) {
	w.result(message, c, true)
}

// Progress writes a percentage into the result column without ending the
// line, so it is overwritten by the next update.
func (w *StandardWriter) Progress(percent float64) {
	if !w.out.IsTerminal() {
		return
	}

	w.result(fmt.Sprintf("[%6.2f%%]", percent), nil, false)
}

// GetWriter returns the underlying io.Writer for direct writing to the output stream.
func (w *StandardWriter) GetWriter() io.Writer {
	return w.out
}

func (w *StandardWriter) result(message string, c *color.Color, newline bool) {
	if !w.out.IsTerminal() {
		if c != nil {
			message = c.Sprint(message)
		}
		fmt.Fprintln(w.out, " "+message)
		return
	}

	text := fmt.Sprintf("%*s", resultColumnWidth+1, message)
	if c != nil {
		text = c.Sprint(text)
	}

	fmt.Fprint(w.out, strings.Repeat("\b", resultColumnWidth)+text)
	if newline {
		fmt.Fprintln(w.out)
	}
}

func (w *StandardWriter) width() int {
	_, width := w.out.GetTtySize()
	if width == 0 {
		return defaultTerminalWidth
	}
	return int(width)
}

// VisibleLength returns the number of characters of s a terminal displays,
// ignoring ANSI escape sequences.
func VisibleLength(s string) int {
	return utf8.RuneCountInString(ansiEscapePattern.ReplaceAllString(s, ""))
}

// Highlight renders s in the highlight color.
func Highlight(s string) string {
	return ColorHighlight.Sprint(s)
}
