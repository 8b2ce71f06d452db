package cfgmerge

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var sectionHeaderPattern = regexp.MustCompile(`^\[.+\]$`)

// Document is a configuration file held as an ordered list of lines.
//
// Options belong to the nearest preceding section header. Lookups are
// positional and the only mutations are line replacement and insertion, so
// comments, blank-line grouping and ordering of the original text survive a
// round trip untouched.
type Document struct {
	lines []string
}

// NewDocument splits text into lines. A trailing newline does not produce an
// empty final line.
func NewDocument(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return &Document{}
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return &Document{lines: lines}
}

// LoadDocument reads the file at path into a Document.
func LoadDocument(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config template %q: %w", path, err)
	}

	return NewDocument(string(content)), nil
}

// Lines returns a copy of the document lines.
func (d *Document) Lines() []string {
	return append([]string(nil), d.lines...)
}

// Len returns the number of lines.
func (d *Document) Len() int {
	return len(d.lines)
}

// String joins the lines with newlines and terminates the text with a final
// newline.
func (d *Document) String() string {
	return strings.Join(d.lines, "\n") + "\n"
}

// IsSectionHeader reports whether line, once trimmed, looks like "[name]".
func IsSectionHeader(line string) bool {
	return sectionHeaderPattern.MatchString(strings.TrimSpace(line))
}

// FindSection returns the index of the first "[name]" header.
func (d *Document) FindSection(name string) (int, bool) {
	header := "[" + name + "]"
	for i, line := range d.lines {
		if strings.TrimSpace(line) == header {
			return i, true
		}
	}

	return 0, false
}

// AppendSection adds a "[name]" header at the end of the document, preceded
// by a blank separator unless the document is empty, and returns the index of
// the header.
func (d *Document) AppendSection(name string) int {
	if len(d.lines) > 0 {
		d.lines = append(d.lines, "")
	}
	d.lines = append(d.lines, "["+name+"]")

	return len(d.lines) - 1
}

// FindOption scans forward from start for a "key = value" line. The scan
// stops at the next section header.
func (d *Document) FindOption(start int, key string) (int, bool) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `\s*=\s*.+$`)
	for i := max(start, 0); i < len(d.lines); i++ {
		line := d.lines[i]
		if pattern.MatchString(strings.TrimSpace(line)) {
			return i, true
		}
		if IsSectionHeader(line) {
			break
		}
	}

	return 0, false
}

// InsertOption adds "key = value" to the section whose header sits at
// sectionIndex. The line goes right after the last non-blank line of the
// section, so a blank separator before the next section is kept in place.
func (d *Document) InsertOption(sectionIndex int, key, value string) {
	line := formatOption(key, value)
	start := sectionIndex + 1

	if start >= len(d.lines) {
		d.lines = append(d.lines, line)
		return
	}

	end := start
	for end < len(d.lines) && !IsSectionHeader(d.lines[end]) {
		end++
	}

	at := end
	for at > start && strings.TrimSpace(d.lines[at-1]) == "" {
		at--
	}

	d.lines = append(d.lines, "")
	copy(d.lines[at+1:], d.lines[at:])
	d.lines[at] = line
}

// SetOption overwrites the "key = value" line of section, inserting the
// option, and the section itself, when they do not exist yet.
func (d *Document) SetOption(section, key, value string) {
	sectionIndex, ok := d.FindSection(section)
	if !ok {
		sectionIndex = d.AppendSection(section)
	}

	if optionIndex, ok := d.FindOption(sectionIndex+1, key); ok {
		d.lines[optionIndex] = formatOption(key, value)
		return
	}

	d.InsertOption(sectionIndex, key, value)
}

func formatOption(key, value string) string {
	return key + " = " + value
}
