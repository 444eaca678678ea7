// Package catalog parses line-oriented tag catalogs into named groups.
//
// A catalog is plain text divided into sections by bracketed header lines.
// Every non-blank, non-comment line after a header is one tag, taken
// verbatim:
//
//	# full-line comment
//	[Generic]
//	red_hair female dress
//	dancing fire smile   # trailing comment stripped
//
//	[IDs]
//	102349
//
// Tags keep their insertion order and are never split on whitespace;
// duplicates are preserved. Lines that appear before the first header are
// discarded.
package catalog

import (
	"fmt"
	"os"
	"strings"
)

// Group is a named, ordered collection of tag strings.
type Group struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// MalformedHeaderError reports a header line whose closing bracket is
// missing after comment stripping.
type MalformedHeaderError struct {
	Line int    // 1-based line number in the catalog text
	Text string // the stripped line content
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header at line %d: %q has no closing bracket", e.Line, e.Text)
}

// Parser holds a catalog text buffer and the groups parsed from it.
//
// A Parser is not safe for concurrent use; Parse mutates internal state
// without synchronization.
type Parser struct {
	text   string
	groups []Group
}

// FromPath reads the file at path into a new Parser. The contents are not
// parsed yet; call Parse before Groups. File errors are returned wrapped,
// so errors.Is(err, fs.ErrNotExist) works on a missing path.
func FromPath(path string) (*Parser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return &Parser{text: string(data)}, nil
}

// FromText wraps text in a new Parser and parses it immediately, so
// Groups is valid on return.
func FromText(text string) (*Parser, error) {
	p := &Parser{text: text}
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// Groups returns the groups accumulated by the last Parse, in the order
// their headers appeared. It is empty if Parse has not run.
func (p *Parser) Groups() []Group {
	return p.groups
}

// Parse scans the buffer line by line and rebuilds the group list.
// Previously accumulated groups are discarded first, so calling Parse
// again yields the same result rather than appending duplicates.
//
// Comment stripping (everything from the first '#') applies uniformly to
// header and tag lines. A line starting with '[' that does not end with
// ']' after stripping fails the whole parse with *MalformedHeaderError.
func (p *Parser) Parse() error {
	p.groups = nil

	var current Group
	for i, raw := range splitLines(p.text) {
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line[0] == '[' {
			if !strings.HasSuffix(line, "]") {
				return &MalformedHeaderError{Line: i + 1, Text: line}
			}
			if current.Name != "" {
				p.groups = append(p.groups, current)
			}
			current = Group{Name: strings.TrimSpace(line[1 : len(line)-1])}
			continue
		}

		// Tags before the first header have no group to belong to.
		if current.Name == "" {
			continue
		}
		current.Tags = append(current.Tags, line)
	}

	// A trailing accumulator that never saw a header would be an
	// empty-named phantom group; emit only named ones.
	if current.Name != "" {
		p.groups = append(p.groups, current)
	}
	return nil
}

// splitLines splits text on \n, \r\n and bare \r line terminators.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
