// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package bibtex

import (
	"fmt"
	"os"
	"strings"
)

// Parse parses BibTeX source. The name is used in error messages only
// (conventionally the file name).
func Parse(name string, source []byte) ([]Entry, error) {
	p := &parser{
		name:          name,
		source:        source,
		line:          1,
		column:        1,
		abbreviations: map[string]string{},
	}
	return p.parse()
}

// ParseFile reads and parses a .bib file.
func ParseFile(path string) ([]Entry, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bibtex: %w", err)
	}
	return Parse(path, source)
}

type parser struct {
	name   string
	source []byte
	pos    int
	line   int
	column int

	// abbreviations collects @string definitions, applied when a bare
	// word appears in a value expression.
	abbreviations map[string]string
}

func (p *parser) parse() ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	for {
		if !p.skipToEntry() {
			return entries, nil
		}
		// p.pos is at '@'.
		p.advance()

		entryType := strings.ToLower(p.readIdentifier())
		if entryType == "" {
			return nil, p.errorf("expected entry type after '@'")
		}
		p.skipSpace()

		open, close, ok := p.readOpenDelimiter()
		if !ok {
			return nil, p.errorf("expected '{' or '(' after @%s", entryType)
		}

		switch entryType {
		case "comment", "preamble":
			if err := p.skipBalanced(open, close); err != nil {
				return nil, err
			}
			continue
		case "string":
			if err := p.parseAbbreviation(close); err != nil {
				return nil, err
			}
			continue
		}

		entry, err := p.parseEntry(entryType, close)
		if err != nil {
			return nil, err
		}
		if seen[entry.Key] {
			return nil, p.errorf("duplicate entry key %q", entry.Key)
		}
		seen[entry.Key] = true
		entries = append(entries, entry)
	}
}

// skipToEntry advances to the next '@' marker, ignoring everything in
// between (BibTeX treats text outside entries as commentary). Returns
// false at end of input.
func (p *parser) skipToEntry() bool {
	for p.pos < len(p.source) {
		if p.source[p.pos] == '@' {
			return true
		}
		p.advance()
	}
	return false
}

func (p *parser) parseEntry(entryType string, close byte) (Entry, error) {
	p.skipSpace()
	key := p.readUntil(',', close)
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, p.errorf("@%s entry has an empty key", entryType)
	}

	entry := Entry{Key: key, Type: entryType}

	for {
		p.skipSpace()
		if p.pos >= len(p.source) {
			return Entry{}, p.errorf("unterminated @%s{%s", entryType, key)
		}
		switch p.source[p.pos] {
		case close:
			p.advance()
			return entry, nil
		case ',':
			p.advance()
			continue
		}

		name := strings.ToLower(p.readIdentifier())
		if name == "" {
			return Entry{}, p.errorf("expected field name in @%s{%s", entryType, key)
		}
		p.skipSpace()
		if p.pos >= len(p.source) || p.source[p.pos] != '=' {
			return Entry{}, p.errorf("expected '=' after field %q in %s", name, key)
		}
		p.advance()

		value, err := p.parseValue(close)
		if err != nil {
			return Entry{}, err
		}

		// First occurrence wins on duplicates.
		if _, exists := entry.Fields.Get(name); !exists {
			entry.Fields = append(entry.Fields, Field{Name: name, Value: value})
		}
	}
}

// parseValue parses a value expression: one or more parts joined by
// '#'. A part is a braced group, a quoted string, or a bare word
// (number or @string abbreviation).
func (p *parser) parseValue(close byte) (string, error) {
	var parts []string
	for {
		p.skipSpace()
		if p.pos >= len(p.source) {
			return "", p.errorf("unterminated field value")
		}

		switch c := p.source[p.pos]; {
		case c == '{':
			part, err := p.readBracedGroup()
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		case c == '"':
			part, err := p.readQuotedString()
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		default:
			word := p.readIdentifier()
			if word == "" {
				return "", p.errorf("expected field value, got %q", string(c))
			}
			if expansion, ok := p.abbreviations[strings.ToLower(word)]; ok {
				parts = append(parts, expansion)
			} else {
				// Bare numbers (years, volumes) appear unquoted.
				parts = append(parts, word)
			}
		}

		p.skipSpace()
		if p.pos < len(p.source) && p.source[p.pos] == '#' {
			p.advance()
			continue
		}
		return normalizeValue(strings.Join(parts, "")), nil
	}
}

func (p *parser) parseAbbreviation(close byte) error {
	p.skipSpace()
	name := strings.ToLower(p.readIdentifier())
	if name == "" {
		return p.errorf("expected abbreviation name in @string")
	}
	p.skipSpace()
	if p.pos >= len(p.source) || p.source[p.pos] != '=' {
		return p.errorf("expected '=' in @string{%s", name)
	}
	p.advance()

	value, err := p.parseValue(close)
	if err != nil {
		return err
	}
	p.abbreviations[name] = value

	p.skipSpace()
	if p.pos >= len(p.source) || p.source[p.pos] != close {
		return p.errorf("unterminated @string{%s", name)
	}
	p.advance()
	return nil
}

// readBracedGroup consumes a balanced {...} group and returns its
// contents without the outer braces (inner braces are kept).
func (p *parser) readBracedGroup() (string, error) {
	p.advance() // opening '{'
	start := p.pos
	depth := 1
	for p.pos < len(p.source) {
		switch p.source[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				content := string(p.source[start:p.pos])
				p.advance()
				return content, nil
			}
		}
		p.advance()
	}
	return "", p.errorf("unbalanced braces in field value")
}

// readQuotedString consumes a "..." value. Braced groups inside the
// quotes may contain quote characters.
func (p *parser) readQuotedString() (string, error) {
	p.advance() // opening '"'
	start := p.pos
	depth := 0
	for p.pos < len(p.source) {
		switch p.source[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				content := string(p.source[start:p.pos])
				p.advance()
				return content, nil
			}
		}
		p.advance()
	}
	return "", p.errorf("unterminated quoted value")
}

// skipBalanced consumes input up to the matching close delimiter. For
// '(' groups, parentheses do not nest in BibTeX comments, but braces
// still do; for '{' groups, braces nest.
func (p *parser) skipBalanced(open, close byte) error {
	depth := 1
	for p.pos < len(p.source) {
		switch p.source[p.pos] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				p.advance()
				return nil
			}
		}
		p.advance()
	}
	return p.errorf("unterminated @comment or @preamble")
}

func (p *parser) readOpenDelimiter() (open, close byte, ok bool) {
	if p.pos >= len(p.source) {
		return 0, 0, false
	}
	switch p.source[p.pos] {
	case '{':
		p.advance()
		return '{', '}', true
	case '(':
		p.advance()
		return '(', ')', true
	}
	return 0, 0, false
}

// readIdentifier reads a run of identifier characters: letters,
// digits, and the punctuation BibTeX allows in type, key, and field
// names.
func (p *parser) readIdentifier() string {
	start := p.pos
	for p.pos < len(p.source) && isIdentifierByte(p.source[p.pos]) {
		p.advance()
	}
	return string(p.source[start:p.pos])
}

// readUntil reads up to (not including) the first occurrence of any
// stop byte.
func (p *parser) readUntil(stops ...byte) string {
	start := p.pos
	for p.pos < len(p.source) {
		c := p.source[p.pos]
		for _, stop := range stops {
			if c == stop {
				return string(p.source[start:p.pos])
			}
		}
		p.advance()
	}
	return string(p.source[start:])
}

func (p *parser) skipSpace() {
	for p.pos < len(p.source) && isSpaceByte(p.source[p.pos]) {
		p.advance()
	}
}

func (p *parser) advance() {
	if p.source[p.pos] == '\n' {
		p.line++
		p.column = 1
	} else {
		p.column++
	}
	p.pos++
}

func (p *parser) errorf(format string, args ...any) error {
	location := fmt.Sprintf("bibtex: %s:%d:%d: ", p.name, p.line, p.column)
	return fmt.Errorf(location+format, args...)
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentifierByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == ':' || c == '.' || c == '+' || c == '/' || c == '\'':
		return true
	}
	return false
}
