// Package ics parses iCalendar content lines (RFC 5545 §3.1) without
// ever rejecting input: every line yields a Property, however malformed.
package ics

import (
	"strings"
)

// Property is one parsed content line.
type Property struct {
	// Name is the upper-cased property name, e.g. "DTSTART".
	Name string
	// Params holds each parameter's values with quotes stripped.
	// A parameter written without "=" maps to an empty slice.
	Params map[string][]string
	// Value is everything after the first unquoted colon.
	Value string

	key string
}

// Key returns the raw text before the value separator, parameters
// included, e.g. "DTSTART;TZID=Europe/Moscow".
func (p Property) Key() string { return p.key }

// Param returns the first value of the named parameter or "".
func (p Property) Param(name string) string {
	vs := p.Params[strings.ToUpper(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// HasParam reports whether the parameter was present at all.
func (p Property) HasParam(name string) bool {
	_, ok := p.Params[strings.ToUpper(name)]
	return ok
}

// Unfold splits raw iCalendar text into logical lines. Continuation lines
// (leading space or tab) are joined to their predecessor; blank lines are
// dropped. Both CRLF and bare LF endings are accepted.
func Unfold(raw string) []string {
	physical := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(physical))

	for _, l := range physical {
		l = strings.TrimSuffix(l, "\r")
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// ParseLine parses a single unfolded content line. A line without a colon
// becomes a property whose key is the whole line and whose value is empty.
func ParseLine(line string) Property {
	key, value := splitValue(line)

	p := Property{
		Value:  value,
		Params: map[string][]string{},
		key:    key,
	}

	parts := splitQuoted(key, ';')
	p.Name = strings.ToUpper(strings.TrimSpace(parts[0]))

	for _, raw := range parts[1:] {
		if raw == "" {
			continue
		}
		name, vals, hasEq := strings.Cut(raw, "=")
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !hasEq {
			if _, ok := p.Params[name]; !ok {
				p.Params[name] = []string{}
			}
			continue
		}
		for _, v := range splitQuoted(vals, ',') {
			p.Params[name] = append(p.Params[name], unquote(v))
		}
	}

	return p
}

// Parse unfolds raw and parses every line.
func Parse(raw string) []Property {
	lines := Unfold(raw)
	props := make([]Property, 0, len(lines))
	for _, l := range lines {
		props = append(props, ParseLine(l))
	}
	return props
}

// splitValue cuts line at the first colon outside double quotes.
func splitValue(line string) (string, string) {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ':':
			if !inQuote {
				return line[:i], line[i+1:]
			}
		}
	}
	return line, ""
}

// splitQuoted splits s on sep, ignoring separators inside double quotes.
// It always returns at least one element.
func splitQuoted(s string, sep byte) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// NewProperty builds a Property from already-split parts, for callers that
// get properties from another decoder.
func NewProperty(name string, params map[string][]string, value string) Property {
	p := Property{
		Name:   strings.ToUpper(name),
		Params: map[string][]string{},
		Value:  value,
	}
	var b strings.Builder
	b.WriteString(p.Name)
	for k, vs := range params {
		k = strings.ToUpper(k)
		p.Params[k] = append([]string(nil), vs...)
		b.WriteString(";" + k)
		if len(vs) > 0 {
			b.WriteString("=" + strings.Join(vs, ","))
		}
	}
	p.key = b.String()
	return p
}
