package options

import (
	"fmt"
	"strings"
)

// ProtocolConfig is one `name(options)` segment of a parsed connections
// string.
type ProtocolConfig struct {
	Name    string
	Options *Table
}

// KnownProtocolNames are the protocol names the connections-string grammar
// recognizes. Only "tcp" and "cloud" are implemented by this module; the
// rest are external collaborators (file/mem/pipe backends, the text
// protocol) whose option schemas this package does not own, so they parse
// into a Table but are not further validated here.
var KnownProtocolNames = map[string]bool{
	"file": true, "mem": true, "pipe": true, "tcp": true, "text": true, "cloud": true,
}

// ParseConnections parses a SmartInspect connections string, e.g.:
//
//	connections := protocol ("," protocol)*
//	protocol    := name "(" [options] ")"
//	options     := option ("," option)*
//	option      := key "=" value
//	value       := "\"" quoted "\"" | bareword
//
// vars, if non-nil, expands $name$ placeholders before parsing.
func ParseConnections(s string, vars *Variables) ([]ProtocolConfig, error) {
	if vars != nil {
		s = vars.Expand(s)
	}

	var configs []ProtocolConfig
	i := 0
	n := len(s)
	for i < n {
		for i < n && (s[i] == ' ' || s[i] == ',') {
			i++
		}
		if i >= n {
			break
		}

		start := i
		for i < n && s[i] != '(' {
			i++
		}
		if i >= n {
			return nil, fmt.Errorf("options: malformed connections string: missing '(' after %q", s[start:])
		}
		name := strings.ToLower(strings.TrimSpace(s[start:i]))
		if !KnownProtocolNames[name] {
			return nil, fmt.Errorf("options: unknown protocol %q", name)
		}
		i++ // consume '('

		optStart := i
		depth := 1
		inQuotes := false
		for i < n && depth > 0 {
			switch s[i] {
			case '"':
				inQuotes = !inQuotes
			case '(':
				if !inQuotes {
					depth++
				}
			case ')':
				if !inQuotes {
					depth--
					if depth == 0 {
						continue
					}
				}
			}
			i++
		}
		if depth != 0 {
			return nil, fmt.Errorf("options: malformed connections string: unterminated options for %q", name)
		}
		optBody := s[optStart:i]
		i++ // consume ')'

		table, err := ParseOptions(optBody)
		if err != nil {
			return nil, fmt.Errorf("options: protocol %q: %w", name, err)
		}
		configs = append(configs, ProtocolConfig{Name: name, Options: table})
	}
	return configs, nil
}

// ParseOptions parses one `key=value,key=value` body (the contents between
// a protocol's parentheses) into a Table.
func ParseOptions(body string) (*Table, error) {
	table := NewTable()
	i := 0
	n := len(body)
	for i < n {
		for i < n && (body[i] == ' ' || body[i] == ',') {
			i++
		}
		if i >= n {
			break
		}

		keyStart := i
		for i < n && body[i] != '=' {
			i++
		}
		if i >= n {
			return nil, fmt.Errorf("malformed option near %q: missing '='", body[keyStart:])
		}
		key := strings.TrimSpace(body[keyStart:i])
		if key == "" {
			return nil, fmt.Errorf("malformed option: empty key")
		}
		i++ // consume '='

		value, consumed, err := parseValue(body[i:])
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
		i += consumed
		table.Set(key, value)
	}
	return table, nil
}

func parseValue(s string) (string, int, error) {
	if len(s) == 0 {
		return "", 0, nil
	}
	if s[0] != '"' {
		end := strings.IndexByte(s, ',')
		if end < 0 {
			end = len(s)
		}
		return strings.TrimSpace(s[:end]), end, nil
	}

	var b strings.Builder
	i := 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			return "", 0, fmt.Errorf("dangling escape in quoted value")
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated quoted value")
}
