// Package options implements the connection-options value model: a
// case-insensitive string table with typed accessors (string/int/bool/size/
// timespan/level/rotate/bytes), the comma-separated connection string
// grammar it is parsed from, and $name$ protocol-variable expansion.
package options

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// Table is a case-insensitive string->string map with typed accessors. Each
// accessor takes the default to return when the key is absent or does not
// parse, matching SmartInspect's tolerant connections-string parsing.
type Table struct {
	values map[string]string
	// order preserves insertion order so unknown-key validation reports
	// them in the order they appeared in the connection string.
	order []string
}

func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

func (t *Table) Set(key, value string) {
	k := strings.ToLower(key)
	if _, exists := t.values[k]; !exists {
		t.order = append(t.order, k)
	}
	t.values[k] = value
}

func (t *Table) Has(key string) bool {
	_, ok := t.values[strings.ToLower(key)]
	return ok
}

// Keys returns option keys in the order they were set.
func (t *Table) Keys() []string {
	return append([]string(nil), t.order...)
}

func (t *Table) String(key, def string) string {
	if v, ok := t.values[strings.ToLower(key)]; ok {
		return v
	}
	return def
}

func (t *Table) Int(key string, def int) int {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (t *Table) Bool(key string, def bool) bool {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// Size parses an integer with an optional KB/MB/GB unit suffix (default
// unit KB, factor 1024) and returns the value in bytes.
func (t *Table) Size(key string, def int64) int64 {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	n, unit, ok := splitUnit(v)
	if !ok {
		return def
	}
	factor := int64(1024) // default unit KB
	switch strings.ToLower(unit) {
	case "", "kb":
		factor = 1024
	case "mb":
		factor = 1024 * 1024
	case "gb":
		factor = 1024 * 1024 * 1024
	default:
		return def
	}
	return n * factor
}

// Timespan parses an integer with an optional s/m/h/d unit suffix (default
// unit s) and returns the value as a time.Duration in milliseconds.
func (t *Table) Timespan(key string, def time.Duration) time.Duration {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	n, unit, ok := splitUnit(v)
	if !ok {
		return def
	}
	var perUnit time.Duration
	switch strings.ToLower(unit) {
	case "", "s":
		perUnit = time.Second
	case "m":
		perUnit = time.Minute
	case "h":
		perUnit = time.Hour
	case "d":
		perUnit = 24 * time.Hour
	default:
		return def
	}
	return time.Duration(n) * perUnit
}

func (t *Table) Level(key string, def packet.Level) packet.Level {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	return packet.ParseLevel(v, def)
}

type Rotate int

const (
	RotateNone Rotate = iota
	RotateHourly
	RotateDaily
	RotateWeekly
	RotateMonthly
)

func (r Rotate) String() string {
	switch r {
	case RotateHourly:
		return "hourly"
	case RotateDaily:
		return "daily"
	case RotateWeekly:
		return "weekly"
	case RotateMonthly:
		return "monthly"
	default:
		return "none"
	}
}

func (t *Table) Rotate(key string, def Rotate) Rotate {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "none":
		return RotateNone
	case "hourly":
		return RotateHourly
	case "daily":
		return RotateDaily
	case "weekly":
		return RotateWeekly
	case "monthly":
		return RotateMonthly
	default:
		return def
	}
}

// Bytes decodes a hex string, padding with zeros or truncating to exactly
// length bytes.
func (t *Table) Bytes(key string, length int, def []byte) []byte {
	v, ok := t.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	decoded, err := hex.DecodeString(v)
	if err != nil {
		return def
	}
	out := make([]byte, length)
	copy(out, decoded)
	return out
}

// splitUnit separates a leading non-negative integer from a trailing unit
// suffix, e.g. "1500" -> (1500, "", true), "5MB" -> (5, "MB", true).
func splitUnit(s string) (int64, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, s[i:], true
}
