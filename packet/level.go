// Package packet defines the SmartInspect packet model: the tagged variant
// of record kinds shipped by a protocol, their common header fields, and the
// severity level they compare on.
package packet

import "fmt"

// Level is the severity of a packet. Levels compare as a total order:
// Debug < Verbose < Message < Warning < Error < Fatal < Control.
type Level uint8

const (
	LevelDebug Level = iota
	LevelVerbose
	LevelMessage
	LevelWarning
	LevelError
	LevelFatal
	LevelControl
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "Debug"
	case LevelVerbose:
		return "Verbose"
	case LevelMessage:
		return "Message"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	case LevelFatal:
		return "Fatal"
	case LevelControl:
		return "Control"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l <= LevelControl
}

// ParseLevel resolves a case-insensitive level name, returning def if name
// does not match a known level.
func ParseLevel(name string, def Level) Level {
	switch lower(name) {
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	case "message":
		return LevelMessage
	case "warning":
		return LevelWarning
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	case "control":
		return LevelControl
	default:
		return def
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
