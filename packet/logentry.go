package packet

// LogEntry carries a single text/viewer record: the most common packet kind
// emitted by the session façade's log* helpers.
type LogEntry struct {
	common

	EntryType    uint32
	ViewerID     uint32
	ThreadID     uint32
	ProcessID    uint32
	TimestampSec uint32
	TimestampUs  uint32
	Color        uint32 // ARGB

	AppName     string
	SessionName string
	Title       string
	HostName    string
	Data        []byte
}

func NewLogEntry(level Level) *LogEntry {
	e := &LogEntry{}
	e.level = level
	return e
}

func (e *LogEntry) Kind() Kind { return KindLogEntry }

func (e *LogEntry) Size() uint32 {
	return 4*7 +
		stringSize(e.AppName) +
		stringSize(e.SessionName) +
		stringSize(e.Title) +
		stringSize(e.HostName) +
		bytesSize(e.Data)
}
