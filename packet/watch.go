package packet

// Watch carries a named variable snapshot.
type Watch struct {
	common

	WatchType    uint32
	TimestampSec uint32
	TimestampUs  uint32

	Name  string
	Value string
}

func NewWatch(level Level) *Watch {
	w := &Watch{}
	w.level = level
	return w
}

func (w *Watch) Kind() Kind { return KindWatch }

func (w *Watch) Size() uint32 {
	return 4*4 + stringSize(w.Name) + stringSize(w.Value)
}
