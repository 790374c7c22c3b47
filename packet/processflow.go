package packet

// ProcessFlow marks a method-enter/leave or thread/process boundary used by
// the session façade's enterMethod/leaveMethod helpers.
type ProcessFlow struct {
	common

	FlowType     uint32
	ThreadID     uint32
	ProcessID    uint32
	TimestampSec uint32
	TimestampUs  uint32

	Title    string
	HostName string
}

func NewProcessFlow(level Level) *ProcessFlow {
	p := &ProcessFlow{}
	p.level = level
	return p
}

func (p *ProcessFlow) Kind() Kind { return KindProcessFlow }

func (p *ProcessFlow) Size() uint32 {
	return 4*6 + stringSize(p.Title) + stringSize(p.HostName)
}
