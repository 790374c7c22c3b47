package packet

// ControlCommand carries a control directive, e.g. clear log or clear
// watches. Its Level is caller-supplied like any other packet's.
type ControlCommand struct {
	common

	CommandType uint32
	Data        []byte
}

func NewControlCommand(level Level) *ControlCommand {
	c := &ControlCommand{}
	c.level = level
	return c
}

func (c *ControlCommand) Kind() Kind { return KindControlCommand }

func (c *ControlCommand) Size() uint32 {
	return 4 + 4 + bytesSize(c.Data)
}
