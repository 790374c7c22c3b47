package packet

import "strings"

// LogHeader is the first packet sent after a successful connect. Content is
// a CRLF-separated key=value block; core keys are hostname/appname, and the
// cloud protocol adds writekey/virtualfileid/customlabels.
type LogHeader struct {
	common

	Content string
}

func NewLogHeader(level Level) *LogHeader {
	h := &LogHeader{}
	h.level = level
	return h
}

func (h *LogHeader) Kind() Kind { return KindLogHeader }

func (h *LogHeader) Size() uint32 {
	return 4 + stringSize(h.Content)
}

// BuildHeaderContent joins key=value pairs with CRLF in the given order,
// matching the wire layout consumed by the receiving Console.
func BuildHeaderContent(pairs [][2]string) string {
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(kv[1])
	}
	return b.String()
}
