package cloudproto

import (
	"strings"

	"github.com/Code-Partners/smartinspect-java-library-sub003/protocol"
)

const replyOK = "OK"

const exceptionPrefix = "SmartInspectProtocolException"

// classifyReply interprets a cloud server reply. A plain "OK" is success
// (nil, nil). Anything starting with the exception prefix is parsed into
// the matching protocol.ReplyError; anything else is an unrecognized
// reply, also reported as a Warning so the caller doesn't treat it as
// fatal.
func classifyReply(reply []byte) *protocol.ReplyError {
	text := strings.TrimSpace(string(reply))
	if text == replyOK {
		return nil
	}
	if !strings.HasPrefix(text, exceptionPrefix) {
		return &protocol.ReplyError{Kind: protocol.ReplyWarning, Message: text}
	}

	rest := text[len(exceptionPrefix):]
	kindText, message, _ := strings.Cut(rest, " - ")
	kindText = strings.TrimSpace(kindText)

	var kind protocol.ReplyKind
	switch kindText {
	case "Warning":
		kind = protocol.ReplyWarning
	case "ReconnectAllowed":
		kind = protocol.ReplyReconnectAllowed
	case "ReconnectForbidden":
		kind = protocol.ReplyReconnectForbidden
	default:
		kind = protocol.ReplyWarning
	}
	return &protocol.ReplyError{Kind: kind, Message: strings.TrimSpace(message)}
}
