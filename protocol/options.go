package protocol

import (
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// CommonOptions holds the option keys every protocol recognizes regardless
// of transport.
type CommonOptions struct {
	Level             packet.Level
	Caption           string
	ReconnectOn       bool
	ReconnectInterval time.Duration
	BacklogEnabled    bool
	BacklogQueue      int64
	BacklogFlushOn    packet.Level
	BacklogKeepOpen   bool
	Async             bool
	AsyncQueue        int64
	AsyncThrottle     bool
	AsyncClearOnDisconnect bool
}

const mib = 1024 * 1024

// DefaultCommonOptions returns SmartInspect's documented common-option defaults.
func DefaultCommonOptions() CommonOptions {
	return CommonOptions{
		Level:                  packet.LevelDebug,
		ReconnectOn:            false,
		ReconnectInterval:      0,
		BacklogEnabled:         false,
		BacklogQueue:           2 * mib,
		BacklogFlushOn:         packet.LevelError,
		BacklogKeepOpen:        false,
		Async:                  false,
		AsyncQueue:             2 * mib,
		AsyncThrottle:          true,
		AsyncClearOnDisconnect: false,
	}
}

// commonKeys lists every option key CommonOptions.Load recognizes; anything
// else in a connection string's option table is a protocol-specific key the
// caller must validate against its own allowed-key list.
var commonKeys = map[string]bool{
	"level":                   true,
	"caption":                 true,
	"reconnect":               true,
	"reconnect.interval":      true,
	"backlog.enabled":         true,
	"backlog.queue":           true,
	"backlog.flushon":         true,
	"backlog.keepopen":        true,
	"async.enabled":           true,
	"async.queue":             true,
	"async.throttle":          true,
	"async.clearondisconnect": true,
}

// Load populates o from table, applying the common option keys and leaving
// everything else untouched.
func (o *CommonOptions) Load(table *options.Table) {
	o.Level = table.Level("level", o.Level)
	o.Caption = table.String("caption", o.Caption)
	o.ReconnectOn = table.Bool("reconnect", o.ReconnectOn)
	o.ReconnectInterval = table.Timespan("reconnect.interval", o.ReconnectInterval)
	o.BacklogEnabled = table.Bool("backlog.enabled", o.BacklogEnabled)
	o.BacklogQueue = table.Size("backlog.queue", o.BacklogQueue)
	o.BacklogFlushOn = table.Level("backlog.flushon", o.BacklogFlushOn)
	o.BacklogKeepOpen = table.Bool("backlog.keepopen", o.BacklogKeepOpen)
	o.Async = table.Bool("async.enabled", o.Async)
	o.AsyncQueue = table.Size("async.queue", o.AsyncQueue)
	o.AsyncThrottle = table.Bool("async.throttle", o.AsyncThrottle)
	o.AsyncClearOnDisconnect = table.Bool("async.clearondisconnect", o.AsyncClearOnDisconnect)
}

// keepBacklogOpen resolves the open question about the
// interaction of backlog.enabled and backlog.keepopen: the backlog is kept
// open across a disconnect only when it is both enabled and explicitly
// asked to stay open.
func (o *CommonOptions) keepBacklogOpen() bool {
	return o.BacklogEnabled && o.BacklogKeepOpen
}
