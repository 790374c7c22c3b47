package protocol

import (
	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// internalTransport is the capability every concrete wire transport (tcp,
// cloudproto) implements. Base composes one of these rather than being
// subclassed by them: the state machine, backlog, reconnect policy, and
// async dispatch all live in Base and are identical across transports.
type internalTransport interface {
	// Name identifies the transport for error messages ("tcp", "cloud").
	Name() string

	// InternalConnect establishes the underlying connection. Called with
	// the protocol's options already validated.
	InternalConnect() error

	// InternalDisconnect releases the underlying connection. Called at
	// most once per successful InternalConnect.
	InternalDisconnect() error

	// InternalWritePacket sends a single packet on an already-connected
	// transport. Returning an error marks the connection broken.
	InternalWritePacket(p packet.Packet) error
}

// optionValidator is implemented by transports that accept keys beyond the
// common set; Base.Initialize consults AllowedKeys to build the full
// allow-list used for ConfigError reporting.
type optionValidator interface {
	AllowedKeys() []string
}

// commonDefaultsOverrider is implemented by transports (cloudproto) whose
// documented common-option defaults differ from the generic ones, e.g.
// cloud defaults to reconnect=true and async.enabled=true.
type commonDefaultsOverrider interface {
	CommonDefaults(base CommonOptions) CommonOptions
}

// optionLoader is implemented by transports with their own option group
// beyond the common set (tcp's host/port/timeout, cloud's
// writekey/chunking/tls/...). Base.Initialize calls LoadOptions once key
// validation passes, so every transport configures itself from the same
// table its AllowedKeys were checked against.
type optionLoader interface {
	LoadOptions(table *options.Table) error
}
