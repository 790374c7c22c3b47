// Package protocol implements the transport-independent half of a
// SmartInspect protocol: the Unconfigured -> Disconnected <-> Connected ->
// Closed lifecycle, the backlog that buffers packets across a disconnect,
// reconnect-with-interval, and the sync/async dispatch dichotomy. Concrete
// wire transports (tcp, cloudproto) implement internalTransport and are
// composed into a Base rather than subclassing it.
package protocol

import (
	"strings"
	"sync"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/queue"
	"github.com/Code-Partners/smartinspect-java-library-sub003/scheduler"
)

// State is the protocol's lifecycle state.
type State int

const (
	Unconfigured State = iota
	Disconnected
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Base is the shared protocol engine every concrete transport is built on.
type Base struct {
	mu    sync.Mutex
	state State

	transport internalTransport
	common    CommonOptions
	optsDump  string

	backlog *queue.PacketQueue
	sched   *scheduler.Scheduler

	listener ErrorListener

	disabled    bool // set by Disable(): reconnect is permanently forbidden
	lastAttempt time.Time
}

// NewBase wraps transport in a fresh, unconfigured Base.
func NewBase(transport internalTransport) *Base {
	return &Base{transport: transport, state: Unconfigured}
}

// SetErrorListener installs the listener that receives errors raised by
// async-mode commands; it has no effect in sync mode, where errors are
// returned directly to the caller.
func (b *Base) SetErrorListener(l ErrorListener) {
	b.mu.Lock()
	b.listener = l
	b.mu.Unlock()
}

// State reports the protocol's current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize validates table against the common option keys plus whatever
// AllowedKeys the transport contributes, then configures the protocol. It
// may be called exactly once, before any Connect/WritePacket/Dispatch call.
func (b *Base) Initialize(table *options.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Unconfigured {
		return &ConfigError{Protocol: b.transport.Name(), Reason: "already initialized"}
	}

	allowed := make(map[string]bool, len(commonKeys))
	for k := range commonKeys {
		allowed[k] = true
	}
	if v, ok := b.transport.(optionValidator); ok {
		for _, k := range v.AllowedKeys() {
			allowed[strings.ToLower(k)] = true
		}
	}
	for _, k := range table.Keys() {
		if !allowed[k] {
			return &ConfigError{Protocol: b.transport.Name(), Key: k}
		}
	}

	defaults := DefaultCommonOptions()
	if overrider, ok := b.transport.(commonDefaultsOverrider); ok {
		defaults = overrider.CommonDefaults(defaults)
	}
	b.common = defaults
	b.common.Load(table)
	b.optsDump = dumpOptions(table)

	if loader, ok := b.transport.(optionLoader); ok {
		if err := loader.LoadOptions(table); err != nil {
			return &ConfigError{Protocol: b.transport.Name(), Reason: err.Error()}
		}
	}

	if b.common.BacklogEnabled {
		b.backlog = queue.New(b.common.BacklogQueue)
	}
	if b.common.Async {
		b.sched = scheduler.New(b.common.AsyncQueue, b.common.AsyncThrottle, b.handleCommand)
		b.sched.Start()
	}

	b.state = Disconnected
	return nil
}

func dumpOptions(table *options.Table) string {
	var sb strings.Builder
	for i, k := range table.Keys() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(table.String(k, ""))
	}
	return sb.String()
}

// Connect opens the underlying transport. In async mode the actual connect
// runs on the worker goroutine and errors reach the error listener instead
// of this call's return value.
func (b *Base) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Unconfigured || b.state == Closed {
		return ErrNotInitialized
	}
	if b.common.Async {
		b.sched.Schedule(scheduler.Command{Kind: scheduler.CmdConnect})
		return nil
	}
	return b.implConnect()
}

// Disconnect closes the underlying transport. The backlog is cleared unless
// backlog.enabled and backlog.keepopen are both set.
func (b *Base) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Unconfigured || b.state == Closed {
		return ErrNotInitialized
	}
	if b.common.Async {
		if b.common.AsyncClearOnDisconnect {
			b.sched.Clear()
		}
		b.sched.Schedule(scheduler.Command{Kind: scheduler.CmdDisconnect})
		return nil
	}
	return b.implDisconnect()
}

// Close tears the protocol down permanently: it disconnects, stops the
// async worker if one is running, and moves to the Closed state from which
// no further Connect/WritePacket call is accepted.
func (b *Base) Close() error {
	b.mu.Lock()
	sched := b.sched
	alreadyClosed := b.state == Closed || b.state == Unconfigured
	b.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	// Stop the worker goroutine first: it may still be mid-flight on a
	// queued command and must be done touching b's fields before we call
	// implDisconnect below without going through the scheduler.
	if sched != nil {
		sched.Stop()
	}

	b.mu.Lock()
	err := b.implDisconnect()
	b.state = Closed
	b.mu.Unlock()
	return err
}

// WritePacket writes p. With the backlog enabled, a packet below
// backlog.flushon (default Error) is buffered whether or not the protocol is
// connected, and a packet at or above it flushes the backlog and is then
// written. Packets below the configured minimum level are skipped outright, before
// ever reaching the async queue or the backlog.
func (b *Base) WritePacket(p packet.Packet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Unconfigured || b.state == Closed {
		return ErrNotInitialized
	}
	if p.Level() < b.common.Level {
		return nil
	}
	if b.common.Async {
		// p now outlives this call on the caller's goroutine: the worker
		// goroutine will read it later, out of the caller's control, so from
		// here on every touch of p goes through Lock/Unlock.
		p.SetThreadSafe(true)
		b.sched.Schedule(scheduler.Command{Kind: scheduler.CmdWritePacket, Packet: p})
		return nil
	}
	return b.forwardPacket(p)
}

// Dispatch runs worker through the same single-consumer path as every other
// command: serialized after anything already queued, and (in async mode)
// off the caller's goroutine entirely. Cloud's periodic chunk-age flush
// uses this to stay on the protocol's own worker instead of a second
// unsynchronized goroutine.
func (b *Base) Dispatch(worker func()) error {
	b.mu.Lock()
	async := b.common.Async
	sched := b.sched
	state := b.state
	b.mu.Unlock()

	if state == Unconfigured || state == Closed {
		return ErrNotInitialized
	}
	if async {
		sched.Schedule(scheduler.Command{Kind: scheduler.CmdDispatch, Worker: worker})
		return nil
	}
	worker()
	return nil
}

// Disable forbids any further reconnect attempt; used by the cloud protocol
// when the server replies ReconnectForbidden.
func (b *Base) Disable() {
	b.mu.Lock()
	b.disabled = true
	b.mu.Unlock()
}

// handleCommand is the scheduler's worker-goroutine callback; it reruns the
// same impl* methods Connect/Disconnect/WritePacket/Dispatch would call
// synchronously, reporting any error to the error listener instead of a
// caller that has long since moved on.
func (b *Base) handleCommand(cmd scheduler.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	switch cmd.Kind {
	case scheduler.CmdConnect:
		err = b.implConnect()
	case scheduler.CmdDisconnect:
		err = b.implDisconnect()
	case scheduler.CmdWritePacket:
		err = b.forwardPacket(cmd.Packet)
	case scheduler.CmdDispatch:
		if cmd.Worker != nil {
			cmd.Worker()
		}
	}
	if err != nil {
		b.reportError(err)
	}
}

func (b *Base) reportError(err error) {
	if b.listener != nil {
		b.listener.OnError(err)
	}
}

// forwardPacket implements the backlog/flush policy described on WritePacket.
// Caller holds b.mu. p.Lock/Unlock bracket every touch of p: a no-op in sync
// mode (ThreadSafe is never set), real synchronization in async mode, where p
// crossed from the producer's goroutine to this one via the scheduler.
func (b *Base) forwardPacket(p packet.Packet) error {
	p.Lock()
	defer p.Unlock()

	if b.disabled {
		return nil
	}
	if b.backlog == nil {
		if b.state != Connected {
			if !b.tryReconnect() {
				return b.wrapErr(ErrNotConnected)
			}
		}
		if err := b.transport.InternalWritePacket(p); err != nil {
			b.state = Disconnected
			return b.wrapErr(err)
		}
		return nil
	}

	// A packet below backlog.flushon (and not Control) is buffered, never
	// forwarded directly: it joins the queue and is accounted against its
	// byte cap like everything else in it. A packet at or above flushon (or
	// Control) is never pushed into the queue at all — it triggers a flush
	// of whatever is already buffered and is then forwarded on its own, so
	// its own bytes never compete with buffered packets for eviction.
	if p.Level() < b.common.BacklogFlushOn && p.Level() != packet.LevelControl {
		b.backlog.Push(p)
		if b.state != Connected {
			b.tryReconnect()
		}
		return nil
	}

	if b.state != Connected {
		if !b.tryReconnect() {
			return b.wrapErr(ErrNotConnected)
		}
	}
	if b.backlog.Len() > 0 {
		if err := b.flushBacklog(); err != nil {
			return err
		}
	}
	if err := b.transport.InternalWritePacket(p); err != nil {
		b.state = Disconnected
		return b.wrapErr(err)
	}
	return nil
}

// flushBacklog drains the backlog in FIFO order over the live connection.
// Caller holds b.mu and has already verified b.state == Connected. Each
// queued packet was handed off by a (possibly long-gone) producer goroutine
// and is locked for the duration of its own write, same as forwardPacket's p.
func (b *Base) flushBacklog() error {
	pending := b.backlog.Clear()
	for _, queued := range pending {
		queued.Lock()
		err := b.transport.InternalWritePacket(queued)
		queued.Unlock()
		if err != nil {
			b.state = Disconnected
			return b.wrapErr(err)
		}
	}
	return nil
}

func (b *Base) implConnect() error {
	if b.disabled {
		return nil
	}
	if b.state == Connected {
		return nil
	}
	if err := b.transport.InternalConnect(); err != nil {
		return b.wrapErr(err)
	}
	b.state = Connected
	if b.backlog != nil && b.backlog.Len() > 0 {
		return b.flushBacklog()
	}
	return nil
}

func (b *Base) implDisconnect() error {
	if b.state != Connected {
		if b.backlog != nil && !b.common.keepBacklogOpen() {
			b.backlog.Clear()
		}
		return nil
	}
	err := b.transport.InternalDisconnect()
	b.state = Disconnected
	if b.backlog != nil && !b.common.keepBacklogOpen() {
		b.backlog.Clear()
	}
	if err != nil {
		return b.wrapErr(err)
	}
	return nil
}

// tryReconnect attempts a single reconnect if the reconnect option is set and
// reconnect.interval has elapsed since the last attempt. An interval that
// has not yet elapsed causes this attempt to be skipped outright rather
// than blocking the caller until it has.
func (b *Base) tryReconnect() bool {
	if b.disabled || !b.common.ReconnectOn {
		return false
	}
	if b.common.ReconnectInterval > 0 && time.Since(b.lastAttempt) < b.common.ReconnectInterval {
		return false
	}
	b.lastAttempt = time.Now()
	if err := b.transport.InternalConnect(); err != nil {
		return false
	}
	b.state = Connected
	return true
}

func (b *Base) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Protocol: b.transport.Name(), Options: b.optsDump, Err: err}
}
