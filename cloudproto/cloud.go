package cloudproto

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/chunk"
	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/protocol"
	"github.com/Code-Partners/smartinspect-java-library-sub003/tcp"
	"github.com/Code-Partners/smartinspect-java-library-sub003/tlsutil"
)

// magicPreface marks the start of every top-level record the cloud
// protocol writes, ahead of whatever tcp's wire framing already carries.
var magicPreface = [4]byte{0x29, 0x17, 0x73, 0x50}

const maxReplySize = 4096

// Protocol implements the internalTransport capability the protocol
// package's Base composes, plus the optional capabilities it probes for:
// AllowedKeys (optionValidator) and CommonDefaults (commonDefaultsOverrider).
type Protocol struct {
	opts Options
	tls  tlsutil.Config

	conn *tcp.Conn
	vf   *virtualFile
	bdl  *chunk.Bundle

	// onReply lets the owner react to a classified server reply, in
	// particular wiring ReconnectForbidden to protocol.Base.Disable().
	onReply func(*protocol.ReplyError)
}

// NewProtocol builds a Protocol with SmartInspect Cloud's documented defaults.
func NewProtocol() *Protocol {
	return &Protocol{opts: DefaultOptions()}
}

// OnReply installs the callback invoked with every non-nil classified
// reply; the caller wires ReconnectForbidden replies to Base.Disable().
func (p *Protocol) OnReply(fn func(*protocol.ReplyError)) {
	p.onReply = fn
}

func (p *Protocol) Name() string { return "cloud" }

// AllowedKeys lists the option keys cloudproto recognizes.
func (p *Protocol) AllowedKeys() []string {
	return p.opts.AllowedKeys()
}

// CommonDefaults overrides the generic CommonOptions defaults with the
// cloud protocol's documented ones: reconnect and async are on by
// default, the async queue is larger, and it never throttles (the cloud
// protocol drops oldest rather than blocking a producer).
func (p *Protocol) CommonDefaults(base protocol.CommonOptions) protocol.CommonOptions {
	base.ReconnectOn = true
	base.Async = true
	base.AsyncThrottle = false
	base.AsyncQueue = 20 * mib
	return base
}

// LoadOptions applies the cloud-specific keys from table.
func (p *Protocol) LoadOptions(table *options.Table) error {
	if err := p.opts.Load(table); err != nil {
		return err
	}
	p.tls = tlsutil.Config{
		Enabled:  p.opts.TLSEnabled,
		Password: p.opts.TLSCertPassword,
	}
	if p.opts.TLSCertLocation == "filepath" {
		p.tls.Source = tlsutil.SourceFilepath
		p.tls.Path = p.opts.TLSCertFilepath
	} else {
		p.tls.Source = tlsutil.SourceResource
		p.tls.Path = "smartinspect-cloud-ca.pem"
	}
	p.vf = newVirtualFile(p.opts.VirtualFileMaxSize, p.opts.Rotate)
	if p.opts.ChunkingEnabled {
		p.bdl = chunk.NewBundle(int(p.opts.ChunkMaxSize))
	}
	return nil
}

func (p *Protocol) hostAddr() string {
	host := p.opts.Host
	if host == "" {
		host = fmt.Sprintf("packet-receiver.%s.cloud.smartinspect.com", p.opts.Region)
	}
	return host + ":" + strconv.Itoa(p.opts.Port)
}

// InternalConnect dials the cloud endpoint, optionally wraps it in TLS,
// performs the banner handshake (send-first, reversed from plain tcp to
// avoid racing a server-side TLS alert), and sends the LogHeader that
// authenticates the connection with its write key and virtual-file id.
func (p *Protocol) InternalConnect() error {
	raw, err := tcp.Dial(p.hostAddr(), 30*time.Second)
	if err != nil {
		return err
	}

	if p.opts.TLSEnabled {
		cfg, err := p.tls.ClientConfig()
		if err != nil {
			raw.Close()
			return err
		}
		tlsConn := tls.Client(raw.Raw(), cfg)
		if err := tlsConn.Handshake(); err != nil {
			raw.Close()
			return fmt.Errorf("cloudproto: tls handshake: %w", err)
		}
		raw.Rewrap(tlsConn)
	}

	if err := raw.Handshake(true); err != nil {
		raw.Close()
		return err
	}
	p.conn = raw

	if p.bdl != nil {
		p.bdl.Reset()
	}
	return p.sendLogHeader()
}

func (p *Protocol) sendLogHeader() error {
	pairs := [][2]string{
		{"writekey", p.opts.WriteKey},
		{"virtualfileid", p.vf.ID().String()},
	}
	if len(p.opts.CustomLabels) > 0 {
		var sb strings.Builder
		for i, l := range p.opts.CustomLabels {
			if i > 0 {
				sb.WriteString(";")
			}
			sb.WriteString(l.Key)
			sb.WriteString("=")
			sb.WriteString(l.Value)
		}
		pairs = append(pairs, [2]string{"customlabels", sb.String()})
	}
	h := packet.NewLogHeader(packet.LevelDebug)
	h.Content = packet.BuildHeaderContent(pairs)
	return p.sendDirect(h)
}

func (p *Protocol) InternalDisconnect() error {
	if p.conn == nil {
		return nil
	}
	if p.bdl != nil && p.bdl.PacketCount() > 0 {
		p.flushBundle()
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// InternalWritePacket writes pk through the chunk bundler, flushing
// whenever pk would no longer fit the current bundle, then admitting pk
// into the now-empty bundle (or sending it standalone if chunking is
// disabled or pk alone exceeds the bundle's budget).
func (p *Protocol) InternalWritePacket(pk packet.Packet) error {
	if p.conn == nil {
		return fmt.Errorf("cloudproto: not connected")
	}
	if p.bdl == nil {
		return p.sendUnit(pk)
	}
	return p.admitToBundle(pk)
}

// admitToBundle rotates the virtual file as soon as pk itself would cross
// its size or calendar boundary — checked against pk as it is submitted,
// not against whatever has piled up in the bundle by the time it happens to
// flush — flushing the bundle and sending a fresh LogHeader first. It then
// flushes again on a plain byte-budget miss before admitting pk.
func (p *Protocol) admitToBundle(pk packet.Packet) error {
	if p.vf.ShouldRotate(int64(pk.Size())) {
		if err := p.flushBundle(); err != nil {
			return err
		}
		p.vf.Rotate()
		if err := p.sendLogHeader(); err != nil {
			return err
		}
	}

	formatted, err := p.bdl.CompilePacket(pk)
	if err != nil {
		return err
	}
	if !p.bdl.CanFitFormattedPacket(formatted) {
		if err := p.flushBundle(); err != nil {
			return err
		}
	}
	// A packet that alone exceeds the bundle's budget goes out standalone,
	// after anything already bundled, instead of as a one-packet chunk.
	if int64(len(formatted)) > p.opts.ChunkMaxSize {
		if err := p.sendDirect(pk); err != nil {
			return err
		}
		p.vf.Add(int64(pk.Size()))
		return nil
	}
	p.bdl.ChunkFormattedPacket(formatted)
	p.vf.Add(int64(pk.Size()))
	return nil
}

// FlushIfStale flushes the bundle when its oldest packet has been
// waiting at least chunking.maxagems. Call through protocol.Base.Dispatch
// (see StartAgeFlusher) so the flush runs serialized with every other
// connect/write/disconnect command on the protocol's own worker.
func (p *Protocol) FlushIfStale() {
	if p.bdl == nil || p.conn == nil {
		return
	}
	if p.bdl.PacketCount() == 0 {
		return
	}
	if p.bdl.MillisecondsSinceFirstPacket() < p.opts.ChunkMaxAgeMs {
		return
	}
	p.flushBundle()
}

// ageFlushInterval is how often StartAgeFlusher checks the bundle for a
// stale (age-triggered) flush, per chunking.maxagems's documented
// granularity.
const ageFlushInterval = 100 * time.Millisecond

// StartAgeFlusher launches the background tick that keeps chunking.maxagems
// honest: without it, a bundle sitting below chunking.maxsize would only
// ever flush on the next write or on disconnect, never purely from age.
// Every tick dispatches FlushIfStale through base so it runs on base's own
// worker rather than racing InternalWritePacket/InternalDisconnect on a
// second goroutine. The returned func stops the ticker and must be called
// when the protocol is torn down.
func (p *Protocol) StartAgeFlusher(base *protocol.Base) func() {
	ticker := time.NewTicker(ageFlushInterval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				base.Dispatch(p.FlushIfStale)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// flushBundle sends whatever is currently bundled as a single Chunk packet.
// Rotation and virtual-file byte accounting for its constituent packets
// already happened as each was admitted (see admitToBundle), so this talks
// to the wire directly rather than through sendUnit's own rotate/account
// step, which would otherwise double-count against the chunk's own
// (different) framed size.
func (p *Protocol) flushBundle() error {
	if p.bdl.PacketCount() == 0 {
		return nil
	}
	chunkPk := p.bdl.ToPacket()
	p.bdl.Reset()
	return p.sendDirect(chunkPk)
}

// sendUnit rotates the virtual file when pk would cross its size or
// calendar boundary, sending a fresh LogHeader before pk itself, then
// writes pk and classifies the reply. Used for the non-chunking path, where
// every packet is its own wire unit.
func (p *Protocol) sendUnit(pk packet.Packet) error {
	if p.vf.ShouldRotate(int64(pk.Size())) {
		p.vf.Rotate()
		if err := p.sendLogHeader(); err != nil {
			return err
		}
	}
	if err := p.sendDirect(pk); err != nil {
		return err
	}
	p.vf.Add(int64(pk.Size()))
	return nil
}

// sendDirect writes pk with the magic preface and reads back the reply,
// classifying it and routing Warning/ReconnectAllowed/ReconnectForbidden
// to the installed callback. Only a ReconnectForbidden reply is treated
// as a transport error; the others are diagnostic.
func (p *Protocol) sendDirect(pk packet.Packet) error {
	if err := p.conn.WriteFramed(magicPreface[:], pk); err != nil {
		return err
	}
	reply, err := p.conn.ReadReply(maxReplySize)
	if err != nil {
		return err
	}
	replyErr := classifyReply(reply)
	if replyErr == nil {
		return nil
	}
	if p.onReply != nil {
		p.onReply(replyErr)
	}
	if replyErr.Kind == protocol.ReplyReconnectForbidden {
		return replyErr
	}
	return nil
}
