// Package tcp implements the TCP protocol: a plain, unencrypted transport
// that performs a banner handshake, writes framed packets, and waits for a
// 2-byte acknowledgement after every write.
package tcp

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/wire"
)

const (
	defaultHost    = "127.0.0.1"
	defaultPort    = 4228
	defaultTimeout = 30 * time.Second

	clientVersion = "3.0"
	banner        = "SmartInspect Java Library v" + clientVersion + "\n"
)

var ackBytes = [2]byte{'O', 'K'}

// Conn wraps a net.Conn with the handshake and framed write/ack helpers
// shared by the tcp and cloud protocols.
type Conn struct {
	raw net.Conn
	w   *bufio.Writer
	r   *bufio.Reader
}

// Dial opens a TCP connection to addr with the given timeout.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	raw, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Conn{raw: raw, w: bufio.NewWriter(raw), r: bufio.NewReader(raw)}, nil
}

// NewConn wraps an already-established net.Conn, e.g. one that has just
// been upgraded to TLS by cloudproto.
func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, w: bufio.NewWriter(raw), r: bufio.NewReader(raw)}
}

// Handshake performs the banner exchange. When sendFirst is false (plain
// TCP) the banner is read before anything is written, so a server that
// greets first never races a client write against its own greeting; cloud
// reverses the order (see cloudproto) to avoid a TLS alert race on
// handshake-adjacent writes.
func (c *Conn) Handshake(sendFirst bool) error {
	if sendFirst {
		if err := c.writeBanner(); err != nil {
			return err
		}
		return c.readBanner()
	}
	if err := c.readBanner(); err != nil {
		return err
	}
	return c.writeBanner()
}

func (c *Conn) writeBanner() error {
	if _, err := c.w.WriteString(banner); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) readBanner() error {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("tcp: reading banner: %w", err)
	}
	if line == "" {
		return fmt.Errorf("tcp: empty banner")
	}
	return nil
}

// WritePacket compiles and writes a single framed packet, then blocks for
// its 2-byte acknowledgement.
func (c *Conn) WritePacket(p packet.Packet) error {
	var f wire.Formatter
	if _, err := f.Compile(p); err != nil {
		return err
	}
	if _, err := f.Write(c.w); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	return c.readAck()
}

// WriteFramed compiles and writes p prefixed with preface, without waiting
// for an acknowledgement; used by the cloud protocol, whose reply isn't a
// fixed 2-byte ack but a classified text reply read separately.
func (c *Conn) WriteFramed(preface []byte, p packet.Packet) error {
	if len(preface) > 0 {
		if _, err := c.w.Write(preface); err != nil {
			return err
		}
	}
	var f wire.Formatter
	if _, err := f.Compile(p); err != nil {
		return err
	}
	if _, err := f.Write(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) readAck() error {
	var ack [2]byte
	n, err := readFull(c.r, ack[:])
	if err != nil {
		return fmt.Errorf("tcp: reading ack: %w", err)
	}
	if n != len(ack) || ack != ackBytes {
		return fmt.Errorf("tcp: unexpected ack %q", ack[:n])
	}
	return nil
}

// ReadReply reads whatever a single underlying read returns, bounded by a
// fixed-size buffer; used by the cloud protocol, whose reply text carries
// no length prefix or terminator of its own.
func (c *Conn) ReadReply(max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := c.r.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Raw exposes the underlying net.Conn, e.g. for TLS wrapping by cloudproto.
func (c *Conn) Raw() net.Conn { return c.raw }

// Rewrap replaces the underlying connection (after, say, wrapping it in
// TLS) while keeping the buffered reader/writer in sync with it.
func (c *Conn) Rewrap(raw net.Conn) {
	c.raw = raw
	c.w = bufio.NewWriter(raw)
	c.r = bufio.NewReader(raw)
}

func (c *Conn) Close() error {
	return c.raw.Close()
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			return read, err
		}
		if n == 0 {
			return read, fmt.Errorf("tcp: short read")
		}
	}
	return read, nil
}

// Options holds the tcp protocol's option table.
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Protocol implements the internalTransport capability the protocol
// package's Base composes.
type Protocol struct {
	opts Options
	conn *Conn
}

// NewProtocol builds a Protocol with SmartInspect's documented tcp defaults.
func NewProtocol() *Protocol {
	return &Protocol{opts: Options{Host: defaultHost, Port: defaultPort, Timeout: defaultTimeout}}
}

// AllowedKeys lists the option keys tcp recognizes beyond the common set.
func (p *Protocol) AllowedKeys() []string {
	return []string{"host", "port", "timeout"}
}

// LoadOptions applies the tcp-specific keys from table.
func (p *Protocol) LoadOptions(table *options.Table) error {
	p.opts.Host = table.String("host", p.opts.Host)
	p.opts.Port = table.Int("port", p.opts.Port)
	p.opts.Timeout = table.Timespan("timeout", p.opts.Timeout)
	return nil
}

func (p *Protocol) Name() string { return "tcp" }

func (p *Protocol) InternalConnect() error {
	addr := fmt.Sprintf("%s:%d", p.opts.Host, p.opts.Port)
	conn, err := Dial(addr, p.opts.Timeout)
	if err != nil {
		return err
	}
	if err := conn.Handshake(false); err != nil {
		conn.Close()
		return err
	}
	p.conn = conn
	return nil
}

func (p *Protocol) InternalDisconnect() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *Protocol) InternalWritePacket(pk packet.Packet) error {
	if p.conn == nil {
		return fmt.Errorf("tcp: not connected")
	}
	return p.conn.WritePacket(pk)
}
