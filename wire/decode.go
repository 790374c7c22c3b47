package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// Decode reads one full packet (header + body) from r. It exists for
// round-trip testing of the formatter and for any external collaborator
// that needs to parse what this package writes; the core transport itself
// never decodes packets off the wire (it only reads 2-byte/classified
// acknowledgements).
func Decode(r io.Reader) (packet.Packet, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	kind := packet.Kind(binary.BigEndian.Uint16(hdr[0:2]))
	length := binary.BigEndian.Uint32(hdr[2:6])

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	d := &decoder{buf: body}
	switch kind {
	case packet.KindLogEntry:
		e := packet.NewLogEntry(packet.LevelDebug)
		e.EntryType = d.u32()
		e.ViewerID = d.u32()
		e.ThreadID = d.u32()
		e.ProcessID = d.u32()
		e.TimestampSec = d.u32()
		e.TimestampUs = d.u32()
		e.Color = d.u32()
		e.AppName = d.str()
		e.SessionName = d.str()
		e.Title = d.str()
		e.HostName = d.str()
		e.Data = d.bytes()
		return e, d.err
	case packet.KindControlCommand:
		c := packet.NewControlCommand(packet.LevelDebug)
		c.CommandType = d.u32()
		lvl := d.u32()
		_ = c.SetLevel(packet.Level(lvl))
		c.Data = d.bytes()
		return c, d.err
	case packet.KindWatch:
		w := packet.NewWatch(packet.LevelDebug)
		w.WatchType = d.u32()
		lvl := d.u32()
		_ = w.SetLevel(packet.Level(lvl))
		w.TimestampSec = d.u32()
		w.TimestampUs = d.u32()
		w.Name = d.str()
		w.Value = d.str()
		return w, d.err
	case packet.KindProcessFlow:
		p := packet.NewProcessFlow(packet.LevelDebug)
		p.FlowType = d.u32()
		lvl := d.u32()
		_ = p.SetLevel(packet.Level(lvl))
		p.ThreadID = d.u32()
		p.ProcessID = d.u32()
		p.TimestampSec = d.u32()
		p.TimestampUs = d.u32()
		p.Title = d.str()
		p.HostName = d.str()
		return p, d.err
	case packet.KindLogHeader:
		h := packet.NewLogHeader(packet.LevelDebug)
		lvl := d.u32()
		_ = h.SetLevel(packet.Level(lvl))
		h.Content = d.str()
		return h, d.err
	case packet.KindChunk:
		ch := &packet.Chunk{}
		format := d.u16()
		if format != packet.ChunkFormat {
			return nil, fmt.Errorf("wire: unsupported chunk format %d", format)
		}
		ch.PacketCount = d.u32()
		bodyBytes := d.u32()
		ch.Body = d.take(int(bodyBytes))
		return ch, d.err
	default:
		return nil, fmt.Errorf("wire: unknown packet kind %d", kind)
	}
}

// decoder walks a packet body left to right; the first error encountered is
// sticky so callers can perform a sequence of reads and check err once.
type decoder struct {
	buf []byte
	pos int
	err error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.buf) {
		d.err = fmt.Errorf("wire: short packet body: need %d bytes at offset %d, have %d", n, d.pos, len(d.buf))
		return false
	}
	return true
}

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) take(n int) []byte {
	if !d.need(n) {
		return nil
	}
	v := d.buf[d.pos : d.pos+n]
	d.pos += n
	return append([]byte(nil), v...)
}

func (d *decoder) str() string {
	n := d.u32()
	if d.err != nil {
		return ""
	}
	if n == nullLength {
		return ""
	}
	b := d.take(int(n))
	return string(b)
}

func (d *decoder) bytes() []byte {
	n := d.u32()
	if d.err != nil {
		return nil
	}
	if n == nullLength {
		return nil
	}
	return d.take(int(n))
}
