// Package chunk implements the cloud protocol's chunk bundler: it packs
// compiled packets into a byte-bounded batch, tracking how long the batch
// has been accumulating so the cloud protocol can flush it on a size
// threshold or an age threshold, whichever comes first.
package chunk

import (
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/wire"
)

// Bundle accumulates already-compiled packet bytes (each one a full
// 6-byte-headered wire record, per the wire package's framing) up to a
// byte budget, and reports how long the oldest packet in it has been
// waiting.
type Bundle struct {
	maxSize int
	buf     []byte
	count   uint32

	firstPacketAt time.Time
	nowFn         func() time.Time
}

// NewBundle creates an empty bundle with the given byte budget.
func NewBundle(maxSize int) *Bundle {
	return &Bundle{maxSize: maxSize, nowFn: time.Now}
}

// CompilePacket formats p into its wire bytes, ready to test with
// CanFitFormattedPacket/ChunkFormattedPacket.
func (b *Bundle) CompilePacket(p packet.Packet) ([]byte, error) {
	var f wire.Formatter
	if _, err := f.Compile(p); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// CanFitFormattedPacket reports whether formatted can be appended without
// exceeding the byte budget. An empty bundle always accepts a single
// packet, even an oversized one, so that one large packet is never stuck
// unsendable.
func (b *Bundle) CanFitFormattedPacket(formatted []byte) bool {
	if b.count == 0 {
		return true
	}
	return len(b.buf)+len(formatted) <= b.maxSize
}

// ChunkFormattedPacket appends formatted to the bundle, starting the age
// clock if this is the bundle's first packet.
func (b *Bundle) ChunkFormattedPacket(formatted []byte) {
	if b.count == 0 {
		b.firstPacketAt = b.nowFn()
	}
	b.buf = append(b.buf, formatted...)
	b.count++
}

// MillisecondsSinceFirstPacket reports how long the oldest packet in the
// bundle has been waiting, used for the cloud protocol's age-based flush.
// Zero when the bundle is empty.
func (b *Bundle) MillisecondsSinceFirstPacket() int64 {
	if b.count == 0 {
		return 0
	}
	return b.nowFn().Sub(b.firstPacketAt).Milliseconds()
}

func (b *Bundle) PacketCount() uint32 { return b.count }

func (b *Bundle) Size() int { return len(b.buf) }

// ToPacket wraps the bundle's accumulated bytes in a Chunk packet, ready
// to be compiled and written like any other packet.
func (b *Bundle) ToPacket() *packet.Chunk {
	body := make([]byte, len(b.buf))
	copy(body, b.buf)
	return &packet.Chunk{PacketCount: b.count, Body: body}
}

// Reset empties the bundle for reuse.
func (b *Bundle) Reset() {
	b.buf = b.buf[:0]
	b.count = 0
	b.firstPacketAt = time.Time{}
}
