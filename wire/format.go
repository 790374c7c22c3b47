// Package wire implements the bit-exact binary serialization of packets: a
// 6-byte common header (u16 type, u32 length) followed by a per-type fixed
// field block and then length-prefixed strings/bytes, all big-endian.
//
// Formatter is intentionally stateless across packets: Compile stages the
// serialized bytes of exactly one packet without writing anything, so a
// chunk bundle can test-fit a packet before committing to it. Write then
// emits the staged bytes to a stream.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// nullLength is the wire sentinel for a null UTF-8 string. The encoder never
// emits it (Go strings have no null state distinct from empty); the decoder
// accepts it and returns "", keeping Decode(Compile(p)) round-trips lossless
// for any packet this package can construct.
const nullLength = 0xFFFFFFFF

type Formatter struct {
	staged []byte
}

// Compile serializes p into the formatter's internal staging buffer and
// returns the number of bytes staged (the same value Write will emit).
func (f *Formatter) Compile(p packet.Packet) (int, error) {
	var buf bytes.Buffer
	buf.Grow(int(packet.WireSize(p)))

	writeUint16(&buf, uint16(p.Kind()))
	writeUint32(&buf, p.Size())

	if err := encodeBody(&buf, p); err != nil {
		return 0, err
	}

	f.staged = buf.Bytes()
	return len(f.staged), nil
}

// Bytes returns the bytes staged by the most recent Compile call.
func (f *Formatter) Bytes() []byte { return f.staged }

// Write emits the staged bytes to w.
func (f *Formatter) Write(w io.Writer) (int, error) {
	return w.Write(f.staged)
}

func encodeBody(buf *bytes.Buffer, p packet.Packet) error {
	switch v := p.(type) {
	case *packet.LogEntry:
		writeUint32(buf, v.EntryType)
		writeUint32(buf, v.ViewerID)
		writeUint32(buf, v.ThreadID)
		writeUint32(buf, v.ProcessID)
		writeUint32(buf, v.TimestampSec)
		writeUint32(buf, v.TimestampUs)
		writeUint32(buf, v.Color)
		writeString(buf, v.AppName)
		writeString(buf, v.SessionName)
		writeString(buf, v.Title)
		writeString(buf, v.HostName)
		writeBytes(buf, v.Data)
	case *packet.ControlCommand:
		writeUint32(buf, v.CommandType)
		writeUint32(buf, uint32(v.Level()))
		writeBytes(buf, v.Data)
	case *packet.Watch:
		writeUint32(buf, v.WatchType)
		writeUint32(buf, uint32(v.Level()))
		writeUint32(buf, v.TimestampSec)
		writeUint32(buf, v.TimestampUs)
		writeString(buf, v.Name)
		writeString(buf, v.Value)
	case *packet.ProcessFlow:
		writeUint32(buf, v.FlowType)
		writeUint32(buf, uint32(v.Level()))
		writeUint32(buf, v.ThreadID)
		writeUint32(buf, v.ProcessID)
		writeUint32(buf, v.TimestampSec)
		writeUint32(buf, v.TimestampUs)
		writeString(buf, v.Title)
		writeString(buf, v.HostName)
	case *packet.LogHeader:
		writeUint32(buf, uint32(v.Level()))
		writeString(buf, v.Content)
	case *packet.Chunk:
		writeUint16(buf, packet.ChunkFormat)
		writeUint32(buf, v.PacketCount)
		writeUint32(buf, uint32(len(v.Body)))
		buf.Write(v.Body)
	default:
		return fmt.Errorf("wire: unsupported packet kind %d", p.Kind())
	}
	return nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}
