package wire

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

func compileBytes(t *testing.T, p packet.Packet) []byte {
	t.Helper()
	var f Formatter
	n, err := f.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n != len(f.Bytes()) {
		t.Fatalf("Compile returned %d but staged %d bytes", n, len(f.Bytes()))
	}
	if uint32(n) != packet.WireSize(p) {
		t.Fatalf("Compile() = %d, want WireSize() = %d", n, packet.WireSize(p))
	}
	return append([]byte(nil), f.Bytes()...)
}

func TestRoundTripLogEntry(t *testing.T) {
	e := packet.NewLogEntry(packet.LevelMessage)
	e.EntryType = 3
	e.ViewerID = 1
	e.ThreadID = 42
	e.ProcessID = 99
	e.TimestampSec = 123456
	e.TimestampUs = 789
	e.Color = 0xFF00FF00
	e.AppName = "myapp"
	e.SessionName = "main"
	e.Title = "hello world"
	e.HostName = "host1"
	e.Data = []byte("payload")

	raw := compileBytes(t, e)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.LogEntry)
	_ = got2.SetLevel(e.Level())
	if !reflect.DeepEqual(e, got2) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got2, e)
	}
}

func TestRoundTripControlCommand(t *testing.T) {
	c := packet.NewControlCommand(packet.LevelControl)
	c.CommandType = 1
	c.Data = []byte{1, 2, 3}

	raw := compileBytes(t, c)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.ControlCommand)
	if got2.CommandType != c.CommandType || !bytes.Equal(got2.Data, c.Data) || got2.Level() != c.Level() {
		t.Fatalf("round trip mismatch: %+v vs %+v", got2, c)
	}
}

func TestRoundTripWatch(t *testing.T) {
	w := packet.NewWatch(packet.LevelDebug)
	w.WatchType = 2
	w.TimestampSec = 1
	w.TimestampUs = 2
	w.Name = "x"
	w.Value = "42"

	raw := compileBytes(t, w)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.Watch)
	if got2.Name != w.Name || got2.Value != w.Value {
		t.Fatalf("round trip mismatch: %+v vs %+v", got2, w)
	}
}

func TestRoundTripProcessFlow(t *testing.T) {
	p := packet.NewProcessFlow(packet.LevelVerbose)
	p.FlowType = 1
	p.ThreadID = 7
	p.ProcessID = 8
	p.Title = "enter"
	p.HostName = "h"

	raw := compileBytes(t, p)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.ProcessFlow)
	if got2.Title != p.Title || got2.HostName != p.HostName {
		t.Fatalf("round trip mismatch: %+v vs %+v", got2, p)
	}
}

func TestRoundTripLogHeader(t *testing.T) {
	h := packet.NewLogHeader(packet.LevelDebug)
	h.Content = packet.BuildHeaderContent([][2]string{{"hostname", "h"}, {"appname", "a"}})

	raw := compileBytes(t, h)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.LogHeader)
	if got2.Content != h.Content {
		t.Fatalf("round trip mismatch: %q vs %q", got2.Content, h.Content)
	}
}

func TestRoundTripChunk(t *testing.T) {
	var inner Formatter
	w := packet.NewWatch(packet.LevelDebug)
	w.Name, w.Value = "n", "v"
	if _, err := inner.Compile(w); err != nil {
		t.Fatal(err)
	}

	ch := &packet.Chunk{PacketCount: 1, Body: append([]byte(nil), inner.Bytes()...)}

	raw := compileBytes(t, ch)
	got, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got2 := got.(*packet.Chunk)
	if got2.PacketCount != ch.PacketCount || !bytes.Equal(got2.Body, ch.Body) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got2, ch)
	}

	innerPacket, err := Decode(bytes.NewReader(got2.Body))
	if err != nil {
		t.Fatalf("Decode inner: %v", err)
	}
	if innerPacket.(*packet.Watch).Name != "n" {
		t.Fatalf("inner packet mismatch: %+v", innerPacket)
	}
}

func TestCompileDoesNotWriteUntilWrite(t *testing.T) {
	h := packet.NewLogHeader(packet.LevelDebug)
	h.Content = "a=b"

	var f Formatter
	if _, err := f.Compile(h); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), f.Bytes()) {
		t.Fatal("Write did not emit the staged bytes")
	}
}
