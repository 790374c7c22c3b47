package chunk

import (
	"testing"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// A chunk never grows past its configured byte budget, except for the
// single-oversized-packet admission case.
func TestCanFitRespectsByteBudget(t *testing.T) {
	b := NewBundle(64)
	p := packet.NewWatch(packet.LevelDebug)
	p.Name = "x"
	p.Value = "y"

	formatted, err := b.CompilePacket(p)
	if err != nil {
		t.Fatalf("CompilePacket: %v", err)
	}

	for b.CanFitFormattedPacket(formatted) {
		b.ChunkFormattedPacket(formatted)
	}
	if b.Size() > 64 {
		t.Fatalf("bundle grew past its budget: %d bytes", b.Size())
	}
	if b.Size()+len(formatted) <= 64 {
		t.Fatal("CanFitFormattedPacket stopped admitting packets too early")
	}
}

func TestCanFitAdmitsSingleOversizedPacket(t *testing.T) {
	b := NewBundle(8)
	p := packet.NewControlCommand(packet.LevelDebug)
	p.Data = make([]byte, 100)
	formatted, _ := b.CompilePacket(p)

	if !b.CanFitFormattedPacket(formatted) {
		t.Fatal("an empty bundle must accept one packet even if oversized")
	}
	b.ChunkFormattedPacket(formatted)
	if b.CanFitFormattedPacket(formatted) {
		t.Fatal("a second packet must not fit once the bundle already exceeds budget")
	}
}

func TestMillisecondsSinceFirstPacket(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBundle(1 << 20)
	b.nowFn = func() time.Time { return now }

	p := packet.NewControlCommand(packet.LevelDebug)
	formatted, _ := b.CompilePacket(p)
	b.ChunkFormattedPacket(formatted)

	now = now.Add(150 * time.Millisecond)
	if got := b.MillisecondsSinceFirstPacket(); got != 150 {
		t.Fatalf("MillisecondsSinceFirstPacket() = %d, want 150", got)
	}
}

func TestResetClearsBundle(t *testing.T) {
	b := NewBundle(1 << 20)
	p := packet.NewControlCommand(packet.LevelDebug)
	formatted, _ := b.CompilePacket(p)
	b.ChunkFormattedPacket(formatted)

	b.Reset()
	if b.PacketCount() != 0 || b.Size() != 0 || b.MillisecondsSinceFirstPacket() != 0 {
		t.Fatalf("Reset left state behind: count=%d size=%d age=%d", b.PacketCount(), b.Size(), b.MillisecondsSinceFirstPacket())
	}
}

func TestToPacketWrapsAccumulatedBytes(t *testing.T) {
	b := NewBundle(1 << 20)
	p := packet.NewControlCommand(packet.LevelDebug)
	formatted, _ := b.CompilePacket(p)
	b.ChunkFormattedPacket(formatted)
	b.ChunkFormattedPacket(formatted)

	chunk := b.ToPacket()
	if chunk.PacketCount != 2 {
		t.Fatalf("PacketCount = %d, want 2", chunk.PacketCount)
	}
	if len(chunk.Body) != 2*len(formatted) {
		t.Fatalf("Body length = %d, want %d", len(chunk.Body), 2*len(formatted))
	}
}
