package queue

import (
	"testing"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// ccSizedTo returns a ControlCommand whose WireSize equals exactly n bytes.
// Fixed cost is header(6) + type/level(8) + data-length-prefix(4) = 18.
func ccSizedTo(t *testing.T, n int) *packet.ControlCommand {
	t.Helper()
	const fixed = 6 + 4 + 4 + 4
	if n < fixed {
		t.Fatalf("cannot size a packet to %d bytes (min %d)", n, fixed)
	}
	c := packet.NewControlCommand(packet.LevelDebug)
	c.Data = make([]byte, n-fixed)
	if got := int(packet.WireSize(c)); got != n {
		t.Fatalf("ccSizedTo(%d) produced wire size %d", n, got)
	}
	return c
}

func TestPushEvictsOldestUntilFits(t *testing.T) {
	q := New(128)
	var pushedEvictions [][]packet.Packet
	packets := make([]*packet.ControlCommand, 6)
	for i := range packets {
		packets[i] = ccSizedTo(t, 64)
		pushedEvictions = append(pushedEvictions, q.Push(packets[i]))
	}

	if q.Size() != 128 {
		t.Fatalf("expected 128 bytes buffered, got %d", q.Size())
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 survivors, got %d", q.Len())
	}

	remaining := q.Clear()
	if len(remaining) != 2 || remaining[0] != packets[4] || remaining[1] != packets[5] {
		t.Fatalf("expected P5,P6 to survive, got %v", remaining)
	}
}

func TestPushAdmitsOversizedSinglePacket(t *testing.T) {
	q := New(10)
	big := ccSizedTo(t, 64)
	evicted := q.Push(big)
	if len(evicted) != 0 {
		t.Fatalf("a lone oversized packet must still be admitted, evicted=%v", evicted)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the oversized packet to remain queued")
	}
}

func TestClearDrainsInOrder(t *testing.T) {
	q := New(1 << 20)
	a := ccSizedTo(t, 18)
	b := ccSizedTo(t, 18)
	q.Push(a)
	q.Push(b)

	got := q.Clear()
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("Clear() order mismatch: %v", got)
	}
	if q.Len() != 0 || q.Size() != 0 {
		t.Fatalf("queue not empty after Clear()")
	}
}

func TestPop(t *testing.T) {
	q := New(1 << 20)
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on empty queue should report false")
	}
	a := ccSizedTo(t, 18)
	q.Push(a)
	got, ok := q.Pop()
	if !ok || got != a {
		t.Fatalf("Pop() = %v, %v", got, ok)
	}
}
