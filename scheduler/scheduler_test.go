package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

func wp(level packet.Level) Command {
	p := packet.NewControlCommand(level)
	return Command{Kind: CmdWritePacket, Packet: p}
}

func TestPreservesSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var order []packet.Level

	s := New(1<<20, true, func(cmd Command) {
		if cmd.Kind != CmdWritePacket {
			return
		}
		mu.Lock()
		order = append(order, cmd.Packet.Level())
		mu.Unlock()
	})
	s.Start()

	levels := []packet.Level{packet.LevelDebug, packet.LevelDebug, packet.LevelWarning, packet.LevelError}
	for _, l := range levels {
		s.Schedule(wp(l))
	}
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(levels) {
		t.Fatalf("got %d commands, want %d", len(order), len(levels))
	}
	for i, l := range levels {
		if order[i] != l {
			t.Fatalf("order[%d] = %v, want %v", i, order[i], l)
		}
	}
}

func TestThrottleBlocksUntilDrained(t *testing.T) {
	release := make(chan struct{})
	var processed int
	var mu sync.Mutex

	s := New(20, true, func(cmd Command) {
		<-release
		mu.Lock()
		processed++
		mu.Unlock()
	})
	s.Start()

	// Each wp() command charges 6(header)+8(fixed)+4(len)=18 bytes, so the
	// 20-byte threshold holds one queued command. The worker takes the first
	// and blocks on release; the second waits in the queue; the third must
	// wait until the worker dequeues the second, which cannot happen before
	// release.
	done := make(chan struct{})
	go func() {
		s.Schedule(wp(packet.LevelDebug))
		s.Schedule(wp(packet.LevelDebug))
		s.Schedule(wp(packet.LevelDebug))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Schedule should have blocked on the full queue")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	s.Stop()
}

func TestDropOldestWhenNotThrottled(t *testing.T) {
	var mu sync.Mutex
	var seen []packet.Level
	block := make(chan struct{})

	s := New(20, false, func(cmd Command) {
		<-block // hold the worker so the queue actually backs up
		if cmd.Kind == CmdWritePacket {
			mu.Lock()
			seen = append(seen, cmd.Packet.Level())
			mu.Unlock()
		}
	})
	s.Start()

	s.Schedule(wp(packet.LevelDebug))    // occupies the worker via block
	time.Sleep(20 * time.Millisecond)    // ensure it was dequeued and is blocking
	s.Schedule(wp(packet.LevelVerbose))  // will be evicted
	s.Schedule(wp(packet.LevelWarning))  // survives
	close(block)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != packet.LevelDebug || seen[1] != packet.LevelWarning {
		t.Fatalf("unexpected processed sequence: %v", seen)
	}
}

func TestClearDropsPendingWithoutExecuting(t *testing.T) {
	var executed int
	s := New(1<<20, true, func(cmd Command) {
		if cmd.Kind == CmdWritePacket {
			executed++
		}
	})
	// Do not Start(): commands queue up but nothing drains them.
	s.Schedule(wp(packet.LevelDebug))
	s.Schedule(wp(packet.LevelDebug))
	s.Clear()
	if s.QueueBytes() != 0 {
		t.Fatalf("expected queue to be empty after Clear, got %d bytes", s.QueueBytes())
	}
}
