// Package scheduler implements the single-consumer command queue that
// drains into the one worker goroutine a protocol uses for asynchronous
// I/O: Connect/Disconnect/WritePacket/Dispatch commands are tail-inserted by
// producer goroutines and executed, in order, by that worker alone.
package scheduler

import (
	"sync"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

type CommandKind int

const (
	CmdConnect CommandKind = iota
	CmdDisconnect
	CmdWritePacket
	CmdDispatch
	cmdStop // internal: tells run() to return after draining
)

// Command is the scheduler's unit of work. Worker is set only for
// CmdDispatch; Packet is set only for CmdWritePacket.
type Command struct {
	Kind    CommandKind
	Packet  packet.Packet
	Worker  func()
	byteLen int64
}

// Scheduler is the bounded command queue plus the worker loop draining it.
// Run must be started exactly once (via Start) before Schedule is called.
type Scheduler struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     []Command
	size      int64
	threshold int64
	throttle  bool
	stopping  bool
	started   bool
	wg        sync.WaitGroup
	handle    func(Command)
}

// New creates a scheduler with the given byte threshold (async.queue),
// eviction policy (throttle=true blocks producers, false drops the oldest),
// and the handler the worker goroutine invokes for every dequeued command.
func New(threshold int64, throttle bool, handle func(Command)) *Scheduler {
	s := &Scheduler{threshold: threshold, throttle: throttle, handle: handle}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the single worker goroutine. Calling Start more than once
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
}

// Schedule tail-inserts cmd, honoring the byte budget: when admitting cmd
// would exceed threshold, throttle=true blocks the caller until the worker
// has drained enough bytes, while throttle=false evicts the oldest queued
// commands instead.
func (s *Scheduler) Schedule(cmd Command) {
	cmd.byteLen = wireLenOf(cmd)

	s.mu.Lock()
	for s.size+cmd.byteLen > s.threshold && len(s.items) > 0 {
		if s.throttle {
			s.cond.Wait()
			continue
		}
		dropped := s.items[0]
		s.items = s.items[1:]
		s.size -= dropped.byteLen
	}
	s.items = append(s.items, cmd)
	s.size += cmd.byteLen
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Clear empties the queue without executing any pending command.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.items = nil
	s.size = 0
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Stop schedules a terminal marker and blocks until the worker has drained
// every command queued before it (including this call's own marker) and
// exited. There is no per-command cancellation; Stop is the only way to
// interrupt pending work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.items = append(s.items, Command{Kind: cmdStop})
	s.mu.Unlock()
	s.cond.Broadcast()

	s.wg.Wait()
}

// QueueBytes reports the current byte total admitted to the queue.
func (s *Scheduler) QueueBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.items) == 0 {
			s.cond.Wait()
		}
		cmd := s.items[0]
		s.items = s.items[1:]
		s.size -= cmd.byteLen
		s.mu.Unlock()
		s.cond.Broadcast()

		if cmd.Kind == cmdStop {
			return
		}
		s.handle(cmd)
	}
}

func wireLenOf(cmd Command) int64 {
	if cmd.Kind == CmdWritePacket && cmd.Packet != nil {
		return int64(packet.WireSize(cmd.Packet))
	}
	return 0
}
