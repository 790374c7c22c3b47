// Package queue implements the bounded packet backlog used by the protocol
// base to buffer low-severity packets until a flush-on packet arrives.
package queue

import (
	"sync"

	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
)

// PacketQueue is a byte-bounded FIFO. Push evicts from the front until the
// new total fits the configured backlog; a single packet larger than the
// cap is still admitted on its own (see DESIGN.md open-question note).
type PacketQueue struct {
	mu      sync.Mutex
	items   []packet.Packet
	size    int64
	backlog int64
}

func New(backlogBytes int64) *PacketQueue {
	return &PacketQueue{backlog: backlogBytes}
}

// SetBacklog resizes the cap; enforced lazily on the next Push.
func (q *PacketQueue) SetBacklog(bytes int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.backlog = bytes
}

// Push appends p, evicting the oldest buffered packets until the queue fits
// the backlog cap. It returns the evicted packets, oldest first.
func (q *PacketQueue) Push(p packet.Packet) []packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, p)
	q.size += int64(packet.WireSize(p))

	var evicted []packet.Packet
	for q.size > q.backlog && len(q.items) > 1 {
		dropped := q.items[0]
		q.items = q.items[1:]
		q.size -= int64(packet.WireSize(dropped))
		evicted = append(evicted, dropped)
	}
	return evicted
}

// Pop removes and returns the oldest packet, or (nil, false) if empty.
func (q *PacketQueue) Pop() (packet.Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	q.size -= int64(packet.WireSize(p))
	return p, true
}

// Clear drains and returns every buffered packet in insertion order.
func (q *PacketQueue) Clear() []packet.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	q.size = 0
	return items
}

// Len reports how many packets are currently buffered.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Size reports the current total wire-byte size of buffered packets.
func (q *PacketQueue) Size() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
