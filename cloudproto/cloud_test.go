package cloudproto

import (
	"net"
	"testing"
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/chunk"
	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/Code-Partners/smartinspect-java-library-sub003/packet"
	"github.com/Code-Partners/smartinspect-java-library-sub003/protocol"
	"github.com/Code-Partners/smartinspect-java-library-sub003/wire"
)

// fakeCloudServer accepts one connection, answers the cloud (send-first)
// banner handshake, then decodes every magic-prefaced frame it receives
// and replies with the next queued canned reply, or "OK" if none is
// queued.
type fakeCloudServer struct {
	ln      net.Listener
	packets chan packet.Packet
	replies chan string
}

func newFakeCloudServer(t *testing.T) *fakeCloudServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	s := &fakeCloudServer{ln: ln, packets: make(chan packet.Packet, 64), replies: make(chan string, 64)}
	go s.serve(t)
	return s
}

func (s *fakeCloudServer) queueReply(r string) { s.replies <- r }

func (s *fakeCloudServer) serve(t *testing.T) {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}
	if _, err := conn.Write([]byte("SmartInspect\r\n")); err != nil {
		return
	}

	for {
		var magic [4]byte
		if _, err := readFullRaw(conn, magic[:]); err != nil {
			return
		}
		if magic != magicPreface {
			t.Errorf("frame missing magic preface, got %v", magic)
			return
		}
		pk, err := wire.Decode(conn)
		if err != nil {
			return
		}
		s.packets <- pk

		reply := "OK"
		select {
		case r := <-s.replies:
			reply = r
		default:
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func readFullRaw(conn net.Conn, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := conn.Read(buf[read:])
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, nil
}

func (s *fakeCloudServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func newTestProtocol(s *fakeCloudServer) *Protocol {
	p := NewProtocol()
	p.opts.Host = "127.0.0.1"
	p.opts.Port = s.port()
	p.opts.TLSEnabled = false
	p.opts.WriteKey = "test-key"
	p.vf = newVirtualFile(p.opts.VirtualFileMaxSize, p.opts.Rotate)
	return p
}

// Packets written faster than chunking.maxagems bundle by size; the
// remainder flushes once its oldest packet crosses the age threshold.
func TestChunkingBundlesBySizeThenAge(t *testing.T) {
	s := newFakeCloudServer(t)
	p := newTestProtocol(s)
	p.opts.ChunkMaxAgeMs = minChunkMaxAge

	pk := packet.NewControlCommand(packet.LevelDebug)
	pk.Data = make([]byte, 900)
	var f wire.Formatter
	formattedLen, err := f.Compile(pk)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Budget for exactly 10 formatted packets of this size.
	p.opts.ChunkMaxSize = int64(10 * formattedLen)
	p.bdl = chunk.NewBundle(int(p.opts.ChunkMaxSize))

	if err := p.InternalConnect(); err != nil {
		t.Fatalf("InternalConnect: %v", err)
	}
	defer p.InternalDisconnect()

	<-s.packets // LogHeader

	for i := 0; i < 15; i++ {
		if err := p.InternalWritePacket(pk); err != nil {
			t.Fatalf("InternalWritePacket #%d: %v", i, err)
		}
	}

	first := <-s.packets
	chunk1, ok := first.(*packet.Chunk)
	if !ok {
		t.Fatalf("first flush: got %T, want *packet.Chunk", first)
	}
	if chunk1.PacketCount != 10 {
		t.Fatalf("first chunk PacketCount = %d, want 10", chunk1.PacketCount)
	}

	time.Sleep(time.Duration(p.opts.ChunkMaxAgeMs+50) * time.Millisecond)
	p.FlushIfStale()

	second := <-s.packets
	chunk2, ok := second.(*packet.Chunk)
	if !ok {
		t.Fatalf("second flush: got %T, want *packet.Chunk", second)
	}
	if chunk2.PacketCount != 5 {
		t.Fatalf("second chunk PacketCount = %d, want 5", chunk2.PacketCount)
	}
}

// A ReconnectForbidden reply reaches the installed callback, and the
// write that provoked it returns an error.
func TestReconnectForbiddenReachesCallback(t *testing.T) {
	s := newFakeCloudServer(t)
	p := newTestProtocol(s)
	p.opts.ChunkingEnabled = false
	p.bdl = nil

	var got *protocol.ReplyError
	p.OnReply(func(r *protocol.ReplyError) { got = r })

	if err := p.InternalConnect(); err != nil {
		t.Fatalf("InternalConnect: %v", err)
	}
	defer p.InternalDisconnect()
	<-s.packets // LogHeader

	s.queueReply("SmartInspectProtocolExceptionReconnectForbidden - quota exhausted")
	pk := packet.NewControlCommand(packet.LevelDebug)
	err := p.InternalWritePacket(pk)
	<-s.packets // the written packet itself, drained so the server doesn't block

	if err == nil {
		t.Fatal("expected InternalWritePacket to return the ReconnectForbidden reply as an error")
	}
	if got == nil || got.Kind != protocol.ReplyReconnectForbidden {
		t.Fatalf("callback did not receive ReconnectForbidden, got %v", got)
	}
}

// A packet that would cross maxsize triggers a virtual-file rotation
// (and a fresh LogHeader) before it is sent.
func TestVirtualFileRotationOnWrite(t *testing.T) {
	s := newFakeCloudServer(t)
	p := newTestProtocol(s)
	p.opts.ChunkingEnabled = false
	p.bdl = nil
	p.vf = newVirtualFile(1024, options.RotateNone)

	if err := p.InternalConnect(); err != nil {
		t.Fatalf("InternalConnect: %v", err)
	}
	defer p.InternalDisconnect()
	if _, ok := (<-s.packets).(*packet.LogHeader); !ok {
		t.Fatal("expected initial LogHeader")
	}

	oversized := packet.NewControlCommand(packet.LevelDebug)
	oversized.Data = make([]byte, 2000)
	if err := p.InternalWritePacket(oversized); err != nil {
		t.Fatalf("InternalWritePacket: %v", err)
	}

	rotatedHeader := <-s.packets
	if _, ok := rotatedHeader.(*packet.LogHeader); !ok {
		t.Fatalf("expected a fresh LogHeader ahead of the oversized packet, got %T", rotatedHeader)
	}
	payload := <-s.packets
	if _, ok := payload.(*packet.ControlCommand); !ok {
		t.Fatalf("got %T, want *packet.ControlCommand", payload)
	}
}

// With chunking enabled, a packet that would cross the virtual file's
// maxsize still rotates (and flushes+re-headers) as soon as it is admitted,
// rather than waiting for the bundle itself to flush.
func TestVirtualFileRotationWithChunking(t *testing.T) {
	s := newFakeCloudServer(t)
	p := newTestProtocol(s)
	p.opts.ChunkingEnabled = true
	p.bdl = chunk.NewBundle(64 * 1024)
	p.vf = newVirtualFile(1024, options.RotateNone)

	if err := p.InternalConnect(); err != nil {
		t.Fatalf("InternalConnect: %v", err)
	}
	defer p.InternalDisconnect()
	if _, ok := (<-s.packets).(*packet.LogHeader); !ok {
		t.Fatal("expected initial LogHeader")
	}

	// Pre-seed the virtual file close to its cap so the next packet alone
	// crosses it, same as a real file that has been accumulating packets.
	p.vf.Add(924)

	oversized := packet.NewControlCommand(packet.LevelDebug)
	oversized.Data = make([]byte, 200)
	if err := p.InternalWritePacket(oversized); err != nil {
		t.Fatalf("InternalWritePacket: %v", err)
	}

	rotatedHeader := <-s.packets
	if _, ok := rotatedHeader.(*packet.LogHeader); !ok {
		t.Fatalf("expected a fresh LogHeader ahead of the oversized packet, got %T", rotatedHeader)
	}
	if got := p.bdl.PacketCount(); got != 1 {
		t.Fatalf("bundle packet count = %d, want 1 (packet admitted into the fresh bundle, not sent standalone)", got)
	}
	select {
	case pk := <-s.packets:
		t.Fatalf("packet should still be sitting in the bundle, unflushed, got %T on the wire", pk)
	default:
	}
}
