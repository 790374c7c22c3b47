package cloudproto

import (
	"testing"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/google/uuid"
)

// With maxsize=1MiB and a pending size of 1MiB-100B, a 200B packet
// must trigger rotation before it is admitted.
func TestShouldRotateBySize(t *testing.T) {
	vf := newVirtualFile(1<<20, options.RotateNone)
	vf.size = (1 << 20) - 100

	if !vf.ShouldRotate(200) {
		t.Fatal("expected rotation to trigger when the next packet would exceed maxsize")
	}
	if vf.ShouldRotate(50) {
		t.Fatal("a packet that still fits must not trigger rotation")
	}
}

func TestRotateGeneratesFreshUUIDAndResetsSize(t *testing.T) {
	calls := 0
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	vf := newVirtualFile(1<<20, options.RotateNone)
	vf.newUUID = func() uuid.UUID {
		id := ids[calls]
		calls++
		return id
	}
	vf.id = ids[0]
	vf.size = 900

	newID := vf.Rotate()
	if newID != ids[1] {
		t.Fatalf("Rotate() = %v, want %v", newID, ids[1])
	}
	if vf.size != 0 {
		t.Fatalf("size = %d, want 0 after rotate", vf.size)
	}
	if vf.ID() != ids[1] {
		t.Fatalf("ID() = %v, want %v", vf.ID(), ids[1])
	}
}
