package cloudproto

import (
	"time"

	"github.com/Code-Partners/smartinspect-java-library-sub003/options"
	"github.com/google/uuid"
)

// virtualFile tracks the current virtual-file UUID and the byte/calendar
// bounds that trigger a rotation to a new one.
type virtualFile struct {
	id           uuid.UUID
	size         int64
	maxSize      int64
	rotate       options.Rotate
	rotateAt     time.Time // next calendar boundary; zero if rotate == RotateNone
	newUUID      func() uuid.UUID
	nowFn        func() time.Time
}

func newVirtualFile(maxSize int64, rotate options.Rotate) *virtualFile {
	vf := &virtualFile{
		maxSize: maxSize,
		rotate:  rotate,
		newUUID: uuid.New,
		nowFn:   time.Now,
	}
	vf.id = vf.newUUID()
	if rotate != options.RotateNone {
		vf.rotateAt = nextBoundary(vf.nowFn(), rotate)
	}
	return vf
}

// ShouldRotate reports whether admitting nextPacketBytes more bytes would
// cross the size bound, or whether the calendar boundary has passed.
func (vf *virtualFile) ShouldRotate(nextPacketBytes int64) bool {
	if vf.size+nextPacketBytes > vf.maxSize {
		return true
	}
	if vf.rotate != options.RotateNone && !vf.rotateAt.IsZero() && !vf.nowFn().Before(vf.rotateAt) {
		return true
	}
	return false
}

// Rotate generates a fresh UUID, resets the byte counter, and recomputes
// the next calendar boundary.
func (vf *virtualFile) Rotate() uuid.UUID {
	vf.id = vf.newUUID()
	vf.size = 0
	if vf.rotate != options.RotateNone {
		vf.rotateAt = nextBoundary(vf.nowFn(), vf.rotate)
	}
	return vf.id
}

// Add accounts bytes written under the current virtual file.
func (vf *virtualFile) Add(n int64) {
	vf.size += n
}

func (vf *virtualFile) ID() uuid.UUID { return vf.id }

func nextBoundary(from time.Time, r options.Rotate) time.Time {
	switch r {
	case options.RotateHourly:
		return from.Truncate(time.Hour).Add(time.Hour)
	case options.RotateDaily:
		y, m, d := from.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, from.Location()).AddDate(0, 0, 1)
	case options.RotateWeekly:
		y, m, d := from.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
		daysUntilNext := 7 - int(from.Weekday())
		if daysUntilNext == 0 {
			daysUntilNext = 7
		}
		return midnight.AddDate(0, 0, daysUntilNext)
	case options.RotateMonthly:
		y, m, _ := from.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, from.Location()).AddDate(0, 1, 0)
	default:
		return time.Time{}
	}
}
