package world

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracks is a single footprint left at a location: who made it, which way
// they left and when. Tracks are chained into trail segments.
type Tracks struct {
	loc        *Location
	creator    uuid.UUID
	dir        Direction
	at         time.Time
	visibility int

	prev, next *Tracks
	seg        *segment
}

// Location returns the location holding the tracks.
func (t *Tracks) Location() *Location { return t.loc }

// Creator returns the entity that left the tracks.
func (t *Tracks) Creator() uuid.UUID { return t.creator }

// Direction returns the direction the creator left in.
func (t *Tracks) Direction() Direction { return t.dir }

// Time returns when the tracks were made.
func (t *Tracks) Time() time.Time { return t.at }

// Visibility returns how easily the tracks are noticed.
func (t *Tracks) Visibility() int {
	if t.seg == nil {
		return t.visibility
	}
	t.seg.trail.mu.Lock()
	defer t.seg.trail.mu.Unlock()
	return t.visibility
}

// Next returns the following tracks in the same segment.
func (t *Tracks) Next() *Tracks {
	if t.seg == nil {
		return nil
	}
	t.seg.trail.mu.Lock()
	defer t.seg.trail.mu.Unlock()
	return t.next
}

// Prev returns the preceding tracks in the same segment.
func (t *Tracks) Prev() *Tracks {
	if t.seg == nil {
		return nil
	}
	t.seg.trail.mu.Lock()
	defer t.seg.trail.mu.Unlock()
	return t.prev
}

// Conceal scales visibility by factor. Visibility never increases.
func (t *Tracks) Conceal(factor float64) {
	if factor >= 1 {
		return
	}
	if factor < 0 {
		factor = 0
	}
	if t.seg != nil {
		t.seg.trail.mu.Lock()
		defer t.seg.trail.mu.Unlock()
	}
	t.visibility = int(float64(t.visibility) * factor)
}

// Remove unlinks the tracks from their segment and detaches them from their
// location. Removing twice is a no-op.
func (t *Tracks) Remove() {
	if t.seg == nil {
		return
	}
	tr := t.seg.trail
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t.removeLocked()
}

func (t *Tracks) removeLocked() {
	s := t.seg
	if s == nil {
		return
	}
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		s.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		s.tail = t.prev
	}
	s.n--
	t.prev, t.next, t.seg = nil, nil, nil
	t.loc.detachTracks(t)
}

// segment is a contiguous run of tracks, oldest at head.
type segment struct {
	trail      *Trail
	head, tail *Tracks
	n          int
}

func (s *segment) push(t *Tracks) {
	t.seg = s
	t.prev = s.tail
	if s.tail != nil {
		s.tail.next = t
	} else {
		s.head = t
	}
	s.tail = t
	s.n++
}

// Trail is an entity's movement history: a stack of segments, newest last.
// A new segment begins whenever continuity is broken, such as entering or
// leaving open water.
//
// Invariant: a Trail always holds at least one segment.
type Trail struct {
	mu       sync.Mutex
	creator  uuid.UUID
	segments []*segment
}

// NewTrail returns an empty trail for creator.
func NewTrail(creator uuid.UUID) *Trail {
	t := &Trail{creator: creator}
	t.segments = []*segment{{trail: t}}
	return t
}

// Creator returns the entity the trail belongs to.
func (tr *Trail) Creator() uuid.UUID { return tr.creator }

func (tr *Trail) current() *segment {
	return tr.segments[len(tr.segments)-1]
}

// Mark leaves tracks at loc heading dir. Locations with the NoTrack
// property take no tracks and Mark returns nil.
//
// Precondition: loc must be non-nil.
func (tr *Trail) Mark(loc *Location, dir Direction, at time.Time, visibility int) *Tracks {
	if loc.IsProperty(NoTrack) {
		return nil
	}
	t := &Tracks{
		loc:        loc,
		creator:    tr.creator,
		dir:        dir,
		at:         at,
		visibility: visibility,
	}
	tr.mu.Lock()
	tr.current().push(t)
	tr.mu.Unlock()
	loc.attachTracks(t)
	return t
}

// Interrupt starts a new segment. An already empty current segment is reused.
func (tr *Trail) Interrupt() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.interruptLocked()
}

func (tr *Trail) interruptLocked() {
	if tr.current().n == 0 {
		return
	}
	tr.segments = append(tr.segments, &segment{trail: tr})
}

// Move records leaving from toward to in direction dir. A change of movement
// mode between the two locations interrupts the trail first.
//
// Precondition: from and to must be non-nil.
func (tr *Trail) Move(from, to *Location, dir Direction, at time.Time, visibility int) *Tracks {
	if from.IsTransition(to) {
		tr.Interrupt()
	}
	return tr.Mark(from, dir, at, visibility)
}

// Prune removes tracks older than expiry, oldest first. Fully consumed
// segments are popped; if none remain a fresh empty segment is pushed.
// It returns the number of tracks removed.
//
// Postcondition: pruning again with the same expiry removes nothing.
func (tr *Trail) Prune(expiry time.Time) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	removed := 0
	for len(tr.segments) > 0 {
		s := tr.segments[0]
		for s.head != nil && s.head.at.Before(expiry) {
			s.head.removeLocked()
			removed++
		}
		if s.head != nil {
			return removed
		}
		tr.segments = tr.segments[1:]
	}
	tr.segments = []*segment{{trail: tr}}
	return removed
}

// Clear removes every track and leaves one empty segment.
func (tr *Trail) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, s := range tr.segments {
		for s.head != nil {
			s.head.removeLocked()
		}
	}
	tr.segments = []*segment{{trail: tr}}
}

// Segments returns the number of segments.
func (tr *Trail) Segments() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.segments)
}

// Segment returns the tracks of segment i, oldest first.
func (tr *Trail) Segment(i int) []*Tracks {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if i < 0 || i >= len(tr.segments) {
		return nil
	}
	s := tr.segments[i]
	out := make([]*Tracks, 0, s.n)
	for t := s.head; t != nil; t = t.next {
		out = append(out, t)
	}
	return out
}

// Len returns the total number of tracks.
func (tr *Trail) Len() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	n := 0
	for _, s := range tr.segments {
		n += s.n
	}
	return n
}

// Latest returns the most recent tracks, or nil.
func (tr *Trail) Latest() *Tracks {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i := len(tr.segments) - 1; i >= 0; i-- {
		if t := tr.segments[i].tail; t != nil {
			return t
		}
	}
	return nil
}
