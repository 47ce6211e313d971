package world

import (
	"fmt"

	"go.uber.org/zap"
)

// ReversePolicy controls the exit created back from a named exit's
// destination.
type ReversePolicy uint8

const (
	// ReverseInverse mirrors the link's inverse.
	ReverseInverse ReversePolicy = iota
	// ReverseSimple uses a default link.
	ReverseSimple
	// ReverseOneWay creates no reverse exit.
	ReverseOneWay
)

var reversePolicyNames = [...]string{"inverse", "simple", "oneway"}

// String returns the policy name.
func (p ReversePolicy) String() string {
	if int(p) < len(reversePolicyNames) {
		return reversePolicyNames[p]
	}
	return fmt.Sprintf("ReversePolicy(%d)", p)
}

// ParseReversePolicy maps a policy name to its value. The empty string
// means ReverseInverse.
func ParseReversePolicy(s string) (ReversePolicy, error) {
	if s == "" {
		return ReverseInverse, nil
	}
	for i, n := range reversePolicyNames {
		if n == s {
			return ReversePolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown reverse policy %q", s)
}

// LinkedExit is an exit declared before its destination exists; the
// destination is a registered location name resolved at link time.
type LinkedExit struct {
	from       LocationID
	dir        Direction
	link       Link
	dest       string
	policy     ReversePolicy
	reverseDir Direction
}

// NewLinkedExit declares an exit from from in direction dir to the location
// registered as dest. The reverse exit leaves dest in reverse[0] when given,
// the opposite of dir otherwise.
//
// Postcondition: Returns ErrReverseOneWay if a reverse direction is given
// with ReverseOneWay.
func NewLinkedExit(from LocationID, dir Direction, link Link, dest string, policy ReversePolicy, reverse ...Direction) (LinkedExit, error) {
	le := LinkedExit{
		from:       from,
		dir:        dir,
		link:       link,
		dest:       dest,
		policy:     policy,
		reverseDir: dir.Opposite(),
	}
	switch {
	case len(reverse) > 1:
		return LinkedExit{}, fmt.Errorf("linked exit to %q: at most one reverse direction", dest)
	case len(reverse) == 1 && policy == ReverseOneWay:
		return LinkedExit{}, fmt.Errorf("linked exit to %q: %w", dest, ErrReverseOneWay)
	case len(reverse) == 1:
		le.reverseDir = reverse[0]
	}
	return le, nil
}

// From returns the origin id.
func (le LinkedExit) From() LocationID { return le.from }

// Direction returns the forward direction.
func (le LinkedExit) Direction() Direction { return le.dir }

// Link returns the forward link.
func (le LinkedExit) Link() Link { return le.link }

// Destination returns the destination name.
func (le LinkedExit) Destination() string { return le.dest }

// Policy returns the reverse policy.
func (le LinkedExit) Policy() ReversePolicy { return le.policy }

// ReverseDirection returns the direction of the reverse exit.
func (le LinkedExit) ReverseDirection() Direction { return le.reverseDir }

// Exit returns the forward exit to dest.
func (le LinkedExit) Exit(dest LocationID) Exit {
	return NewExit(le.dir, le.link, dest)
}

// Reverse returns the exit placed at the destination leading back to the
// origin.
//
// Postcondition: Returns ErrOneWay under ReverseOneWay and ErrInvertFake when
// inverting a fake link.
func (le LinkedExit) Reverse() (Exit, error) {
	switch le.policy {
	case ReverseOneWay:
		return Exit{}, fmt.Errorf("reverse of exit to %q: %w", le.dest, ErrOneWay)
	case ReverseSimple:
		return NewExit(le.reverseDir, DefaultLink, le.from), nil
	default:
		inv, err := le.link.Invert()
		if err != nil {
			return Exit{}, fmt.Errorf("reverse of exit to %q: %w", le.dest, err)
		}
		return NewExit(le.reverseDir, inv, le.from), nil
	}
}

// Linker collects named exits during loading and resolves them once every
// location has been registered.
type Linker struct {
	w       *World
	pending []LinkedExit
	logger  *zap.Logger
}

// NewLinker returns a linker resolving names against w.
func NewLinker(w *World) *Linker {
	return &Linker{w: w, logger: w.logger}
}

// Declare queues le for resolution.
func (k *Linker) Declare(le LinkedExit) {
	k.pending = append(k.pending, le)
}

// Pending returns the number of queued exits.
func (k *Linker) Pending() int { return len(k.pending) }

// Resolve adds every queued exit and its reverse, then freezes each touched
// free-standing location. The queue is discarded whether or not it succeeds.
//
// Postcondition: Returns ErrUnknownLocation for an unregistered destination.
func (k *Linker) Resolve() error {
	pending := k.pending
	k.pending = nil

	touched := make(map[LocationID]bool)
	for _, le := range pending {
		dest, ok := k.w.Lookup(le.dest)
		if !ok {
			return fmt.Errorf("linking %s %s to %q: %w", le.from, le.dir, le.dest, ErrUnknownLocation)
		}
		if err := k.w.AddExit(le.from, le.Exit(dest)); err != nil {
			return fmt.Errorf("linking %s %s to %q: %w", le.from, le.dir, le.dest, err)
		}
		touched[le.from] = true
		if le.policy == ReverseOneWay {
			continue
		}
		rev, err := le.Reverse()
		if err != nil {
			return err
		}
		if err := k.w.AddExit(dest, rev); err != nil {
			return fmt.Errorf("linking %q %s back to %s: %w", le.dest, le.reverseDir, le.from, err)
		}
		touched[dest] = true
	}
	for id := range touched {
		k.w.freeze(id)
	}
	k.logger.Info("named exits resolved",
		zap.Int("exits", len(pending)),
		zap.Int("locations", len(touched)),
	)
	return nil
}
