package world

import "errors"

// Construction-time validation failures.
var (
	// ErrOverridableProperty is returned when an area default property is outside
	// the area-overridable subset.
	ErrOverridableProperty = errors.New("property is not area-overridable")
	// ErrDefaultLink is returned when an extended link is built from default values.
	ErrDefaultLink = errors.New("extended link has only default properties")
	// ErrEmptyCell is returned when a grid operation references a cell without a descriptor.
	ErrEmptyCell = errors.New("grid cell is empty")
	// ErrDuplicateExit is returned when a direction already holds an exit or override.
	ErrDuplicateExit = errors.New("duplicate exit")
	// ErrDuplicateCurrent is returned when a location would hold a second river current.
	ErrDuplicateCurrent = errors.New("location already has a current exit")
	// ErrOffsetRange is returned when a grid attachment offset exceeds a grid's extent.
	ErrOffsetRange = errors.New("grid attachment offset out of range")
	// ErrAlreadyAttached is returned when a grid side already holds a neighbor.
	ErrAlreadyAttached = errors.New("grid side already attached")
	// ErrReverseOneWay is returned when a one-way linked exit names a reverse direction.
	ErrReverseOneWay = errors.New("reverse direction given for one-way exit")
	// ErrPathTooShort is returned when a path has fewer than two locations.
	ErrPathTooShort = errors.New("path needs at least two locations")
	// ErrUnknownLocation is returned when a name or id does not resolve.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrDuplicateName is returned when a registry name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
)

// Illegal-state failures.
var (
	// ErrOneWay is returned when the reverse of a one-way linked exit is requested.
	ErrOneWay = errors.New("one-way exit has no reverse")
	// ErrInvertFake is returned when a fake link is inverted.
	ErrInvertFake = errors.New("fake link cannot be inverted")
	// ErrAlreadyBuilt is returned when a builder is used after Build.
	ErrAlreadyBuilt = errors.New("already built")
	// ErrFrozen is returned when exits are added to a location whose exit map is frozen.
	ErrFrozen = errors.New("location exits are frozen")
	// ErrSealed is returned when the world is modified after Seal.
	ErrSealed = errors.New("world is sealed")
)

// ErrOutOfBounds is returned for coordinate access outside a grid's matrix.
var ErrOutOfBounds = errors.New("coordinates out of bounds")
