package world

import (
	"fmt"
	"math/bits"
	"strings"
)

// Property is a boolean location attribute.
//
// Invariant: the enumeration fits in PropertySet (fewer than 8 members).
type Property uint8

// Properties.
const (
	Dark Property = iota
	Indoors
	Sanctuary
	Water
	Fish
	Busy
	NoTrack

	numProperties
)

var propertyNames = [numProperties]string{
	"dark", "indoors", "sanctuary", "water", "fish", "busy", "notrack",
}

// String returns the property name.
func (p Property) String() string {
	if p >= numProperties {
		return fmt.Sprintf("property(%d)", uint8(p))
	}
	return propertyNames[p]
}

// Overridable reports whether an area may supply p as a default that
// locations toggle with their local bit.
func (p Property) Overridable() bool {
	return p == Water || p == Fish || p == Busy
}

// ParseProperty resolves a property by name.
func ParseProperty(s string) (Property, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for i, n := range propertyNames {
		if n == in {
			return Property(i), nil
		}
	}
	return 0, fmt.Errorf("unknown property %q", s)
}

// PropertySet is a packed set of properties.
type PropertySet uint8

// NewPropertySet returns a set holding props.
func NewPropertySet(props ...Property) PropertySet {
	var s PropertySet
	for _, p := range props {
		s = s.With(p)
	}
	return s
}

// Has reports whether p is in the set.
func (s PropertySet) Has(p Property) bool {
	return s&(1<<p) != 0
}

// With returns the set with p added.
func (s PropertySet) With(p Property) PropertySet {
	return s | 1<<p
}

// Without returns the set with p removed.
func (s PropertySet) Without(p Property) PropertySet {
	return s &^ (1 << p)
}

// Len returns the number of properties in the set.
func (s PropertySet) Len() int {
	return bits.OnesCount8(uint8(s))
}

// Properties returns the members in enumeration order.
func (s PropertySet) Properties() []Property {
	var out []Property
	for p := Property(0); p < numProperties; p++ {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// String renders the set as a comma-separated list.
func (s PropertySet) String() string {
	names := make([]string, 0, s.Len())
	for _, p := range s.Properties() {
		names = append(names, p.String())
	}
	return strings.Join(names, ",")
}
