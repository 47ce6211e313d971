package world

// Descriptor is the immutable static description of a location.
// Descriptors compare by value.
type Descriptor struct {
	Name    string
	Terrain Terrain
	Props   PropertySet
}

// IsWater reports whether the descriptor's terrain is water.
func (d Descriptor) IsWater() bool {
	return d.Terrain.IsWater()
}
