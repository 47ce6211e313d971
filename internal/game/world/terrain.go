package world

import "fmt"

// Terrain is the ground type of a location.
type Terrain uint8

// Terrains.
const (
	TerrainField Terrain = iota
	TerrainForest
	TerrainHills
	TerrainMountain
	TerrainDesert
	TerrainSwamp
	TerrainShallows
	TerrainWater
	TerrainRoad
	TerrainUnderground
	TerrainBuilding
)

var terrainNames = []string{
	"field", "forest", "hills", "mountain", "desert", "swamp",
	"shallows", "water", "road", "underground", "building",
}

// String returns the terrain name.
func (t Terrain) String() string {
	if int(t) >= len(terrainNames) {
		return fmt.Sprintf("terrain(%d)", uint8(t))
	}
	return terrainNames[t]
}

// IsWater reports whether the terrain is open or shallow water.
func (t Terrain) IsWater() bool {
	return t == TerrainWater || t == TerrainShallows
}

// MoveCost returns the base movement cost of entering the terrain.
func (t Terrain) MoveCost() int {
	switch t {
	case TerrainRoad, TerrainBuilding:
		return 1
	case TerrainField, TerrainUnderground:
		return 2
	case TerrainForest, TerrainHills, TerrainShallows:
		return 3
	case TerrainDesert, TerrainSwamp:
		return 4
	default:
		return 6
	}
}

// ParseTerrain resolves a terrain by name.
func ParseTerrain(s string) (Terrain, error) {
	for i, n := range terrainNames {
		if n == s {
			return Terrain(i), nil
		}
	}
	return TerrainField, fmt.Errorf("unknown terrain %q", s)
}
