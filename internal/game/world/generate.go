package world

import (
	"strings"

	"github.com/aquilax/go-perlin"
)

// Noise parameters shared by every terrain generator.
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = int32(3)
)

// TerrainGenerator produces grid descriptors from two Perlin noise fields,
// elevation and moisture. Output is a pure function of the seed and the
// coordinate, so regenerating a grid yields identical cells.
type TerrainGenerator struct {
	elevation *perlin.Perlin
	moisture  *perlin.Perlin
	scale     float64
	names     *NameStore
	props     PropertySet
}

// NewTerrainGenerator returns a generator for seed. scale shrinks
// coordinates before sampling; values <= 0 default to 0.1. names supplies
// cell names keyed by terrain; nil falls back to terrain names.
func NewTerrainGenerator(seed int64, scale float64, names *NameStore) *TerrainGenerator {
	if scale <= 0 {
		scale = 0.1
	}
	if names == nil {
		names = emptyStore
	}
	return &TerrainGenerator{
		elevation: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		moisture:  perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed+1),
		scale:     scale,
		names:     names,
	}
}

// WithProperties returns a copy that sets props on every generated cell.
func (g *TerrainGenerator) WithProperties(props PropertySet) *TerrainGenerator {
	cp := *g
	cp.props = props
	return &cp
}

func (g *TerrainGenerator) sample(p *perlin.Perlin, c Coord) float64 {
	n := p.Noise2D(float64(c.X)*g.scale, float64(c.Y)*g.scale)
	return (n + 1.0) / 2.0
}

// TerrainAt classifies the cell at c.
func (g *TerrainGenerator) TerrainAt(c Coord) Terrain {
	e := g.sample(g.elevation, c)
	m := g.sample(g.moisture, c)
	switch {
	case e < 0.30:
		return TerrainWater
	case e < 0.36:
		return TerrainShallows
	case e > 0.78:
		return TerrainMountain
	case e > 0.66:
		return TerrainHills
	case m > 0.65:
		if e < 0.45 {
			return TerrainSwamp
		}
		return TerrainForest
	case m < 0.30:
		return TerrainDesert
	default:
		return TerrainField
	}
}

// Generate returns the descriptor for c. It matches GridBuilder.Fill.
func (g *TerrainGenerator) Generate(c Coord) (Descriptor, bool) {
	t := g.TerrainAt(c)
	name, ok := g.names.Pick(t.String(), c.String())
	if !ok {
		name = titleCase(t.String())
	}
	return Descriptor{Name: name, Terrain: t, Props: g.props}, true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
