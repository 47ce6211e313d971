// Package loot defines resource tables that areas hand out as factories for
// gathered goods (fish from a lake, herbs from a forest).
package loot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
)

// Drop is a single entry in a resource table.
type Drop struct {
	ItemID string `yaml:"item"`
	// Chance is the percentage chance the drop is produced, in (0, 100].
	Chance int `yaml:"chance"`
	MinQty int `yaml:"min_qty"`
	MaxQty int `yaml:"max_qty"`
}

// Table is a named resource factory.
type Table struct {
	Resource string `yaml:"resource"`
	Drops    []Drop `yaml:"drops"`
}

// Validate checks that the table satisfies its invariants.
//
// Postcondition: Returns nil iff the resource is named and every drop has an
// item, a chance in (0, 100] and 1 <= min_qty <= max_qty. An empty drop list is valid.
func (t *Table) Validate() error {
	if t.Resource == "" {
		return fmt.Errorf("loot table: resource must not be empty")
	}
	for i, d := range t.Drops {
		if d.ItemID == "" {
			return fmt.Errorf("loot table %q: drop[%d] must have a non-empty item id", t.Resource, i)
		}
		if d.Chance <= 0 || d.Chance > 100 {
			return fmt.Errorf("loot table %q: drop[%d] chance must be in (0, 100], got %d", t.Resource, i, d.Chance)
		}
		if d.MinQty < 1 {
			return fmt.Errorf("loot table %q: drop[%d] min_qty must be >= 1, got %d", t.Resource, i, d.MinQty)
		}
		if d.MinQty > d.MaxQty {
			return fmt.Errorf("loot table %q: drop[%d] min_qty (%d) must be <= max_qty (%d)", t.Resource, i, d.MinQty, d.MaxQty)
		}
	}
	return nil
}

// Item is one produced item instance.
type Item struct {
	ItemDefID  string
	InstanceID string
	Quantity   int
}

// Generate rolls every drop of the table.
//
// Precondition: t must have passed Validate; src must be non-nil.
// Postcondition: each returned Quantity is in [MinQty, MaxQty] of its drop.
func (t *Table) Generate(src dice.Source) []Item {
	var out []Item
	for _, d := range t.Drops {
		if !dice.Chance(src, d.Chance) {
			continue
		}
		out = append(out, Item{
			ItemDefID:  d.ItemID,
			InstanceID: uuid.New().String(),
			Quantity:   dice.Between(src, d.MinQty, d.MaxQty),
		})
	}
	return out
}
