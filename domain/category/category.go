// Package category defines the fixed set of shopping list categories.
package category

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when an id is not one of the known categories.
var ErrUnknownCategory = errors.New("unknown category")

// ID identifies a shopping category.
type ID string

// Known category ids, in display order.
const (
	Monthly      ID = "monthly"
	Biweekly     ID = "biweekly"
	Weekly       ID = "weekly"
	CrossCutting ID = "cross-cutting"
)

// Category holds the display metadata of a shopping category.
type Category struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	StoreLabel  string `json:"store_label"`
}

var registry = []Category{
	{
		ID:          Monthly,
		DisplayName: "Monthly",
		Description: "Big stock-up trip once a month",
		Icon:        "📦",
		StoreLabel:  "Hypermarket",
	},
	{
		ID:          Biweekly,
		DisplayName: "Bi-weekly",
		Description: "Pantry and household refill every two weeks",
		Icon:        "🛒",
		StoreLabel:  "Supermarket",
	},
	{
		ID:          Weekly,
		DisplayName: "Weekly",
		Description: "Fresh food bought every week",
		Icon:        "🥬",
		StoreLabel:  "Local market",
	},
	{
		ID:          CrossCutting,
		DisplayName: "Available everywhere",
		Description: "Items that can be picked up on any trip",
		Icon:        "🔁",
		StoreLabel:  "Any store",
	},
}

// All returns every category in display order.
func All() []Category {
	out := make([]Category, len(registry))
	copy(out, registry)
	return out
}

// IDs returns every category id in display order.
func IDs() []ID {
	ids := make([]ID, len(registry))
	for i, c := range registry {
		ids[i] = c.ID
	}
	return ids
}

// Lookup resolves a category id to its metadata.
func Lookup(id ID) (Category, error) {
	for _, c := range registry {
		if c.ID == id {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(id))
}

// Parse validates a free-text category id, e.g. one read back from storage.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Lookup(id); err != nil {
		return "", err
	}
	return id, nil
}

// Valid reports whether id is a known category.
func (id ID) Valid() bool {
	return order(id) >= 0
}

// order returns the display position of id, or -1 if unknown.
func order(id ID) int {
	for i, c := range registry {
		if c.ID == id {
			return i
		}
	}
	return -1
}
