// Package product defines the shopping list product entity and its error kinds.
package product

import (
	"strings"
	"time"

	"github.com/example/shopping-list/domain/category"
)

// Product is an entry of a user's shopping catalog.
type Product struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Categories category.Set     `json:"categories"`
	Quantity   int              `json:"quantity"`
	Checked    bool             `json:"checked"`
	CustomName Optional[string] `json:"custom_name"`
	Comment    Optional[string] `json:"comment"`
	Location   Optional[string] `json:"location"`
	Position   int64            `json:"position"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IsOrphan reports whether the product belongs to no category.
func (p Product) IsOrphan() bool {
	return p.Categories.IsEmpty()
}

// IsSelected reports whether the product is on the active shopping list.
func (p Product) IsSelected() bool {
	return p.Quantity > 0
}

// DisplayName returns the custom name when set, the canonical name otherwise.
func (p Product) DisplayName() string {
	if v, ok := p.CustomName.Get(); ok && v != "" {
		return v
	}
	return p.Name
}

// Clone returns a copy that shares no mutable state with p.
func (p Product) Clone() Product {
	c := p
	if p.Categories != nil {
		c.Categories = append(category.Set(nil), p.Categories...)
	}
	return c
}

// ClampQuantity returns q floored at zero.
func ClampQuantity(q int) int {
	if q < 0 {
		return 0
	}
	return q
}

// TrimOptional trims a present value and leaves an absent one untouched.
func TrimOptional(o Optional[string]) Optional[string] {
	if v, ok := o.Get(); ok {
		return Some(strings.TrimSpace(v))
	}
	return o
}
