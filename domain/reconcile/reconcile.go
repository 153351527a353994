// Package reconcile matches candidate product names against an existing catalog
// and decides whether each candidate creates a product or merges into one.
//
// Matching is exact after normalization (trim + lower-case). Merges are purely
// additive: categories are unioned and never removed.
package reconcile

import (
	"strings"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
)

// Candidate is an unvalidated product name with the categories chosen for it.
type Candidate struct {
	Name       string        `json:"name"`
	Categories []category.ID `json:"categories"`
}

// Options tune a reconciliation.
type Options struct {
	// AddToList puts a matched product on the active list with at least one unit.
	AddToList bool `json:"add_to_list"`
}

// Action is the kind of mutation an Instruction asks for.
type Action int

const (
	ActionInsert Action = iota + 1
	ActionMerge
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Instruction describes the store mutation that realizes a reconciliation.
type Instruction struct {
	Action Action

	// Name is the trimmed, case-preserved candidate name (insert only).
	Name string

	// ProductID is the matched product (merge only).
	ProductID string

	// Categories is the resulting category set: the chosen set for an insert,
	// the union with the existing set for a merge.
	Categories category.Set

	// Quantity is the resulting quantity.
	Quantity int

	// Changed reports whether a merge alters the matched product.
	Changed bool

	// Duplicates lists further products sharing the normalized name. Only the
	// first match is used; the rest are a data-quality condition.
	Duplicates []string
}

// Normalize returns the comparison form of a product name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks a candidate and returns its trimmed name and category set.
// Name is checked before categories.
func Validate(c Candidate) (string, category.Set, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", nil, product.ErrEmptyName
	}
	if len(c.Categories) == 0 {
		return "", nil, product.ErrNoCategorySelected
	}
	set, err := category.NewSet(c.Categories...)
	if err != nil {
		return "", nil, err
	}
	return name, set, nil
}

// Find returns the index of the first product matching name after
// normalization, plus the ids of any further matches. It returns -1 when
// nothing matches.
func Find(name string, existing []product.Product) (int, []string) {
	key := Normalize(name)
	idx := -1
	var dups []string
	for i := range existing {
		if Normalize(existing[i].Name) != key {
			continue
		}
		if idx < 0 {
			idx = i
			continue
		}
		dups = append(dups, existing[i].ID)
	}
	return idx, dups
}

// Reconcile decides how candidate c lands in the existing products.
// It never mutates existing.
func Reconcile(c Candidate, existing []product.Product, opts Options) (Instruction, error) {
	name, chosen, err := Validate(c)
	if err != nil {
		return Instruction{}, err
	}

	idx, dups := Find(name, existing)
	if idx < 0 {
		return Instruction{
			Action:     ActionInsert,
			Name:       name,
			Categories: chosen,
			Quantity:   0,
		}, nil
	}

	match := existing[idx]
	merged := match.Categories.Union(chosen)
	qty := match.Quantity
	if opts.AddToList && qty < 1 {
		qty = 1
	}

	return Instruction{
		Action:     ActionMerge,
		ProductID:  match.ID,
		Categories: merged,
		Quantity:   qty,
		Changed:    !merged.Equal(match.Categories) || qty != match.Quantity,
		Duplicates: dups,
	}, nil
}
