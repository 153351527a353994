// Package partition derives the category, selection and search views of a
// product collection. Views are recomputed on every call and preserve the
// store iteration order of their input.
package partition

import (
	"strings"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
)

// Group is the products of one category.
type Group struct {
	Category category.Category `json:"category"`
	Products []product.Product `json:"products"`
}

// ManageView groups every product by category, with orphans listed apart.
type ManageView struct {
	Groups     []Group           `json:"groups"`
	Unassigned []product.Product `json:"unassigned"`
	Total      int               `json:"total"`
}

// Progress counts the state of the active shopping list.
type Progress struct {
	Selected int `json:"selected"`
	Checked  int `json:"checked"`
	Units    int `json:"units"`
}

// ByCategory returns the products that belong to c.
func ByCategory(products []product.Product, c category.ID) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if p.Categories.Contains(c) {
			out = append(out, p)
		}
	}
	return out
}

// Selected returns the products with a positive quantity, each once.
func Selected(products []product.Product) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if p.IsSelected() {
			out = append(out, p)
		}
	}
	return out
}

// Search returns the products whose name or custom name contains term,
// ignoring case. A blank term matches everything.
func Search(products []product.Product, term string) []product.Product {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return products
	}

	out := make([]product.Product, 0)
	for _, p := range products {
		if matches(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p product.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	if custom, ok := p.CustomName.Get(); ok {
		return strings.Contains(strings.ToLower(custom), needle)
	}
	return false
}

// Summary groups the selected products by category in display order.
// A product in several categories is listed under each of them.
// Categories with no selected product are omitted.
func Summary(products []product.Product) []Group {
	return group(Selected(products))
}

// Manage groups all products matching term by category in display order,
// keeping empty categories out and orphans in Unassigned.
func Manage(products []product.Product, term string) ManageView {
	found := Search(products, term)

	view := ManageView{
		Groups:     group(found),
		Unassigned: make([]product.Product, 0),
		Total:      len(found),
	}
	for _, p := range found {
		if p.IsOrphan() {
			view.Unassigned = append(view.Unassigned, p)
		}
	}
	return view
}

// CountProgress returns how much of the active list has been collected.
func CountProgress(products []product.Product) Progress {
	var pr Progress
	for _, p := range products {
		if !p.IsSelected() {
			continue
		}
		pr.Selected++
		pr.Units += p.Quantity
		if p.Checked {
			pr.Checked++
		}
	}
	return pr
}

func group(products []product.Product) []Group {
	groups := make([]Group, 0, len(category.IDs()))
	for _, c := range category.All() {
		members := ByCategory(products, c.ID)
		if len(members) == 0 {
			continue
		}
		groups = append(groups, Group{Category: c, Products: members})
	}
	return groups
}
