package catalog

import "github.com/example/shopping-list/domain/category"

// SeedItem is one entry of the default catalog.
type SeedItem struct {
	Name       string
	Categories category.Set
}

// DefaultCatalog is written for every new account on its first load.
var DefaultCatalog = []SeedItem{
	{Name: "Pasta", Categories: category.MustSet(category.Monthly)},
	{Name: "Rice", Categories: category.MustSet(category.Monthly)},
	{Name: "Olive oil", Categories: category.MustSet(category.Monthly)},
	{Name: "Canned tomatoes", Categories: category.MustSet(category.Monthly)},
	{Name: "Toilet paper", Categories: category.MustSet(category.Monthly, category.CrossCutting)},
	{Name: "Laundry detergent", Categories: category.MustSet(category.Monthly)},
	{Name: "Dish soap", Categories: category.MustSet(category.Monthly)},
	{Name: "Coffee", Categories: category.MustSet(category.Monthly, category.Biweekly)},

	{Name: "Yogurt", Categories: category.MustSet(category.Biweekly)},
	{Name: "Cheese", Categories: category.MustSet(category.Biweekly)},
	{Name: "Eggs", Categories: category.MustSet(category.Biweekly, category.Weekly)},
	{Name: "Frozen vegetables", Categories: category.MustSet(category.Biweekly)},
	{Name: "Cereal", Categories: category.MustSet(category.Biweekly)},

	{Name: "Bread", Categories: category.MustSet(category.Weekly, category.CrossCutting)},
	{Name: "Apples", Categories: category.MustSet(category.Weekly)},
	{Name: "Bananas", Categories: category.MustSet(category.Weekly)},
	{Name: "Tomatoes", Categories: category.MustSet(category.Weekly)},
	{Name: "Salad", Categories: category.MustSet(category.Weekly)},
	{Name: "Chicken", Categories: category.MustSet(category.Weekly)},

	{Name: "Milk", Categories: category.MustSet(category.CrossCutting)},
	{Name: "Water", Categories: category.MustSet(category.CrossCutting)},
	{Name: "Batteries", Categories: category.MustSet(category.CrossCutting)},
}
