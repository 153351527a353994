package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/gocarina/gocsv"
)

// CSVFileName is the download name of the catalog backup.
const CSVFileName = "shopping_catalog.csv"

// CSVRow is one product in the catalog backup.
type CSVRow struct {
	ID         string `csv:"id"`
	Name       string `csv:"name"`
	Categories string `csv:"categories"`
	Quantity   int    `csv:"quantity"`
	Checked    bool   `csv:"checked"`
	CustomName string `csv:"custom_name"`
	Comment    string `csv:"comment"`
	Location   string `csv:"location"`
	CreatedAt  string `csv:"created_at"`
	UpdatedAt  string `csv:"updated_at"`
}

func categoriesField(s category.Set) string {
	return strings.Join(s.Strings(), "|")
}

// Rows converts products to backup rows in the given order. Absent
// annotations become empty cells.
func Rows(products []product.Product) []*CSVRow {
	rows := make([]*CSVRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, &CSVRow{
			ID:         p.ID,
			Name:       p.Name,
			Categories: categoriesField(p.Categories),
			Quantity:   p.Quantity,
			Checked:    p.Checked,
			CustomName: p.CustomName.OrElse(""),
			Comment:    p.Comment.OrElse(""),
			Location:   p.Location.OrElse(""),
			CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:  p.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// CSV writes the whole catalog with a header row.
func CSV(w io.Writer, products []product.Product) error {
	rows := Rows(products)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
