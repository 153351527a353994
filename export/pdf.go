package export

import (
	"fmt"
	"io"
	"time"

	"github.com/example/shopping-list/domain/partition"
	"github.com/jung-kurt/gofpdf"
)

// PDFFileName returns the download name for a list printed on day.
func PDFFileName(day time.Time) string {
	return "shopping_list_" + day.Format("2006-01-02") + ".pdf"
}

// PDF writes an A4 document with one section per group. Category icons are
// left out since the core PDF fonts cannot draw them.
func PDF(w io.Writer, groups []partition.Group, day time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Shopping list")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Date: "+day.Format("2006-01-02"))
	pdf.Ln(12)

	if len(groups) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.Cell(0, 6, "Nothing to buy.")
		pdf.Ln(6)
	}

	for _, g := range groups {
		pdf.SetFont("Arial", "B", 14)
		pdf.Cell(0, 8, tr(fmt.Sprintf("%s (%s)", g.Category.DisplayName, g.Category.StoreLabel)))
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 11)
		for _, p := range g.Products {
			pdf.SetX(25)
			pdf.Cell(0, 6, tr(fmt.Sprintf("• %s x%d", p.DisplayName(), p.Quantity)))
			pdf.Ln(6)
		}
		pdf.Ln(5)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
