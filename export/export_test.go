package export

import (
	"bytes"
	"encoding/csv"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/partition"
	"github.com/example/shopping-list/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 4, 18, 10, 0, 0, 0, time.UTC)

func fixture() []product.Product {
	return []product.Product{
		{ID: "p1", Name: "Milk", Categories: category.MustSet(category.Weekly, category.CrossCutting), Quantity: 2, CreatedAt: day, UpdatedAt: day},
		{ID: "p2", Name: "Pasta", Categories: category.MustSet(category.Monthly), Quantity: 0, CreatedAt: day, UpdatedAt: day},
		{ID: "p3", Name: "Detergent", Categories: category.MustSet(category.Biweekly), Quantity: 1, Checked: true,
			CustomName: product.Some("Washing liquid"), Comment: product.Some("the blue one"), CreatedAt: day, UpdatedAt: day},
	}
}

func TestText(t *testing.T) {
	got := Text(partition.Summary(fixture()))

	want := strings.Join([]string{
		"🛒 *Shopping list*",
		"",
		"*🛒 Bi-weekly* (Supermarket)",
		"• Washing liquid x1",
		"",
		"*🥬 Weekly* (Local market)",
		"• Milk x2",
		"",
		"*🔁 Available everywhere* (Any store)",
		"• Milk x2",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestText_Empty(t *testing.T) {
	assert.Equal(t, TextHeader+"\n\n", Text(nil))
}

func TestWhatsAppLink(t *testing.T) {
	text := "🛒 *Shopping list*\n\n• Milk x2 & eggs"
	link := WhatsAppLink(text)

	require.True(t, strings.HasPrefix(link, "https://wa.me/?text="))
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "%20")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, text, u.Query().Get("text"))
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("https://wa.me/?text=hello", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, partition.Summary(fixture()), day))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	var empty bytes.Buffer
	require.NoError(t, PDF(&empty, nil, day))
	assert.NotZero(t, empty.Len())

	assert.Equal(t, "shopping_list_2026-04-18.pdf", PDFFileName(day))
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, fixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"id", "name", "categories", "quantity", "checked", "custom_name", "comment", "location", "created_at", "updated_at"}, records[0])
	assert.Equal(t, "weekly|cross-cutting", records[1][2])
	assert.Equal(t, "0", records[2][3])
	assert.Equal(t, []string{"p3", "Detergent", "biweekly", "1", "true", "Washing liquid", "the blue one", ""}, records[3][:8])
	assert.Equal(t, "2026-04-18T10:00:00Z", records[3][8])
}
