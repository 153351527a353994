// Package export renders the shopping list for sharing and backup.
package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/example/shopping-list/domain/partition"
)

// TextHeader opens every shared list.
const TextHeader = "🛒 *Shopping list*"

// Text renders groups as a chat message. Bold markers use the WhatsApp
// *asterisk* convention.
func Text(groups []partition.Group) string {
	var b strings.Builder
	b.WriteString(TextHeader)
	b.WriteString("\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "*%s %s* (%s)\n", g.Category.Icon, g.Category.DisplayName, g.Category.StoreLabel)
		for _, p := range g.Products {
			fmt.Fprintf(&b, "• %s x%d\n", p.DisplayName(), p.Quantity)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WhatsAppLink returns a wa.me share link prefilled with text.
func WhatsAppLink(text string) string {
	return "https://wa.me/?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
