// Package views renders documents served to API clients.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"foodgram/internal/shopping"
)

const (
	dateLayout     = "02.01.2006"
	shoppingFooter = "Assembled with Foodgram"
)

// ShoppingList renders doc as plain text: a header naming the owner and the
// date, one line per ingredient, then a footer.
func ShoppingList(doc shopping.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "Shopping list for %s from %s\n\n", doc.Owner, doc.GeneratedAt.Format(dateLayout))
		for _, line := range doc.Lines {
			if line.MeasurementUnitName == "" {
				fmt.Fprintf(&b, "- %s: %d\n", line.IngredientName, line.TotalAmount)
				continue
			}
			fmt.Fprintf(&b, "- %s: %d %s\n", line.IngredientName, line.TotalAmount, line.MeasurementUnitName)
		}
		b.WriteString("\n" + shoppingFooter + "\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
