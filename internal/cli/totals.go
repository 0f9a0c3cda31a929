package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

func (r *root) totalsCmd() *cobra.Command {
	var (
		items            []string
		file             string
		discount, tax    float64
		currency, locale string
	)
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Compute document totals offline",
		Long: `Compute subtotal, discount and total for a set of line items without
contacting the server. Items are given as "description:quantity:unit_price[:discount%]"
or read from a document file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc billing.Document
			if file != "" {
				var err error
				if doc, err = readDocument(cmd.InOrStdin(), file, billing.KindQuote); err != nil {
					return err
				}
			}
			for _, raw := range items {
				li, err := parseItem(raw)
				if err != nil {
					return err
				}
				doc.LineItems = append(doc.LineItems, li)
			}
			if cmd.Flags().Changed("discount") {
				doc.Discount = discount
			}
			if cmd.Flags().Changed("tax") {
				doc.Tax = tax
			}
			money, err := billing.NewMoneyFormatter(locale, currency)
			if err != nil {
				return err
			}
			t := doc.Totals()
			p := r.printer(cmd, money)
			if ok, err := p.structured(t); ok {
				return err
			}
			rows := make([][]string, 0, len(doc.LineItems))
			for _, li := range doc.LineItems {
				rows = append(rows, []string{li.Description, p.amount(billing.LineTotal(li))})
			}
			if len(rows) > 0 {
				p.table([]string{"Description", "Line total"}, rows)
			}
			p.totals(t, doc.Discount, doc.Tax)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&items, "item", "i", nil, "line item description:quantity:unit_price[:discount]")
	f.StringVarP(&file, "file", "f", "", "document file with line_items")
	f.Float64Var(&discount, "discount", 0, "order discount percent")
	f.Float64Var(&tax, "tax", 0, "tax percent")
	f.StringVar(&currency, "currency", "EUR", "ISO 4217 currency code")
	f.StringVar(&locale, "locale", "en", "BCP 47 locale for number formatting")
	return cmd
}

// parseItem reads "description:quantity:unit_price[:discount]". The
// description may itself contain colons; numbers are taken from the right.
func parseItem(raw string) (billing.LineItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return billing.LineItem{}, fmt.Errorf("item %q: want description:quantity:unit_price[:discount]", raw)
	}
	nums := parts[len(parts)-2:]
	desc := parts[:len(parts)-2]
	if len(parts) >= 4 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(parts[len(parts)-3]), 64); err == nil {
			nums = parts[len(parts)-3:]
			desc = parts[:len(parts)-3]
		}
	}
	values := make([]float64, len(nums))
	for i, n := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return billing.LineItem{}, fmt.Errorf("item %q: %q is not a number", raw, n)
		}
		values[i] = v
	}
	li := billing.LineItem{Description: strings.Join(desc, ":"), Quantity: values[0], UnitPrice: values[1]}
	if len(values) == 3 {
		li.Discount = values[2]
	}
	return li, nil
}
