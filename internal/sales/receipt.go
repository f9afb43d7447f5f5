package sales

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Receipt renders a printable plain-text receipt for the sale.
// Amounts use thousands separators the way local customers expect
// them on paper.
func Receipt(sale Sale, shopName string) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(center(shopName, 42) + "\n")
	b.WriteString(strings.Repeat("=", 42) + "\n")
	p.Fprintf(&b, "Receipt: %s\n", sale.SaleNumber)
	p.Fprintf(&b, "Date:    %s\n", sale.CreatedAt.Format("02 Jan 2006 15:04"))
	if sale.CustomerName != "" {
		p.Fprintf(&b, "Customer: %s", sale.CustomerName)
		if sale.CustomerPhone != "" {
			p.Fprintf(&b, " (%s)", sale.CustomerPhone)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("-", 42) + "\n")

	for _, item := range sale.Items {
		p.Fprintf(&b, "%s\n", item.ProductName)
		if item.IMEI != "" {
			p.Fprintf(&b, "  IMEI %s\n", item.IMEI)
		}
		p.Fprintf(&b, "  %d x %.2f%s\n", item.Quantity, item.UnitPrice,
			padLeft(p.Sprintf("%.2f", item.LineTotal), 42-lineWidth(item.Quantity, item.UnitPrice)-2))
	}

	b.WriteString(strings.Repeat("-", 42) + "\n")
	p.Fprintf(&b, "Subtotal:%s\n", padLeft(p.Sprintf("%.2f", sale.Subtotal), 33))
	p.Fprintf(&b, "VAT (5%%):%s\n", padLeft(p.Sprintf("%.2f", sale.Tax), 33))
	if sale.Discount > 0 {
		p.Fprintf(&b, "Discount:%s\n", padLeft(p.Sprintf("-%.2f", sale.Discount), 33))
	}
	if sale.DeliveryCharges > 0 {
		p.Fprintf(&b, "Delivery:%s\n", padLeft(p.Sprintf("%.2f", sale.DeliveryCharges), 33))
	}
	p.Fprintf(&b, "TOTAL:%s\n", padLeft(p.Sprintf("%.2f", sale.Total), 36))
	b.WriteString(strings.Repeat("=", 42) + "\n")
	p.Fprintf(&b, "Paid by %s", sale.PaymentMethod)
	if sale.TransactionID != "" {
		p.Fprintf(&b, " (txn %s)", sale.TransactionID)
	}
	b.WriteString("\n")
	p.Fprintf(&b, "Served by %s\n", sale.SoldByName)
	b.WriteString(center("Thank you!", 42) + "\n")
	return b.String()
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return " " + s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func lineWidth(qty int, price float64) int {
	p := message.NewPrinter(language.English)
	return len(p.Sprintf("%d x %.2f", qty, price))
}
