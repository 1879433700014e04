package email

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"
)

// OrderItem is one row of the confirmation table.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     int
}

var funcs = template.FuncMap{
	"rupees": formatRupees,
	"mul":    func(a, b int) int { return a * b },
	"label": func(it OrderItem) string {
		if it.Name == "" {
			return it.ProductID
		}
		return it.Name
	},
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1e293b; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #2563eb; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">Thanks for your order, {{.Name}}</h1>
	</div>
	<div style="padding: 24px; border: 1px solid #e2e8f0; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin: 0; font-size: 13px; color: #64748b;">Order ID</p>
		<p style="margin: 4px 0 20px; font-size: 18px; font-weight: bold; font-family: monospace;">{{.OrderID}}</p>
		<table style="width: 100%; border-collapse: collapse;">
			<thead>
				<tr style="background: #f1f5f9;">
					<th style="padding: 10px; text-align: left;">Item</th>
					<th style="padding: 10px; text-align: center;">Qty</th>
					<th style="padding: 10px; text-align: right;">Price</th>
					<th style="padding: 10px; text-align: right;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
			{{- range .Items}}
				<tr>
					<td style="padding: 10px; border-bottom: 1px solid #e2e8f0;">{{label .}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #e2e8f0; text-align: center;">{{.Quantity}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #e2e8f0; text-align: right;">{{rupees .Price}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #e2e8f0; text-align: right;">{{rupees (mul .Price .Quantity)}}</td>
				</tr>
			{{- end}}
			</tbody>
		</table>
		<p style="text-align: right; font-size: 20px; font-weight: bold;">Item total {{rupees .Total}}</p>
		<p style="font-size: 12px; color: #94a3b8;">Delivery fee and taxes are shown on your invoice.</p>
	</div>
</body>
</html>`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1e293b; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 20px;">Order {{.OrderID}} is now {{.Status}}</h1>
	<p>Your order moved from <strong>{{.Previous}}</strong> to <strong>{{.Status}}</strong>.</p>
</body>
</html>`))

// BuildOrderConfirmationBody renders the HTML confirmation mail.
func BuildOrderConfirmationBody(name, orderID string, total int, items []OrderItem) (string, error) {
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, struct {
		Name    string
		OrderID string
		Total   int
		Items   []OrderItem
	}{name, orderID, total, items})
	return buf.String(), err
}

// BuildStatusUpdateBody renders the HTML status change mail.
func BuildStatusUpdateBody(orderID, previous, status string) (string, error) {
	var buf bytes.Buffer
	err := statusTmpl.Execute(&buf, struct {
		OrderID  string
		Previous string
		Status   string
	}{orderID, previous, status})
	return buf.String(), err
}

// formatRupees renders an amount with Indian digit grouping, e.g. ₹1,23,456.
func formatRupees(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return "₹" + sign + s
	}

	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return "₹" + sign + strings.Join(groups, ",") + "," + tail
}
