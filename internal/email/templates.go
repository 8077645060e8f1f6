package email

import (
	"fmt"
	"strings"

	"github.com/Mariangeles-2/coderhouse-back2-pre-entrega-1/internal/model"
)

// BuildPurchaseConfirmationBody builds the HTML body for the purchase
// confirmation email. Failed items get their own section so partial
// purchases are obvious to the customer.
func BuildPurchaseConfirmationBody(t *model.Ticket) string {
	var itemsHTML strings.Builder
	for _, item := range t.Items {
		name := item.Title
		if name == "" {
			name = item.ProductID
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			name,
			item.Quantity,
			formatCents(item.Price),
			formatCents(item.Subtotal),
		))
	}

	failedHTML := ""
	if len(t.FailedItems) > 0 {
		var rows strings.Builder
		for _, item := range t.FailedItems {
			name := item.Title
			if name == "" {
				name = item.ProductID
			}
			rows.WriteString(fmt.Sprintf(
				`<tr>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
					<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				</tr>`,
				name, item.Requested, item.Reason,
			))
		}
		failedHTML = fmt.Sprintf(`
		<h2 style="font-size: 18px; border-bottom: 2px solid #e67e22; padding-bottom: 10px;">Items not purchased</h2>
		<p style="font-size: 14px; color: #666;">These items could not be purchased and remain in your cart.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tbody>
				%s
			</tbody>
		</table>`, rows.String())
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your purchase</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Ticket code</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Your items</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Product</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>
		%s
		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">%s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This email was sent automatically. If you have any questions, please contact support.
		</p>
	</div>
</body>
</html>`, t.Code, itemsHTML.String(), failedHTML, formatCents(t.Totals.Total))
}

// formatCents renders integer cents as a dollar amount with comma separators.
func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(cents/100), cents%100)
}

func groupThousands(n int) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	return result.String()
}
