package mailer

import "html/template"

var funcs = template.FuncMap{
	"inr": formatINR,
}

var (
	orderConfirmationTmpl = template.Must(template.New("order_confirmation").Funcs(funcs).Parse(`
<h2>ご注文ありがとうございます / Thank you for your order</h2>
<p>Hi {{.Order.ShippingAddress.Name}},</p>
<p>Your payment for order <b>#{{.Order.ID}}</b> was received. Invoice <b>{{.Invoice.InvoiceNumber}}</b> is attached.</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.ProductNameSnapshot}}</td><td>x{{.Quantity}}</td><td>{{inr .LineTotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{inr .Order.Subtotal}}<br>
Delivery: {{inr .Order.DeliveryCharge}}<br>
{{if gt .Order.Discount 0}}Discount ({{.Order.PromoCode}}): -{{inr .Order.Discount}}<br>{{end}}
<b>Total: {{inr .Order.Amount}}</b></p>
`))

	adminOrderTmpl = template.Must(template.New("admin_order").Funcs(funcs).Parse(`
<h3>New paid order #{{.Order.ID}}</h3>
<p>{{.Order.ShippingAddress.Name}} &lt;{{.Order.ShippingAddress.Email}}&gt; {{.Order.ShippingAddress.Phone}}</p>
<p>{{.Order.ShippingAddress.Line1}} {{.Order.ShippingAddress.Line2}}, {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.PostalCode}}</p>
<ul>{{range .Items}}<li>{{.ProductNameSnapshot}} x{{.Quantity}}</li>{{end}}</ul>
<p>Amount: {{inr .Order.Amount}} via {{.Order.Gateway}} ({{.Order.PaymentMethod}})</p>
`))

	promoUsageTmpl = template.Must(template.New("promo_usage").Funcs(funcs).Parse(`
<p>Hi {{.Influencer.Name}},</p>
<p>Your code <b>{{.Promo.Code}}</b> was used on order #{{.Order.ID}}.</p>
<p>Units: {{.Units}} / Earning: {{inr .Earning}}</p>
`))

	passwordResetTmpl = template.Must(template.New("password_reset").Parse(`
<p>Hi {{.User.Name}},</p>
<p>Reset your password here (valid for 1 hour):</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
`))

	withdrawalPaidTmpl = template.Must(template.New("withdrawal_paid").Funcs(funcs).Parse(`
<p>Hi {{.Influencer.Name}},</p>
<p>Your withdrawal #{{.Withdrawal.ID}} of {{inr .Withdrawal.Amount}} has been paid.</p>
<p>Reference: {{.Withdrawal.TransactionID}}</p>
`))
)
