package invoicepdf

import (
	"bytes"
	"fmt"
	"strconv"

	"badgeshop/internal/domain/model"

	"github.com/go-pdf/fpdf"
)

// Renderer は請求書PDFを作る（A4縦、コアフォントのみ）
type Renderer struct {
	shopName string
}

func NewRenderer(shopName string) *Renderer {
	if shopName == "" {
		shopName = "badgeshop"
	}
	return &Renderer{shopName: shopName}
}

// コアフォントに₹が無いのでRs.表記
func rupees(v int64) string {
	return "Rs. " + strconv.FormatInt(v, 10)
}

func (r *Renderer) Render(inv model.Invoice, order model.Order, items []model.OrderItem) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inv.InvoiceNumber, false)
	pdf.SetAuthor(r.shopName, false)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ヘッダ
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.shopName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Tax Invoice", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(95, 6, "Invoice No: "+inv.InvoiceNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, "Date: "+inv.IssuedAt.Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	pdf.CellFormat(95, 6, fmt.Sprintf("Order: #%d", order.ID), "", 0, "L", false, 0, "")
	pdf.CellFormat(95, 6, "Payment: "+string(inv.PaymentMethod), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// 請求先
	a := inv.BillingAddress
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		a.Name,
		a.Line1,
		a.Line2,
		fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode),
		a.Country,
		a.Phone + "  " + a.Email,
	} {
		if line == "" {
			continue
		}
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// 明細
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(100, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Unit", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		pdf.CellFormat(100, 7, tr(it.ProductNameSnapshot), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, strconv.FormatInt(it.Quantity, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, rupees(it.UnitPriceSnapshot), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, rupees(it.UnitPriceSnapshot*it.Quantity), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	// 合計
	totals := [][2]string{
		{"Subtotal", rupees(inv.Subtotal)},
		{"Delivery", rupees(inv.DeliveryCharge)},
	}
	if inv.Discount > 0 {
		label := "Discount"
		if order.PromoCode != "" {
			label += " (" + order.PromoCode + ")"
		}
		totals = append(totals, [2]string{label, "- " + rupees(inv.Discount)})
	}
	for _, row := range totals {
		pdf.CellFormat(155, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(155, 8, "Amount Paid ("+inv.Currency+")", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, rupees(inv.Amount), "T", 1, "R", false, 0, "")

	if inv.GatewayPaymentID != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, "Payment reference: "+inv.GatewayPaymentID, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
