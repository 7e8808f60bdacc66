// Package receipt renders an order as a one-page PDF.
package receipt

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/urbandrip/storefront-api/internal/orders"
)

const (
	storeName  = "Urban Drip"
	dateLayout = "02/01/2006 15:04"
)

// Location used for printed dates. Lima by default.
var Location = time.FixedZone("PET", -5*60*60)

// Render writes the receipt for order. res may be nil for orders without a
// reservation.
func Render(w io.Writer, order orders.Order, res *orders.Reservation) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s - pedido %s", storeName, order.ID), true)
	pdf.SetAuthor(storeName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, storeName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Comprobante de pedido"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	field("Pedido:", order.ID)
	field("Fecha:", order.CreatedAt.In(Location).Format(dateLayout))
	field("Estado:", string(order.Status))
	if res != nil {
		field("Código de reserva:", res.Code)
		field("Método de pago:", res.PaymentMethod)
		field("Reservado:", res.ReservedAt.In(Location).Format(dateLayout))
		field("Vence:", res.ExpiresAt.In(Location).Format(dateLayout))
	}
	pdf.Ln(6)

	widths := []float64{90, 25, 35, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Producto", "Cant.", "P. unit.", "Subtotal"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range order.Items {
		pdf.CellFormat(widths[0], 7, tr(it.ProductName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(it.Qty), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, money(it.PriceCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(it.SubtotalCents), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, money(order.TotalCents), "1", 1, "R", false, 0, "")

	if res != nil && res.Status == orders.ReservationActive {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf(
			"Presenta el código %s al pagar. La reserva se libera el %s si no se confirma el pago.",
			res.Code, res.ExpiresAt.In(Location).Format(dateLayout))), "", "L", false)
	}

	return pdf.Output(w)
}

func money(c orders.Cents) string {
	return "S/ " + c.String()
}
