package services

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders the payment receipt offered on the success page
type ReceiptService struct {
	issuer string
}

// NewReceiptService creates a new receipt service
func NewReceiptService(issuer string) *ReceiptService {
	if issuer == "" {
		issuer = "AUTOMAS"
	}
	return &ReceiptService{issuer: issuer}
}

// Render builds a one-page A4 receipt for a successful payment
func (r *ReceiptService) Render(view *OutcomeView) ([]byte, error) {
	if view == nil || view.Summary == nil {
		return nil, fmt.Errorf("receipt requires a reservation summary")
	}
	summary := view.Summary

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Recibo "+view.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(r.issuer+" - RECIBO DE PAGO"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		if value == "" {
			value = "-"
		}
		pdf.Cell(0, 7, tr(fmt.Sprintf("%-18s %s", label+":", value)))
		pdf.Ln(7)
	}

	line("Referencia", view.Reference)
	line("Código de reserva", view.BookingCode)
	line("Fecha de emisión", view.IssueDate.Format("2006-01-02 15:04"))
	if view.DueDate != nil {
		line("Fecha de vencimiento", view.DueDate.Format("2006-01-02"))
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, tr("Cliente"))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	line("Nombre", summary.CustomerName)
	line("Placa", summary.Plate)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, tr("Servicio"))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(firstNonEmpty(summary.ServiceName, string(summary.Vertical))), "", "", false)
	line("Sede", summary.Location)
	line("Ciudad", summary.City)
	line("Fecha", summary.Schedule)
	pdf.Ln(4)

	subtotal := view.Amount - view.Tax
	line("Subtotal", FormatCOP(subtotal))
	line(fmt.Sprintf("IVA (%d%%)", TaxRatePercent), FormatCOP(view.Tax))

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr("Total: "+FormatCOP(view.Amount)))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
