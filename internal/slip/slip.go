// Package slip renders the printable claim slip of a credential request.
package slip

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type Slip struct {
	Institution string
	Transaction *transaction.Transaction
	Student     *account.Account
	Department  string
	PrintedAt   time.Time
}

var printer = message.NewPrinter(language.English)

func formatAmount(n int64) string {
	return printer.Sprintf("PHP %.2f", float64(n))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format("Jan 2, 2006")
}

// Render writes s as a one-page A4 PDF.
func Render(w io.Writer, s Slip) error {
	if s.Transaction == nil || s.Student == nil {
		return errors.New("slip needs a transaction and a student")
	}

	t := s.Transaction

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Request slip "+t.ID.String(), false)
	pdf.SetCreationDate(s.PrintedAt)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(s.Institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Credential Request Slip", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
	}

	field("Reference", strings.ToUpper(t.ID.String()))
	field("Student", s.Student.Name)
	field("Student No.", s.Student.StudentNo)
	field("Department", s.Department)
	field("Status", string(t.Status))
	field("Submitted", formatDate(&t.CreatedAt))
	field("Scheduled for", formatDate(t.ScheduledFor))
	field("Payment date", formatDate(t.PaymentDate))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(100, 8, "Credential", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	if t.IsPackage() {
		pdf.CellFormat(155, 8, tr("Package: "+t.PackageName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 8, formatAmount(t.TotalAmount), "1", 1, "R", false, 0, "")
	}

	for _, item := range t.Items {
		pdf.CellFormat(100, 8, tr(item.CredentialName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprint(item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, formatAmount(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, formatAmount(item.Subtotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(155, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, formatAmount(t.TotalAmount), "1", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Present this slip and a valid ID when claiming. Printed "+
		s.PrintedAt.Format("Jan 2, 2006 15:04")+".", "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering slip: %w", err)
	}

	return nil
}
