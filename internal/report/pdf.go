// Package report renders policy statements as PDF documents.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/coverledger/internal/model"
)

// PolicyStatement renders one policy with its claims and payments into a
// single-page PDF statement for the named holder.
func PolicyStatement(holder string, policy *model.Policy, payments []model.Payment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Policy Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Policy Statement")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}
	row("Holder", holder)
	row("Policy ID", fmt.Sprintf("%d", policy.ID))
	row("Type", policy.Type)
	row("Company", policy.Company)
	row("Premium", fmt.Sprintf("%.2f", policy.Premium))
	row("Coverage", fmt.Sprintf("%s to %s",
		policy.StartDate.Format("2006-01-02"), policy.EndDate.Format("2006-01-02")))
	pdf.Ln(6)

	if len(policy.Claims) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 9, "Claims")
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(80, 7, "Description", "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, "Amount", "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, "Status", "1", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, c := range policy.Claims {
			pdf.CellFormat(80, 7, c.Description, "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", c.Amount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 7, c.Status, "1", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	if len(payments) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 9, "Payments")
		pdf.Ln(10)

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 7, "Date", "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, "Amount", "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 7, "Method", "1", 1, "L", false, 0, "")

		var total float64
		pdf.SetFont("Helvetica", "", 10)
		for _, p := range payments {
			pdf.CellFormat(50, 7, p.PaidAt.Format("2006-01-02"), "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", p.Amount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(45, 7, p.Method, "1", 1, "L", false, 0, "")
			total += p.Amount
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 7, "Total", "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.2f", total), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 7, "", "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
