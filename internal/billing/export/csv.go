// Package export serialises billing aggregation output for download.
// The aggregation shape is the contract: any renderer consuming the
// per-organization map or the flattened line view gets the same figures.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/voltlead/voltlead/internal/billing"
)

// WriteInvoiceOverviewCSV serialises the per-organization invoice table.
func WriteInvoiceOverviewCSV(w io.Writer, agg billing.Aggregation) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Organization", "Lead Count", "Gross Value", "Credited Count", "Credited Value"}); err != nil {
		return err
	}
	for _, row := range agg.OrganizationsSorted() {
		if err := writer.Write([]string{
			row.OrganizationName,
			strconv.Itoa(row.LeadCount),
			formatFloat(row.GrossValue),
			strconv.Itoa(row.CreditedCount),
			formatFloat(row.CreditedValue),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", "", formatFloat(agg.TotalValue), "", formatFloat(agg.TotalCredited)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteInvoiceLinesCSV serialises the flattened per-lead line items.
func WriteInvoiceLinesCSV(w io.Writer, agg billing.Aggregation) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Lead", "Organization", "Interest", "Amount", "Status"}); err != nil {
		return err
	}
	for _, line := range agg.Lines {
		if err := writer.Write([]string{
			line.DateSent.Format("2006-01-02"),
			line.LeadName,
			line.OrganizationName,
			string(line.InterestType),
			formatFloat(line.Amount),
			string(line.Status),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
