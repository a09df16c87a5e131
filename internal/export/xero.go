// Package export builds the Xero sales-invoice CSV from a month's
// reconciled ticket aggregates. The export is best-effort over a
// heterogeneous client base: structurally incomplete rows are filtered
// out silently rather than failing the batch.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/made-media/billdesk/internal/billing"
)

// Fixed accounting metadata on every exported line.
const (
	accountCode = "4010"
	taxType     = "Tax Exempt (0%)"
)

// csvColumns is the exact header Xero's sales-invoice importer expects.
var csvColumns = []string{
	"ContactName", "EmailAddress",
	"POAddressLine1", "POAddressLine2", "POAddressLine3", "POAddressLine4",
	"POCity", "PORegion", "POPostalCode", "POCountry",
	"InvoiceNumber", "InvoiceDate", "DueDate", "Total",
	"InventoryItemCode", "Description", "Quantity", "UnitAmount",
	"Discount", "AccountCode", "TaxType", "TaxAmount",
	"TrackingName1", "TrackingOption1", "TrackingName2", "TrackingOption2",
	"Currency",
}

// Line is one invoice line: a billable ticket-period.
type Line struct {
	ContactName   string
	ContactCode   string
	Currency      string
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	Description   string
	Quantity      float64
	UnitAmount    float64

	ticketID int64
}

// BuildInvoiceLines turns a month's aggregates into Xero invoice lines.
// Rows without a client code or hourly rate, rows outside the selected
// territories, and rows with nothing billable are dropped. Output is
// sorted by invoice number then ticket id.
func BuildInvoiceLines(aggregates []*billing.TicketAggregate, month time.Time, territories []string) []Line {
	selected := make(map[string]struct{}, len(territories))
	for _, t := range territories {
		selected[t] = struct{}{}
	}

	var lines []Line
	for _, agg := range aggregates {
		if agg.CompanyCode == "" || agg.HourlyRate == nil {
			continue
		}
		if _, ok := selected[agg.Territory]; !ok {
			continue
		}
		if agg.BillableTimeThisPeriod <= 0 {
			continue
		}
		lines = append(lines, Line{
			ContactName:   agg.Company,
			ContactCode:   agg.CompanyCode,
			Currency:      agg.Currency,
			InvoiceNumber: InvoiceNumber(agg.CompanyCode, month),
			InvoiceDate:   endOfMonth(month),
			DueDate:       endOfMonth(month.AddDate(0, 1, 0)),
			Description:   lineDescription(agg),
			Quantity:      agg.BillableTimeThisPeriod,
			UnitAmount:    *agg.HourlyRate,
			ticketID:      agg.TicketID,
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].InvoiceNumber != lines[j].InvoiceNumber {
			return lines[i].InvoiceNumber < lines[j].InvoiceNumber
		}
		return lines[i].ticketID < lines[j].ticketID
	})
	return lines
}

// InvoiceNumber builds the per-client-per-month invoice number:
// "S-" + client code + two-digit year + unpadded month, e.g. S-AVI246.
func InvoiceNumber(clientCode string, month time.Time) string {
	return fmt.Sprintf("S-%s%02d%d", clientCode, month.Year()%100, int(month.Month()))
}

// WriteCSV writes the lines in Xero's import format.
func WriteCSV(w io.Writer, lines []Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, line := range lines {
		record := map[string]string{
			"ContactName":   line.ContactName,
			"InvoiceNumber": line.InvoiceNumber,
			"InvoiceDate":   line.InvoiceDate.Format("2006-01-02"),
			"DueDate":       line.DueDate.Format("2006-01-02"),
			"Description":   line.Description,
			"Quantity":      strconv.FormatFloat(line.Quantity, 'f', -1, 64),
			"UnitAmount":    strconv.FormatFloat(line.UnitAmount, 'f', -1, 64),
			"AccountCode":   accountCode,
			"TaxType":       taxType,
			"Currency":      line.Currency,
		}
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = record[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// lineDescription labels a line with the ticket, its product, and a
// change-request marker accounting uses to spot project work.
func lineDescription(agg *billing.TicketAggregate) string {
	desc := fmt.Sprintf("%d – %s [%s]", agg.TicketID, agg.Title, agg.Product)
	if agg.ChangeRequest {
		desc += " [Change Request]"
	}
	return desc
}

func endOfMonth(month time.Time) time.Time {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return start.AddDate(0, 1, -1)
}
