package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/made-media/billdesk/internal/billing"
	"github.com/made-media/billdesk/internal/export"
	"github.com/made-media/billdesk/internal/models"
)

// handleExportCSV produces the Xero sales-invoice import for one month.
// Admin only; without a client_code it covers every client.
func (s *Server) handleExportCSV(c *gin.Context) {
	month, err := parseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientCode := c.Query("client_code")

	companies, err := s.helpdesk.ListCompanies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "helpdesk unavailable"})
		return
	}

	var aggregates []*billing.TicketAggregate
	for _, company := range companies {
		if company.CustomFields.CompanyCode == "" {
			continue
		}
		if clientCode != "" && company.CustomFields.CompanyCode != clientCode {
			continue
		}
		aggs, err := s.aggregatePeriod(c, company, month)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "helpdesk unavailable"})
			return
		}
		aggregates = append(aggregates, aggs...)
	}

	lines := export.BuildInvoiceLines(aggregates, month, s.territories)

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, lines); err != nil {
		log.Printf("export: write csv: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("xero-invoices-%s.csv", month.Format("2006-01"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// aggregatePeriod pulls one client's entries for the month and
// reconciles them.
func (s *Server) aggregatePeriod(c *gin.Context, company models.Company, month time.Time) ([]*billing.TicketAggregate, error) {
	entries, err := s.helpdesk.ListTimeEntries(c.Request.Context(), month, month.AddDate(0, 1, 0), company.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return s.reconciler.AggregateTicketDetails(c.Request.Context(), entries)
}
