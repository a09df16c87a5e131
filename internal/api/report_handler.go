package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"

	"github.com/made-media/billdesk/internal/billing"
	"github.com/made-media/billdesk/internal/lookups"
	"github.com/made-media/billdesk/internal/middleware"
	"github.com/made-media/billdesk/internal/models"
)

// monthOptionCount bounds the month selector: four years back.
const monthOptionCount = 48

// reportResponse is the JSON shape of one reconciled period.
type reportResponse struct {
	ClientCode        string                     `json:"client_code"`
	ClientName        string                     `json:"client_name"`
	Month             string                     `json:"month"`
	Empty             bool                       `json:"empty"`
	Tickets           []*billing.TicketAggregate `json:"tickets"`
	Summary           billing.PeriodSummary      `json:"summary"`
	InvoiceExceptions []*billing.TicketAggregate `json:"invoice_exceptions"`
	CurrencySymbol    string                     `json:"currency_symbol,omitempty"`
}

func (s *Server) handleReportPage(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var clients []models.Company
	if claims.IsAdmin() {
		companies, err := s.helpdesk.ListCompanies(c.Request.Context())
		if err != nil {
			log.Printf("report page: company list failed: %v", err)
		}
		clients = companies
	}

	s.renderer.HTML(c, http.StatusOK, "report.pongo2", pongo2.Context{
		"Title":   "Tickets by tracked time",
		"Name":    claims.Name,
		"IsAdmin": claims.IsAdmin(),
		"Clients": clients,
		"Months":  monthOptions(time.Now()),
	})
}

func (s *Server) handleReport(c *gin.Context) {
	claims := middleware.GetClaims(c)

	month, err := parseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientCode := c.Query("client_code")
	if !claims.IsAdmin() {
		// Non-admin sessions are pinned to their own client whatever
		// the query says.
		clientCode = claims.ClientCode
	}
	if clientCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_code is required"})
		return
	}

	company, err := s.findCompany(c.Request.Context(), clientCode)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "helpdesk unavailable"})
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no client with code %q", clientCode)})
		return
	}

	start := month
	end := month.AddDate(0, 1, 0)
	entries, err := s.helpdesk.ListTimeEntries(c.Request.Context(), start, end, company.ID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "helpdesk unavailable"})
		return
	}

	resp := reportResponse{
		ClientCode: clientCode,
		ClientName: company.Name,
		Month:      month.Format("2006-01"),
	}

	if len(entries) == 0 {
		// Distinct from an error: there is simply nothing to show.
		resp.Empty = true
		resp.Tickets = []*billing.TicketAggregate{}
		c.JSON(http.StatusOK, resp)
		return
	}

	aggregates, err := s.reconciler.AggregateTicketDetails(c.Request.Context(), entries)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "reconciliation failed"})
		return
	}

	terms := s.clientTerms(clientCode)
	rollover := s.rolloverFor(clientCode, month)

	resp.Tickets = aggregates
	resp.Summary = billing.ComputePeriodSummary(aggregates, terms, rollover, month, time.Now())
	resp.InvoiceExceptions = billing.FlagInvoiceExceptionTickets(aggregates)
	if terms != nil {
		resp.CurrencySymbol = lookups.CurrencySymbol(terms.Currency)
	}

	c.JSON(http.StatusOK, resp)
}

// findCompany resolves a client code to its helpdesk company.
func (s *Server) findCompany(ctx context.Context, clientCode string) (*models.Company, error) {
	companies, err := s.helpdesk.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	for _, company := range companies {
		if company.CustomFields.CompanyCode == clientCode {
			return &company, nil
		}
	}
	return nil, nil
}

// clientTerms reads contract terms, degrading to none on store trouble.
func (s *Server) clientTerms(clientCode string) *models.ContractTerms {
	terms, err := s.contracts.ClientTerms(clientCode)
	if err != nil {
		log.Printf("report: contract terms for %s: %v", clientCode, err)
		return nil
	}
	return terms
}

// rolloverFor reads the period's rollover figure; absent when no record
// exists or the store is unreadable.
func (s *Server) rolloverFor(clientCode string, month time.Time) *float64 {
	rec, err := s.contracts.PeriodRecord(clientCode, month.Year(), int(month.Month()))
	if err != nil {
		log.Printf("report: period record for %s %s: %v", clientCode, month.Format("2006-01"), err)
		return nil
	}
	if rec == nil {
		return nil
	}
	return rec.RolloverHours
}

// parseMonth accepts "YYYY-MM" and returns the first day of that month.
// An empty value means the current month.
func parseMonth(value string) (time.Time, error) {
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("month must look like 2024-06")
	}
	return month, nil
}

type monthOption struct {
	Value string
	Label string
}

// monthOptions lists selectable months, newest first.
func monthOptions(now time.Time) []monthOption {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	options := make([]monthOption, 0, monthOptionCount)
	for i := 0; i < monthOptionCount; i++ {
		m := current.AddDate(0, -i, 0)
		options = append(options, monthOption{
			Value: m.Format("2006-01"),
			Label: m.Format("January 2006"),
		})
	}
	return options
}
