package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeonx/timeago"

	"github.com/made-media/billdesk/internal/lookups"
	"github.com/made-media/billdesk/internal/middleware"
)

// ticketRow is one row of the ticket browser.
type ticketRow struct {
	ID         int64    `json:"id"`
	Subject    string   `json:"subject"`
	Status     string   `json:"status"`
	Type       string   `json:"type"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	UpdatedAgo string   `json:"updated_ago"`
	DueBy      string   `json:"due_by,omitempty"`
}

func (s *Server) handleTickets(c *gin.Context) {
	claims := middleware.GetClaims(c)

	clientCode := c.Query("client_code")
	if !claims.IsAdmin() {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown client code"})
		return
	}

	updatedSince, err := parseSince(c.Query("updated_since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := s.helpdesk.ListTickets(c.Request.Context(), updatedSince, company.ID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "helpdesk unavailable"})
		return
	}

	rows := make([]ticketRow, 0, len(tickets))
	for _, t := range tickets {
		row := ticketRow{
			ID:         t.ID,
			Subject:    t.Subject,
			Status:     lookups.StatusLabel(t.Status),
			Type:       t.Type,
			Tags:       t.Tags,
			CreatedAt:  t.CreatedAt.Format(time.RFC3339),
			UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
			UpdatedAgo: timeago.English.Format(t.UpdatedAt),
		}
		if t.DueBy != nil && !t.DueBy.IsZero() {
			row.DueBy = t.DueBy.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"client_code": clientCode,
		"tickets":     rows,
	})
}

// parseSince accepts "YYYY-MM-DD"; empty means the last 30 days.
func parseSince(value string) (time.Time, error) {
	if value == "" {
		return time.Now().AddDate(0, 0, -30), nil
	}
	since, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return since, nil
}
