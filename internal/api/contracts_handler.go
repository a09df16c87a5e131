package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/made-media/billdesk/internal/models"
)

// rolloverRequest is the admin payload for writing a monthly record.
type rolloverRequest struct {
	ClientCode    string   `json:"client_code" binding:"required"`
	Year          int      `json:"year" binding:"required"`
	Month         int      `json:"month" binding:"required,min=1,max=12"`
	IncludedHours float64  `json:"included_hours"`
	UsedHours     float64  `json:"used_hours"`
	RolloverHours *float64 `json:"rollover_hours"`
}

// handleRolloverUpsert writes or replaces one client's monthly contract
// record. A null rollover_hours stores the figure as absent.
func (s *Server) handleRolloverUpsert(c *gin.Context) {
	var req rolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := models.ContractPeriodRecord{
		ClientCode:    req.ClientCode,
		Year:          req.Year,
		Month:         req.Month,
		IncludedHours: req.IncludedHours,
		UsedHours:     req.UsedHours,
		RolloverHours: req.RolloverHours,
	}
	if err := s.contracts.UpsertPeriodRecord(rec); err != nil {
		log.Printf("contracts: upsert %s %d-%02d: %v", rec.ClientCode, rec.Year, rec.Month, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "contract store write failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
