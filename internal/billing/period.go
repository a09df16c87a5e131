package billing

import (
	"time"

	"github.com/made-media/billdesk/internal/models"
)

// PeriodSummary is the per-client rollup for one billing period. Pointer
// fields distinguish "not computable" from zero: a nil RolloverAvailable
// means no rollover record exists for the period, a nil EstimatedCost
// means no estimate is meaningful (no hourly rate, or the period is
// outside the current/adjacent-month window).
type PeriodSummary struct {
	TotalTime                float64  `json:"total_time"`
	TotalBillableTime        float64  `json:"total_billable_time"`
	RolloverAvailable        *float64 `json:"rollover_available,omitempty"`
	NetBillableAfterRollover *float64 `json:"net_billable_after_rollover,omitempty"`
	EstimatedCost            *float64 `json:"estimated_cost,omitempty"`
}

// ComputePeriodSummary combines a run's aggregates with the client's
// contract terms and any rollover carried into the period. Inputs are not
// mutated. now is injectable so the adjacency window is testable.
func ComputePeriodSummary(aggregates []*TicketAggregate, terms *models.ContractTerms, rollover *float64, periodStart, now time.Time) PeriodSummary {
	var summary PeriodSummary
	for _, agg := range aggregates {
		summary.TotalTime += agg.TimeSpentThisPeriod
		summary.TotalBillableTime += agg.BillableTimeThisPeriod
	}

	if rollover != nil {
		available := *rollover
		net := summary.TotalBillableTime - available
		summary.RolloverAvailable = &available
		summary.NetBillableAfterRollover = &net
	}

	// Estimates only make sense near "now": past-closed periods are
	// invoiced from the books and far-future ones are speculation.
	if terms == nil || terms.HourlyRate == nil || !withinAdjacentMonths(periodStart, now) {
		return summary
	}

	var rolloverOrZero float64
	if rollover != nil {
		rolloverOrZero = *rollover
	}
	overage := summary.TotalBillableTime - terms.IncludedHours - rolloverOrZero
	if overage < 0 {
		// Hours inside the included allotment are never charged.
		overage = 0
	}
	cost := overage * *terms.HourlyRate
	summary.EstimatedCost = &cost

	return summary
}

// FlagInvoiceExceptionTickets returns the aggregates billed through the
// separate manual-invoice process that still have tracked time this
// period. They are already excluded from billable totals by the
// billing-status override; this surfaces them so the time is reviewed
// rather than silently dropped.
func FlagInvoiceExceptionTickets(aggregates []*TicketAggregate) []*TicketAggregate {
	var flagged []*TicketAggregate
	for _, agg := range aggregates {
		if IsInvoiceStatus(agg.BillingStatus) && agg.TimeSpentThisPeriod > 0 {
			flagged = append(flagged, agg)
		}
	}
	return flagged
}

// withinAdjacentMonths reports whether the month containing t is the
// month containing now or one either side of it.
func withinAdjacentMonths(t, now time.Time) bool {
	months := (t.Year()-now.Year())*12 + int(t.Month()) - int(now.Month())
	return months >= -1 && months <= 1
}
