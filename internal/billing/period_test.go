package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/made-media/billdesk/internal/models"
)

func aggregate(spent, billable float64) *TicketAggregate {
	return &TicketAggregate{TimeSpentThisPeriod: spent, BillableTimeThisPeriod: billable}
}

func terms(included float64, hourlyRate *float64) *models.ContractTerms {
	return &models.ContractTerms{ClientCode: "AVI", IncludedHours: included, HourlyRate: hourlyRate}
}

var now = time.Date(2024, time.June, 14, 10, 0, 0, 0, time.UTC)

func monthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func TestComputePeriodSummaryTotals(t *testing.T) {
	aggs := []*TicketAggregate{aggregate(4, 2.5), aggregate(1.5, 0), aggregate(3, 3)}

	s := ComputePeriodSummary(aggs, nil, nil, monthStart(2024, time.June), now)

	assert.InDelta(t, 8.5, s.TotalTime, 1e-9)
	assert.InDelta(t, 5.5, s.TotalBillableTime, 1e-9)
	assert.Nil(t, s.RolloverAvailable)
	assert.Nil(t, s.NetBillableAfterRollover)
	assert.Nil(t, s.EstimatedCost)
}

func TestComputePeriodSummaryOverage(t *testing.T) {
	// 15 billable, 10 included, no rollover: 5 hours at 100.
	aggs := []*TicketAggregate{aggregate(20, 15)}

	s := ComputePeriodSummary(aggs, terms(10, rate(100)), nil, monthStart(2024, time.June), now)

	require.NotNil(t, s.EstimatedCost)
	assert.InDelta(t, 500, *s.EstimatedCost, 1e-9)
	assert.Nil(t, s.RolloverAvailable)
}

func TestComputePeriodSummaryRollover(t *testing.T) {
	aggs := []*TicketAggregate{aggregate(20, 15)}
	rollover := 3.0

	s := ComputePeriodSummary(aggs, terms(10, rate(100)), &rollover, monthStart(2024, time.June), now)

	require.NotNil(t, s.RolloverAvailable)
	assert.InDelta(t, 3, *s.RolloverAvailable, 1e-9)
	require.NotNil(t, s.NetBillableAfterRollover)
	assert.InDelta(t, 12, *s.NetBillableAfterRollover, 1e-9)
	// (15 - 10 - 3) * 100
	require.NotNil(t, s.EstimatedCost)
	assert.InDelta(t, 200, *s.EstimatedCost, 1e-9)
}

func TestComputePeriodSummaryZeroRolloverIsNotAbsent(t *testing.T) {
	aggs := []*TicketAggregate{aggregate(5, 5)}
	rollover := 0.0

	s := ComputePeriodSummary(aggs, nil, &rollover, monthStart(2024, time.June), now)

	require.NotNil(t, s.RolloverAvailable)
	assert.Zero(t, *s.RolloverAvailable)
	require.NotNil(t, s.NetBillableAfterRollover)
	assert.InDelta(t, 5, *s.NetBillableAfterRollover, 1e-9)
}

func TestComputePeriodSummaryClampsNegativeOverage(t *testing.T) {
	// 8 billable against 10 included: no charge, never negative.
	aggs := []*TicketAggregate{aggregate(8, 8)}

	s := ComputePeriodSummary(aggs, terms(10, rate(100)), nil, monthStart(2024, time.June), now)

	require.NotNil(t, s.EstimatedCost)
	assert.Zero(t, *s.EstimatedCost)
}

func TestComputePeriodSummaryEstimateWindow(t *testing.T) {
	aggs := []*TicketAggregate{aggregate(20, 15)}

	tests := []struct {
		name        string
		periodStart time.Time
		wantCost    bool
	}{
		{"current month", monthStart(2024, time.June), true},
		{"previous month", monthStart(2024, time.May), true},
		{"next month", monthStart(2024, time.July), true},
		{"three months back", monthStart(2024, time.March), false},
		{"two months ahead", monthStart(2024, time.August), false},
		{"prior december to current january crosses the year", monthStart(2023, time.December), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputePeriodSummary(aggs, terms(10, rate(100)), nil, tt.periodStart, now)
			if tt.wantCost {
				assert.NotNil(t, s.EstimatedCost)
			} else {
				assert.Nil(t, s.EstimatedCost)
			}
		})
	}

	// Year boundary adjacency: January is adjacent to the prior December.
	january := time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)
	s := ComputePeriodSummary(aggs, terms(10, rate(100)), nil, monthStart(2023, time.December), january)
	assert.NotNil(t, s.EstimatedCost)
}

func TestComputePeriodSummaryNoHourlyRate(t *testing.T) {
	aggs := []*TicketAggregate{aggregate(20, 15)}

	s := ComputePeriodSummary(aggs, terms(10, nil), nil, monthStart(2024, time.June), now)

	assert.Nil(t, s.EstimatedCost)
	assert.InDelta(t, 15, s.TotalBillableTime, 1e-9)
}

func TestFlagInvoiceExceptionTickets(t *testing.T) {
	invoiced := &TicketAggregate{TicketID: 1, BillingStatus: "Invoice", TimeSpentThisPeriod: 2}
	invoicedLower := &TicketAggregate{TicketID: 2, BillingStatus: "invoice", TimeSpentThisPeriod: 0.5}
	invoicedIdle := &TicketAggregate{TicketID: 3, BillingStatus: "Invoice", TimeSpentThisPeriod: 0}
	plain := &TicketAggregate{TicketID: 4, BillingStatus: "", TimeSpentThisPeriod: 4}
	free := &TicketAggregate{TicketID: 5, BillingStatus: "Free", TimeSpentThisPeriod: 1}

	flagged := FlagInvoiceExceptionTickets([]*TicketAggregate{invoiced, invoicedLower, invoicedIdle, plain, free})

	require.Len(t, flagged, 2)
	assert.Same(t, invoiced, flagged[0])
	assert.Same(t, invoicedLower, flagged[1])
}

// An hour on an invoice-status ticket contributes nothing billable but
// is flagged for review.
func TestInvoiceStatusScenario(t *testing.T) {
	resolver := newTestResolver()
	r := NewReconciler(resolver, NewClassifier(nil, nil))

	aggs, err := r.AggregateTicketDetails(context.Background(), []models.TimeEntry{
		{ID: 1, TicketID: 103, TimeSpentInSeconds: 3600, Billable: true},
	})
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	assert.Zero(t, aggs[0].BillableTimeThisPeriod)
	assert.InDelta(t, 1.0, aggs[0].TimeSpentThisPeriod, 1e-9)

	flagged := FlagInvoiceExceptionTickets(aggs)
	require.Len(t, flagged, 1)
	assert.Equal(t, int64(103), flagged[0].TicketID)
}
