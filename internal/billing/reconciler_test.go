package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/made-media/billdesk/internal/models"
)

// fakeResolver serves canned entities and counts ticket lookups so tests
// can assert the one-resolution-per-ticket guarantee.
type fakeResolver struct {
	tickets   map[int64]*models.Ticket
	agents    map[int64]*models.Agent
	contacts  map[int64]*models.Contact
	groups    map[int64]*models.Group
	companies []models.Company
	products  []models.Product

	ticketCalls  int
	companyCalls int
	productCalls int
}

func (f *fakeResolver) GetTicket(_ context.Context, id int64) (*models.Ticket, error) {
	f.ticketCalls++
	return f.tickets[id], nil
}

func (f *fakeResolver) GetAgent(_ context.Context, id int64) (*models.Agent, error) {
	return f.agents[id], nil
}

func (f *fakeResolver) GetRequester(_ context.Context, id int64) (*models.Contact, error) {
	return f.contacts[id], nil
}

func (f *fakeResolver) GetGroup(_ context.Context, id int64) (*models.Group, error) {
	return f.groups[id], nil
}

func (f *fakeResolver) ListCompanies(context.Context) ([]models.Company, error) {
	f.companyCalls++
	return f.companies, nil
}

func (f *fakeResolver) ListProducts(context.Context) ([]models.Product, error) {
	f.productCalls++
	return f.products, nil
}

func rate(v float64) *float64 { return &v }

func newTestResolver() *fakeResolver {
	return &fakeResolver{
		tickets: map[int64]*models.Ticket{
			101: {
				ID: 101, Subject: "Broken checkout", Status: 2, Type: "Incident",
				RequesterID: 7, ResponderID: 3, GroupID: 5, CompanyID: 9, ProductID: 20,
				Tags: []string{"urgent"},
				CustomFields: models.TicketCustomFields{
					Category:      "Support",
					BillingStatus: "",
				},
			},
			102: {
				ID: 102, Subject: "New landing page", Status: 3, Type: "Task",
				CompanyID: 9, ProductID: 21,
				CustomFields: models.TicketCustomFields{
					ChangeRequest: true,
					Category:      "Project",
				},
			},
			103: {
				ID: 103, Subject: "Retainer credit", Status: 5,
				CompanyID: 9, ProductID: 20,
				CustomFields: models.TicketCustomFields{
					BillingStatus: "Invoice",
				},
			},
		},
		agents:   map[int64]*models.Agent{3: {ID: 3, Contact: models.Contact{Name: "Dana"}}},
		contacts: map[int64]*models.Contact{7: {ID: 7, Name: "Sam Requester"}},
		groups:   map[int64]*models.Group{5: {ID: 5, Name: "Web Team"}},
		companies: []models.Company{
			{ID: 9, Name: "Aviary Arts", CustomFields: models.CompanyCustomFields{
				CompanyCode: "AVI", Currency: "GBP", ContractHourlyRate: rate(100), Territory: "Made Media Ltd.",
			}},
		},
		products: []models.Product{
			{ID: 20, Name: "CustomBuild"},
			{ID: 21, Name: "CustomBuild"},
		},
	}
}

func TestAggregateTicketDetails(t *testing.T) {
	resolver := newTestResolver()
	r := NewReconciler(resolver, NewClassifier(nil, nil))

	entries := []models.TimeEntry{
		{ID: 1, TicketID: 101, TimeSpentInSeconds: 3600, Billable: true},
		{ID: 2, TicketID: 102, TimeSpentInSeconds: 1800, Billable: false},
		{ID: 3, TicketID: 101, TimeSpentInSeconds: 1800, Billable: false},
		{ID: 4, TicketID: 101, TimeSpentInSeconds: 900, Billable: true},
	}

	aggs, err := r.AggregateTicketDetails(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	// Insertion order: first-seen ticket first.
	first, second := aggs[0], aggs[1]
	assert.Equal(t, int64(101), first.TicketID)
	assert.Equal(t, int64(102), second.TicketID)

	assert.Equal(t, "Broken checkout", first.Title)
	assert.Equal(t, "Open", first.Status)
	assert.Equal(t, "Dana", first.AssignedAgent)
	assert.Equal(t, "Sam Requester", first.RequesterName)
	assert.Equal(t, "Web Team", first.Group)
	assert.Equal(t, "Aviary Arts", first.Company)
	assert.Equal(t, "AVI", first.CompanyCode)
	assert.Equal(t, "CustomBuild", first.Product)

	// 1h billable + 0.5h unbillable + 0.25h billable.
	assert.InDelta(t, 1.75, first.TimeSpentThisPeriod, 1e-9)
	assert.InDelta(t, 1.25, first.BillableTimeThisPeriod, 1e-9)

	// Change request: billable in full despite the entry's false flag.
	assert.InDelta(t, 0.5, second.TimeSpentThisPeriod, 1e-9)
	assert.InDelta(t, 0.5, second.BillableTimeThisPeriod, 1e-9)

	for _, agg := range aggs {
		assert.LessOrEqual(t, agg.BillableTimeThisPeriod, agg.TimeSpentThisPeriod+1e-9)
	}
}

// N entries over K distinct tickets cost exactly K ticket resolutions,
// and the company/product collections are fetched once per run.
func TestAggregateResolvesEachTicketOnce(t *testing.T) {
	resolver := newTestResolver()
	r := NewReconciler(resolver, NewClassifier(nil, nil))

	entries := []models.TimeEntry{
		{ID: 1, TicketID: 101, TimeSpentInSeconds: 600, Billable: true},
		{ID: 2, TicketID: 101, TimeSpentInSeconds: 600, Billable: true},
		{ID: 3, TicketID: 102, TimeSpentInSeconds: 600, Billable: true},
		{ID: 4, TicketID: 101, TimeSpentInSeconds: 600, Billable: true},
		{ID: 5, TicketID: 103, TimeSpentInSeconds: 600, Billable: true},
		{ID: 6, TicketID: 102, TimeSpentInSeconds: 600, Billable: true},
	}

	_, err := r.AggregateTicketDetails(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, 3, resolver.ticketCalls)
	assert.Equal(t, 1, resolver.companyCalls)
	assert.Equal(t, 1, resolver.productCalls)
}

func TestAggregateIsIdempotent(t *testing.T) {
	entries := []models.TimeEntry{
		{ID: 1, TicketID: 101, TimeSpentInSeconds: 3600, Billable: true},
		{ID: 2, TicketID: 103, TimeSpentInSeconds: 1800, Billable: true},
		{ID: 3, TicketID: 101, TimeSpentInSeconds: 450, Billable: false},
	}

	run := func() []*TicketAggregate {
		r := NewReconciler(newTestResolver(), NewClassifier(nil, nil))
		aggs, err := r.AggregateTicketDetails(context.Background(), entries)
		require.NoError(t, err)
		return aggs
	}

	assert.Equal(t, run(), run())
}

func TestAggregateUnresolvableTicketKeepsRow(t *testing.T) {
	resolver := newTestResolver()
	r := NewReconciler(resolver, NewClassifier(nil, nil))

	entries := []models.TimeEntry{
		{ID: 1, TicketID: 999, TimeSpentInSeconds: 3600, Billable: true},
	}

	aggs, err := r.AggregateTicketDetails(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.Equal(t, int64(999), agg.TicketID)
	assert.Equal(t, models.Unknown, agg.Title)
	assert.Equal(t, models.Unknown, agg.Product)
	assert.Equal(t, models.Unknown, agg.AssignedAgent)
	// Tracked time stays visible even with no context at all, and the
	// agent flag still decides billability.
	assert.InDelta(t, 1.0, agg.TimeSpentThisPeriod, 1e-9)
	assert.InDelta(t, 1.0, agg.BillableTimeThisPeriod, 1e-9)
}

func TestAggregateEmptyInput(t *testing.T) {
	r := NewReconciler(newTestResolver(), NewClassifier(nil, nil))
	aggs, err := r.AggregateTicketDetails(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestAggregateCancelledContext(t *testing.T) {
	r := NewReconciler(newTestResolver(), NewClassifier(nil, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aggs, err := r.AggregateTicketDetails(ctx, []models.TimeEntry{
		{ID: 1, TicketID: 101, TimeSpentInSeconds: 3600, Billable: true},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, aggs)
}
