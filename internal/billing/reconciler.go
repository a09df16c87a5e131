package billing

import (
	"context"
	"log"
	"time"

	"github.com/made-media/billdesk/internal/lookups"
	"github.com/made-media/billdesk/internal/models"
)

// Resolver supplies ticket context from the helpdesk. Lookups are
// read-only and idempotent. A (nil, nil) return means the entity does not
// exist upstream; the reconciler treats errors the same way and keeps
// going, so a flaky lookup degrades one field, never the whole run.
type Resolver interface {
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	GetAgent(ctx context.Context, id int64) (*models.Agent, error)
	GetRequester(ctx context.Context, id int64) (*models.Contact, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// TicketAggregate is the per-ticket rollup of one reconciliation run:
// the denormalized ticket context plus the two period accumulators.
// Derived and in-memory only; never written back anywhere.
type TicketAggregate struct {
	TicketID       int64      `json:"ticket_id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Type           string     `json:"type"`
	Category       string     `json:"category"`
	Product        string     `json:"product"`
	Company        string     `json:"company"`
	CompanyCode    string     `json:"company_code"`
	Currency       string     `json:"currency"`
	HourlyRate     *float64   `json:"hourly_rate,omitempty"`
	Territory      string     `json:"territory"`
	AssignedAgent  string     `json:"assigned_agent"`
	RequesterName  string     `json:"requester_name"`
	Group          string     `json:"group"`
	BillingStatus  string     `json:"billing_status"`
	ChangeRequest  bool       `json:"change_request"`
	ClientDeadline string     `json:"client_deadline,omitempty"`
	Tags           []string   `json:"tags"`
	UpdatedAt      time.Time  `json:"updated_at"`

	TimeSpentThisPeriod    float64 `json:"time_spent_this_period"`
	BillableTimeThisPeriod float64 `json:"billable_time_this_period"`
}

// Reconciler turns a batch of time entries into one TicketAggregate per
// distinct ticket. Aggregation state is confined to a single call;
// a Reconciler is safe for concurrent use by independent runs.
type Reconciler struct {
	resolver   Resolver
	classifier *Classifier
}

// NewReconciler wires a reconciler to its helpdesk resolver and
// billability classifier.
func NewReconciler(resolver Resolver, classifier *Classifier) *Reconciler {
	return &Reconciler{resolver: resolver, classifier: classifier}
}

// AggregateTicketDetails walks the entries in order and produces one
// aggregate per distinct ticket id, in first-seen order. The full ticket
// context is resolved exactly once per distinct ticket, however many
// entries reference it; repeat entries only touch the accumulators.
func (r *Reconciler) AggregateTicketDetails(ctx context.Context, entries []models.TimeEntry) ([]*TicketAggregate, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	// Companies and products come as whole collections upstream, so
	// fetch each once per run and index them.
	companies := r.companyIndex(ctx)
	products := r.productIndex(ctx)

	byTicket := make(map[int64]*TicketAggregate, len(entries))
	ordered := make([]*TicketAggregate, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			// No checkpointing: a cancelled run yields nothing and the
			// caller retries the whole batch.
			return nil, err
		}
		if agg, ok := byTicket[entry.TicketID]; ok {
			agg.TimeSpentThisPeriod += entry.Hours()
			agg.BillableTimeThisPeriod += r.classifier.BillableHours(entry, billingContext(agg))
			continue
		}

		agg := r.resolveAggregate(ctx, entry.TicketID, companies, products)
		agg.TimeSpentThisPeriod = entry.Hours()
		agg.BillableTimeThisPeriod = r.classifier.BillableHours(entry, billingContext(agg))

		byTicket[entry.TicketID] = agg
		ordered = append(ordered, agg)
	}

	return ordered, nil
}

// resolveAggregate builds the denormalized ticket context for one ticket,
// substituting Unknown for anything that cannot be resolved.
func (r *Reconciler) resolveAggregate(ctx context.Context, ticketID int64, companies map[int64]models.Company, products map[int64]string) *TicketAggregate {
	agg := &TicketAggregate{
		TicketID:      ticketID,
		Title:         models.Unknown,
		Status:        models.Unknown,
		Type:          models.Unknown,
		Category:      models.Unknown,
		Product:       models.Unknown,
		Company:       models.Unknown,
		AssignedAgent: models.Unknown,
		RequesterName: models.Unknown,
		Group:         models.Unknown,
	}

	ticket, err := r.resolver.GetTicket(ctx, ticketID)
	if err != nil {
		log.Printf("reconcile: ticket %d lookup failed: %v", ticketID, err)
	}
	if ticket == nil {
		return agg
	}

	agg.Title = ticket.Subject
	agg.Status = lookups.StatusLabel(ticket.Status)
	agg.Tags = ticket.Tags
	agg.UpdatedAt = ticket.UpdatedAt
	agg.ChangeRequest = ticket.CustomFields.ChangeRequest
	agg.BillingStatus = ticket.CustomFields.BillingStatus
	agg.ClientDeadline = ticket.CustomFields.ClientDeadline
	if ticket.Type != "" {
		agg.Type = ticket.Type
	}
	if ticket.CustomFields.Category != "" {
		agg.Category = ticket.CustomFields.Category
	}
	if name, ok := products[ticket.ProductID]; ok {
		agg.Product = name
	}
	if company, ok := companies[ticket.CompanyID]; ok {
		agg.Company = company.Name
		agg.CompanyCode = company.CustomFields.CompanyCode
		agg.Currency = company.CustomFields.Currency
		agg.HourlyRate = company.CustomFields.ContractHourlyRate
		agg.Territory = company.CustomFields.Territory
	}
	if ticket.ResponderID != 0 {
		if agent, err := r.resolver.GetAgent(ctx, ticket.ResponderID); err == nil && agent != nil {
			agg.AssignedAgent = agent.Contact.Name
		}
	}
	if ticket.RequesterID != 0 {
		if requester, err := r.resolver.GetRequester(ctx, ticket.RequesterID); err == nil && requester != nil {
			agg.RequesterName = requester.Name
		}
	}
	if ticket.GroupID != 0 {
		if group, err := r.resolver.GetGroup(ctx, ticket.GroupID); err == nil && group != nil {
			agg.Group = group.Name
		}
	}

	return agg
}

func (r *Reconciler) companyIndex(ctx context.Context) map[int64]models.Company {
	companies, err := r.resolver.ListCompanies(ctx)
	if err != nil {
		log.Printf("reconcile: company list failed: %v", err)
	}
	index := make(map[int64]models.Company, len(companies))
	for _, c := range companies {
		index[c.ID] = c
	}
	return index
}

func (r *Reconciler) productIndex(ctx context.Context) map[int64]string {
	products, err := r.resolver.ListProducts(ctx)
	if err != nil {
		log.Printf("reconcile: product list failed: %v", err)
	}
	index := make(map[int64]string, len(products))
	for _, p := range products {
		index[p.ID] = p.Name
	}
	return index
}

// billingContext extracts the classifier inputs from an aggregate. The
// product name for an unresolved product stays Unknown, which is never a
// SaaS set member, so the cascade falls through as intended.
func billingContext(agg *TicketAggregate) TicketBilling {
	return TicketBilling{
		BillingStatus: agg.BillingStatus,
		ChangeRequest: agg.ChangeRequest,
		ProductName:   agg.Product,
	}
}
