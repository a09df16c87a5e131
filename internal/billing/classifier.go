package billing

import (
	"strings"

	"github.com/made-media/billdesk/internal/models"
)

// Default rule configuration. Overridable through config so new SaaS
// products or billing statuses don't need a release.
var (
	DefaultSaaSProducts = []string{"BlocksOffice", "MonkeyWrench"}

	// The historical data contains "90 Days", "90 days" and "90-Days";
	// normalizeToken folds them all onto the canonical entry.
	DefaultUnbillableStatuses = []string{"Free", "90 Days", "Invoice"}
)

// InvoiceStatus is the billing status that routes a ticket through the
// manual invoicing process. Tickets carrying it are unbillable here but
// surfaced separately for review.
const InvoiceStatus = "Invoice"

// TicketBilling is the slice of ticket context the classifier needs. The
// caller is responsible for resolving it from the entry's parent ticket;
// the classifier never fetches.
type TicketBilling struct {
	BillingStatus string
	ChangeRequest bool
	ProductName   string
}

// rule is one step of the billability cascade. The first rule whose
// matches function returns true decides the outcome; later rules are
// deliberately unreachable once an earlier one fires.
type rule struct {
	name    string
	matches func(e models.TimeEntry, t TicketBilling) bool
	hours   func(e models.TimeEntry) float64
}

// Classifier decides, per time entry, how many hours are billable. The
// answer is always the full entry duration or zero; partial billability
// is not a thing.
type Classifier struct {
	saasProducts       map[string]struct{}
	unbillableStatuses map[string]struct{}
	rules              []rule
}

// NewClassifier builds a classifier from the configured SaaS product and
// unbillable billing-status sets. Empty sets select the defaults: config
// decoding yields an empty slice for an omitted or empty list, and an
// intentionally empty rule set would disable contractual overrides.
func NewClassifier(saasProducts, unbillableStatuses []string) *Classifier {
	if len(saasProducts) == 0 {
		saasProducts = DefaultSaaSProducts
	}
	if len(unbillableStatuses) == 0 {
		unbillableStatuses = DefaultUnbillableStatuses
	}

	c := &Classifier{
		saasProducts:       make(map[string]struct{}, len(saasProducts)),
		unbillableStatuses: make(map[string]struct{}, len(unbillableStatuses)),
	}
	for _, p := range saasProducts {
		c.saasProducts[normalizeToken(p)] = struct{}{}
	}
	for _, s := range unbillableStatuses {
		c.unbillableStatuses[normalizeToken(s)] = struct{}{}
	}

	full := func(e models.TimeEntry) float64 { return e.Hours() }
	zero := func(models.TimeEntry) float64 { return 0 }

	c.rules = []rule{
		{
			// Finance-set contractual override. Beats everything,
			// including an explicit change-request flag.
			name: "billing-status override",
			matches: func(_ models.TimeEntry, t TicketBilling) bool {
				_, ok := c.unbillableStatuses[normalizeToken(t.BillingStatus)]
				return ok
			},
			hours: zero,
		},
		{
			// Paid project work supersedes product-level exemptions
			// and the agent's own flag.
			name: "change request",
			matches: func(_ models.TimeEntry, t TicketBilling) bool {
				return t.ChangeRequest
			},
			hours: full,
		},
		{
			// Flat-fee products bundle support; never billed per hour.
			// An unresolved product name ("Unknown") is never in the set.
			name: "saas product",
			matches: func(_ models.TimeEntry, t TicketBilling) bool {
				_, ok := c.saasProducts[normalizeToken(t.ProductName)]
				return ok
			},
			hours: zero,
		},
		{
			// Terminal rule: the agent's judgment at time-logging.
			name:    "agent flag",
			matches: func(models.TimeEntry, TicketBilling) bool { return true },
			hours: func(e models.TimeEntry) float64 {
				if e.Billable {
					return e.Hours()
				}
				return 0
			},
		},
	}

	return c
}

// BillableHours returns the billable portion of a time entry given its
// resolved parent ticket context: the entry's full duration or zero.
func (c *Classifier) BillableHours(e models.TimeEntry, t TicketBilling) float64 {
	r, _ := c.decide(e, t)
	return r
}

// DecideWithRule is BillableHours plus the name of the rule that fired,
// for audit displays and tests.
func (c *Classifier) DecideWithRule(e models.TimeEntry, t TicketBilling) (float64, string) {
	return c.decide(e, t)
}

func (c *Classifier) decide(e models.TimeEntry, t TicketBilling) (float64, string) {
	for _, r := range c.rules {
		if r.matches(e, t) {
			return r.hours(e), r.name
		}
	}
	// The terminal rule always matches.
	return 0, ""
}

// IsInvoiceStatus reports whether a billing status is the manual-invoice
// status, comparing case-insensitively like the cascade does.
func IsInvoiceStatus(status string) bool {
	return normalizeToken(status) == normalizeToken(InvoiceStatus)
}

// normalizeToken canonicalizes a status or product name for set
// membership: trimmed, lowercased, hyphens folded to spaces.
func normalizeToken(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.ReplaceAll(s, "-", " ")
}
