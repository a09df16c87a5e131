package models

import "time"

// Unknown is the placeholder used whenever a related entity cannot be
// resolved. Reports always render the row; missing context never hides
// tracked time.
const Unknown = "Unknown"

// TimeEntry is a unit of work logged against a ticket in the helpdesk.
// Entries are read-only to this system.
type TimeEntry struct {
	ID                 int64     `json:"id"`
	TicketID           int64     `json:"ticket_id"`
	AgentID            int64     `json:"agent_id"`
	CompanyID          int64     `json:"company_id"`
	TimeSpentInSeconds int64     `json:"time_spent_in_seconds"`
	Billable           bool      `json:"billable"`
	Note               string    `json:"note"`
	ExecutedAt         time.Time `json:"executed_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Hours returns the entry duration in hours.
func (e TimeEntry) Hours() float64 {
	return float64(e.TimeSpentInSeconds) / 3600
}

// TicketCustomFields carries the helpdesk custom fields this system cares
// about. Absent fields decode to zero values, which downstream code treats
// as "no override".
type TicketCustomFields struct {
	ChangeRequest  bool   `json:"change_request"`
	Category       string `json:"category"`
	BillingStatus  string `json:"billing_status"`
	Organisation   string `json:"organisation"`
	ClientDeadline string `json:"cf_client_deadline"`
}

// Ticket is a snapshot of a helpdesk ticket. Numeric relation IDs may be
// null upstream; they decode to zero and are skipped during resolution.
type Ticket struct {
	ID           int64              `json:"id"`
	Subject      string             `json:"subject"`
	Status       int                `json:"status"`
	Type         string             `json:"type"`
	RequesterID  int64              `json:"requester_id"`
	ResponderID  int64              `json:"responder_id"`
	GroupID      int64              `json:"group_id"`
	CompanyID    int64              `json:"company_id"`
	ProductID    int64              `json:"product_id"`
	Tags         []string           `json:"tags"`
	CustomFields TicketCustomFields `json:"custom_fields"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DueBy        *time.Time         `json:"due_by,omitempty"`
}

// Contact is a helpdesk contact (ticket requester).
type Contact struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Agent is a helpdesk agent. The API nests identity under "contact".
type Agent struct {
	ID      int64   `json:"id"`
	Contact Contact `json:"contact"`
}

// Group is a helpdesk agent group.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a helpdesk product.
type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CompanyCustomFields holds the contract metadata attached to a helpdesk
// company. HourlyRate is a pointer because "no rate agreed" and "rate of
// zero" mean different things to the exporter.
type CompanyCustomFields struct {
	CompanyCode        string   `json:"company_code"`
	ContractHourlyRate *float64 `json:"contract_hourly_rate"`
	Currency           string   `json:"currency"`
	Territory          string   `json:"territory"`
	IncludedHours      float64  `json:"included_hours"`
	PaidAnnually       bool     `json:"paid_annually"`
}

// Company is a helpdesk company (a client). The client code in its custom
// fields is the join key to the contract store; a company without one
// cannot be reconciled against contract terms.
type Company struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	CustomFields CompanyCustomFields `json:"custom_fields"`
}
