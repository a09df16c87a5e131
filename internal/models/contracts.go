package models

// ContractTerms are the per-client terms held on the clients sheet of the
// contract workbook, keyed by client code.
type ContractTerms struct {
	ClientCode    string   `json:"client_code"`
	Currency      string   `json:"currency"`
	HourlyRate    *float64 `json:"hourly_rate,omitempty"`
	IncludedHours float64  `json:"included_hours"`
	PaidAnnually  bool     `json:"paid_annually"`
	Territory     string   `json:"territory"`
}

// ContractPeriodRecord is one row of the monthly sheet: the contract
// position of a client for a single (year, month). RolloverHours is a
// pointer so a blank or unparseable cell stays distinguishable from an
// exhausted (zero) rollover.
type ContractPeriodRecord struct {
	ClientCode    string   `json:"client_code"`
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	IncludedHours float64  `json:"included_hours"`
	UsedHours     float64  `json:"used_hours"`
	RolloverHours *float64 `json:"rollover_hours,omitempty"`
}
