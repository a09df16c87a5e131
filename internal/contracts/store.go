// Package contracts reads and writes the contract workbook: the only
// durable store in the system. One sheet carries per-client terms, one
// carries the monthly position (included/used/rollover hours) per
// (client, year, month).
package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/made-media/billdesk/internal/models"
)

const (
	clientsSheet = "Clients"
	monthlySheet = "Monthly"
)

var (
	clientsHeader = []interface{}{"client_code", "currency", "hourly_rate", "included_hours", "paid_annually", "territory"}
	monthlyHeader = []interface{}{"client_code", "year", "month", "included_hours", "used_hours", "rollover_hours"}
)

// Store is the workbook-backed contract store. Writes are serialized;
// the upsert is last-write-wins by design (a single human triggers it).
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens a store over the workbook at path. The file must exist;
// use Create to bootstrap a new one.
func NewStore(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open contract workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range []string{clientsSheet, monthlySheet} {
		if _, err := f.GetSheetIndex(sheet); err != nil {
			return nil, fmt.Errorf("contract workbook: sheet %q: %w", sheet, err)
		}
	}
	return &Store{path: path}, nil
}

// Create writes an empty workbook with the expected sheets and headers.
func Create(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", clientsSheet); err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := f.SetSheetRow(clientsSheet, "A1", &clientsHeader); err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := f.SetSheetRow(monthlySheet, "A1", &monthlyHeader); err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// ClientTerms returns the contract terms for a client code, or nil when
// the client has no row.
func (s *Store) ClientTerms(clientCode string) (*models.ContractTerms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open contract workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(clientsSheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", clientsSheet, err)
	}

	for _, row := range dataRows(rows) {
		if cell(row, 0) != clientCode {
			continue
		}
		terms := &models.ContractTerms{
			ClientCode:    clientCode,
			Currency:      cell(row, 1),
			HourlyRate:    parseOptionalFloat(cell(row, 2)),
			IncludedHours: parseFloat(cell(row, 3)),
			PaidAnnually:  parseBool(cell(row, 4)),
			Territory:     cell(row, 5),
		}
		return terms, nil
	}
	return nil, nil
}

// PeriodRecord returns the monthly record for (clientCode, year, month),
// or nil when none exists. A blank or non-numeric rollover cell leaves
// RolloverHours nil: absent, not zero.
func (s *Store) PeriodRecord(clientCode string, year, month int) (*models.ContractPeriodRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open contract workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(monthlySheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", monthlySheet, err)
	}

	for _, row := range dataRows(rows) {
		if !matchesPeriod(row, clientCode, year, month) {
			continue
		}
		return &models.ContractPeriodRecord{
			ClientCode:    clientCode,
			Year:          year,
			Month:         month,
			IncludedHours: parseFloat(cell(row, 3)),
			UsedHours:     parseFloat(cell(row, 4)),
			RolloverHours: parseOptionalFloat(cell(row, 5)),
		}, nil
	}
	return nil, nil
}

// UpsertPeriodRecord writes a monthly record, overwriting the existing
// row for its (client, year, month) or appending a new one.
func (s *Store) UpsertPeriodRecord(rec models.ContractPeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open contract workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(monthlySheet)
	if err != nil {
		return fmt.Errorf("read %s sheet: %w", monthlySheet, err)
	}

	// Row numbers are 1-based and row 1 is the header.
	target := len(rows) + 1
	for i, row := range dataRows(rows) {
		if matchesPeriod(row, rec.ClientCode, rec.Year, rec.Month) {
			target = i + 2
			break
		}
	}

	var rollover interface{}
	if rec.RolloverHours != nil {
		rollover = *rec.RolloverHours
	}
	values := []interface{}{rec.ClientCode, rec.Year, rec.Month, rec.IncludedHours, rec.UsedHours, rollover}
	if err := f.SetSheetRow(monthlySheet, fmt.Sprintf("A%d", target), &values); err != nil {
		return fmt.Errorf("write %s sheet: %w", monthlySheet, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save contract workbook: %w", err)
	}
	return nil
}

func matchesPeriod(row []string, clientCode string, year, month int) bool {
	return cell(row, 0) == clientCode &&
		parseInt(cell(row, 1)) == year &&
		parseInt(cell(row, 2)) == month
}

// dataRows skips the header row.
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

// cell tolerates excelize's ragged rows, where trailing blanks vanish.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseOptionalFloat distinguishes a missing or malformed figure (nil)
// from an actual zero.
func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
