package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/made-media/billdesk/internal/billing"
	"github.com/made-media/billdesk/internal/cache"
	"github.com/made-media/billdesk/internal/config"
	"github.com/made-media/billdesk/internal/contracts"
	"github.com/made-media/billdesk/internal/export"
	"github.com/made-media/billdesk/internal/freshdesk"
	"github.com/made-media/billdesk/internal/lookups"
	"github.com/made-media/billdesk/internal/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "billdesk",
	Short: "Billdesk CLI - support billing reconciliation from the terminal",
	Long: `Billdesk Command Line Interface

Reconciles helpdesk time tracking against client support contracts
without going through the web UI. Reads the same config.yaml as the
server.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var (
	clientCodeFlag string
	monthFlag      string
	outputFlag     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print one client's reconciled period to stdout",
	RunE:  runReport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the Xero sales-invoice CSV for a month",
	RunE:  runExport,
}

var rolloverCmd = &cobra.Command{
	Use:   "rollover <client-code> <year> <month> <hours>",
	Short: "Record a client's rollover hours for a month",
	Args:  cobra.ExactArgs(4),
	RunE:  runRollover,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password for the auth.users config block",
	RunE:  runHashPassword,
}

var passwordFlag string

func init() {
	reportCmd.Flags().StringVar(&clientCodeFlag, "client", "", "Client code (required)")
	reportCmd.Flags().StringVar(&monthFlag, "month", "", "Month as YYYY-MM (default: current)")
	reportCmd.MarkFlagRequired("client")

	exportCmd.Flags().StringVar(&clientCodeFlag, "client", "", "Limit to one client code")
	exportCmd.Flags().StringVar(&monthFlag, "month", "", "Month as YYYY-MM (default: current)")
	exportCmd.Flags().StringVar(&outputFlag, "output", "", "Output file (default: xero-invoices-<month>.csv)")

	hashPasswordCmd.Flags().StringVar(&passwordFlag, "password", "", "Password to hash (required)")
	hashPasswordCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(rolloverCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps is the reconciliation stack the subcommands share.
type deps struct {
	helpdesk   *freshdesk.Client
	contracts  *contracts.Store
	reconciler *billing.Reconciler
	cfg        *config.Config
}

func buildDeps() (*deps, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	if err := config.Load(configPath); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.Get()

	store := cache.NewLocalStore(cache.LocalConfig{MaxSize: cfg.Cache.MaxSize}, cache.NewMetrics("local"))
	helpdesk := freshdesk.NewClient(freshdesk.Config{
		Domain:       cfg.Freshdesk.Domain,
		APIKey:       cfg.Freshdesk.APIKey,
		TicketTTL:    cfg.Freshdesk.TicketTTL,
		DirectoryTTL: cfg.Freshdesk.DirectoryTTL,
	}, store)

	contractStore, err := contracts.NewStore(cfg.Contracts.WorkbookPath)
	if err != nil {
		return nil, fmt.Errorf("open contract workbook: %w", err)
	}

	classifier := billing.NewClassifier(cfg.Billing.SaaSProducts, cfg.Billing.UnbillableStatuses)
	return &deps{
		helpdesk:   helpdesk,
		contracts:  contractStore,
		reconciler: billing.NewReconciler(helpdesk, classifier),
		cfg:        cfg,
	}, nil
}

func parseMonthFlag() (time.Time, error) {
	if monthFlag == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse("2006-01", monthFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("--month must look like 2024-06")
	}
	return month, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	month, err := parseMonthFlag()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	companies, err := d.helpdesk.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}
	var company *models.Company
	for i := range companies {
		if companies[i].CustomFields.CompanyCode == clientCodeFlag {
			company = &companies[i]
			break
		}
	}
	if company == nil {
		return fmt.Errorf("no client with code %q", clientCodeFlag)
	}

	entries, err := d.helpdesk.ListTimeEntries(ctx, month, month.AddDate(0, 1, 0), company.ID)
	if err != nil {
		return fmt.Errorf("list time entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("No tracked time for %s in %s.\n", clientCodeFlag, month.Format("January 2006"))
		return nil
	}

	aggregates, err := d.reconciler.AggregateTicketDetails(ctx, entries)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	terms, err := d.contracts.ClientTerms(clientCodeFlag)
	if err != nil {
		return fmt.Errorf("contract terms: %w", err)
	}
	var rollover *float64
	if rec, err := d.contracts.PeriodRecord(clientCodeFlag, month.Year(), int(month.Month())); err == nil && rec != nil {
		rollover = rec.RolloverHours
	}

	summary := billing.ComputePeriodSummary(aggregates, terms, rollover, month, time.Now())

	fmt.Printf("%s (%s), %s\n\n", company.Name, clientCodeFlag, month.Format("January 2006"))
	for _, agg := range aggregates {
		fmt.Printf("  #%-8d %-50.50s %6.2fh  %6.2fh billable\n",
			agg.TicketID, agg.Title, agg.TimeSpentThisPeriod, agg.BillableTimeThisPeriod)
	}
	fmt.Printf("\nTotal time:     %.2fh\n", summary.TotalTime)
	fmt.Printf("Billable time:  %.2fh\n", summary.TotalBillableTime)
	if summary.RolloverAvailable != nil {
		fmt.Printf("Rollover:       %.2fh\n", *summary.RolloverAvailable)
		fmt.Printf("Net billable:   %.2fh\n", *summary.NetBillableAfterRollover)
	}
	if summary.EstimatedCost != nil {
		symbol := ""
		if terms != nil {
			symbol = lookups.CurrencySymbol(terms.Currency)
		}
		fmt.Printf("Estimated cost: %s%.2f\n", symbol, *summary.EstimatedCost)
	}

	exceptions := billing.FlagInvoiceExceptionTickets(aggregates)
	if len(exceptions) > 0 {
		fmt.Println("\nTickets still marked Invoice with tracked time:")
		for _, agg := range exceptions {
			fmt.Printf("  #%d %s\n", agg.TicketID, agg.Title)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	month, err := parseMonthFlag()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	companies, err := d.helpdesk.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("list companies: %w", err)
	}

	var aggregates []*billing.TicketAggregate
	for _, company := range companies {
		code := company.CustomFields.CompanyCode
		if code == "" || (clientCodeFlag != "" && code != clientCodeFlag) {
			continue
		}
		entries, err := d.helpdesk.ListTimeEntries(ctx, month, month.AddDate(0, 1, 0), company.ID)
		if err != nil {
			return fmt.Errorf("list time entries for %s: %w", code, err)
		}
		if len(entries) == 0 {
			continue
		}
		aggs, err := d.reconciler.AggregateTicketDetails(ctx, entries)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", code, err)
		}
		aggregates = append(aggregates, aggs...)
	}

	lines := export.BuildInvoiceLines(aggregates, month, d.cfg.Export.Territories)

	path := outputFlag
	if path == "" {
		path = fmt.Sprintf("xero-invoices-%s.csv", month.Format("2006-01"))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, lines); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	fmt.Printf("Wrote %d invoice lines to %s\n", len(lines), path)
	return nil
}

func runRollover(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}

	var year, month int
	var hours float64
	if _, err := fmt.Sscanf(args[1], "%d", &year); err != nil {
		return fmt.Errorf("year must be numeric: %w", err)
	}
	if _, err := fmt.Sscanf(args[2], "%d", &month); err != nil || month < 1 || month > 12 {
		return fmt.Errorf("month must be 1-12")
	}
	if _, err := fmt.Sscanf(args[3], "%g", &hours); err != nil {
		return fmt.Errorf("hours must be numeric: %w", err)
	}

	rec := models.ContractPeriodRecord{
		ClientCode:    args[0],
		Year:          year,
		Month:         month,
		RolloverHours: &hours,
	}
	if existing, err := d.contracts.PeriodRecord(args[0], year, month); err == nil && existing != nil {
		rec.IncludedHours = existing.IncludedHours
		rec.UsedHours = existing.UsedHours
	}
	if err := d.contracts.UpsertPeriodRecord(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	fmt.Printf("Recorded %.2fh rollover for %s %d-%02d\n", hours, args[0], year, month)
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(passwordFlag), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}
