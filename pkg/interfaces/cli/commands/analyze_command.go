package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smehta/procure/pkg/application/dto"
	"github.com/smehta/procure/pkg/application/services/reconcile"
	"github.com/smehta/procure/pkg/infrastructure/repositories/csv"
	"github.com/smehta/procure/pkg/infrastructure/repositories/memory"
	"github.com/smehta/procure/pkg/interfaces/cli/output"
)

// Config holds configuration for the analyze command
type Config struct {
	ScenarioDir     string
	StockFile       string
	IndentsFile     string
	PurchaseFile    string
	DispatchesFile  string
	InspectionsFile string
	Scope           string
	OutputDir       string
	Format          string
	Verbose         bool
	Help            bool
}

// AnalyzeCommand loads CSV data into an in-memory store, runs the full
// derivation, and renders the allocation and backfill report.
type AnalyzeCommand struct {
	config Config
}

// NewAnalyzeCommand creates a new analyze command with the given configuration
func NewAnalyzeCommand(config Config) *AnalyzeCommand {
	return &AnalyzeCommand{
		config: config,
	}
}

// Execute runs the analyze command
func (c *AnalyzeCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	files, err := c.resolveInputFiles()
	if err != nil {
		return fmt.Errorf("failed to resolve input files: %w", err)
	}

	if c.config.Verbose {
		c.printHeader(files)
	}

	if c.config.Verbose {
		fmt.Println("📂 Loading data from CSV files...")
	}

	store := memory.NewDocumentStore()
	loader := csv.NewLoader()
	err = loader.Seed(ctx, store, c.config.Scope, csv.Files{
		StockRecords:   files.StockRecords,
		Indents:        files.Indents,
		PurchaseOrders: files.PurchaseOrders,
		DispatchOrders: files.DispatchOrders,
		Inspections:    files.Inspections,
	})
	if err != nil {
		return fmt.Errorf("error loading CSV data: %w", err)
	}

	logger := logrus.New()
	if c.config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}

	svc := reconcile.NewService(store, c.config.Scope, logger)

	if c.config.Verbose {
		fmt.Println("🔄 Running allocation and backfill derivation...")
	}

	startTime := time.Now()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("error starting derivation: %w", err)
	}
	defer svc.Close()

	report, err := settle(ctx, svc)
	derivationTime := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("error waiting for derivation: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("✅ Derivation completed in %v\n\n", derivationTime)
	}

	outputConfig := output.Config{
		Format:         c.config.Format,
		OutputDir:      c.config.OutputDir,
		Verbose:        c.config.Verbose,
		DerivationTime: derivationTime,
	}

	if err := output.Generate(report, outputConfig); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Println("🏁 Procurement analysis complete!")
	}

	return nil
}

// settle waits for the derivation to reach a fixed point: backfill writes
// trigger rederivations, so the report is final once two consecutive reads
// agree.
func settle(ctx context.Context, svc *reconcile.Service) (dto.AnalysisReport, error) {
	deadline := time.Now().Add(10 * time.Second)
	for !svc.Ready() {
		if time.Now().After(deadline) {
			return dto.AnalysisReport{}, fmt.Errorf("derivation did not become ready in time")
		}
		select {
		case <-ctx.Done():
			return dto.AnalysisReport{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}

	last := svc.Report()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return dto.AnalysisReport{}, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		current := svc.Report()
		if reflect.DeepEqual(current, last) {
			return current, nil
		}
		last = current
	}
	return dto.AnalysisReport{}, fmt.Errorf("derivation did not settle in time")
}

// inputFiles are the resolved CSV paths, empty where not provided
type inputFiles struct {
	StockRecords   string
	Indents        string
	PurchaseOrders string
	DispatchOrders string
	Inspections    string
}

// validateInputs validates the command configuration
func (c *AnalyzeCommand) validateInputs() error {
	if c.config.ScenarioDir == "" && (c.config.StockFile == "" || c.config.IndentsFile == "") {
		return fmt.Errorf("must specify either -scenario directory or at least -stock and -indents files")
	}
	if c.config.Scope == "" {
		return fmt.Errorf("scope must not be empty")
	}
	return nil
}

// resolveInputFiles determines the actual file paths to use. In scenario
// mode, stock.csv and indents.csv are required; the downstream pipeline files
// are optional.
func (c *AnalyzeCommand) resolveInputFiles() (inputFiles, error) {
	if c.config.ScenarioDir == "" {
		files := inputFiles{
			StockRecords:   c.config.StockFile,
			Indents:        c.config.IndentsFile,
			PurchaseOrders: c.config.PurchaseFile,
			DispatchOrders: c.config.DispatchesFile,
			Inspections:    c.config.InspectionsFile,
		}
		for _, path := range []string{files.StockRecords, files.Indents, files.PurchaseOrders, files.DispatchOrders, files.Inspections} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return inputFiles{}, fmt.Errorf("file not found: %s", path)
			}
		}
		return files, nil
	}

	required := func(name string) (string, error) {
		path := filepath.Join(c.config.ScenarioDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "", fmt.Errorf("%s not found in scenario directory: %s", name, path)
		}
		return path, nil
	}
	optional := func(name string) string {
		path := filepath.Join(c.config.ScenarioDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return ""
		}
		return path
	}

	var files inputFiles
	var err error
	if files.StockRecords, err = required("stock.csv"); err != nil {
		return inputFiles{}, err
	}
	if files.Indents, err = required("indents.csv"); err != nil {
		return inputFiles{}, err
	}
	files.PurchaseOrders = optional("purchase_orders.csv")
	files.DispatchOrders = optional("dispatches.csv")
	files.Inspections = optional("inspections.csv")
	return files, nil
}

// printHeader prints the command header information
func (c *AnalyzeCommand) printHeader(files inputFiles) {
	fmt.Printf("🚀 Procurement Analysis CLI\n")
	fmt.Printf("Input files:\n")
	fmt.Printf("  Stock: %s\n", files.StockRecords)
	fmt.Printf("  Indents: %s\n", files.Indents)
	if files.PurchaseOrders != "" {
		fmt.Printf("  Purchase Orders: %s\n", files.PurchaseOrders)
	}
	if files.DispatchOrders != "" {
		fmt.Printf("  Dispatches: %s\n", files.DispatchOrders)
	}
	if files.Inspections != "" {
		fmt.Printf("  Inspections: %s\n", files.Inspections)
	}
	fmt.Printf("Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Printf("Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Println()
}

// showHelp displays the help message
func (c *AnalyzeCommand) showHelp() {
	fmt.Printf(`Procurement Analysis CLI - Indent Allocation and Pipeline Backfill

USAGE:
    procure -scenario <directory>             # Use scenario directory with CSV files
    procure -stock <file> -indents <file> ... # Use individual CSV files
    procure -watch -project <gcp-project>     # Follow a live Firestore scope

OPTIONS:
    -scenario <dir>      Path to scenario directory containing CSV files
    -stock <file>        Path to stock CSV file
    -indents <file>      Path to indents CSV file
    -purchase <file>     Path to purchase orders CSV file (optional)
    -dispatches <file>   Path to dispatch orders CSV file (optional)
    -inspections <file>  Path to inspections CSV file (optional)
    -scope <name>        Data scope to analyze (default: default)
    -output <dir>        Output directory for results (optional)
    -format <fmt>        Output format: text, json (default: text)
    -watch               Follow a Firestore scope instead of loading CSVs
    -project <id>        GCP project for -watch (or GOOGLE_CLOUD_PROJECT)
    -verbose             Enable verbose output
    -help                Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── stock.csv            # Current stock snapshot
    ├── indents.csv          # Purchase indents, one row per line item
    ├── purchase_orders.csv  # Purchase orders (optional)
    ├── dispatches.csv       # Vendor dispatch orders (optional)
    └── inspections.csv      # VSIR/PSIR inspection records (optional)

CSV FILE FORMATS:

stock.csv:
    item_code,item_name,closing_stock,stock_quantity,incoming_quantity
    RM-001,MS Rod 12mm,,80,20

indents.csv:
    indent_number,date,requested_by,item_code,item_name,quantity
    IND-001,2026-01-05,stores,RM-001,MS Rod 12mm,50

purchase_orders.csv:
    po_number,supplier,item_code,item_name,ordered_quantity,received_quantity,batch_number,vendor_batch_number
    PO-001,Acme Alloys,RM-001,MS Rod 12mm,30,0,B-7,

dispatches.csv:
    po_number,indent_number,item_code,item_name,vendor_name,batch_number,vendor_batch_number,order_ack_number,quantity
    PO-001,,RM-001,,,,,,

inspections.csv:
    stage,po_number,indent_number,item_code,item_name,vendor_name,batch_number,vendor_batch_number,order_ack_number,quantity,result
    VSIR,PO-001,,RM-001,,,,,,,pass

EXAMPLES:
    # Analyze a scenario directory
    procure -scenario examples/steel_plant -verbose

    # Analyze individual files with JSON output
    procure -stock data/stock.csv -indents data/indents.csv -format json

    # Follow a live Firestore scope
    procure -watch -project my-erp-project -scope acme -verbose
`)
}
