package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smehta/procure/pkg/interfaces/cli/commands"
)

func main() {
	_ = godotenv.Load()

	// Command line flags
	var (
		scenarioDir = flag.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		stockFile       = flag.String("stock", "", "Path to stock CSV file")
		indentsFile     = flag.String("indents", "", "Path to indents CSV file")
		purchaseFile    = flag.String("purchase", "", "Path to purchase orders CSV file")
		dispatchesFile  = flag.String("dispatches", "", "Path to dispatch orders CSV file")
		inspectionsFile = flag.String("inspections", "", "Path to inspections CSV file")
		scope           = flag.String("scope", "default", "Data scope to analyze")
		outputDir       = flag.String("output", "", "Output directory for results (optional)")
		format          = flag.String("format", "text", "Output format: text, json")
		watch           = flag.Bool("watch", false, "Follow a Firestore scope instead of loading CSVs")
		project         = flag.String("project", "", "GCP project for -watch (or GOOGLE_CLOUD_PROJECT)")
		verbose         = flag.Bool("verbose", false, "Enable verbose output")
		help            = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *watch && !*help {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd := commands.NewWatchCommand(commands.WatchConfig{
			Project: *project,
			Scope:   *scope,
			Verbose: *verbose,
		})
		if err := cmd.Execute(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	config := commands.Config{
		ScenarioDir:     *scenarioDir,
		StockFile:       *stockFile,
		IndentsFile:     *indentsFile,
		PurchaseFile:    *purchaseFile,
		DispatchesFile:  *dispatchesFile,
		InspectionsFile: *inspectionsFile,
		Scope:           *scope,
		OutputDir:       *outputDir,
		Format:          *format,
		Verbose:         *verbose,
		Help:            *help,
	}

	cmd := commands.NewAnalyzeCommand(config)
	ctx := context.Background()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
