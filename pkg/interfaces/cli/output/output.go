package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smehta/procure/pkg/application/dto"
)

// Config holds configuration for output generation
type Config struct {
	Format         string
	OutputDir      string
	Verbose        bool
	DerivationTime time.Duration
	InputFiles     map[string]string
}

// Generate creates output in the specified format
func Generate(report dto.AnalysisReport, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(report, config)
	case "json":
		return generateJSONOutput(report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(report dto.AnalysisReport, config Config) error {
	fmt.Printf("📊 Procurement Analysis Summary\n")
	fmt.Printf("===============================\n\n")

	fmt.Printf("Indent Lines: %d\n", len(report.Lines))
	fmt.Printf("Open Items: %d\n", len(report.OpenItems))
	fmt.Printf("Closed Items: %d\n", len(report.ClosedItems))
	fmt.Printf("Backfilled Records: %d\n", len(report.BackfillChanges))
	fmt.Printf("Derivation Time: %v\n\n", config.DerivationTime)

	if len(report.Lines) > 0 {
		fmt.Printf("📋 Allocation Walk:\n")
		fmt.Printf("%-12s %-12s %-20s %10s %10s %10s %10s %-8s\n",
			"Indent", "Item Code", "Item Name", "Requested", "Available", "Allocated", "After", "Status")
		fmt.Printf("%-12s %-12s %-20s %10s %10s %10s %10s %-8s\n",
			"------------", "------------", "--------------------",
			"----------", "----------", "----------", "----------", "--------")

		for _, line := range report.Lines {
			fmt.Printf("%-12s %-12s %-20s %10s %10s %10s %10s %-8s\n",
				line.IndentNumber,
				line.ItemCode,
				truncate(line.ItemName, 20),
				line.Requested.String(),
				line.AvailableBefore.String(),
				line.Allocated.String(),
				line.AvailableAfter.String(),
				line.Status)
		}
		fmt.Println()
	}

	if len(report.OpenItems) > 0 {
		fmt.Printf("⚠️  Open Items:\n")
		printRows(report.OpenItems)
	}

	if len(report.ClosedItems) > 0 {
		fmt.Printf("✅ Closed Items:\n")
		printRows(report.ClosedItems)
	}

	if len(report.BackfillChanges) > 0 {
		fmt.Printf("🔄 Backfilled Records:\n")
		fmt.Printf("%-18s %-38s %-12s\n", "Collection", "Record", "Order")
		fmt.Printf("%-18s %-38s %-12s\n",
			"------------------", "--------------------------------------", "------------")
		for _, change := range report.BackfillChanges {
			fmt.Printf("%-18s %-38s %-12s\n", change.Collection, change.RecordID, change.OrderKey)
		}
		fmt.Println()
	}

	if config.OutputDir != "" {
		if err := saveJSON(report, config, "analysis.json"); err != nil {
			return err
		}
	}

	return nil
}

func printRows(rows []dto.ItemStatusRow) {
	fmt.Printf("%-12s %-12s %-20s %10s %10s %10s\n",
		"Indent", "Item Code", "Item Name", "Requested", "Allocated", "Available")
	fmt.Printf("%-12s %-12s %-20s %10s %10s %10s\n",
		"------------", "------------", "--------------------",
		"----------", "----------", "----------")
	for _, row := range rows {
		fmt.Printf("%-12s %-12s %-20s %10s %10s %10s\n",
			row.IndentNumber,
			row.ItemCode,
			truncate(row.ItemName, 20),
			row.Requested.String(),
			row.Allocated.String(),
			row.Available.String())
	}
	fmt.Println()
}

// generateJSONOutput creates JSON output
func generateJSONOutput(report dto.AnalysisReport, config Config) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Println(string(data))

	if config.OutputDir != "" {
		return saveJSON(report, config, "analysis.json")
	}
	return nil
}

func saveJSON(report dto.AnalysisReport, config Config, name string) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	filename := filepath.Join(config.OutputDir, name)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if config.Verbose {
		fmt.Printf("💾 Results saved to: %s\n", filename)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
