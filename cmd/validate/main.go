package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"goquality/adapters/excel"
	"goquality/domain/dataset"
	"goquality/domain/run"
	"goquality/internal/bootstrap"
	"goquality/internal/config"
)

func main() {
	// Load .env file if present (development convenience)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	datasetPath := flag.String("dataset", "", "CSV or Excel file to validate (overrides DATASET_FILE)")
	rulesPath := flag.String("rules", "", "JSON rule definitions (overrides RULES_FILE)")
	sheet := flag.String("sheet", "", "worksheet name for Excel inputs")
	datasetID := flag.String("warehouse-dataset", "", "warehouse schema to validate instead of a file")
	tableID := flag.String("warehouse-table", "", "warehouse table to validate instead of a file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *datasetPath != "" {
		cfg.Paths.DatasetFile = *datasetPath
	}
	if *rulesPath != "" {
		cfg.Paths.RulesFile = *rulesPath
	}

	eng, _, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build validation engine: %v", err)
	}
	defer eng.Close()

	var ds dataset.Dataset
	switch {
	case *datasetID != "" && *tableID != "":
		ds = &dataset.WarehouseRef{DatasetID: *datasetID, TableID: *tableID}
	case cfg.Paths.DatasetFile != "":
		reader := excel.NewDataReader(cfg.Paths.DatasetFile)
		if *sheet != "" {
			reader = reader.WithSheet(*sheet)
		}
		table, err := reader.ReadTable()
		if err != nil {
			log.Fatalf("Failed to read dataset: %v", err)
		}
		log.Printf("[Validate] loaded %s: %d rows, %d columns",
			table.Name, table.RowCount(), len(table.Columns))
		ds = table
	default:
		log.Fatal("No dataset given: set DATASET_FILE, -dataset, or -warehouse-dataset/-warehouse-table")
	}

	summary, results, err := eng.Validate(context.Background(), ds, nil, run.Config{})
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"summary": summary,
		"results": results,
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if !summary.PassesQuality {
		log.Printf("[Validate] quality score %.3f below threshold %.3f",
			summary.QualityScore.OverallScore, summary.Threshold)
		os.Exit(1)
	}
	log.Printf("[Validate] quality score %.3f meets threshold %.3f",
		summary.QualityScore.OverallScore, summary.Threshold)
}
