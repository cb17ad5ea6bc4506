// Command slarun classifies one inventory workbook against a reference
// duration workbook without the API, database or queue.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/config"
	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/sla"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/spreadsheet"
	"github.com/kirillkom/legal-sla-monitor/internal/observability/logging"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitBadColumns = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slarun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inventoryPath := fs.String("inventory", "", "inventory workbook (.xlsx)")
	referencePath := fs.String("reference", "", "reference duration workbook (.xlsx)")
	outPath := fs.String("out", "Inventario_Clasificado.xlsx", "classified report output path")
	errorsPath := fs.String("errors", "Errores.xlsx", "error report output path, written only when errors exist")
	rulesPath := fs.String("rules", os.Getenv("SLA_RULES_PATH"), "optional YAML rules file")
	timezone := fs.String("tz", "America/Bogota", "timezone used for the fallback current date")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	logger := logging.NewTextLogger(stderr, *logLevel)
	if *inventoryPath == "" || *referencePath == "" {
		fmt.Fprintln(stderr, "both -inventory and -reference are required")
		fs.Usage()
		return exitFailure
	}

	result, err := classify(*inventoryPath, *referencePath, *rulesPath, *timezone, logger)
	if err != nil {
		logger.Error("classification_failed", "error", err)
		var missing *domain.MissingColumnError
		if errors.As(err, &missing) {
			return exitBadColumns
		}
		return exitFailure
	}

	writer := spreadsheet.NewWriter()
	if err := writeFile(*outPath, func(w io.Writer) error { return writer.WriteReport(w, result) }); err != nil {
		logger.Error("write_report_failed", "path", *outPath, "error", err)
		return exitFailure
	}
	logger.Info("report_written", "path", *outPath)

	if len(result.Errors) > 0 {
		err := writeFile(*errorsPath, func(w io.Writer) error {
			return writer.WriteErrors(w, result.Errors, result.Source)
		})
		if err != nil {
			logger.Error("write_errors_failed", "path", *errorsPath, "error", err)
			return exitFailure
		}
		logger.Info("errors_written", "path", *errorsPath, "records", len(result.Errors))
	}

	printSummary(stdout, result)
	return exitOK
}

func classify(inventoryPath, referencePath, rulesPath, timezone string, logger *slog.Logger) (*domain.Result, error) {
	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown_timezone", "tz", timezone, "fallback", "UTC")
		loc = time.UTC
	}
	pipeline, err := sla.NewPipeline(rules, sla.PipelineOptions{
		Now: func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		return nil, err
	}

	reader := spreadsheet.NewReader()
	inventory, err := readTable(reader, inventoryPath)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	reference, err := readTable(reader, referencePath)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	logger.Debug("tables_loaded", "inventory_rows", len(inventory.Rows), "reference_rows", len(reference.Rows))

	return pipeline.Run(inventory, reference)
}

func readTable(reader *spreadsheet.Reader, path string) (domain.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer file.Close()
	return reader.ReadTable(file)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func printSummary(w io.Writer, result *domain.Result) {
	s := result.Summary
	fmt.Fprintf(w, "Fecha de corte:        %s\n", s.Today.Format("2006-01-02"))
	fmt.Fprintf(w, "Registros:             %d (validos %d, errores %d)\n", s.TotalRecords, s.ValidRecords, s.ErrorRecords)
	fmt.Fprintf(w, "Clientes:              %d\n", s.DistinctClients)
	fmt.Fprintf(w, "Capital total:         %.2f\n", s.TotalCapital)
	fmt.Fprintf(w, "Con desviacion:        %d\n", s.DeviatedRecords)
	fmt.Fprintf(w, "No aplica SLA:         %d\n", s.NotApplicable)
	fmt.Fprintf(w, "En riesgo este mes:    %d\n", s.AtRiskThisMonth)
	if len(result.UnmatchedSubstages) > 0 {
		fmt.Fprintf(w, "Sub-etapas sin tiempo: %s\n", strings.Join(result.UnmatchedSubstages, ", "))
	}
	if len(result.DuplicateReference) > 0 {
		fmt.Fprintf(w, "Tiempos duplicados:    %s\n", strings.Join(result.DuplicateReference, ", "))
	}
	if ranked := sla.RankStagesByDeviation(result.ByStage); len(ranked) > 0 {
		top := ranked[0]
		fmt.Fprintf(w, "Mayor desviacion:      %s / %s (%.2f%%)\n", top.LegalStage, top.LegalSubstage, top.MeanPercentDeviation)
	}
}
