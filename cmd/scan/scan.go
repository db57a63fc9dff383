package scan

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cscan-dev/cscan/internal/engine"
	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/reporter"
	"github.com/cscan-dev/cscan/internal/rules"
	"github.com/cscan-dev/cscan/pkg/shared/config"
	"github.com/cscan-dev/cscan/pkg/shared/errors"
	"github.com/cscan-dev/cscan/pkg/shared/files"
	"github.com/cscan-dev/cscan/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	ReportFormat string
	OutputPath   string
	Threads      int
	MinSeverity  string
	FailOn       string
	Stats        bool
	NoColor      bool
}

// Global variables for configuration and command arguments
var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scanning a project tree with the text report
  cscan scan /path/to/my_project

  # Scanning a single file
  cscan scan /path/to/module.c

  # Writing a SARIF report to a directory
  cscan scan --format sarif --output /path/to/reports /path/to/my_project

  # Scanning with eight concurrent workers and failing the build on any HIGH finding
  cscan scan -j 8 --fail-on HIGH /path/to/my_project

  # Hiding findings below MED and appending scan statistics
  cscan scan --min-severity MED --stats /path/to/my_project`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--format/-f FORMAT] [--output/-o PATH] [-j THREADS_NUMBER, default=1] [--min-severity LEVEL] [--fail-on LEVEL] [--stats] [--no-color] PATH",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scan a C file or source tree for memory safety defect patterns",
	RunE:                  runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		logger.Error("invalid scan arguments", "error", err)
		return err
	}

	if scanOptions.NoColor {
		color.NoColor = true
	}

	target := args[0]
	format, _ := reporter.ParseFormat(scanOptions.ReportFormat)

	ruleset, err := rules.FromConfig(&AppConfig.Rules)
	if err != nil {
		logger.Error("invalid rules configuration", "error", err)
		return err
	}

	e := engine.New(ruleset, AppConfig.Scan, scanOptions.Threads, logger)

	startedAt := time.Now()
	targets, err := e.ListFiles(target)
	if err != nil {
		logger.Error("failed to enumerate scan targets", "error", err)
		return err
	}
	logger.Info("scanning", "root", target, "files", len(targets), "threads", scanOptions.Threads)

	results, failed := e.ScanFiles(targets)

	if scanOptions.MinSeverity != "" {
		minSev, _ := findings.ParseSeverity(scanOptions.MinSeverity)
		results = findings.FilterBySeverity(results, minSev)
	}

	stats := reporter.Stats{
		Root:         target,
		StartedAt:    startedAt,
		Duration:     time.Since(startedAt),
		FilesScanned: len(targets) - failed,
		FilesFailed:  failed,
	}
	if scanOptions.Stats {
		stats.LinesOfCode = countLines(logger, targets)
	}

	output, err := reporter.Render(format, results, stats, reporter.TextOptions{Stats: scanOptions.Stats})
	if err != nil {
		logger.Error("failed to render report", "error", err)
		return err
	}

	if scanOptions.OutputPath != "" {
		reportPath, err := resolveOutputPath(scanOptions.OutputPath, format)
		if err != nil {
			logger.Error("failed to resolve report path", "error", err)
			return err
		}
		if err := files.WriteReportFile(reportPath, output); err != nil {
			logger.Error("failed to write report", "error", err)
			return err
		}
		logger.Info("report written", "path", reportPath)
	} else {
		os.Stdout.Write(output)
		if len(output) > 0 && output[len(output)-1] != '\n' {
			fmt.Println()
		}
	}

	if scanOptions.FailOn != "" {
		gate, _ := findings.ParseSeverity(scanOptions.FailOn)
		gated := findings.FilterBySeverity(results, gate)
		if len(gated) > 0 {
			return errors.NewFindingsError(len(gated), string(gate))
		}
	}

	logger.Info("scan command completed successfully")
	return nil
}

// Initialize flags for the scan command.
func init() {
	ScanCmd.Flags().StringVarP(&scanOptions.ReportFormat, "format", "f", "text", "Format for the report with results (text, json, sarif).")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputPath, "output", "o", "", "Path to the output file or directory where the report will be saved.")
	ScanCmd.Flags().IntVarP(&scanOptions.Threads, "threads", "j", 1, "Number of concurrent threads to use.")
	ScanCmd.Flags().StringVar(&scanOptions.MinSeverity, "min-severity", "", "Hide findings below this severity (LOW, MED, HIGH).")
	ScanCmd.Flags().StringVar(&scanOptions.FailOn, "fail-on", "", "Exit with code 2 when a finding at or above this severity remains (LOW, MED, HIGH).")
	ScanCmd.Flags().BoolVar(&scanOptions.Stats, "stats", false, "Append file and line statistics to the report.")
	ScanCmd.Flags().BoolVar(&scanOptions.NoColor, "no-color", false, "Disable colored output in the text report.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
}
