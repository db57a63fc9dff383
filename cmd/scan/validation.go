package scan

import (
	"fmt"
	"os"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/reporter"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("only one target path may be specified")
	}

	targetPath := args[0]
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		return fmt.Errorf("the target path does not exist: %v", targetPath)
	}

	if _, err := reporter.ParseFormat(options.ReportFormat); err != nil {
		return err
	}

	if options.Threads <= 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	if options.MinSeverity != "" {
		if _, err := findings.ParseSeverity(options.MinSeverity); err != nil {
			return fmt.Errorf("invalid 'min-severity' value: %w", err)
		}
	}

	if options.FailOn != "" {
		if _, err := findings.ParseSeverity(options.FailOn); err != nil {
			return fmt.Errorf("invalid 'fail-on' value: %w", err)
		}
	}

	return nil
}
