package cmd

import (
	goerrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rulescmd "github.com/cscan-dev/cscan/cmd/rules"
	"github.com/cscan-dev/cscan/cmd/scan"
	"github.com/cscan-dev/cscan/cmd/version"
	"github.com/cscan-dev/cscan/pkg/shared/config"
	"github.com/cscan-dev/cscan/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "cscan [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Cscan is a heuristic scanner for memory safety defects in C sources.",
		Long: `Cscan is a lightweight lexical scanner that flags memory safety defect
	patterns in C source trees: unsafe library calls, out-of-bounds copies,
	format string misuse, oversized stack buffers, and alloca usage.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the configuration file (default is config.yml).")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(rulescmd.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and maps the outcome to a process exit
// code: 0 for success, 1 for usage or internal errors, 2 when findings
// trip the fail-on gate.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true

	err := rootCmd.Execute()
	if err == nil {
		return errors.ExitOK
	}

	var cmdErr *errors.CommandError
	if goerrors.As(err, &cmdErr) {
		// The report already shows the findings that tripped the gate.
		if cmdErr.ExitCode != errors.ExitFindings {
			fmt.Fprintf(os.Stderr, "Error executing command: %v\n", cmdErr.Err)
		}
		return cmdErr.ExitCode
	}

	fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	return errors.ExitError
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize configuration: %v\n", err)
		os.Exit(errors.ExitError)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitError)
	}

	scan.Init(AppConfig)
	rulescmd.Init(AppConfig)
	version.Init(AppConfig)
}
