package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ruleset "github.com/cscan-dev/cscan/internal/rules"
	"github.com/cscan-dev/cscan/pkg/shared/config"
)

var AppConfig *config.Config

// RulesCmd represents the rules command.
var RulesCmd = &cobra.Command{
	Use:                   "rules",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Print the active rule tables after configuration merge",
	RunE:                  runRulesCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runRulesCommand(cmd *cobra.Command, args []string) error {
	rs, err := ruleset.FromConfig(&AppConfig.Rules)
	if err != nil {
		return err
	}

	fmt.Println("Unsafe call denylist:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, call := range rs.UnsafeCalls {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", call.Name, call.Severity, call.CWE, call.Message)
	}
	w.Flush()

	fmt.Printf("\nCopy bounds checks: %s\n", strings.Join(rs.CopyFuncs, ", "))

	fmt.Println("\nFormat string checks:")
	names := make([]string, 0, len(rs.FormatFuncs))
	for name := range rs.FormatFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s (format argument %d)\n", name, rs.FormatFuncs[name])
	}

	fmt.Printf("\nLarge stack buffer threshold: %d bytes\n", rs.StackBufferThreshold)

	var disabled []string
	for _, id := range ruleset.RuleIDs() {
		if rs.Disabled(id) {
			disabled = append(disabled, id)
		}
	}
	if len(disabled) > 0 {
		fmt.Printf("\nDisabled rules: %s\n", strings.Join(disabled, ", "))
	}

	return nil
}
