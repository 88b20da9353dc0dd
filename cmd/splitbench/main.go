// splitbench runs synthetic workloads on the splitter scheduler and reports
// how the work was split and stolen.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "splitbench",
		Short: "Benchmark the splitting work-stealing scheduler",
		Long: `splitbench builds workloads of range tasks with a configurable per-index
cost, runs them on a splitter.Manager and prints chunk, steal and sleep counts.

Examples:
  # Four tasks of 100k indices on every CPU
  splitbench run

  # Fixed granularity, a merge continuation and a Prometheus endpoint
  splitbench run --granularity 64 --merge --metrics --metrics-addr :9090

  # Settings from a file, flags override it
  splitbench run --config bench.yaml --contexts 2
`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the splitbench version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "splitbench %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
