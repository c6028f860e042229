// cmd/pqcaudit/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/julianshen/pqcaudit/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errThresholdExceeded is returned when --fail-on trips; main maps it to
// exit status 2.
var errThresholdExceeded = errors.New("findings at or above the fail-on threshold")

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath   string
	outputFormat string
	outputFile   string
	failOn       string
	verbose      bool
}

func versionString() string {
	return fmt.Sprintf("pqcaudit %s (commit: %s, built: %s)", version, commit, date)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pqcaudit",
		Short: "Quantum Migration CLI Tool: audit your cryptography",
		Long: `pqcaudit finds cryptography that is weak against quantum attacks in
source code, configuration files, TLS endpoints, and exported findings, and
recommends a post-quantum migration path for each.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath, "path to config file (YAML, or TOML with a .toml extension)")
	pf.StringVarP(&opts.outputFormat, "output-format", "o", "", "report format: table, json, markdown, html, sarif, pdf")
	pf.StringVar(&opts.outputFile, "output-file", "", "write the report to this file instead of stdout")
	pf.StringVar(&opts.failOn, "fail-on", "", "exit with status 2 if any finding is at or above this risk: high, medium, low")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCodeCmd(opts))
	rootCmd.AddCommand(scanConfigCmd(opts))
	rootCmd.AddCommand(scanTLSCmd(opts))
	rootCmd.AddCommand(scanAllCmd(opts))
	rootCmd.AddCommand(scanDataCmd(opts))
	rootCmd.AddCommand(configureCmd(opts))

	return rootCmd
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, errThresholdExceeded) {
		return 2
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
