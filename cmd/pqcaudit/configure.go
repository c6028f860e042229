// cmd/pqcaudit/configure.go
package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/julianshen/pqcaudit/internal/audit/output"
	"github.com/julianshen/pqcaudit/internal/config"
	"github.com/julianshen/pqcaudit/internal/tui"
)

func configureCmd(opts *rootOptions) *cobra.Command {
	var (
		saveAs     string
		accessible bool
	)
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactively generate a configuration file",
		Long: `Walk through the scan settings and save them as a config file. Values
from an existing config file are offered as defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if saveAs == "" {
				saveAs = opts.configPath
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tui.Banner())

			form := tui.NewConfigForm(cfg, saveAs)
			err = form.Run(cmd.Context(), cmd.InOrStdin(), out, accessible || !output.IsTerminal(out))
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(out, "Configuration cancelled.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("running configuration form: %w", err)
			}

			if err := form.Save(); err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}
			fmt.Fprintf(out, "Configuration saved to %s\n", form.SavePath())
			return nil
		},
	}
	cmd.Flags().StringVar(&saveAs, "save-as", "", "file to write (default: the --config path)")
	cmd.Flags().BoolVar(&accessible, "accessible", false, "use plain line prompts instead of the full-screen form")
	return cmd
}
