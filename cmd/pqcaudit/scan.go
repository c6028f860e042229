// cmd/pqcaudit/scan.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/julianshen/pqcaudit/internal/audit"
	"github.com/julianshen/pqcaudit/internal/audit/scanner"
	"github.com/julianshen/pqcaudit/internal/config"
)

var errNoHosts = errors.New("provide either --host or --host-file")

// scanFlags are the file-scanning overrides shared by scan-code,
// scan-config, and scan-all.
type scanFlags struct {
	path      string
	include   []string
	exclude   []string
	dryRun    bool
	anonymize bool
}

func (f *scanFlags) register(cmd *cobra.Command, withInclude bool) {
	cmd.Flags().StringVar(&f.path, "path", "", "directory to scan recursively (default: scan_root from the config)")
	if withInclude {
		cmd.Flags().StringSliceVar(&f.include, "include", nil, "file-name patterns to scan, e.g. '*.py,*.js'")
		cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "only list the files that would be scanned")
	}
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "directories to skip")
	cmd.Flags().BoolVar(&f.anonymize, "anonymize", false, "keep only the trailing path segments in the report")
}

// apply copies the flags the user set into cfg and returns the scan root.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) (string, error) {
	flags := cmd.Flags()
	if flags.Changed("include") {
		cfg.Scan.Include = f.include
	}
	if flags.Changed("exclude") {
		cfg.Scan.Exclude = f.exclude
	}
	if flags.Changed("dry-run") {
		cfg.Scan.DryRun = f.dryRun
	}
	if flags.Changed("anonymize") {
		cfg.Scan.Anonymize = f.anonymize
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if f.path != "" {
		return f.path, nil
	}
	return cfg.Scan.Root, nil
}

// hostFlags select the TLS endpoints to check.
type hostFlags struct {
	hosts    []string
	hostFile string
}

func (f *hostFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.hosts, "host", nil, "hostname, or host:port, to check (repeatable)")
	cmd.Flags().StringVar(&f.hostFile, "host-file", "", "file with one host per line")
}

// resolveHosts picks the TLS targets. A host file wins over --host, and
// either wins over the config file's tls section.
func resolveHosts(hosts []string, hostFile string, cfg config.TLSConfig) ([]string, error) {
	if hostFile == "" && len(hosts) == 0 {
		if cfg.HostFile == "" {
			return cfg.Hosts, nil
		}
		hostFile = cfg.HostFile
	}
	if hostFile != "" {
		f, err := os.Open(hostFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading host file: %v", audit.ErrIO, err)
		}
		defer f.Close()
		return scanner.ParseHosts(f)
	}
	return hosts, nil
}

func scanCodeCmd(opts *rootOptions) *cobra.Command {
	var sf scanFlags
	cmd := &cobra.Command{
		Use:     "scan-code",
		Aliases: []string{"scan_code"},
		Short:   "Scan the codebase for vulnerable cryptography usage",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			root, err := sf.apply(cmd, s.cfg)
			if err != nil {
				return err
			}
			s.logger.Info("running code scanner", "root", root)
			return s.run(cmd.Context(), audit.Target{Root: root}, s.codeScanner())
		},
	}
	sf.register(cmd, true)
	return cmd
}

func scanConfigCmd(opts *rootOptions) *cobra.Command {
	var sf scanFlags
	cmd := &cobra.Command{
		Use:     "scan-config",
		Aliases: []string{"scan_config"},
		Short:   "Scan configuration files for weak crypto settings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			root, err := sf.apply(cmd, s.cfg)
			if err != nil {
				return err
			}
			s.logger.Info("running config scanner", "root", root)
			return s.run(cmd.Context(), audit.Target{Root: root}, s.configScanner())
		},
	}
	sf.register(cmd, false)
	return cmd
}

func scanTLSCmd(opts *rootOptions) *cobra.Command {
	var hf hostFlags
	cmd := &cobra.Command{
		Use:     "scan-tls",
		Aliases: []string{"scan_tls"},
		Short:   "Scan TLS certificates for vulnerabilities",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			hosts, err := resolveHosts(hf.hosts, hf.hostFile, s.cfg.TLS)
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				return errNoHosts
			}
			return s.run(cmd.Context(), audit.Target{Hosts: hosts}, s.tlsScanner())
		},
	}
	hf.register(cmd)
	return cmd
}

func scanAllCmd(opts *rootOptions) *cobra.Command {
	var (
		sf scanFlags
		hf hostFlags
	)
	cmd := &cobra.Command{
		Use:     "scan-all",
		Aliases: []string{"scan_all"},
		Short:   "Run all scanners and generate a comprehensive report",
		Long: `Run the code, config, and TLS scanners in that order and merge their
findings into one report. Settings come from the config file; TLS is
skipped when no hosts are configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			root, err := sf.apply(cmd, s.cfg)
			if err != nil {
				return err
			}
			hosts, err := resolveHosts(hf.hosts, hf.hostFile, s.cfg.TLS)
			if err != nil {
				// The file scanners can still run.
				s.logger.Error("error reading host file", "error", err)
				hosts = nil
			}

			scanners := []audit.Scanner{s.codeScanner(), s.configScanner()}
			if len(hosts) > 0 {
				scanners = append(scanners, s.tlsScanner())
			}
			s.logger.Info("scanning files", "root", root, "hosts", len(hosts))
			return s.run(cmd.Context(), audit.Target{Root: root, Hosts: hosts}, scanners...)
		},
	}
	sf.register(cmd, true)
	hf.register(cmd)
	cmd.Flags().StringVar(&opts.configPath, "config-file", config.DefaultPath, "path to config file")
	_ = cmd.Flags().MarkDeprecated("config-file", "use --config instead")
	return cmd
}

func scanDataCmd(opts *rootOptions) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:     "scan-data",
		Aliases: []string{"scan_data"},
		Short:   "Import findings from CSV, JSON, XML, or YAML exports",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			return s.run(cmd.Context(), audit.Target{DataFiles: files}, s.dataScanner())
		},
	}
	cmd.Flags().StringSliceVar(&files, "data-file", nil, "data export to read (repeatable)")
	_ = cmd.MarkFlagRequired("data-file")
	return cmd
}
