package tui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianshen/pqcaudit/internal/config"
)

// Wizard defaults offered for a new configuration.
const (
	DefaultIncludePatterns    = "*.py,*.js,*.json,*.cfg,*.ini,*.yml"
	DefaultExcludeDirectories = ".git,node_modules,/proc,/sys,C:\\Windows"
)

// ConfigForm wraps a Huh form for editing the scan configuration.
type ConfigForm struct {
	form     *huh.Form
	cfg      *config.Config
	savePath string
	include  string
	exclude  string
}

// NewConfigForm creates a config editor form populated from the given
// config. The list fields are edited as comma-separated strings.
func NewConfigForm(cfg *config.Config, savePath string) *ConfigForm {
	cf := &ConfigForm{
		cfg:      cfg,
		savePath: savePath,
		include:  joinOr(cfg.Scan.Include, DefaultIncludePatterns),
		exclude:  joinOr(cfg.Scan.Exclude, DefaultExcludeDirectories),
	}

	scanGroup := huh.NewGroup(
		huh.NewInput().
			Title("Root directory to scan").
			Placeholder(".").
			Value(&cfg.Scan.Root),
		huh.NewInput().
			Title("File patterns to include (comma-separated)").
			Value(&cf.include),
		huh.NewInput().
			Title("Directories to exclude (comma-separated)").
			Value(&cf.exclude),
	).Title("Scan")

	behaviourGroup := huh.NewGroup(
		huh.NewConfirm().
			Title("Enable dry-run mode (only log files without scanning)?").
			Value(&cfg.Scan.DryRun),
		huh.NewConfirm().
			Title("Enable verbose mode?").
			Value(&cfg.Scan.Verbose),
		huh.NewConfirm().
			Title("Anonymize file paths in the report?").
			Value(&cfg.Scan.Anonymize),
	).Title("Behaviour")

	outputGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Output format").
			Options(
				huh.NewOption("Terminal table", "table"),
				huh.NewOption("JSON", "json"),
				huh.NewOption("Markdown", "markdown"),
				huh.NewOption("HTML", "html"),
				huh.NewOption("SARIF", "sarif"),
				huh.NewOption("PDF", "pdf"),
			).
			Value(&cfg.Output.Format),
		huh.NewInput().
			Title("Config file name to save").
			Value(&cf.savePath),
	).Title("Output")

	cf.form = huh.NewForm(scanGroup, behaviourGroup, outputGroup)
	return cf
}

// Run shows the form on in/out. Accessible mode replaces the full-screen
// form with line prompts, for terminals that cannot host it.
func (c *ConfigForm) Run(ctx context.Context, in io.Reader, out io.Writer, accessible bool) error {
	c.form = c.form.WithInput(in).WithOutput(out).WithAccessible(accessible)
	return c.form.RunWithContext(ctx)
}

// SavePath is where Save writes, as edited in the form.
func (c *ConfigForm) SavePath() string { return c.savePath }

// Apply copies the comma-separated list fields back into the config.
func (c *ConfigForm) Apply() {
	c.cfg.Scan.Include = splitList(c.include)
	c.cfg.Scan.Exclude = splitList(c.exclude)
	if c.cfg.Scan.Root == "" {
		c.cfg.Scan.Root = "."
	}
}

// Save applies the edited fields and persists the config to disk.
func (c *ConfigForm) Save() error {
	c.Apply()
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	return config.Save(c.savePath, c.cfg)
}

func joinOr(list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
