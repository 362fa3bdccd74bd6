// Package cmd provides the CLI commands for hexosearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hexosearch/internal/config"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/logging"
	"github.com/Aman-CERP/hexosearch/internal/output"
	"github.com/Aman-CERP/hexosearch/pkg/version"
)

// skipSetup marks commands that need neither config nor logging.
const skipSetup = "skip-setup"

// rootFlags holds the persistent flags shared by every command.
// Only flags the user actually set override the config file.
type rootFlags struct {
	dir           string
	cache         string
	siteConfig    string
	watermarkFile string
	excludeFile   string
	host          string
	port          int
	user          string
	password      string
	index         string
	doctype       string
	backend       string
	blevePath     string
	timeout       string
	dryRun        bool
	debug         bool
	noHistory     bool
}

// app is the state shared by a command invocation.
type app struct {
	flags          rootFlags
	cfg            *config.Config
	out            *output.Writer
	loggingCleanup func()
}

// NewRootCmd creates the root command for the hexosearch CLI.
// Running it without a subcommand performs a sync.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hexosearch",
		Short: "Incrementally index a Hexo site into a search engine",
		Long: `hexosearch reads the db.json cache Hexo writes during generate and
indexes every post and page changed since the last run into Elasticsearch
(or a local bleve index).

Run it from the site root after 'hexo generate'. Only content updated since
the time recorded in the watermark file is sent.`,
		Example: `  # Index changes into Elasticsearch on localhost:9200
  hexosearch -i blog -t article

  # Preview what would be indexed
  hexosearch -i blog -t article --dry-run

  # Re-index whenever hexo regenerates
  hexosearch watch -i blog -t article`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("hexosearch version {{.Version}}\n")

	f := cmd.PersistentFlags()
	f.StringVarP(&a.flags.dir, "dir", "C", ".", "Hexo site root; relative paths resolve against it")
	f.StringVarP(&a.flags.cache, "cache", "c", "", "Hexo cache file (default db.json)")
	f.StringVar(&a.flags.siteConfig, "site-config", "", "Hexo config file (default _config.yml)")
	f.StringVarP(&a.flags.watermarkFile, "watermark-file", "f", "", "Last index time file (default .es-last-index-time)")
	f.StringVarP(&a.flags.excludeFile, "exclude-file", "e", "", "Excluded article paths (default .es-exclude-articles)")
	f.StringVarP(&a.flags.host, "host", "H", "", "Elasticsearch host (default localhost)")
	f.IntVarP(&a.flags.port, "port", "P", 0, "Elasticsearch port (default 9200)")
	f.StringVarP(&a.flags.user, "user", "u", "", "Elasticsearch user")
	f.StringVarP(&a.flags.password, "password", "p", "", "Elasticsearch password")
	f.StringVarP(&a.flags.index, "index", "i", "", "Index name (required)")
	f.StringVarP(&a.flags.doctype, "doctype", "t", "", "Document type (required)")
	f.StringVar(&a.flags.backend, "backend", "", "Search backend: elasticsearch or bleve")
	f.StringVar(&a.flags.blevePath, "bleve-path", "", "Directory for local bleve indexes")
	f.StringVar(&a.flags.timeout, "timeout", "", "Engine request timeout (default 60s)")
	f.BoolVar(&a.flags.dryRun, "dry-run", false, "Print the actions without contacting the engine")
	f.BoolVar(&a.flags.noHistory, "no-history", false, "Do not record this run in the history database")
	f.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging to ~/.hexosearch/logs/")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = a.teardown

	cmd.AddCommand(newSyncCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and starts logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.out = output.NewAuto(cmd.OutOrStdout())

	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.FilePath = cfg.Log.File
	if a.flags.debug {
		logCfg = logging.DebugConfig()
		if cfg.Log.File != "" {
			logCfg.FilePath = cfg.Log.File
		}
		// Keep JSON out of the terminal output.
		logCfg.WriteToStderr = false
	}
	logCfg.Stderr = cmd.ErrOrStderr()

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.loggingCleanup = cleanup

	slog.Debug("command_started",
		slog.String("command", cmd.Name()),
		slog.String("version", version.Get().Version),
		slog.String("backend", cfg.Engine.Backend))
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	a.closeLogging()
	return nil
}

// closeLogging flushes the log file. PersistentPostRunE is skipped when a
// command fails, so Execute calls this too.
func (a *app) closeLogging() {
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
}

// loadConfig merges defaults, config files, environment and explicit flags.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, err := filepath.Abs(a.flags.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve site directory: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, synerr.ConfigError("failed to load configuration", err)
	}

	fs := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	setString("cache", &cfg.Paths.Cache, a.flags.cache)
	setString("site-config", &cfg.Paths.SiteConfig, a.flags.siteConfig)
	setString("watermark-file", &cfg.Paths.WatermarkFile, a.flags.watermarkFile)
	setString("exclude-file", &cfg.Paths.ExcludeFile, a.flags.excludeFile)
	setString("host", &cfg.Engine.Host, a.flags.host)
	setString("user", &cfg.Engine.User, a.flags.user)
	setString("password", &cfg.Engine.Password, a.flags.password)
	setString("index", &cfg.Engine.Index, a.flags.index)
	setString("doctype", &cfg.Engine.DocType, a.flags.doctype)
	setString("backend", &cfg.Engine.Backend, a.flags.backend)
	setString("bleve-path", &cfg.Engine.BlevePath, a.flags.blevePath)
	setString("timeout", &cfg.Engine.Timeout, a.flags.timeout)
	if fs.Changed("port") {
		cfg.Engine.Port = a.flags.port
	}
	if a.flags.noHistory {
		cfg.Paths.HistoryDB = ""
	}

	cfg.ResolvePaths(dir)
	return cfg, nil
}

// Execute runs the root command and prints any error in CLI form.
// It returns the process exit code.
func Execute() int {
	a := &app{}
	err := newRootCmd(a).Execute()
	if err != nil {
		slog.Error("command_failed",
			slog.String("category", string(synerr.GetCategory(err))),
			slog.Any("error", synerr.FormatForLog(err)))
	}
	a.closeLogging()

	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, synerr.FormatForCLI(err))
		return 1
	}
	return 0
}
