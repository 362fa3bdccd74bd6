package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/hexosearch/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
		Long: `Inspect and create hexosearch configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/hexosearch/config.yaml)
  3. Project config (.hexosearch.yaml in the site root)
  4. Environment variables (HEXOSEARCH_*)
  5. Command-line flags`,
		Example: `  # Show effective configuration
  hexosearch config show -i blog -t article

  # Write .hexosearch.yaml with the index target filled in
  hexosearch config init -i blog -t article`,
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shown := *a.cfg
			if shown.Engine.Password != "" {
				shown.Engine.Password = "********"
			}

			if jsonOutput {
				return writeJSON(cmd, shown)
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .hexosearch.yaml in the site root",
		Long: `Write a project configuration file with the default paths and the
engine settings given on the command line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(a.flags.dir)
			if err != nil {
				return fmt.Errorf("resolve site directory: %w", err)
			}
			path := filepath.Join(dir, config.ProjectConfigFile)

			if fileExists(path) && !force {
				a.out.Warning("Project configuration already exists")
				a.out.Statusf("📁", "Location: %s", path)
				a.out.Status("💡", "Use --force to overwrite")
				return nil
			}

			// Paths stay relative so the file works from any checkout.
			cfg := config.NewConfig()
			cfg.Engine.Backend = a.cfg.Engine.Backend
			cfg.Engine.Host = a.cfg.Engine.Host
			cfg.Engine.Port = a.cfg.Engine.Port
			cfg.Engine.Index = a.cfg.Engine.Index
			cfg.Engine.DocType = a.cfg.Engine.DocType
			cfg.Engine.Timeout = a.cfg.Engine.Timeout

			if err := cfg.WriteYAML(path); err != nil {
				return err
			}

			a.out.Success("Created project configuration")
			a.out.Statusf("📁", "Location: %s", path)
			if cfg.Engine.Index == "" || cfg.Engine.DocType == "" {
				a.out.Status("💡", "Set engine.index and engine.doctype before running sync")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print user config file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
