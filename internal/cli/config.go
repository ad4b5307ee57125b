package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/treefill/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the treefill configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

// configPath returns --config or the default location
func configPath() (string, error) {
	if globalFlags.ConfigFile != "" {
		return globalFlags.ConfigFile, nil
	}
	return config.DefaultConfigPath()
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			compareWorkers := "auto"
			if cfg.Performance.CompareWorkers > 0 {
				compareWorkers = fmt.Sprint(cfg.Performance.CompareWorkers)
			}
			bandwidth := "unlimited"
			if cfg.Performance.BandwidthLimit > 0 {
				bandwidth = humanize.Bytes(uint64(cfg.Performance.BandwidthLimit)) + "/s"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recursive: %t\n", cfg.Sync.Recursive)
			fmt.Fprintf(out, "Make Path: %t\n", cfg.Sync.MkPath)
			fmt.Fprintf(out, "Compare Workers: %s\n", compareWorkers)
			fmt.Fprintf(out, "Copy Workers: %d\n", cfg.Performance.CopyWorkers)
			fmt.Fprintf(out, "Copy Queue Size: %d\n", cfg.Performance.CopyQueueSize)
			fmt.Fprintf(out, "Buffer Size: %s\n", humanize.IBytes(uint64(cfg.Performance.BufferSize)))
			fmt.Fprintf(out, "Bandwidth Limit: %s\n", bandwidth)
			fmt.Fprintf(out, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(out, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log Level: %s\n", cfg.Logging.Level)
			if cfg.Logging.File != "" {
				fmt.Fprintf(out, "Log File: %s\n", cfg.Logging.File)
			}
			if len(cfg.Exclude) > 0 {
				fmt.Fprintf(out, "Exclude: %s\n", strings.Join(cfg.Exclude, ", "))
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}
