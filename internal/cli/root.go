package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// NewRootCommand builds the treefill command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treefill",
		Short: "Copy what is missing from one directory tree into another",
		Long: `treefill compares a source directory with a destination directory by name
and copies every missing file and directory. Objects already present in the
destination are never modified, so repeated runs are safe.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&globalFlags.ConfigFile, "config", "", "config file (default is $HOME/.config/treefill/config.yaml)")
	persistent.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "list every object and log debug messages to stderr")
	persistent.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
