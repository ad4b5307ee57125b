package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/treefill/pkg/config"
	"github.com/sdejongh/treefill/pkg/logging"
	"github.com/sdejongh/treefill/pkg/models"
	"github.com/sdejongh/treefill/pkg/output"
	"github.com/sdejongh/treefill/pkg/storage"
	"github.com/sdejongh/treefill/pkg/sync"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	Recursive      bool
	MkPath         bool
	DryRun         bool
	CompareWorkers int
	CopyWorkers    int
	CopyQueueSize  int
	Bandwidth      string
	Exclude        []string
	Output         string
	Progress       bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var syncFlags SyncFlags

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [flags] SOURCE DEST",
		Short: "Copy missing objects from SOURCE into DEST",
		Long: `Copy every file and directory of SOURCE that DEST does not have yet.
Objects are matched by name only; anything already in DEST is left untouched.
Name clashes between a file and a directory are reported and skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: runSync,
	}

	cmd.Flags().BoolVarP(&syncFlags.Recursive, "recursive", "r", false, "recurse into directories")
	cmd.Flags().BoolVar(&syncFlags.MkPath, "mkpath", false, "create destination's missing path components")
	cmd.Flags().BoolVarP(&syncFlags.DryRun, "dry-run", "n", false, "perform a trial run with no changes made")
	cmd.Flags().IntVar(&syncFlags.CompareWorkers, "compare-workers", 0, "number of compare workers (default: 16 when recursive, 1 otherwise)")
	cmd.Flags().IntVar(&syncFlags.CopyWorkers, "copy-workers", models.DefaultCopyWorkers, "number of copy workers")
	cmd.Flags().IntVar(&syncFlags.CopyQueueSize, "copy-queue-size", models.DefaultCopyQueueSize, "capacity of the copy queue")
	cmd.Flags().StringVarP(&syncFlags.Bandwidth, "bwlimit", "b", "", "bandwidth limit per second (e.g., \"10MB\", \"1GiB\")")
	cmd.Flags().StringSliceVar(&syncFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVarP(&syncFlags.Output, "output", "o", "human", "output format: human, json")
	cmd.Flags().BoolVar(&syncFlags.Progress, "progress", false, "show a progress bar when writing to a terminal")

	// Logging flags
	cmd.Flags().StringVar(&syncFlags.LogFile, "log-file", "", "also write logs to file")
	cmd.Flags().StringVar(&syncFlags.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&syncFlags.LogLevel, "log-level", "info", "log file level: debug, info, warn, error")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := withSignals(ctx, cmd.ErrOrStderr())
	defer stop()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	formatter, err := createFormatter(cmd.OutOrStdout(), cfg)
	if err != nil {
		return err
	}

	// Pre-flight: nothing is written unless every check passes
	sourcePath, destPath, destMissing, err := preflight(args[0], args[1], cfg.Sync.MkPath, syncFlags.DryRun)
	if err != nil {
		return reportFailure(formatter, err)
	}

	operation := createSyncOperation(cfg, sourcePath, destPath, destMissing)

	// Create logger
	logger, err := createLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return reportFailure(formatter, fmt.Errorf("failed to create logger: %w", err))
	}
	defer logger.Close()

	// Create storage backends
	source, err := storage.NewLocal(sourcePath)
	if err != nil {
		return reportFailure(formatter, fmt.Errorf("failed to create source backend: %w", err))
	}
	defer source.Close()

	var dest *storage.Local
	if destMissing {
		dest, err = storage.NewPendingLocal(destPath)
	} else {
		dest, err = storage.NewLocal(destPath)
	}
	if err != nil {
		return reportFailure(formatter, fmt.Errorf("failed to create destination backend: %w", err))
	}
	defer dest.Close()

	engine := sync.NewEngine(source, dest, formatter, logger.WithFields(logging.Fields{"run_id": operation.ID}), operation)

	report, err := engine.Run(ctx)
	if err != nil {
		if report == nil {
			return reportFailure(formatter, err)
		}
		return &ExitError{Code: report.Status.ExitCode(), Err: err}
	}

	// The formatter has already shown the outcome
	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// preflight checks both roots and prepares the destination
func preflight(source, dest string, mkpath, dryRun bool) (sourcePath, destPath string, destMissing bool, err error) {
	sourcePath, err = ValidateSource(source)
	if err != nil {
		return "", "", false, err
	}
	destPath, err = normalize(dest, "destination")
	if err != nil {
		return "", "", false, err
	}
	if err := CheckOverlap(sourcePath, destPath); err != nil {
		return "", "", false, err
	}
	destPath, destMissing, err = PrepareDestination(destPath, mkpath, dryRun)
	if err != nil {
		return "", "", false, err
	}
	return sourcePath, destPath, destMissing, nil
}

// reportFailure hands a fatal error to machine-readable output, which
// would otherwise stay silent. Human output relies on stderr.
func reportFailure(formatter output.Formatter, err error) error {
	if formatter != nil && formatter.Name() == "json" {
		formatter.Error(err)
	}
	return err
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with the flags set on cmd
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("recursive") {
		cfg.Sync.Recursive = syncFlags.Recursive
	}
	if flags.Changed("mkpath") {
		cfg.Sync.MkPath = syncFlags.MkPath
	}
	if flags.Changed("compare-workers") {
		cfg.Performance.CompareWorkers = syncFlags.CompareWorkers
	}
	if flags.Changed("copy-workers") {
		cfg.Performance.CopyWorkers = syncFlags.CopyWorkers
	}
	if flags.Changed("copy-queue-size") {
		cfg.Performance.CopyQueueSize = syncFlags.CopyQueueSize
	}
	if flags.Changed("bwlimit") {
		limit, err := parseBandwidth(syncFlags.Bandwidth)
		if err != nil {
			return err
		}
		cfg.Performance.BandwidthLimit = limit
	}

	// Exclude patterns add to the configured ones
	cfg.Exclude = append(cfg.Exclude, syncFlags.Exclude...)

	if flags.Changed("output") {
		cfg.Output.Format = syncFlags.Output
	}
	if flags.Changed("progress") {
		cfg.Output.Progress = syncFlags.Progress
	}
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	if flags.Changed("log-file") {
		cfg.Logging.File = syncFlags.LogFile
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = syncFlags.LogFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = syncFlags.LogLevel
	}

	return nil
}

// parseBandwidth parses a byte rate such as "10MB" or "512KiB"
func parseBandwidth(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	limit, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit %q: %w", s, err)
	}
	return int64(limit), nil
}

// createSyncOperation creates a sync operation from configuration
func createSyncOperation(cfg *config.Config, source, dest string, destMissing bool) *models.SyncOperation {
	operation := &models.SyncOperation{
		ID:         uuid.New().String(),
		SourcePath: source,
		DestPath:   dest,
		DryRun:     syncFlags.DryRun,
		DestAbsent: destMissing,
		CreatedAt:  time.Now(),
	}
	cfg.Apply(operation)

	return operation
}

// createLogger sends warnings to stderr (errors only with -q, everything
// with -v) and, when a log file is configured, the configured level there
func createLogger(stderr io.Writer, cfg *config.Config) (logging.Logger, error) {
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	stderrLevel := logging.WarnLevel
	switch {
	case globalFlags.Quiet:
		stderrLevel = logging.ErrorLevel
	case globalFlags.Verbose:
		stderrLevel = logging.DebugLevel
	}

	loggers := []logging.Logger{logging.NewStreamLogger(stderr, format, stderrLevel)}

	if cfg.Logging.File != "" {
		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    10 * 1024 * 1024, // 10 MB
			MaxBackups: 5,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	return logging.NewMultiLogger(loggers...), nil
}

// createFormatter picks the output for the run. The progress bar is only
// drawn on terminals; quiet runs keep machine-readable JSON only.
func createFormatter(w io.Writer, cfg *config.Config) (output.Formatter, error) {
	switch {
	case cfg.Output.Format == "json":
		return output.NewJSONFormatter(w), nil
	case cfg.Output.Quiet:
		return nil, nil
	case cfg.Output.Progress && output.IsTerminal(w):
		return output.NewProgressFormatter(w), nil
	default:
		return output.New(cfg.Output.Format, w, globalFlags.Verbose)
	}
}
