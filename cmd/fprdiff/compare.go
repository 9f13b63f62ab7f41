package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/database"
	applog "github.com/nao1215/fprdiff/internal/log"
	"github.com/nao1215/fprdiff/internal/model"
	"github.com/nao1215/fprdiff/internal/pipeline"
	"github.com/nao1215/fprdiff/internal/report"
	"github.com/nao1215/fprdiff/internal/storage"
	"github.com/spf13/cobra"
)

// addCommonFlags registers the flags shared by the comparison and batch commands.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fprdiff in current or home directory)")
	cmd.Flags().String("findings-entry", config.DefaultFindingsEntry,
		"Archive entry holding the FVDL findings document")
	cmd.Flags().String("audit-entry", config.DefaultAuditEntry,
		"Archive entry holding the audit document")
	cmd.Flags().Bool("no-extract", false,
		"Do not write the archive entries to FPR_1_<archive>/FPR_2_<archive> directories "+
			"(a trailing .fpr is dropped from the name, other extensions are kept)")
	cmd.Flags().Bool("save", false,
		"Record the comparison in the history database")
	cmd.Flags().Bool("upload", false,
		"Upload the result file to the bucket configured in the configuration file")
}

// addCompareFlags registers the flags of a single comparison.
func addCompareFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "",
		"Result file path (default: <previous>_<current>.csv)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the summary as Markdown (mutually exclusive with --json)")
}

// runCompareCmd executes a single comparison.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintln(out, usageLine)
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCompare(ctx, cfg, logger, out, cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig creates a Config with the configuration file applied.
// If the user explicitly specified a config file path, a missing file is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	file, path, err := config.Load(configPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("%w: %s", err, configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	cfg.ApplyFile(file)
	cfg.ConfigFilePath = path
	return cfg, nil
}

// applyCommonFlags copies the flags registered by addCommonFlags into cfg.
// Entry names only override the configuration file when given explicitly.
func applyCommonFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("findings-entry") {
		v, err := flags.GetString("findings-entry")
		if err != nil {
			return err
		}
		cfg.FindingsEntry = v
	}
	if flags.Changed("audit-entry") {
		v, err := flags.GetString("audit-entry")
		if err != nil {
			return err
		}
		cfg.AuditEntry = v
	}

	noExtract, err := flags.GetBool("no-extract")
	if err != nil {
		return err
	}
	if noExtract {
		cfg.Extract = false
	}

	save, err := flags.GetBool("save")
	if err != nil {
		return err
	}
	if save {
		cfg.SaveToDB = true
	}

	cfg.Upload, err = flags.GetBool("upload")
	return err
}

// buildConfig creates the Config of a single comparison from flags and arguments.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := applyCommonFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.PreviousPath = args[0]
	}
	if len(args) > 1 {
		cfg.CurrentPath = args[1]
	}

	return cfg, nil
}

// setupLogger creates the credential-redacting logger on stderr.
func setupLogger(verbose bool) *slog.Logger {
	return applog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// resources holds what the optional pipeline steps need.
type resources struct {
	history *database.HistoryDB
	store   *storage.Store
}

// openResources opens the history database and the artifact store when cfg asks for them.
func openResources(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*resources, error) {
	res := &resources{}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		res.history = db
		logger.Info("database opened", "path", db.Path())
	}

	if cfg.Upload {
		store, err := storage.New(ctx, storageOptions(cfg.File.Storage))
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		res.store = store
		logger.Info("storage connected",
			"endpoint", cfg.File.Storage.Endpoint,
			"bucket", cfg.File.Storage.Bucket,
		)
	}

	return res, nil
}

// Close releases the opened resources.
func (r *resources) Close() {
	if r.history != nil {
		_ = r.history.Close() //nolint:errcheck // Best effort cleanup
	}
}

// pipelineOptions returns the pipeline configuration for cfg and the opened resources.
func (r *resources) pipelineOptions(cfg *config.Config, progress io.Writer) []pipeline.DefaultPipelineOption {
	opts := []pipeline.DefaultPipelineOption{
		pipeline.FromConfig(cfg),
		pipeline.WithPipelineProgress(progress),
	}
	if r.history != nil {
		opts = append(opts, pipeline.WithPipelineHistory(r.history))
	}
	if r.store != nil {
		opts = append(opts, pipeline.WithPipelineUploader(r.store))
	}
	return opts
}

// storageOptions converts the configuration file section into store options.
func storageOptions(s config.StorageConfig) storage.Options {
	return storage.Options{
		Endpoint:  s.Endpoint,
		Region:    s.Region,
		Bucket:    s.Bucket,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		UseSSL:    s.UseSSL,
		Prefix:    s.Prefix,
	}
}

// runCompare runs the comparison pipeline and prints the summary.
// Progress lines go to out for the text summary and to errOut when out
// carries JSON or Markdown.
func runCompare(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, errOut io.Writer) error {
	logger.Info("starting comparison",
		"previous", cfg.PreviousPath,
		"current", cfg.CurrentPath,
		"config", cfg.ConfigFilePath,
	)

	if cfg.Pair().SameArchive() {
		logger.Warn("comparing an archive with itself", "archive", cfg.PreviousPath)
	}

	res, err := openResources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer res.Close()

	progress := out
	if cfg.JSONReport || cfg.MarkdownReport {
		progress = errOut
	}

	p := pipeline.DefaultPipeline(
		[]pipeline.Option{pipeline.WithLogger(logger)},
		res.pipelineOptions(cfg, progress)...,
	)

	c := model.NewComparison(cfg.Pair())
	if err := p.Execute(ctx, c); err != nil {
		return err
	}

	fmt.Fprintln(progress, "Done!")
	fmt.Fprintln(progress, "Results can be found in the file: "+c.OutputPath)

	return writeSummary(out, cfg, c)
}

// writeSummary prints the comparison summary in the requested format.
func writeSummary(out io.Writer, cfg *config.Config, c *model.Comparison) error {
	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(out)
	default:
		fmt.Fprintln(out)
		writer = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(c)
	return err
}
