package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/fprdiff/internal/archive"
	"github.com/nao1215/fprdiff/internal/config"
	"github.com/nao1215/fprdiff/internal/delta"
	"github.com/nao1215/fprdiff/internal/fvdl"
	"github.com/nao1215/fprdiff/internal/model"
	"github.com/nao1215/fprdiff/internal/report"
	"golang.org/x/crypto/blake2b"
)

// ErrNoFindingsLoaded is returned by ParseStep when a side has no findings
// document, which happens when the load steps did not run.
var ErrNoFindingsLoaded = errors.New("findings document not loaded")

// LoadStep opens one archive of the pair, optionally extracts the findings
// and audit entries to disk, and reads both entries into memory.
// The archive handle is released before the step returns.
type LoadStep struct {
	origin        model.Origin
	findingsEntry string
	auditEntry    string
	extract       bool
	extractPrefix string
	progress      io.Writer
	logger        *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithEntries sets the findings and audit entry names.
func WithEntries(findingsEntry, auditEntry string) LoadStepOption {
	return func(s *LoadStep) {
		s.findingsEntry = findingsEntry
		s.auditEntry = auditEntry
	}
}

// WithExtract enables or disables writing the entries below
// prefix + archive path without ".fpr".
func WithExtract(extract bool, prefix string) LoadStepOption {
	return func(s *LoadStep) {
		s.extract = extract
		s.extractPrefix = prefix
	}
}

// WithProgress sets where the entry length lines are printed.
func WithProgress(w io.Writer) LoadStepOption {
	return func(s *LoadStep) {
		if w != nil {
			s.progress = w
		}
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a load step for the previous archive
// (model.OriginWentAway) or the current archive (model.OriginNewFindings).
func NewLoadStep(origin model.Origin, opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		origin:        origin,
		findingsEntry: config.DefaultFindingsEntry,
		auditEntry:    config.DefaultAuditEntry,
		extract:       true,
		extractPrefix: config.DefaultPreviousExtractPrefix,
		progress:      io.Discard,
		logger:        slog.Default(),
	}
	if origin == model.OriginNewFindings {
		s.extractPrefix = config.DefaultCurrentExtractPrefix
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	if s.origin == model.OriginWentAway {
		return "load_previous"
	}
	return "load_current"
}

// label is the word the progress lines start with.
func (s *LoadStep) label() string {
	if s.origin == model.OriginWentAway {
		return "Old"
	}
	return "New"
}

// Do executes the load step.
func (s *LoadStep) Do(_ context.Context, c *model.Comparison) error {
	side := c.Side(s.origin)

	a, err := archive.Open(side.Path)
	if err != nil {
		return err
	}
	defer a.Close()

	if s.extract {
		dir := model.ExtractDirName(s.extractPrefix, side.Path)
		for _, entry := range []string{s.auditEntry, s.findingsEntry} {
			target, err := a.ExtractEntry(entry, dir)
			if err != nil {
				return err
			}
			s.logger.Debug("extracted entry", "archive", side.Path, "entry", entry, "target", target)
		}
		side.ExtractDir = dir
	}

	audit, err := a.ReadEntry(s.auditEntry)
	if err != nil {
		return err
	}
	findings, err := a.ReadEntry(s.findingsEntry)
	if err != nil {
		return err
	}

	side.AuditBytes = len(audit)
	side.SetRaw(findings)
	side.Digest = digest(findings)

	fmt.Fprintf(s.progress, "%s '%s'  length: %d\n", s.label(), s.auditEntry, side.AuditBytes)
	fmt.Fprintf(s.progress, "%s '%s' length: %d\n", s.label(), s.findingsEntry, side.FindingsBytes)

	s.logger.Debug("loaded archive",
		"archive", side.Path,
		"audit_bytes", side.AuditBytes,
		"findings_bytes", side.FindingsBytes,
		"digest", side.Digest,
	)
	return nil
}

// digest returns the hex BLAKE2b-256 sum of data.
func digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ParseStep turns the findings documents of both sides into findings.
type ParseStep struct {
	parser *fvdl.Parser
	logger *slog.Logger
}

// ParseStepOption configures a ParseStep.
type ParseStepOption func(*ParseStep)

// WithParseNamespace sets the XML namespace findings elements must be in.
func WithParseNamespace(namespace string) ParseStepOption {
	return func(s *ParseStep) {
		s.parser = fvdl.NewParser(fvdl.WithNamespace(namespace))
	}
}

// WithParseLogger sets a custom logger for the parse step.
func WithParseLogger(logger *slog.Logger) ParseStepOption {
	return func(s *ParseStep) {
		s.logger = logger
	}
}

// NewParseStep creates a new parse step.
func NewParseStep(opts ...ParseStepOption) *ParseStep {
	s := &ParseStep{
		parser: fvdl.NewParser(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step. The raw documents are released afterwards.
func (s *ParseStep) Do(_ context.Context, c *model.Comparison) error {
	for _, side := range []*model.ScanSide{&c.Previous, &c.Current} {
		if side.Raw() == nil {
			return fmt.Errorf("%s: %w", side.Path, ErrNoFindingsLoaded)
		}

		findings, err := s.parser.Parse(side.Raw())
		if err != nil {
			return fmt.Errorf("failed to parse findings of %s: %w", side.Path, err)
		}
		side.Findings = findings
		side.ReleaseRaw()

		s.logger.Debug("parsed findings", "archive", side.Path, "count", len(findings))
	}
	return nil
}

// DiffStep computes the delta between the parsed findings.
type DiffStep struct {
	logger *slog.Logger
}

// NewDiffStep creates a new diff step.
func NewDiffStep(logger *slog.Logger) *DiffStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiffStep{logger: logger}
}

// Name returns the step name.
func (s *DiffStep) Name() string {
	return "diff"
}

// Do executes the diff step.
func (s *DiffStep) Do(_ context.Context, c *model.Comparison) error {
	c.Delta = delta.Diff(c.Previous.Findings, c.Current.Findings)

	if c.Delta.DroppedCount > 0 {
		s.logger.Warn("rows dropped for non-unique instance IDs",
			"dropped", c.Delta.DroppedCount,
		)
	}
	s.logger.Debug("computed delta",
		"went_away", len(c.Delta.WentAway()),
		"new_findings", len(c.Delta.NewFindings()),
	)
	return nil
}

// WriteCSVStep writes the delta table to the result file.
// Without an explicit path the file is named after the pair.
type WriteCSVStep struct {
	path    string
	suffix  string
	options report.CSVOptions
	logger  *slog.Logger
}

// WriteCSVStepOption configures a WriteCSVStep.
type WriteCSVStepOption func(*WriteCSVStep)

// WithOutputPath sets an explicit result file path.
func WithOutputPath(path string) WriteCSVStepOption {
	return func(s *WriteCSVStep) {
		s.path = path
	}
}

// WithOutputSuffix sets the suffix of the pair-derived file name.
func WithOutputSuffix(suffix string) WriteCSVStepOption {
	return func(s *WriteCSVStep) {
		s.suffix = suffix
	}
}

// WithCSVOptions sets the CSV writer options.
func WithCSVOptions(opts report.CSVOptions) WriteCSVStepOption {
	return func(s *WriteCSVStep) {
		s.options = opts
	}
}

// WithWriteLogger sets a custom logger for the write step.
func WithWriteLogger(logger *slog.Logger) WriteCSVStepOption {
	return func(s *WriteCSVStep) {
		s.logger = logger
	}
}

// NewWriteCSVStep creates a new write step.
func NewWriteCSVStep(opts ...WriteCSVStepOption) *WriteCSVStep {
	s := &WriteCSVStep{
		suffix:  config.DefaultOutputSuffix,
		options: report.DefaultCSVOptions(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WriteCSVStep) Name() string {
	return "write_csv"
}

// Do executes the write step.
func (s *WriteCSVStep) Do(_ context.Context, c *model.Comparison) error {
	if c.Delta == nil {
		return report.ErrNoDelta
	}

	path := s.path
	if path == "" {
		path = c.Pair.OutputPath(s.suffix)
	}

	if err := report.WriteCSVFile(path, c.Delta, s.options); err != nil {
		return err
	}
	c.OutputPath = path

	s.logger.Debug("wrote result file", "path", path, "rows", len(c.Delta.Rows))
	return nil
}

// HistoryRecorder stores finished comparisons.
// It is implemented by *database.HistoryDB.
type HistoryRecorder interface {
	SaveComparison(ctx context.Context, c *model.Comparison) (int64, error)
}

// SaveHistoryStep records the comparison in the history database.
type SaveHistoryStep struct {
	recorder HistoryRecorder
	logger   *slog.Logger
}

// NewSaveHistoryStep creates a new history step.
func NewSaveHistoryStep(recorder HistoryRecorder, logger *slog.Logger) *SaveHistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveHistoryStep{recorder: recorder, logger: logger}
}

// Name returns the step name.
func (s *SaveHistoryStep) Name() string {
	return "save_history"
}

// Do executes the history step.
func (s *SaveHistoryStep) Do(ctx context.Context, c *model.Comparison) error {
	id, err := s.recorder.SaveComparison(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	c.HistoryID = id

	s.logger.Debug("saved comparison", "id", id)
	return nil
}

// Uploader pushes a local file to object storage.
// It is implemented by *storage.Store.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	ObjectKey(startedAt time.Time, localPath string) string
}

// UploadStep uploads the result file.
type UploadStep struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewUploadStep creates a new upload step.
func NewUploadStep(uploader Uploader, logger *slog.Logger) *UploadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadStep{uploader: uploader, logger: logger}
}

// Name returns the step name.
func (s *UploadStep) Name() string {
	return "upload"
}

// Do executes the upload step.
func (s *UploadStep) Do(ctx context.Context, c *model.Comparison) error {
	if c.OutputPath == "" {
		return report.ErrNoDelta
	}

	key := s.uploader.ObjectKey(c.StartedAt, c.OutputPath)
	location, err := s.uploader.Upload(ctx, c.OutputPath, key)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", c.OutputPath, err)
	}
	c.UploadLocation = location

	s.logger.Info("uploaded result file", "location", location)
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// FindingsEntry is the archive entry holding the findings document.
	FindingsEntry string

	// AuditEntry is the archive entry holding the audit document.
	AuditEntry string

	// Namespace is the findings document XML namespace.
	Namespace string

	// Extract writes the entries to the extraction directories.
	Extract bool

	// PreviousExtractPrefix and CurrentExtractPrefix name the extraction
	// directories of the two archives.
	PreviousExtractPrefix string
	CurrentExtractPrefix  string

	// OutputPath overrides the pair-derived result file path.
	OutputPath string

	// OutputSuffix is appended to "<previous>_<current>".
	OutputSuffix string

	// CSV configures the result file writer.
	CSV report.CSVOptions

	// Progress receives the entry length lines. Nil discards them.
	Progress io.Writer

	// Uploader, when set, adds the upload step.
	Uploader Uploader

	// History, when set, adds the history step.
	History HistoryRecorder
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// FromConfig copies the comparison settings of cfg.
// Uploader and History are not touched; they need opened resources.
func FromConfig(cfg *config.Config) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FindingsEntry = cfg.FindingsEntry
		c.AuditEntry = cfg.AuditEntry
		c.Namespace = cfg.Namespace
		c.Extract = cfg.Extract
		c.PreviousExtractPrefix = cfg.PreviousExtractPrefix
		c.CurrentExtractPrefix = cfg.CurrentExtractPrefix
		c.OutputPath = cfg.OutputFile
		c.OutputSuffix = cfg.OutputSuffix
		c.CSV.SanitizeFormulas = cfg.SanitizeFormulas
	}
}

// WithPipelineProgress sets where progress lines are printed.
func WithPipelineProgress(w io.Writer) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Progress = w
	}
}

// WithPipelineUploader adds the upload step.
func WithPipelineUploader(u Uploader) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Uploader = u
	}
}

// WithPipelineHistory adds the history step.
func WithPipelineHistory(h HistoryRecorder) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.History = h
	}
}

// DefaultPipeline creates the comparison pipeline:
// load_previous, load_current, parse, diff, write_csv, then upload and
// save_history when configured. History is saved last so it records the
// upload location.
//
// The first parameter accepts pipeline options (WithLogger).
// The variadic parameter accepts config options (FromConfig etc).
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		FindingsEntry:         config.DefaultFindingsEntry,
		AuditEntry:            config.DefaultAuditEntry,
		Namespace:             config.DefaultNamespace,
		Extract:               true,
		PreviousExtractPrefix: config.DefaultPreviousExtractPrefix,
		CurrentExtractPrefix:  config.DefaultCurrentExtractPrefix,
		OutputSuffix:          config.DefaultOutputSuffix,
		CSV:                   report.DefaultCSVOptions(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewLoadStep(model.OriginWentAway,
			WithEntries(cfg.FindingsEntry, cfg.AuditEntry),
			WithExtract(cfg.Extract, cfg.PreviousExtractPrefix),
			WithProgress(cfg.Progress),
			WithLoadLogger(p.logger),
		),
		NewLoadStep(model.OriginNewFindings,
			WithEntries(cfg.FindingsEntry, cfg.AuditEntry),
			WithExtract(cfg.Extract, cfg.CurrentExtractPrefix),
			WithProgress(cfg.Progress),
			WithLoadLogger(p.logger),
		),
		NewParseStep(
			WithParseNamespace(cfg.Namespace),
			WithParseLogger(p.logger),
		),
		NewDiffStep(p.logger),
		NewWriteCSVStep(
			WithOutputPath(cfg.OutputPath),
			WithOutputSuffix(cfg.OutputSuffix),
			WithCSVOptions(cfg.CSV),
			WithWriteLogger(p.logger),
		),
	)

	if cfg.Uploader != nil {
		p.AddStep(NewUploadStep(cfg.Uploader, p.logger))
	}
	if cfg.History != nil {
		p.AddStep(NewSaveHistoryStep(cfg.History, p.logger))
	}

	return p
}
