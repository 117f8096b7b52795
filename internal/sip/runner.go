package sip

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sipstructure/internal/apperr"
	"sipstructure/internal/catalogue"
	"sipstructure/internal/digest"
	"sipstructure/internal/distribution"
	"sipstructure/internal/fileutil"
	"sipstructure/internal/history"
	"sipstructure/internal/ledger"
	"sipstructure/internal/logging"
	"sipstructure/internal/opex"
	"sipstructure/internal/preflight"
)

// Stage names used in logs and wrapped errors.
const (
	StageScan      = "scan"
	StageHash      = "hash-source"
	StageValidate  = "validate"
	StageTransfer  = "transfer"
	StageReconcile = "reconcile"
	StagePersist   = "persist"
)

// HistoryRecorder archives finished runs. *history.Store implements it.
type HistoryRecorder interface {
	RecordRun(ctx context.Context, run history.Run, entries []ledger.Entry) error
}

// Options configures a Runner. Zero values pick working defaults.
type Options struct {
	Hasher digest.Hasher
	Copier fileutil.Copier
	Logger *slog.Logger
	// LedgerDir receives the ledger CSV and its summary sidecar. Empty means
	// the working directory.
	LedgerDir string
	// LockDir holds per-destination lock files. Empty disables locking.
	LockDir string
	// RunLogDir receives a JSON log per run. Empty disables run logs.
	RunLogDir    string
	History      HistoryRecorder
	WriteSummary bool
	Now          func() time.Time
	NewID        func() string
}

// Runner executes restructuring runs.
type Runner struct {
	opts Options
}

// NewRunner builds a runner, filling defaults for unset options.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Hasher == nil {
		h, err := digest.New(digest.Default)
		if err != nil {
			return nil, err
		}
		opts.Hasher = h
	}
	if opts.Copier == nil {
		opts.Copier = fileutil.LocalCopier{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Runner{opts: opts}, nil
}

// Result describes a finished run.
type Result struct {
	RunID             string
	LedgerPath        string
	SummaryPath       string
	RunLogPath        string
	Report            ledger.Report
	Entries           []ledger.Entry
	DescriptorFolders []string
	Malformed         []*opex.MalformedRangeError
	BytesCopied       uint64
	StartedAt         time.Time
	FinishedAt        time.Time
}

// OK reports whether every transferred file verified.
func (r *Result) OK() bool { return r != nil && r.Report.OK() }

// run carries the state of one execution.
type run struct {
	*Runner
	req      Request
	id       string
	logger   *slog.Logger
	ledger   *ledger.Ledger
	csvPath  string
	started  time.Time
	files    []SourceFile
	coverage *opex.Coverage
	result   *Result
}

// Run performs one restructuring run. Metadata validation failures abort
// before any file reaches the destination and return an error wrapping
// *opex.MissingMetadataError. Integrity failures do not produce an error;
// they are reported in Result.Report. On cancellation the files handled so far
// are reconciled and persisted, and the context error is returned alongside
// the partial result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := preflight.Err(preflight.RunAll(preflight.Request{Source: req.Source, Destination: req.Destination})); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "preflight", "check paths", "", err)
	}
	if r.opts.LockDir != "" {
		lock, err := acquireLock(r.opts.LockDir, req.Destination)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.release(); err != nil {
				r.opts.Logger.Warn("release destination lock failed", logging.Error(err))
			}
		}()
	}

	x := &run{
		Runner:  r,
		req:     req,
		id:      r.opts.NewID(),
		ledger:  ledger.New(),
		started: r.opts.Now(),
	}
	x.csvPath = filepath.Join(r.opts.LedgerDir, ledger.FileName(req.Source, req.Destination, x.started))
	x.result = &Result{RunID: x.id, LedgerPath: x.csvPath, StartedAt: x.started}

	base := r.opts.Logger
	if r.opts.RunLogDir != "" {
		logger, runLog, err := logging.OpenRunLog(base, r.opts.RunLogDir, x.id)
		if err != nil {
			base.Warn("run log unavailable", logging.Error(err))
		} else {
			base = logger
			x.result.RunLogPath = runLog.Path
			defer runLog.Close()
		}
	}
	ctx = logging.WithRunID(ctx, x.id)
	x.logger = logging.WithContext(ctx, base).With(
		logging.String(logging.FieldCatalogue, string(req.Catalogue)),
		logging.String(logging.FieldStructure, string(req.Structure)),
	)
	x.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", req.Source),
		logging.String("destination", req.Destination),
		logging.String("hash_algorithm", string(r.opts.Hasher.Algorithm())),
	)
	err := x.execute(ctx)
	return x.result, err
}

func (x *run) stageLogger(ctx context.Context, stage string) (context.Context, *slog.Logger) {
	ctx = logging.WithStage(ctx, stage)
	return ctx, x.logger.With(logging.String(logging.FieldStage, stage))
}

func (x *run) execute(ctx context.Context) error {
	if err := x.scan(ctx); err != nil {
		return x.abort(ctx, err)
	}
	if err := x.hashSources(ctx); err != nil {
		return x.abort(ctx, err)
	}
	if err := x.validate(ctx); err != nil {
		return x.abort(ctx, err)
	}
	transferErr := x.transfer(ctx)
	x.reconcile(ctx)
	x.persist(ctx, transferErr)
	return transferErr
}

func (x *run) scan(ctx context.Context) error {
	_, logger := x.stageLogger(ctx, StageScan)
	files, err := Scan(ctx, x.req.Source)
	if err != nil {
		return apperr.Wrap(apperr.ErrTransient, StageScan, "walk source", "", err)
	}
	x.files = files
	need := totalSize(files)
	if res := preflight.CheckFreeSpace("Destination free space", x.req.Destination, need); !res.Passed {
		return apperr.Wrap(apperr.ErrConfiguration, StageScan, "check free space", res.Detail, nil)
	}
	logger.Info("source scanned",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("files", len(files)),
		logging.String("size", humanBytes(need)),
	)
	return nil
}

// hashSources fingerprints every source file and writes the first ledger
// serialization. A file that cannot be read keeps an empty source digest.
func (x *run) hashSources(ctx context.Context) error {
	_, logger := x.stageLogger(ctx, StageHash)
	for _, f := range x.files {
		if err := ctx.Err(); err != nil {
			return apperr.Wrap(apperr.ErrTransient, StageHash, "cancelled", "", err)
		}
		sum, err := x.opts.Hasher.HashFile(f.Path())
		if err != nil {
			logging.WarnWithContext(logger, "source hash failed", "source_hash_failed",
				logging.String(logging.FieldFile, f.RelativePath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file will reconcile as missing source hash"),
			)
			sum = ""
		}
		x.ledger.RecordSource(f.RelativePath, sum)
	}
	if err := x.writeLedger(); err != nil {
		return apperr.Wrap(apperr.ErrTransient, StageHash, "write ledger", x.csvPath, err)
	}
	logger.Info("source hashes recorded",
		logging.String(logging.FieldEventType, "source_hashed"),
		logging.Int("files", x.ledger.Len()),
		logging.String("ledger", x.csvPath),
	)
	return nil
}

func (x *run) validate(ctx context.Context) error {
	_, logger := x.stageLogger(ctx, StageValidate)
	resolver, err := catalogue.NewResolver(x.req.Catalogue)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, StageValidate, "resolver", "", err)
	}
	if x.req.Catalogue.RequiresMetadata() {
		coverage, err := opex.Discover(x.req.Source, opex.RangedDescriptors(x.req.Catalogue, x.req.Structure))
		if err != nil {
			return apperr.Wrap(apperr.ErrTransient, StageValidate, "discover descriptors", "", err)
		}
		x.coverage = coverage
		for _, m := range coverage.Malformed() {
			logging.WarnWithContext(logger, "malformed range descriptor ignored", "malformed_descriptor",
				logging.String(logging.FieldFile, m.Filename),
				logging.String("reason", m.Reason),
				logging.String(logging.FieldImpact, "descriptor contributes no coverage"),
			)
		}
		x.result.Malformed = coverage.Malformed()
	}
	validator := opex.NewValidator(x.req.Catalogue, x.req.Structure, resolver, x.coverage)
	if err := validator.Validate(relativePaths(x.files)); err != nil {
		var missing *opex.MissingMetadataError
		if errors.As(err, &missing) {
			logging.ErrorWithContext(logger, "required metadata missing", "metadata_missing",
				logging.String("policy", validator.Name()),
				logging.Int("missing", len(missing.Prefixes)),
				logging.Any("prefixes", missing.Prefixes),
				logging.String(logging.FieldErrorHint, "add the listed .opex files to the source folder"),
			)
		}
		return apperr.Wrap(apperr.ErrMissingMetadata, StageValidate, validator.Name(), "", err)
	}
	logger.Info("metadata validated",
		logging.String(logging.FieldEventType, "metadata_valid"),
		logging.String("policy", validator.Name()),
		logging.Int("descriptors", len(x.coverage.Descriptors())),
	)
	if opex.RangedDescriptors(x.req.Catalogue, x.req.Structure) {
		folders, err := x.coverage.EnsureDescriptorFolders(x.req.Destination)
		if err != nil {
			return apperr.Wrap(apperr.ErrTransient, StageValidate, "create descriptor folders", "", err)
		}
		x.result.DescriptorFolders = folders
	}
	return nil
}

// transfer copies and re-hashes every file in scan order. Per-file failures
// are logged and leave the destination digest empty.
func (x *run) transfer(ctx context.Context) error {
	_, logger := x.stageLogger(ctx, StageTransfer)
	resolver, err := catalogue.NewResolver(x.req.Catalogue)
	if err != nil {
		return err
	}
	router := distribution.NewRouter(x.req.Destination, x.req.Catalogue, x.req.Structure, x.coverage)
	claimed := make(map[string]string, len(x.files))
	total := len(x.files)
	progress := logging.NewFileProgress(total, 10)

	for i, f := range x.files {
		if err := ctx.Err(); err != nil {
			logging.WarnWithContext(logger, "run cancelled", "run_cancelled",
				logging.Int("remaining", total-i),
				logging.String(logging.FieldImpact, "remaining files were not copied"),
			)
			return apperr.Wrap(apperr.ErrTransient, StageTransfer, "cancelled", "", err)
		}
		x.transferFile(logger.With(logging.String(logging.FieldFile, f.RelativePath)), resolver, router, claimed, f)

		if done, report := progress.Advance(); report {
			logger.Info("transfer progress",
				logging.String(logging.FieldEventType, "transfer_progress"),
				logging.Int("done", done),
				logging.Int("total", total),
				logging.String("copied", humanBytes(x.result.BytesCopied)),
			)
		}
	}
	return nil
}

// transferFile routes one file and copies it. Unroutable files are skipped. A
// target already claimed by an earlier file is left alone and recorded with an
// empty destination digest.
func (x *run) transferFile(logger *slog.Logger, resolver catalogue.Resolver, router *distribution.Router, claimed map[string]string, f SourceFile) {
	ref := resolver.Resolve(f.Name)
	dest := router.Route(f.Name, ref)
	if dest.Skipped {
		x.skip(logger, f, "unroutable_format", dest.Reason.Error())
		return
	}
	target := dest.Path(f.Name)
	if prior, ok := claimed[target]; ok {
		// Never overwrite; the entry reconciles as a missing destination hash.
		logging.WarnWithContext(logger, "destination already written", "destination_collision",
			logging.String("destination", target),
			logging.String("claimed_by", prior),
			logging.String(logging.FieldErrorHint, "rename one of the source files so their targets differ"),
			logging.String(logging.FieldImpact, "file is not copied and fails verification"),
		)
		x.ledger.RecordDestination(f.RelativePath, "", target, x.opts.Now())
		return
	}
	claimed[target] = f.RelativePath

	logger.Debug("routing decision",
		logging.String(logging.FieldDecisionType, "route"),
		logging.String("reference", ref.Prefix),
		logging.String("destination", target),
	)
	x.transferOne(logger, router, dest, f, target)
}

func (x *run) transferOne(logger *slog.Logger, router *distribution.Router, dest distribution.Destination, f SourceFile, target string) {
	fail := func(msg string, err error) {
		logging.WarnWithContext(logger, msg, "transfer_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will reconcile as missing destination hash"),
		)
		x.ledger.RecordDestination(f.RelativePath, "", target, x.opts.Now())
	}
	if err := router.Prepare(dest); err != nil {
		fail("create destination folder failed", err)
		return
	}
	if err := x.opts.Copier.Copy(f.Path(), target); err != nil {
		fail("copy failed", err)
		return
	}
	x.result.BytesCopied += uint64(f.Size)
	sum, err := x.opts.Hasher.HashFile(target)
	if err != nil {
		fail("destination hash failed", err)
		return
	}
	x.ledger.RecordDestination(f.RelativePath, sum, target, x.opts.Now())
}

func (x *run) skip(logger *slog.Logger, f SourceFile, decision, reason string) {
	x.ledger.MarkSkipped(f.RelativePath, reason)
	logger.Info("file skipped", logging.Args(logging.DecisionAttrs(decision, "skipped", reason)...)...)
}

func (x *run) reconcile(ctx context.Context) {
	_, logger := x.stageLogger(ctx, StageReconcile)
	report := x.ledger.Reconcile()
	x.result.Report = report
	x.result.Entries = x.ledger.Entries()
	for _, d := range report.Discrepancies {
		logging.WarnWithContext(logger, "integrity failure", "integrity_failure",
			logging.String(logging.FieldFile, d.RelativePath),
			logging.String("status", string(d.Status)),
			logging.String("source_digest", d.SourceDigest),
			logging.String("destination_digest", d.DestinationDigest),
			logging.String(logging.FieldImpact, "file is not verified at the destination"),
		)
	}
	logger.Info("reconciliation complete",
		logging.String(logging.FieldEventType, "reconcile_complete"),
		logging.Int("total", report.Total),
		logging.Int("matched", report.Matched),
		logging.Int("skipped", report.Skipped),
		logging.Int("discrepancies", len(report.Discrepancies)),
	)
}

// persist writes the final ledger, the summary sidecar and the history row.
// Failures here are logged; the copy itself has already happened.
func (x *run) persist(ctx context.Context, runErr error) {
	_, logger := x.stageLogger(ctx, StagePersist)
	x.result.FinishedAt = x.opts.Now()
	if err := x.writeLedger(); err != nil {
		logging.ErrorWithContext(logger, "write ledger failed", "ledger_write_failed",
			logging.String("path", x.csvPath), logging.Error(err))
	}
	if x.opts.WriteSummary {
		path := ledger.SummaryPath(x.csvPath)
		if err := ledger.WriteSummary(path, x.summary()); err != nil {
			logging.WarnWithContext(logger, "write run summary failed", "summary_write_failed",
				logging.String("path", path), logging.Error(err))
		} else {
			x.result.SummaryPath = path
		}
	}
	x.record(ctx, logger, runErr)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Bool("verified", x.result.Report.OK()),
		logging.String("ledger", x.csvPath),
		logging.Duration("elapsed", x.result.FinishedAt.Sub(x.started)),
	)
}

// abort handles failures before the transfer loop. Nothing was copied, so the
// run is archived as aborted and the ledger keeps only source digests.
func (x *run) abort(ctx context.Context, err error) error {
	_, logger := x.stageLogger(ctx, StagePersist)
	x.result.FinishedAt = x.opts.Now()
	x.result.Entries = x.ledger.Entries()
	x.record(ctx, logger, err)
	return err
}

func (x *run) record(ctx context.Context, logger *slog.Logger, runErr error) {
	if x.opts.History == nil {
		return
	}
	outcome := history.OutcomeVerified
	switch {
	case runErr != nil:
		outcome = history.OutcomeAborted
	case !x.result.Report.OK():
		outcome = history.OutcomeDiscrepancies
	}
	record := history.Run{
		ID:            x.id,
		Source:        x.req.Source,
		Destination:   x.req.Destination,
		Catalogue:     string(x.req.Catalogue),
		Structure:     string(x.req.Structure),
		HashAlgorithm: string(x.opts.Hasher.Algorithm()),
		Outcome:       outcome,
		TotalFiles:    len(x.files),
		Matched:       x.result.Report.Matched,
		Skipped:       x.result.Report.Skipped,
		Failed:        len(x.result.Report.Discrepancies),
		BytesCopied:   int64(x.result.BytesCopied),
		LedgerPath:    x.csvPath,
		StartedAt:     x.started,
		FinishedAt:    x.result.FinishedAt,
	}
	if runErr != nil {
		record.ErrorMessage = runErr.Error()
	}
	// The run context may already be cancelled; the archive write must still land.
	if err := x.opts.History.RecordRun(context.WithoutCancel(ctx), record, x.result.Entries); err != nil {
		logging.WarnWithContext(logger, "record run history failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
	}
}

func (x *run) writeLedger() error {
	if err := fileutil.EnsureDir(filepath.Dir(x.csvPath)); err != nil {
		return err
	}
	return x.ledger.WriteCSV(x.csvPath)
}

func (x *run) summary() ledger.Summary {
	return ledger.Summary{
		RunID:       x.id,
		Source:      x.req.Source,
		Destination: x.req.Destination,
		Catalogue:   string(x.req.Catalogue),
		Structure:   string(x.req.Structure),
		Algorithm:   string(x.opts.Hasher.Algorithm()),
		StartedAt:   x.started,
		FinishedAt:  x.result.FinishedAt,
		Ledger:      x.csvPath,
		BytesCopied: x.result.BytesCopied,
		Report:      x.result.Report,
	}
}

func humanBytes(n uint64) string {
	return humanize.Bytes(n)
}
