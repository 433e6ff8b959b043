// Package engine orchestrates a verification run: fact extraction across the
// source tree, the analyzer barrier, and deterministic report assembly.
//
// A run is two concurrent phases separated by barriers. Phase one extracts
// facts from every supported file through a bounded worker pool; phase two
// hands the complete fact slice to the analyzers, which run concurrently and
// independently. Findings are sorted before assembly, so two runs over
// identical inputs produce identical reports apart from the Meta block.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/specverify/internal/cache"
	"github.com/dshills/specverify/internal/complexity"
	"github.com/dshills/specverify/internal/conformance"
	"github.com/dshills/specverify/internal/facts"
	"github.com/dshills/specverify/internal/schema"
	"github.com/dshills/specverify/internal/security"
	"github.com/dshills/specverify/internal/source"
	"github.com/dshills/specverify/internal/spec"
	"github.com/dshills/specverify/internal/standards"
	"github.com/dshills/specverify/internal/validate"
)

const toolName = "specverify"

// ErrCancelled is returned when the run's context is cancelled between or
// during phases. The partial work is discarded; no partial Report is emitted.
var ErrCancelled = errors.New("engine: run cancelled")

// Options configures an Engine. The zero value is usable: a no-op logger,
// one worker per CPU, the built-in rule set, and no cache.
type Options struct {
	Logger  *zap.Logger
	Workers int
	Cache   *cache.Store
	Rules   []standards.Rule
	Version string
}

// Engine runs verifications. Safe for concurrent use; each run is
// independent.
type Engine struct {
	log     *zap.Logger
	workers int
	cache   *cache.Store
	rules   []standards.Rule
	version string
}

// New builds an Engine from opts.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	rules := opts.Rules
	if rules == nil {
		rules = standards.Builtin()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Engine{
		log:     log,
		workers: workers,
		cache:   opts.Cache,
		rules:   rules,
		version: version,
	}
}

// Full runs every analyzer and returns the complete report.
func (e *Engine) Full(ctx context.Context, s *spec.Specification, in schema.Input, tree source.Tree) (*schema.Report, error) {
	in.Mode = schema.ModeFull
	return e.run(ctx, s, in, tree)
}

// Quick runs the security analyzer only. Conformance, performance, and
// standards sections of the report stay empty; extraction failures still
// surface as parse failures.
func (e *Engine) Quick(ctx context.Context, s *spec.Specification, in schema.Input, tree source.Tree) (*schema.Report, error) {
	in.Mode = schema.ModeQuick
	return e.run(ctx, s, in, tree)
}

func (e *Engine) run(ctx context.Context, s *spec.Specification, in schema.Input, tree source.Tree) (*schema.Report, error) {
	started := time.Now()
	e.log.Info("run started",
		zap.String("mode", string(in.Mode)),
		zap.String("code_root", in.CodeRoot),
		zap.String("tree", source.Describe(tree)))

	verdict := validate.Check(s)

	all, parseFailures, seen, err := e.extract(ctx, tree)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	report := &schema.Report{
		Input:      in,
		Validation: verdict,
	}

	g, gctx := errgroup.WithContext(ctx)
	if in.Mode == schema.ModeFull {
		g.Go(func() error {
			report.ConformanceFindings = conformance.Verify(s, all)
			return gctx.Err()
		})
		g.Go(func() error {
			report.PerformanceProfile, report.PerformanceFindings = complexity.Profile(all)
			return gctx.Err()
		})
		g.Go(func() error {
			std, err := standards.Apply(e.rules, all)
			if err != nil {
				return err
			}
			report.StandardsFindings = std
			return gctx.Err()
		})
	}
	g.Go(func() error {
		report.SecurityFindings = security.Scan(all, security.Catalog())
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, fmt.Errorf("engine: %w", err)
	}

	// Extraction failures surface in the standards stream in both modes; a
	// file the run could not read is a defect regardless of mode.
	report.StandardsFindings = append(report.StandardsFindings, parseFailures...)

	sortFindings(report.ConformanceFindings)
	sortFindings(report.SecurityFindings)
	sortFindings(report.PerformanceFindings)
	sortFindings(report.StandardsFindings)

	report.ThreatScore = security.ThreatScore(report.SecurityFindings)
	report.Counts = schema.Counts{
		Conformance: schema.Tally(report.ConformanceFindings),
		Security:    schema.Tally(report.SecurityFindings),
		Performance: schema.Tally(report.PerformanceFindings),
		Standards:   schema.Tally(report.StandardsFindings),
	}
	report.Status = statusOf(report)
	report.Meta = schema.Meta{
		Tool:       toolName,
		Version:    e.version,
		RunID:      uuid.NewString(),
		StartedAt:  started.UTC(),
		Duration:   time.Since(started),
		FilesSeen:  seen,
		FilesError: len(parseFailures),
	}

	e.log.Info("run finished",
		zap.String("status", string(report.Status)),
		zap.Int("threat_score", report.ThreatScore),
		zap.Int("files_seen", seen),
		zap.Int("files_error", len(parseFailures)),
		zap.Duration("duration", report.Meta.Duration))
	return report, nil
}

// extract runs the bounded extraction pool. Results keep tree order: the
// worker for file i writes slot i, and tree.Files is sorted by path. Files
// that cannot be read or parsed become CRITICAL standards findings instead of
// failing the run.
func (e *Engine) extract(ctx context.Context, tree source.Tree) (all []*facts.SourceFacts, failures []schema.Finding, seen int, err error) {
	var supported []source.File
	for _, f := range tree.Files() {
		if facts.SupportedLanguage(f.Language) {
			supported = append(supported, f)
		}
	}

	type slot struct {
		facts   *facts.SourceFacts
		failure *schema.Finding
	}
	slots := make([]slot, len(supported))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, file := range supported {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := tree.Read(file.Path)
			if err != nil {
				slots[i].failure = parseFailure(file.Path, err.Error())
				return nil
			}

			var key string
			if e.cache != nil {
				key = cache.Key(file.Path, file.Language, text)
				if cached, ok := e.cache.Get(key); ok {
					slots[i].facts = cached
					return nil
				}
			}

			f, err := facts.Extract(gctx, file.Path, file.Language, text)
			if err != nil {
				var ue *facts.UnparsableSourceError
				if errors.As(err, &ue) {
					e.log.Debug("unparsable source", zap.String("path", ue.Path), zap.String("reason", ue.Reason))
					slots[i].failure = parseFailure(ue.Path, ue.Reason)
					return nil
				}
				return err
			}
			if e.cache != nil {
				e.cache.Put(key, f)
			}
			slots[i].facts = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, 0, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, nil, 0, fmt.Errorf("engine: extract: %w", err)
	}

	for _, s := range slots {
		if s.facts != nil {
			all = append(all, s.facts)
		}
		if s.failure != nil {
			failures = append(failures, *s.failure)
		}
	}
	return all, failures, len(supported), nil
}

func parseFailure(path, reason string) *schema.Finding {
	return &schema.Finding{
		Analyzer:       schema.AnalyzerStandards,
		Severity:       schema.SeverityCritical,
		File:           path,
		Title:          "source file could not be analyzed",
		Description:    reason,
		Recommendation: "fix the syntax error or exclude the file from analysis",
		RuleID:         "parse-failure",
	}
}

// statusOf applies the pass gate: the specification must be valid, no
// finding anywhere may be CRITICAL, and no conformance finding may be HIGH.
func statusOf(r *schema.Report) schema.Status {
	if !r.Validation.Valid {
		return schema.StatusFailed
	}
	for _, f := range r.AllFindings() {
		if f.Severity == schema.SeverityCritical {
			return schema.StatusFailed
		}
		if f.Analyzer == schema.AnalyzerConformance && f.Severity == schema.SeverityHigh {
			return schema.StatusFailed
		}
	}
	return schema.StatusPassed
}

// sortFindings orders findings by file, line, rule ID, then title. Analyzers
// may emit in any order; this makes every report stream canonical.
func sortFindings(fs []schema.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Title < b.Title
	})
}
