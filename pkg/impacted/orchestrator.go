// Package impacted drives one impacted-test execution round: discover the
// declared tests, ask the analysis service which of them a change impacts,
// run that subset, and summarize. Analysis failure never blocks execution; it
// only downgrades precision by falling back to the full set.
package impacted

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/testwiseco/testwise/pkg/analysis"
	"github.com/testwiseco/testwise/pkg/execution"
	"github.com/testwiseco/testwise/pkg/report"
)

// Options configure one orchestrator run.
type Options struct {
	// RunAll skips the analysis query and executes every discovered test.
	RunAll bool

	// RequireImpacted makes an analysis failure fatal instead of a
	// fallback. Used when precise selection is mandatory.
	RequireImpacted bool

	// Baseline is the optional baseline commit of the analyzed change.
	Baseline string

	// EndCommit is the end commit of the analyzed change.
	EndCommit string

	// Partition labels this round's tests for the analysis service.
	Partition string

	// RoundID identifies the round in the report store.
	RoundID string
}

// Orchestrator runs the Discover → Query → (Fallback | Proceed) → Execute →
// Summarize state machine.
type Orchestrator struct {
	engine   execution.Engine
	analysis analysis.Client
	store    report.Store
	logger   *zap.Logger
	opts     Options
}

// New creates an orchestrator. The report store may be nil when no artifacts
// should be persisted, and the analysis client may be nil when no analysis
// service is configured.
func New(engine execution.Engine, client analysis.Client, store report.Store, logger *zap.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		analysis: client,
		store:    store,
		logger:   logger,
		opts:     opts,
	}
}

// Run executes one round and returns its summary. A nil error with the
// returned summary means the round completed; whether the process exits
// non-zero is decided by Summary.ExitCode. Discovery failure, and analysis
// failure in RequireImpacted mode, are the only fatal paths.
func (o *Orchestrator) Run(ctx context.Context) (*execution.Summary, error) {
	details, err := o.engine.DiscoverTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering tests: %w", err)
	}

	if len(details) == 0 {
		o.logger.Info("no tests discovered, nothing to execute")
		return &execution.Summary{}, nil
	}

	o.logger.Info("discovered tests", zap.Int("count", len(details)))
	o.persistTestDetails(ctx, details)

	if o.opts.RunAll {
		o.logger.Info("executing all tests (full run requested)")
		return o.engine.RunAll(ctx)
	}

	if o.analysis == nil {
		if o.opts.RequireImpacted {
			return nil, errors.New("impacted-test analysis required but no analysis service configured")
		}
		o.logger.Info("no analysis service configured, executing all tests")
		return o.engine.RunAll(ctx)
	}

	impacted, err := o.analysis.ImpactedTests(ctx, analysis.Request{
		AvailableTests: details,
		Baseline:       o.opts.Baseline,
		End:            o.opts.EndCommit,
		Partition:      o.opts.Partition,
	})
	if err != nil {
		if o.opts.RequireImpacted {
			return nil, fmt.Errorf("determining impacted tests: %w", err)
		}
		o.logger.Warn("impacted-test analysis failed, falling back to executing all tests",
			zap.Error(err),
		)
		return o.engine.RunAll(ctx)
	}

	o.logger.Info("executing impacted tests",
		zap.Int("impacted", len(impacted)),
		zap.Int("available", len(details)),
	)
	return o.engine.RunTests(ctx, impacted)
}

// persistTestDetails writes the round's test listing. Failures are logged
// only; a missing listing must not block execution.
func (o *Orchestrator) persistTestDetails(ctx context.Context, details []execution.TestDetails) {
	if o.store == nil {
		return
	}
	if err := o.store.WriteTestDetails(ctx, o.opts.RoundID, details); err != nil {
		o.logger.Warn("failed to persist test details",
			zap.String("round_id", o.opts.RoundID),
			zap.Error(err),
		)
	}
}
