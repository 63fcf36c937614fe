// Package runcmder provides the run command that executes one impacted-test
// round.
package runcmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/pkg/analysis"
	"github.com/testwiseco/testwise/pkg/cliui"
	"github.com/testwiseco/testwise/pkg/config"
	"github.com/testwiseco/testwise/pkg/dotdir"
	"github.com/testwiseco/testwise/pkg/execution"
	"github.com/testwiseco/testwise/pkg/impacted"
	"github.com/testwiseco/testwise/pkg/logger"
	"github.com/testwiseco/testwise/pkg/report"
	"github.com/testwiseco/testwise/pkg/report/fsjson"
	"github.com/testwiseco/testwise/pkg/report/postgres"
	"github.com/testwiseco/testwise/pkg/report/sqlite"
)

type runCommander struct {
	all             bool
	requireImpacted bool
	baseline        string
	end             string
	partition       string
	debug           bool

	serverURL   string
	project     string
	accessToken string

	discoverCmd string
	runCmd      string
	workDir     string

	reportDir   string
	sqlitePath  string
	postgresURL string

	configDir string
	logger    *zap.Logger
}

const runLongDesc string = `Run one impacted-test round.

Discovers the available tests through the configured discover command, asks
the analysis service which of them the change between --baseline and --end
impacts, and executes that subset through the configured run command. If the
analysis service cannot answer, every discovered test runs instead.

The discovered test list and the round's exit status are persisted in the
report store under a fresh round ID.

Examples:
  testwise run --end HEAD
  testwise run --baseline main --end HEAD --partition integration
  testwise run --all`

const runShortDesc string = "Discover, select, and execute impacted tests"

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("partition") {
				cmder.partition = cfg.Agent.Partition
			}
			if !cmd.Flags().Changed("server-url") {
				cmder.serverURL = cfg.Analysis.ServerURL
			}
			if !cmd.Flags().Changed("project") {
				cmder.project = cfg.Analysis.Project
			}
			if !cmd.Flags().Changed("token") {
				cmder.accessToken = cfg.Analysis.AccessToken
			}
			if !cmd.Flags().Changed("discover-cmd") {
				cmder.discoverCmd = cfg.Run.DiscoverCmd
			}
			if !cmd.Flags().Changed("run-cmd") {
				cmder.runCmd = cfg.Run.RunCmd
			}
			if !cmd.Flags().Changed("report-dir") {
				cmder.reportDir = cfg.Report.Directory
			}
			if !cmd.Flags().Changed("sqlite") {
				cmder.sqlitePath = cfg.Report.SQLitePath
			}
			if !cmd.Flags().Changed("postgres") {
				cmder.postgresURL = cfg.Report.PostgresURL
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			// A test failure is an outcome, not a usage error.
			cmd.SilenceUsage = true
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().BoolVar(&cmder.all, "all", false, "Skip impact analysis and run every discovered test")
	cmd.Flags().BoolVar(&cmder.requireImpacted, "require-impacted", false, "Fail the round when impact analysis is unavailable")
	cmd.Flags().StringVar(&cmder.baseline, "baseline", "", "Baseline commit of the analyzed change")
	cmd.Flags().StringVar(&cmder.end, "end", "", "End commit of the analyzed change")
	cmd.Flags().StringVarP(&cmder.partition, "partition", "t", defaults.Agent.Partition, "Coverage partition label")
	cmd.Flags().StringVar(&cmder.serverURL, "server-url", "", "Impact analysis server URL")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project identifier on the analysis server")
	cmd.Flags().StringVar(&cmder.accessToken, "token", "", "Access token for the analysis server")
	cmd.Flags().StringVar(&cmder.discoverCmd, "discover-cmd", "", "Command printing the available tests as JSON")
	cmd.Flags().StringVar(&cmder.runCmd, "run-cmd", "", "Command executing a JSON test request from stdin")
	cmd.Flags().StringVarP(&cmder.workDir, "workdir", "w", "", "Working directory for the discover and run commands")
	cmd.Flags().StringVar(&cmder.reportDir, "report-dir", "", "Directory for filesystem round reports")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite report database")
	cmd.Flags().StringVar(&cmder.postgresURL, "postgres", "", "Postgres report database URL")

	return cmd
}

func (c *runCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	engine, err := execution.NewCmdEngine(
		execution.ParseCommand(c.discoverCmd),
		execution.ParseCommand(c.runCmd),
		c.workDir,
		c.logger,
	)
	if err != nil {
		return fmt.Errorf("creating execution engine: %w", err)
	}

	store, err := c.newReportStore()
	if err != nil {
		return err
	}
	defer store.Close()

	roundID := uuid.NewString()
	orch := impacted.New(engine, c.newAnalysisClient(), store, c.logger, impacted.Options{
		RunAll:          c.all,
		RequireImpacted: c.requireImpacted,
		Baseline:        c.baseline,
		EndCommit:       c.end,
		Partition:       c.partition,
		RoundID:         roundID,
	})

	c.logger.Info("starting test round",
		zap.String("round_id", roundID),
		zap.String("partition", c.partition),
		zap.Bool("run_all", c.all),
	)

	started := time.Now()
	summary, err := orch.Run(context.Background())
	if err != nil {
		return err
	}

	cliui.RenderSummary(os.Stdout, summary, time.Since(started))

	if summary.ExitCode() != 0 {
		return fmt.Errorf("%d of %d tests failed", summary.Failed, summary.Total)
	}
	return nil
}

// newAnalysisClient returns nil when no analysis server is configured; the
// orchestrator treats a nil client like an unavailable one and runs the full
// set.
func (c *runCommander) newAnalysisClient() analysis.Client {
	if c.serverURL == "" {
		return nil
	}
	return analysis.NewHTTPClient(c.serverURL, c.project, c.accessToken, 30*time.Second)
}

func (c *runCommander) newReportStore() (report.Store, error) {
	if c.postgresURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgres.NewStore(ctx, c.postgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres report store: %w", err)
		}
		c.logger.Info("using postgres report store")
		return store, nil
	}

	if c.sqlitePath != "" {
		store, err := sqlite.NewStore(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite report store: %w", err)
		}
		c.logger.Info("using sqlite report store", zap.String("path", c.sqlitePath))
		return store, nil
	}

	dir := c.reportDir
	if dir == "" {
		var err error
		dir, err = dotdir.NewManager().ReportsDir(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving report directory: %w", err)
		}
	}

	store, err := fsjson.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("creating filesystem report store: %w", err)
	}
	c.logger.Info("using filesystem report store", zap.String("dir", dir))
	return store, nil
}
