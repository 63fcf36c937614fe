// Package agentcmder provides the agent command that runs the coverage
// coordination server.
package agentcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/agent"
	"github.com/testwiseco/testwise/pkg/bridge"
	"github.com/testwiseco/testwise/pkg/config"
	"github.com/testwiseco/testwise/pkg/coverage"
	"github.com/testwiseco/testwise/pkg/dotdir"
	"github.com/testwiseco/testwise/pkg/eventstream"
	"github.com/testwiseco/testwise/pkg/eventstream/kafka"
	"github.com/testwiseco/testwise/pkg/eventstream/nop"
	"github.com/testwiseco/testwise/pkg/logger"
	"github.com/testwiseco/testwise/pkg/patterns"
	"github.com/testwiseco/testwise/pkg/report"
	"github.com/testwiseco/testwise/pkg/report/fsjson"
	"github.com/testwiseco/testwise/pkg/report/postgres"
	"github.com/testwiseco/testwise/pkg/report/sqlite"
)

type agentCommander struct {
	port      int
	maxPort   int
	partition string
	debug     bool

	includes []string
	excludes []string

	reportDir   string
	sqlitePath  string
	postgresURL string

	brokers []string
	topic   string

	configDir string
	logger    *zap.Logger
}

const agentLongDesc string = `Run a coverage coordination agent.

The first agent to bind the configured control port becomes the Primary;
later agents probe upward for a free port, become Secondaries, and register
with the Primary so that test start/end signals fan out to every agent of
the session.

On shutdown the agent writes the accumulated per-test coverage, filtered by
the configured include/exclude patterns, to the report store.

This command runs with an in-memory instrumentation bridge: no external
coverage runtime is attached, so dumps only carry what is fed to the bridge
in-process. Use it to exercise the coordination protocol and report plumbing
locally; attaching a real instrumentation runtime is a separate concern.`

const agentShortDesc string = "Run a coverage coordination agent"

// agentFlags defines the registry entries shared between flag registration
// and viper binding for this command.
var agentFlags = config.FlagSet{
	config.FlagAgentPort:    {Name: "port", Shorthand: "p", ViperKey: "agent.port", Description: "Control port shared by all agents of the session"},
	config.FlagAgentMaxPort: {Name: "max-port", ViperKey: "agent.max_port", Description: "Highest port probed when the control port is taken"},
	config.FlagPartition:    {Name: "partition", Shorthand: "t", ViperKey: "agent.partition", Description: "Coverage partition label"},
	config.FlagReportDir:    {Name: "report-dir", ViperKey: "report.directory", Description: "Directory for filesystem coverage reports"},
	config.FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "report.sqlite_path", Description: "Path to SQLite report database"},
	config.FlagPostgres:     {Name: "postgres", ViperKey: "report.postgres_url", Description: "Postgres report database URL"},
	config.FlagTopic:        {Name: "kafka-topic", ViperKey: "events.topic", Description: "Kafka topic for test lifecycle events"},
}

func NewAgentCmd() *cobra.Command {
	cmder := &agentCommander{}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: agentShortDesc,
		Long:  agentLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, agentFlags, []string{
				config.FlagAgentPort,
				config.FlagAgentMaxPort,
				config.FlagPartition,
				config.FlagReportDir,
				config.FlagSQLite,
				config.FlagPostgres,
				config.FlagTopic,
			})
			_ = v.BindPFlag("filter.includes", cmd.Flags().Lookup("include"))
			_ = v.BindPFlag("filter.excludes", cmd.Flags().Lookup("exclude"))
			_ = v.BindPFlag("events.brokers", cmd.Flags().Lookup("kafka-brokers"))

			cmder.port = v.GetInt("agent.port")
			cmder.maxPort = v.GetInt("agent.max_port")
			cmder.partition = v.GetString("agent.partition")
			cmder.reportDir = v.GetString("report.directory")
			cmder.sqlitePath = v.GetString("report.sqlite_path")
			cmder.postgresURL = v.GetString("report.postgres_url")
			cmder.topic = v.GetString("events.topic")
			cmder.includes = v.GetStringSlice("filter.includes")
			cmder.excludes = v.GetStringSlice("filter.excludes")
			cmder.brokers = v.GetStringSlice("events.brokers")

			// Pick up config.toml edits while the agent is running.
			v.OnConfigChange(func(e fsnotify.Event) {
				if cmder.logger != nil {
					cmder.logger.Info("config file changed, restart to apply",
						zap.String("file", e.Name),
						zap.String("op", e.Op.String()),
					)
				}
			})
			v.WatchConfig()

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddIntFlag(cmd, agentFlags, config.FlagAgentPort, &cmder.port)
	config.AddIntFlag(cmd, agentFlags, config.FlagAgentMaxPort, &cmder.maxPort)
	config.AddStringFlag(cmd, agentFlags, config.FlagPartition, &cmder.partition)
	config.AddStringFlag(cmd, agentFlags, config.FlagReportDir, &cmder.reportDir)
	config.AddStringFlag(cmd, agentFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, agentFlags, config.FlagPostgres, &cmder.postgresURL)
	config.AddStringFlag(cmd, agentFlags, config.FlagTopic, &cmder.topic)
	cmd.Flags().StringSliceVar(&cmder.includes, "include", nil, "Ant-style path pattern coverage must match (repeatable)")
	cmd.Flags().StringSliceVar(&cmder.excludes, "exclude", nil, "Ant-style path pattern to drop from coverage (repeatable)")
	cmd.Flags().StringSliceVar(&cmder.brokers, "kafka-brokers", nil, "Kafka broker addresses for test lifecycle events")

	return cmd
}

func (c *agentCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	filter, err := patterns.Compile(patterns.Spec{
		Includes: c.includes,
		Excludes: c.excludes,
	})
	if err != nil {
		return fmt.Errorf("compiling coverage filter: %w", err)
	}

	events, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	agg := coverage.NewAggregator()

	// No external instrumentation runtime is attached here; the in-memory
	// bridge keeps the coordination protocol fully functional for local runs.
	c.logger.Info("running with the in-memory instrumentation bridge, dumps carry in-process data only")
	server, err := agent.NewServer(agent.Config{
		Port:      c.port,
		MaxPort:   c.maxPort,
		Partition: c.partition,
	}, bridge.NewScripted(), agg, events, c.logger)
	if err != nil {
		return fmt.Errorf("creating coordination server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("coordination server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Error("shutting down coordination server", zap.Error(err))
	}

	return c.writeReport(agg.Snapshot(), filter)
}

// writeReport persists the filtered coverage snapshot under a fresh round ID.
func (c *agentCommander) writeReport(snapshot coverage.TestwiseCoverage, filter *patterns.Filter) error {
	filtered := coverage.Filtered(snapshot, filter)
	if len(filtered) == 0 {
		c.logger.Info("no coverage collected, skipping report")
		return nil
	}

	store, err := c.newReportStore()
	if err != nil {
		return err
	}
	defer store.Close()

	roundID := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.WriteCoverage(ctx, roundID, filtered); err != nil {
		return fmt.Errorf("writing coverage report: %w", err)
	}

	c.logger.Info("coverage report written",
		zap.String("round_id", roundID),
		zap.Int("tests", len(filtered.Tests())),
	)
	return nil
}

func (c *agentCommander) newReportStore() (report.Store, error) {
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

func (c *agentCommander) newPublisher() (eventstream.Publisher, error) {
	if len(c.brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(c.brokers, c.topic)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	c.logger.Info("publishing test lifecycle events",
		zap.Strings("brokers", c.brokers),
		zap.String("topic", c.topic),
	)
	return pub, nil
}
