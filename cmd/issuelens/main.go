// Command issuelens is a dashboard for triaging clustered, tagged issue
// exports: filter by text, date, status and cluster, then chart tag
// frequency, monthly volume and the cluster x tag matrix.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hurttlocker/issuelens/internal/aggregate"
	"github.com/hurttlocker/issuelens/internal/config"
	"github.com/hurttlocker/issuelens/internal/issues"
	"github.com/hurttlocker/issuelens/internal/pipeline"
	"github.com/hurttlocker/issuelens/internal/views"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "0.1.0-dev"

// app carries global flags and the state built from them.
type app struct {
	configPath string
	dataPath   string
	dbPath     string
	scope      string
	sheet      string
	addr       string
	verbose    bool

	logger *zap.Logger
	cfg    config.ResolvedConfig

	store views.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := execute(ctx, a, newRootCmd(a)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs root and releases the app's logger and views store
// whether or not the command succeeded.
func execute(ctx context.Context, a *app, root *cobra.Command) error {
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "issuelens",
		Short: "Filter and chart clustered issue exports",
		Long: `issuelens loads a spreadsheet of issues (Issue key, Summary, Suggested Tag,
Status, Cluster and optionally Created), filters it by search text, creation
date, status and cluster, and reports tag frequency, the monthly trend and a
cluster x tag matrix. The filtered issues export as filtered_issues.csv.

Run "issuelens serve" for the web dashboard or "issuelens tui" for the
terminal one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.issuelens/config.yaml)")
	pf.StringVar(&a.dataPath, "data", "", "issue spreadsheet (.xlsx, .csv, .tsv, .json, .yaml)")
	pf.StringVar(&a.dbPath, "db", "", "saved views database (default ~/.issuelens/views.db)")
	pf.StringVar(&a.scope, "scope", "", "table the charts use: filtered, cluster or source")
	pf.StringVar(&a.sheet, "sheet", "", "worksheet to read from .xlsx files (default: first sheet)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newFilterCmd(a),
		newSummaryCmd(a),
		newViewsCmd(a),
		newClustersCmd(a),
		newConfigCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	if a.logger == nil {
		zc := zap.NewProductionConfig()
		if a.verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := zc.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		a.logger = logger
	}

	cfg, err := config.ResolveConfig(config.ResolveOptions{
		ConfigPath:  a.configPath,
		CLIDataPath: a.dataPath,
		CLIDBPath:   a.dbPath,
		CLIAddr:     a.addr,
		CLIScope:    a.scope,
		CLISheet:    a.sheet,
	})
	if err != nil {
		return err
	}
	if _, err := aggregate.ParseScope(cfg.Scope.Value); err != nil {
		return fmt.Errorf("%w (from %s)", err, cfg.Scope.From)
	}
	a.cfg = cfg
	a.logger.Debug("resolved config",
		zap.String("data_path", cfg.DataPath.Value),
		zap.String("data_source", string(cfg.DataPath.Source)),
		zap.String("db_path", cfg.DBPath.Value),
		zap.String("scope", cfg.Scope.Value),
	)
	return nil
}

func (a *app) teardown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing views database", zap.Error(err))
		}
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// session builds a pipeline session over the configured data file.
func (a *app) session() *pipeline.Session {
	scope, _ := aggregate.ParseScope(a.cfg.Scope.Value)
	return &pipeline.Session{
		Cache:    issues.NewCache(issues.LoadOptions{Sheet: a.cfg.Sheet.Value}, a.logger),
		DataPath: a.cfg.DataPath.Value,
		Options: pipeline.Options{
			Scope:    scope,
			Clusters: a.cfg.Clusters,
		},
		Logger: a.logger,
	}
}

// views opens the saved views database on first use.
func (a *app) views() (views.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := views.NewStore(views.StoreConfig{DBPath: a.cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening views database %s: %w", a.cfg.DBPath.Value, err)
	}
	a.store = st
	return st, nil
}

// optionalViews is views for commands that work without the database.
func (a *app) optionalViews() views.Store {
	st, err := a.views()
	if err != nil {
		a.logger.Warn("saved views disabled", zap.Error(err))
		return nil
	}
	return st
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "issuelens %s\n", version)
			return nil
		},
	}
}
