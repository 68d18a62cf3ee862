// Package cli wires configuration, logging, history and the rename service
// into the renamer command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"foodprice/internal/config"
	"foodprice/internal/domain"
	"foodprice/internal/logger"
	"foodprice/internal/service"
	"foodprice/internal/storage"
)

const version = "0.1.0"

// shutdownTimeout bounds how long a stopped watcher waits for an in-flight run.
const shutdownTimeout = 10 * time.Second

type options struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs the renamer command line.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// NewRootCmd builds the command tree. Each call has its own viper instance.
func NewRootCmd() *cobra.Command {
	o := &options{v: config.New()}
	d := config.Default()

	cmd := &cobra.Command{
		Use:     "renamer",
		Short:   "Rename raw CSV columns into the silver layer",
		Version: version,
		Long: `Reads a bronze manifest (metadata.yaml) listing raw CSV files and their
selected columns, renames those columns by position to the given names, keeps
only the renamed columns, and writes the files plus an annotated manifest to
the target folder.

Run without arguments to process data/bronze/metadata.yaml into data/silver
with the names reference_date, price, product.`,
		Example: `  # Reference run
  $ renamer

  # Other manifest and names
  $ renamer -m data/bronze/markets.yaml -n date,value -t data/silver/markets

  # Re-run whenever the manifest or a raw file changes, keeping history
  $ renamer --watch --history

  # Run every day at 06:00
  $ renamer --schedule "0 6 * * *"`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         o.runRename,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.cfgFile, "config", "c", "", "path to config file (default renamer.yaml in . or ./configs)")
	pf.StringP("manifest", "m", d.Manifest, "path to the bronze manifest")
	pf.StringSliceP("names", "n", d.NewColumnNames, "new column names, paired by position with selected_columns")
	pf.StringP("target", "t", d.TargetFolder, "folder the renamed files and manifest are written to")
	pf.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	pf.String("log-format", d.Log.Format, "log format: text or json")
	pf.Bool("history", d.History.Enabled, "record runs in the history database")
	pf.String("history-db", d.History.Path, "path to the history database")

	f := cmd.Flags()
	f.Bool("watch", false, "re-run when the manifest or a listed raw file changes")
	f.String("schedule", "", "cron expression to re-run on (e.g. \"*/15 * * * *\")")

	bindFlags(o.v, cmd, map[string]string{
		"manifest":         "manifest",
		"new_column_names": "names",
		"target_folder":    "target",
		"log.level":        "log-level",
		"log.format":       "log-format",
		"history.enabled":  "history",
		"history.path":     "history-db",
		"trigger.watch":    "watch",
		"trigger.schedule": "schedule",
	})

	cmd.AddCommand(newHistoryCmd(o))
	cmd.AddCommand(newMCPCmd(o))
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("cli: unknown flag %q", name))
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("cli: bind %q: %v", name, err))
		}
	}
}

// setup loads the configuration and installs the default logger.
func (o *options) setup() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, closer, nil
}

// openHistory opens the run store when history is enabled. The returned
// close func is always safe to call.
func openHistory(cfg *config.Config) (domain.RunLogStore, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	db, err := storage.New(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return storage.NewRunStore(db), func() { db.Close() }, nil
}

func (o *options) runRename(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := o.setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	store, closeStore, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.NewRenameService(store, nil, slog.Default())
	req := service.RunRequest{
		ManifestPath:   cfg.Manifest,
		NewColumnNames: cfg.NewColumnNames,
		TargetFolder:   cfg.TargetFolder,
		Trigger:        service.TriggerManual,
	}

	if !cfg.Trigger.Watch && cfg.Trigger.Schedule == "" {
		_, err := svc.Run(cmd.Context(), req)
		return err
	}
	return serve(cmd.Context(), svc, cfg.Trigger, req)
}

// serve runs once, then keeps re-running on the configured triggers until
// SIGINT or SIGTERM.
func serve(ctx context.Context, svc *service.RenameService, trigger config.TriggerConfig, req service.RunRequest) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := svc.Run(ctx, req); err != nil {
		slog.Error("initial run failed", "manifest", req.ManifestPath, "error", err)
	}

	if trigger.Watch {
		if err := svc.Watch(ctx, req); err != nil {
			return err
		}
	}
	if trigger.Schedule != "" {
		if err := svc.Schedule(ctx, trigger.Schedule, req); err != nil {
			svc.Stop()
			return err
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")
	svc.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return nil
}
