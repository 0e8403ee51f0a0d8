// Command tablewipe empties every table of a database in foreign-key-safe
// order.
//
//	tablewipe [-config tablewipe.yaml]          one run, then exit
//	tablewipe [-config tablewipe.yaml] plan     print the delete order only
//	tablewipe [-config tablewipe.yaml] serve    HTTP reset server
//
// Settings come from the YAML file, a .env file and TABLEWIPE_* variables;
// see internal/config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/tablewipe/internal/config"
	"github.com/koustreak/tablewipe/internal/connect"
	"github.com/koustreak/tablewipe/internal/filestore"
	"github.com/koustreak/tablewipe/internal/filestore/minio"
	"github.com/koustreak/tablewipe/internal/logger"
	"github.com/koustreak/tablewipe/internal/metrics"
	"github.com/koustreak/tablewipe/internal/server"
	"github.com/koustreak/tablewipe/internal/truncate"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tablewipe: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tablewipe: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "":
		err = runOnce(ctx, cfg, log, false)
	case "plan":
		err = runOnce(ctx, cfg, log, true)
	case "serve":
		err = serve(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.ErrorWith("tablewipe failed", err, nil)
		stop()
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, cfg *config.Config, log *logger.Logger, dryRun bool) error {
	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	archive, err := newArchiver(ctx, cfg, log)
	if err != nil {
		return err
	}

	dbCfg, err := cfg.Database()
	if err != nil {
		return err
	}
	pool, err := connect.Open(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", dbCfg.Driver, err)
	}
	defer pool.Close()

	ctx, cancel := dbCfg.RunContext(ctx)
	defer cancel()

	sess, err := connect.Resolve(ctx, pool)
	if err != nil {
		return err
	}
	defer sess.Close()

	report, runErr := truncate.Run(ctx, sess.Conn, sess.Metadata, runOptions(cfg, log, collector, dryRun)...)

	if !dryRun && cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.ErrorWith("write metrics textfile failed", err, map[string]interface{}{"path": cfg.Metrics.Textfile})
		}
	}
	if archive != nil {
		if err := archive(ctx, report); err != nil {
			log.ErrorWith("archive report failed", err, map[string]interface{}{"run_id": report.RunID})
		}
	}
	return runErr
}

// runOptions builds the engine options for one CLI run. A plan executes
// nothing, so it is kept out of the metrics.
func runOptions(cfg *config.Config, log *logger.Logger, collector *metrics.Collector, dryRun bool) []truncate.Option {
	opts := []truncate.Option{
		truncate.Verbose(cfg.Verbose || dryRun),
		truncate.DryRun(dryRun),
		truncate.WithLogger(log),
	}
	if !dryRun {
		opts = append(opts, truncate.WithObserver(collector))
	}
	return opts
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	archive, err := newArchiver(ctx, cfg, log)
	if err != nil {
		return err
	}

	dbCfg, err := cfg.Database()
	if err != nil {
		return err
	}
	pool, err := connect.Open(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", dbCfg.Driver, err)
	}
	defer pool.Close()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Config{
			Source:  pool,
			Metrics: collector,
			Logger:  log,
			Archive: archive,
			Timeout: dbCfg.QueryTimeout,
			Verbose: cfg.Verbose,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoWith("server starting", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newArchiver returns nil when no report bucket is configured.
func newArchiver(ctx context.Context, cfg *config.Config, log *logger.Logger) (server.ArchiveFunc, error) {
	fsCfg := cfg.Filestore()
	if !fsCfg.Enabled() {
		return nil, nil
	}
	store, err := minio.New(ctx, fsCfg)
	if err != nil {
		return nil, fmt.Errorf("connect report store: %w", err)
	}
	return func(ctx context.Context, r *truncate.Report) error {
		info, err := filestore.PutYAML(ctx, store, fsCfg.Bucket, fsCfg.Key(r.RunID), r)
		if err != nil {
			return err
		}
		log.InfoWith("report archived", map[string]interface{}{
			"bucket": info.Bucket,
			"key":    info.Key,
			"size":   info.Size,
		})
		return nil
	}, nil
}
