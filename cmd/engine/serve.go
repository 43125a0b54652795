package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/events"
	"activitytracker-engine/internal/httpapi"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/pipeline"
	"activitytracker-engine/internal/poll"
)

var (
	servePort       int
	serveNoSchedule bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API and sync on a schedule",
	Long:  `Starts the local HTTP API and runs a sync every sync.interval. Manual runs go through POST /sync/run.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default app.port)")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "Only sync on demand")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userCfgPath, err := configPath()
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}
	loadCfg := func() (config.Config, error) {
		return loadConfig(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		return err
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(cfg)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hub := events.NewHub()
	tracker := pipeline.NewTracker()
	runnerFromCfg := func() (*pipeline.Runner, error) {
		return newRunner(cfgVal.Load().(config.Config), st, hub)
	}

	handler := httpapi.Chain(httpapi.NewMux(httpapi.Deps{
		Catalog:     st,
		Hub:         hub,
		CfgVal:      &cfgVal,
		Tracker:     tracker,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		NewRunner:   runnerFromCfg,
	}), httpapi.Cors, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog)

	if !serveNoSchedule {
		p := &poll.Poller{
			Tracker:      tracker,
			NewRunner:    runnerFromCfg,
			Interval:     cfg.Sync.Interval,
			Pruner:       st,
			KeepJobsDays: cfg.Sync.KeepJobsDays,
		}
		p.Start(ctx)
	}

	port := cfg.App.Port
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log := logging.Component("serve")
	log.Info().
		Str("addr", "http://"+addr).
		Str("store", cfg.Store.Driver).
		Str("config", userCfgPath).
		Msg("engine listening")

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
