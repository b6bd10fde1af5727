package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/statbot-io/statbot/internal/conf"
	"github.com/statbot-io/statbot/internal/directory"
	"github.com/statbot-io/statbot/internal/history"
	"github.com/statbot-io/statbot/internal/ingest"
	"github.com/statbot-io/statbot/internal/keylock"
	"github.com/statbot-io/statbot/internal/query"
	"github.com/statbot-io/statbot/internal/recalc"
	"github.com/statbot-io/statbot/internal/server"
	"github.com/statbot-io/statbot/internal/store"
	"github.com/statbot-io/statbot/pkg/util"
)

var version = "dev"

var (
	debug      bool
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "statbot",
	Short:   "Per-channel message statistics service",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("statbot", version)
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the statistics HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := conf.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}
		return runServer(cfg)
	},
}

func runServer(cfg *conf.Config) error {
	tz, err := cfg.Location()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	dir := directory.NewMemory()
	source := history.NewMemorySource()
	locks := keylock.New()

	recorder := ingest.NewRecorder(s, locks, dir, tz)
	queries := query.New(s, dir, tz)

	rc := recalc.NewService(
		recalc.NewEngine(s, source, locks, tz),
		dir,
		nil,
		recalc.WithWorkers(cfg.Recalc.Workers),
		recalc.WithNotifyLimits(cfg.Recalc.NotifyIdle(), cfg.Recalc.NotifyMaxLength),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc.Start(ctx)
	defer rc.Stop()

	svc := server.NewService(cfg, recorder, queries, rc, dir, source)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.ListenAndServe()
	}()
	log.Info().Msg("Service available at " + util.ComposeLANURL(cfg.HTTPAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		return svc.Stop()
	case err := <-errCh:
		return err
	}
}
