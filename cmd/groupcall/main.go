package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/groupcall/internal/adapters/gateway"
	router "github.com/dkeye/groupcall/internal/adapters/http"
	"github.com/dkeye/groupcall/internal/adapters/rtc"
	"github.com/dkeye/groupcall/internal/app/orch"
	"github.com/dkeye/groupcall/internal/config"
	"github.com/dkeye/groupcall/internal/domain"
	"github.com/dkeye/groupcall/internal/metrics"
)

const (
	exitOK              = 0
	exitFailure         = 1
	exitRetriesExceeded = 2
	exitUnexpected      = 3
	exitCancelled       = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return exitFailure
	}
	setupLogging(cfg)

	// The first interrupt cancels the run; the second aborts teardown I/O.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	abortCtx, abort := context.WithCancel(context.Background())
	defer abort()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		log.Warn().Msg("interrupt received, tearing down")
		cancelRun()
		<-sigs
		log.Warn().Msg("second interrupt, aborting teardown")
		abort()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	status := router.NewStatus()
	reporter := orch.Reporters{
		orch.NewLogReporter(log.With().Str("module", "orch").Logger()),
		status,
		metrics.New(reg),
	}

	client := gateway.New(gateway.Options{
		URL:         cfg.GatewayURL,
		APIID:       cfg.APIID,
		APIHash:     cfg.APIHash,
		SessionName: cfg.SessionName,
	})
	engine := rtc.NewEngine(rtc.Options{
		ICEServers:   cfg.ICEServers,
		Signaler:     client,
		LeaveTimeout: cfg.TeardownTimeout,
	})

	o := &orch.Orchestrator{
		Client: client,
		Engine: engine,
		Settings: orch.Settings{
			Target: domain.GroupID(cfg.ChatID),
			Stream: domain.StreamSpec{Source: cfg.AudioURL, VideoIgnored: true},
			Join: orch.JoinPolicy{
				Retries:        cfg.Retries,
				AttemptTimeout: cfg.AttemptTimeout,
				Delay:          cfg.RetryDelay,
			},
			Hold:            cfg.HoldDuration,
			TeardownTimeout: cfg.TeardownTimeout,
		},
		Reporter: reporter,
		AbortCtx: abortCtx,
	}

	var (
		g       errgroup.Group
		outcome orch.RunOutcome
		runErr  error
	)
	srvCtx, stopSrv := context.WithCancel(context.Background())
	defer stopSrv()

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: router.SetupRouter(cfg.Mode, status, reg),
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-srvCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer stopSrv()
		outcome, runErr = o.Run(runCtx)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("status server error")
	}

	return exitCode(outcome, runErr)
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func exitCode(out orch.RunOutcome, err error) int {
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return exitFailure
	}
	switch out.Kind {
	case orch.OutcomeStreamStarted:
		return exitOK
	case orch.OutcomeRetriesExhausted:
		return exitRetriesExceeded
	case orch.OutcomeCancelled:
		return exitCancelled
	default:
		return exitUnexpected
	}
}
