package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/twipi/twigomoku/api"
	"github.com/twipi/twigomoku/game"
	"github.com/twipi/twigomoku/service"
	"github.com/twipi/twigomoku/session"
	twicmdhttp "github.com/twipi/twipi/twicmd/http"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

var (
	listenAddr  = ":8080"
	boardSize   = 5
	storeConfig = session.DefaultConfig()
	verbose     = false
)

func init() {
	pflag.StringVarP(&listenAddr, "listen-addr", "l", listenAddr, "address to listen on")
	pflag.IntVar(&boardSize, "board-size", boardSize, "default board size of new games")
	pflag.IntVar(&storeConfig.MaxSize, "max-board-size", storeConfig.MaxSize, "largest board size a game may use")
	pflag.DurationVar(&storeConfig.Expiry, "game-expiry", storeConfig.Expiry, "how long a game is kept after it started")
	pflag.DurationVar(&storeConfig.SweepInterval, "sweep-interval", storeConfig.SweepInterval, "how often expired games are removed")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "log debug messages")
	pflag.Parse()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	logger := slog.Default()

	os.Exit(start(ctx, logger))
}

func start(ctx context.Context, logger *slog.Logger) int {
	errg, ctx := errgroup.WithContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	defaults := session.Options{Size: boardSize, First: game.Human}
	if err := storeConfig.Validate(defaults); err != nil {
		logger.Error(
			"invalid default board size",
			"err", err)
		return 1
	}

	store := session.NewStore(
		storeConfig,
		session.NewMetrics(reg),
		logger.With("component", "session"))

	svc := service.NewService(store, defaults, logger.With("component", "service"))
	errg.Go(func() error { return svc.Start(ctx) })

	handler := twicmdhttp.NewHandler(svc, logger.With("component", "http"))
	errg.Go(func() error {
		<-ctx.Done()
		if err := handler.Close(); err != nil {
			logger.Error(
				"failed to close http service handler",
				"err", err)
		}
		return ctx.Err()
	})

	errg.Go(func() error {
		r := chi.NewRouter()
		r.Get("/health", healthCheck)
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		r.Mount("/api", api.NewHandler(store, defaults, logger.With("component", "api")))
		r.Handle("/*", handler)

		logger.Info(
			"listening via HTTP",
			"addr", listenAddr)

		if err := hserve.ListenAndServe(ctx, listenAddr, r); err != nil {
			logger.Error(
				"failed to listen and serve",
				"err", err)
			return err
		}

		return ctx.Err()
	})

	if err := errg.Wait(); err != nil {
		logger.Error(
			"service error",
			"err", err)
		return 1
	}

	return 0
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
