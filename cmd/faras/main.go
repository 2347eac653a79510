package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dqx0.com/go/faras/httpx"
	"dqx0.com/go/faras/internal/app"
	"dqx0.com/go/faras/internal/config"
	"dqx0.com/go/faras/internal/filestore"
	"dqx0.com/go/faras/internal/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "faras:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Parse("faras", args, stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	meter := &obs.MemMeter{}
	srv := &httpx.Server{
		Addr:         cfg.Addr(),
		Handler:      app.New(filestore.Dir(cfg.Directory), logger),
		Logger:       logger,
		Meter:        meter,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	logger.Logf(obs.Info, "serving files from %s", cfg.Directory)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Logf(obs.Info, "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Logf(obs.Warn, "shutdown: %v", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, httpx.ErrServerClosed) {
		return err
	}
	logTotals(logger, meter)
	return nil
}

func newLogger(cfg config.Config, w io.Writer) (obs.Logger, error) {
	level, err := obs.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case config.FormatJSON:
		return obs.NewZeroLogger(zerolog.New(w).With().Timestamp().Logger(), level), nil
	case config.FormatConsole:
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return obs.NewZeroLogger(zerolog.New(cw).With().Timestamp().Logger(), level), nil
	default:
		return obs.StdLogger{L: log.New(w, "", log.LstdFlags), Min: level, Pref: "faras "}, nil
	}
}

func logTotals(logger obs.Logger, m *obs.MemMeter) {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Logf(obs.Info, "metric %s = %g", k, snap[k])
	}
}
