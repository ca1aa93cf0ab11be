// Command msigreplay replays recorded multisig rounds through the
// coordinator and prints the state it derives for each of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arnac-io/multisig/pkg/addressbook"
	"github.com/arnac-io/multisig/pkg/app"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/config"
	"github.com/arnac-io/multisig/pkg/sentry"
)

func main() {
	asJSON := flag.Bool("json", false, "print rounds as JSON")
	serve := flag.Bool("serve", false, "keep serving metrics after the replay until interrupted")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-json] [-serve] fixture.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := app.Logger(cfg.App.LogLevel)
	if err := sentry.Init(cfg.App.SentryDSN); err != nil {
		log.Warn("sentry init", zap.Error(err))
	}
	defer sentry.Flush()

	registry := chains.Default()
	if cfg.Chains.File != "" {
		var err error
		if registry, err = chains.Load(cfg.Chains.File); err != nil {
			log.Fatal("chains", zap.Error(err))
		}
	}
	fixture, err := LoadFixture(flag.Arg(0))
	if err != nil {
		log.Fatal("fixture", zap.Error(err))
	}
	book := addressbook.NewAddressBook(fixture.Contacts, fixture.Wallets)
	if cfg.Chains.AddressBookFile != "" {
		// the fixture's entries rank below the configured book
		book, err = addressbook.LoadAddressBook(log, cfg.Chains.AddressBookFile, addressbook.WithAdditionalSource(fixtureEntries{fixture}))
		if err != nil {
			log.Fatal("address book", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newReplayer(log, cfg, registry, book)
	if err := r.Run(ctx, fixture, os.Stdout, *asJSON); err != nil {
		log.Fatal("replay", zap.Error(err))
	}
	if !*serve {
		return
	}
	go r.storage.RunSweeper(ctx, time.Minute)
	go r.coordinator.Watch(ctx)
	serveMetrics(ctx, log, cfg.App.MetricsPort)
}

func serveMetrics(ctx context.Context, log *zap.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()
	log.Info("serving metrics", zap.Int("port", port))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("listen and serve", zap.Error(err))
	}
}
