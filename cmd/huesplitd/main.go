package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garmentlab/huesplit"
	"github.com/garmentlab/huesplit/internal/server"
)

func main() {
	addr := flag.String("addr", defaultAddr(), "Listen address (also HUESPLIT_ADDR)")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No neural mask generator is bundled; the service runs on the pixel
	// clustering paths and reports the kmeans mode on /health.
	srv := server.New(huesplit.NoModel(), log)
	if err := srv.ListenAndServe(ctx, *addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

func defaultAddr() string {
	if v := os.Getenv("HUESPLIT_ADDR"); v != "" {
		return v
	}
	return ":8742"
}
