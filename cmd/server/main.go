// Command vv-devserver serves an in-memory fake of the platform API so the
// vv CLI can be tried without the real backend.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/vidvote/internal/apitest"
	"github.com/and161185/vidvote/internal/server"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses flags, seeds the fake API and serves it until interrupted.
func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	seed := flag.Bool("seed", true, "create the demo account and sample videos")
	envelope := flag.Bool("envelope", false, "answer lists as {items,totalPages} instead of arrays")
	accessToken := flag.Bool("access-token", false, "answer login as {access_token,...} without the user")
	dev := flag.Bool("dev", false, "human-readable debug logging")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be := apitest.NewBackend()
	be.Envelope = *envelope
	be.AccessTokenShape = *accessToken
	if *seed {
		be.SeedDemo()
		logger.Info("demo account", zap.String("email", apitest.DemoEmail))
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	if err := server.New(be.Handler(), logger).Serve(ctx, lis); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
