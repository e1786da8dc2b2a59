package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/app"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/ingest"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("taxfilerd.stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("taxfilerd.stopped")
}

// run owns every resource; it returns only after they are released.
func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if addr := cfg.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		grpcServer, hs := server.NewGRPCServer(a.Tools, logger)
		g.Go(func() error {
			logger.Info("taxfilerd.grpc.listening", "addr", addr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.Shutdown()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if addr := cfg.Server.HTTPAddr; addr != "" {
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server.NewRouter(a.Tools, a.Exporter, cfg.Server.CORSOrigins, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("taxfilerd.http.listening", "addr", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if dir := cfg.Ingest.InboxDir; dir != "" {
		g.Go(func() error {
			return ingest.Watch(gctx, a.Ingestor, ingest.WatchConfig{
				Roots:       []string{dir},
				SkipHidden:  true,
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
			}, logger)
		})
	}

	return g.Wait()
}
