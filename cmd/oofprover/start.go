package oofprover

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
	"github.com/hyle-oof/oofprover/internal/stream"
)

const metricsShutdownTimeout = 5 * time.Second

func newStartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Follow finalized blocks from the node and prove tracked blobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.start(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("stream-url", "ws://localhost:8080/ws", "Websocket URL of the node state event stream")
	flags.Duration("reconnect-delay", 0, "Pause between stream reconnection attempts")
	flags.String("metrics-addr", "", "Listen address of the Prometheus endpoint (disabled when empty)")
	for flag, key := range map[string]string{
		"stream-url":      "stream.url",
		"reconnect-delay": "stream.reconnect_delay",
		"metrics-addr":    "metrics.addr",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func (a *app) start(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.ValidateStream(); err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, metrics.Default())
	if err != nil {
		return err
	}
	if latest, err := p.latestBlock(ctx); err != nil {
		slog.Warn("Failed to read journal", "error", err)
	} else if latest != nil {
		slog.Info("Journal found", "lastBlock", latest.Height, "processedAt", latest.ProcessedAt)
	}
	p.start()

	blocks := make(chan *models.Block)
	source := stream.NewWebsocketSource(cfg.Stream.URL, cfg.Stream.ReconnectDelay)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(blocks)
		return source.Run(gctx, blocks)
	})
	eg.Go(func() error {
		return p.ingestor.Follow(gctx, blocks)
	})
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			slog.Info("Serving metrics", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	runErr := eg.Wait()
	slog.Info("Stopping prover", "outstandingProofs", len(p.dispatcher.Outstanding()), "unsettledTxs", p.ingestor.Tracker().Len())

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Prover.ShutdownTimeout)
	defer cancel()
	return errors.Join(runErr, p.shutdown(sctx))
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
