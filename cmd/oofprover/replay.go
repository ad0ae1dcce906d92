package oofprover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/stream"
)

func newReplayCmd(a *app) *cobra.Command {
	var (
		file     string
		progress bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed recorded node state events through the prover",
		Long: `Replay reads node state events, one JSON object per line, and processes the
blocks they carry exactly as the live follower would. Blobs below the start
height only update the contract mirrors unless their contract is listed in
prove-historical. The command returns once every dispatched proof finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open block file: %w", err)
			}
			defer f.Close()

			var bar io.Writer = io.Discard
			if progress {
				bar = cmd.ErrOrStderr()
			}
			return a.replay(ctx, f, bar, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON lines file of node state events")
	cmd.Flags().BoolVar(&progress, "progress", true, "Show a progress bar")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) replay(ctx context.Context, r io.Reader, barOut, out io.Writer) error {
	blocks, err := stream.LoadBlocks(r)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, a.cfg, metrics.Default())
	if err != nil {
		return err
	}
	p.start()

	bar := progressbar.NewOptions(len(blocks),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetDescription("Replaying blocks"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var runErr error
	processed := 0
	for _, block := range blocks {
		if ctx.Err() != nil {
			break
		}
		if err := p.ingestor.HandleProcessedBlock(block); err != nil {
			runErr = fmt.Errorf("failed to handle block %d: %w", block.Height, err)
			break
		}
		processed++
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	// ctx is only cancelled by a signal; otherwise every dispatched proof is awaited.
	runErr = errors.Join(runErr, p.shutdown(ctx))

	_, err = fmt.Fprintf(out, "Replayed %d of %d blocks, %d transactions unsettled\n",
		processed, len(blocks), p.ingestor.Tracker().Len())
	return errors.Join(runErr, err)
}
