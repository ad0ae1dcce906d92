package oofprover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyle-oof/oofprover/internal/bus"
	"github.com/hyle-oof/oofprover/internal/client"
	"github.com/hyle-oof/oofprover/internal/config"
	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/contract/hydentity"
	"github.com/hyle-oof/oofprover/internal/contract/hyllar"
	"github.com/hyle-oof/oofprover/internal/contract/ticketapp"
	"github.com/hyle-oof/oofprover/internal/ingest"
	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
	"github.com/hyle-oof/oofprover/internal/output"
	"github.com/hyle-oof/oofprover/internal/output/postgresql"
	"github.com/hyle-oof/oofprover/internal/prover"
)

// pipeline is the wired prover service: ingestor, bus, dispatcher and the
// optional journal.
type pipeline struct {
	bus        *bus.Bus
	dispatcher *prover.Dispatcher
	ingestor   *ingest.Ingestor
	handler    output.OutputHandler
	journal    *output.Journal
	journalErr chan error
}

func buildRegistry(c config.ContractsConfig) (*contract.Registry, error) {
	historical := make(map[string]bool, len(c.ProveHistorical))
	for _, name := range c.ProveHistorical {
		historical[name] = true
	}
	return contract.NewRegistry(
		contract.Registration{
			Name:            models.ContractName(c.Hydentity),
			Contract:        hydentity.New(),
			PrivateInput:    []byte(c.HydentityPassword),
			ProveHistorical: historical[c.Hydentity],
		},
		contract.Registration{
			Name:            models.ContractName(c.Hyllar),
			Contract:        hyllar.New(hyllar.DefaultSupply),
			ProveHistorical: historical[c.Hyllar],
		},
		contract.Registration{
			Name:            models.ContractName(c.TicketApp),
			Contract:        ticketapp.New(models.ContractName(c.Hyllar), c.TicketPrice),
			ProveHistorical: historical[c.TicketApp],
		},
	)
}

func newPipeline(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*pipeline, error) {
	registry, err := buildRegistry(cfg.Contracts)
	if err != nil {
		return nil, fmt.Errorf("failed to register contracts: %w", err)
	}

	p := &pipeline{bus: bus.New(bus.WithBuffer(cfg.Bus.Buffer), bus.WithMetrics(m))}

	dispatcherOpts := []prover.DispatcherOption{
		prover.WithMetrics(m),
		prover.WithMaxConcurrency(cfg.Prover.MaxConcurrency),
	}
	if cfg.Output.PostgresURL != "" {
		handler, err := postgresql.NewPostgresOutputHandler(ctx, cfg.Output.PostgresURL)
		if err != nil {
			return nil, err
		}
		p.handler = handler
		p.journal = output.NewJournal(handler)
		dispatcherOpts = append(dispatcherOpts, prover.WithObserver(p.journal))
	}

	p.dispatcher = prover.NewDispatcher(
		prover.NewHTTPProver(cfg.Prover.URL),
		client.NewNodeClient(cfg.Node.URL, cfg.Node.Timeout),
		dispatcherOpts...,
	)
	p.ingestor = ingest.New(registry, contract.NewStore(registry),
		ingest.WithPublisher(p.bus),
		ingest.WithDispatcher(p.dispatcher),
		ingest.WithMetrics(m),
		ingest.WithChainID(cfg.ChainID),
		ingest.WithStartHeight(models.BlockHeight(cfg.StartHeight)),
	)

	slog.Info("Tracking contracts", "contracts", registry.Names(), "startHeight", cfg.StartHeight, "journal", p.journal != nil)
	return p, nil
}

// start launches the journal writer when one is configured.
func (p *pipeline) start() {
	if p.journal == nil {
		return
	}
	sub := p.bus.Subscribe()
	p.journalErr = make(chan error, 1)
	go func() { p.journalErr <- p.journal.Run(context.Background(), sub) }()
}

// latestBlock returns the last journaled block, if any.
func (p *pipeline) latestBlock(ctx context.Context) (*models.BlockRecord, error) {
	if p.handler == nil {
		return nil, nil
	}
	return p.handler.GetLatestBlock(ctx)
}

// shutdown waits for in-flight proofs until ctx is done, then stops the bus
// and flushes the journal.
func (p *pipeline) shutdown(ctx context.Context) error {
	err := p.dispatcher.Shutdown(ctx)
	p.bus.Close()
	if p.journalErr != nil {
		if jerr := <-p.journalErr; jerr != nil {
			slog.Error("Journal stopped with error", "error", jerr)
		}
	}
	if p.handler != nil {
		if cerr := p.handler.Close(); cerr != nil {
			slog.Error("Failed to close journal", "error", cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("proofs still in flight at shutdown: %w", err)
	}
	return nil
}
