// Package app contains the workflow programs: the block-triggered transfer
// watcher and the two-leg arbitrage orchestrator.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/ncoria/txflow/business/chain/app"
	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/retry"
)

const watcherTracerName = "workflow.watcher"

// DefaultErrorBackoff is how long the watcher sleeps after a polling error
// before resuming.
const DefaultErrorBackoff = 3 * time.Second

// WatcherParams configures one watcher run.
type WatcherParams struct {
	Amount       decimal.Decimal // ether
	Blocks       int             // transfer every Blocks height changes
	Retries      int             // additional send attempts on non-success
	To           common.Address
	ErrorBackoff time.Duration // zero means DefaultErrorBackoff
}

// Validate checks the parameter shape.
func (p *WatcherParams) Validate() error {
	if p.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative")
	}
	if p.Blocks <= 0 {
		return fmt.Errorf("blocks must be positive")
	}
	if p.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if p.To == (common.Address{}) {
		return fmt.Errorf("destination address is required")
	}
	return nil
}

// BlockWatcher polls chain height and submits a native transfer every N
// height changes. It runs single-threaded; cancellation of the run context is
// its only exit path.
type BlockWatcher struct {
	params WatcherParams
	chain  *chainapp.ChainService
	logger logger.LoggerInterface

	tracer    trace.Tracer
	blocks    metric.Int64Counter
	transfers metric.Int64Counter
}

// NewBlockWatcher creates a watcher. Parameters are validated eagerly.
func NewBlockWatcher(params WatcherParams, chain *chainapp.ChainService, log logger.LoggerInterface) (*BlockWatcher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.ErrorBackoff == 0 {
		params.ErrorBackoff = DefaultErrorBackoff
	}

	meter := otel.Meter(watcherTracerName)

	blocks, err := meter.Int64Counter(
		"watcher_blocks_observed_total",
		metric.WithDescription("Total block height changes observed"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	transfers, err := meter.Int64Counter(
		"watcher_transfers_total",
		metric.WithDescription("Total transfers triggered by outcome"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, err
	}

	return &BlockWatcher{
		params:    params,
		chain:     chain,
		logger:    log,
		tracer:    otel.Tracer(watcherTracerName),
		blocks:    blocks,
		transfers: transfers,
	}, nil
}

// Run polls until ctx is cancelled. Polling errors are logged and backed off,
// never fatal; only the initial height read can fail the run.
func (w *BlockWatcher) Run(ctx context.Context) error {
	current, err := w.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("initial height read: %w", err)
	}

	w.logger.Info(ctx, "watching for blocks",
		"height", current, "every", w.params.Blocks, "to", w.params.To.Hex())

	counter := 0
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "watcher stopped")
			return nil
		default:
		}

		latest, err := w.chain.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info(ctx, "watcher stopped")
				return nil
			}
			w.logger.Warn(ctx, "height poll failed, backing off", "error", err)
			sleepCtx(ctx, w.params.ErrorBackoff)
			continue
		}

		if latest == current {
			continue
		}

		current = latest
		w.blocks.Add(ctx, 1)
		w.logger.Info(ctx, "new block", "height", current)

		counter = (counter + 1) % w.params.Blocks
		if counter == 0 {
			w.transfer(ctx)
		}
	}
}

// transfer sends the configured amount, retrying non-success outcomes within
// the budget. Exhaustion is reported, never fatal; the watcher returns to
// polling either way.
func (w *BlockWatcher) transfer(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "watcher.transfer",
		trace.WithAttributes(attribute.String("to", w.params.To.Hex())),
	)
	defer span.End()

	w.logger.Info(ctx, "sending transfer", "amount_eth", w.params.Amount.String())

	result, err := retry.Do(ctx, w.params.Retries,
		func(r chaindomain.TransactionResult) bool {
			if r.Outcome != chaindomain.OutcomeSuccess {
				w.logger.Warn(ctx, "transfer attempt not successful, retrying",
					"outcome", r.Outcome.String())
			}
			return r.Outcome == chaindomain.OutcomeSuccess
		},
		func(ctx context.Context) (chaindomain.TransactionResult, error) {
			return w.chain.SendEther(ctx, w.params.Amount, w.params.To)
		},
	)
	if err != nil {
		w.logger.Error(ctx, "transfer aborted", "error", err)
		return
	}

	w.transfers.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", result.Outcome.String())))

	switch result.Outcome {
	case chaindomain.OutcomeSuccess:
		w.logger.Info(ctx, "transfer succeeded", "hash", result.Hash.Hex())
	case chaindomain.OutcomeFailure:
		w.logger.Warn(ctx, "transfer processed but failed", "hash", result.Hash.Hex())
	default:
		w.logger.Warn(ctx, "transfer not processed", "hash", result.Hash.Hex())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
