package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	venueapp "github.com/ncoria/txflow/business/venue/app"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/retry"
)

const arbitrageTracerName = "workflow.arbitrage"

// legPoolSize bounds how many leg tasks run concurrently.
const legPoolSize = 5

// Leg is one side of the arbitrage: sell the venue's own coin for the other
// venue's coin through the venue's swap contract. A leg is created once at
// orchestration start and read-only afterwards.
type Leg struct {
	Name     string
	SellCoin venueapp.Token
	BuyCoin  common.Address
	Swapper  venueapp.Swapper
}

// Stage names a leg's terminal step for reporting.
type Stage string

const (
	StageApproval Stage = "approval"
	StageSwap     Stage = "swap"
)

// LegReport is the terminal state of one leg: the stage it ended at, the
// outcome there, and the error if the stage aborted before settling.
type LegReport struct {
	Leg     string
	Stage   Stage
	Outcome chaindomain.TransactionOutcome
	Err     error
}

// Succeeded reports whether the leg completed its swap successfully.
func (r LegReport) Succeeded() bool {
	return r.Err == nil && r.Stage == StageSwap && r.Outcome == chaindomain.OutcomeSuccess
}

// ArbitrageParams configures one orchestration run.
type ArbitrageParams struct {
	Amount  *big.Int
	Retries int
}

// Validate checks the parameter shape.
func (p *ArbitrageParams) Validate() error {
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative")
	}
	if p.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	return nil
}

// ArbitrageOrchestrator runs both legs concurrently on a bounded pool and
// waits for both to finish. Legs are independent: one leg failing never
// cancels or unwinds the other.
type ArbitrageOrchestrator struct {
	params ArbitrageParams
	legs   []Leg
	logger logger.LoggerInterface

	tracer trace.Tracer
	runs   metric.Int64Counter
}

// NewArbitrageOrchestrator creates an orchestrator for the given legs.
// Parameters are validated eagerly.
func NewArbitrageOrchestrator(params ArbitrageParams, legs []Leg, log logger.LoggerInterface) (*ArbitrageOrchestrator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("at least one leg is required")
	}

	runs, err := otel.Meter(arbitrageTracerName).Int64Counter(
		"arbitrage_legs_total",
		metric.WithDescription("Total arbitrage legs by terminal stage and outcome"),
		metric.WithUnit("{leg}"),
	)
	if err != nil {
		return nil, err
	}

	return &ArbitrageOrchestrator{
		params: params,
		legs:   legs,
		logger: log,
		tracer: otel.Tracer(arbitrageTracerName),
		runs:   runs,
	}, nil
}

// Execute runs every leg and returns one report per leg, in leg order. It
// always waits for all legs; a partial failure is reported, not raised.
func (o *ArbitrageOrchestrator) Execute(ctx context.Context) []LegReport {
	ctx, span := o.tracer.Start(ctx, "arbitrage.execute")
	defer span.End()

	reports := make([]LegReport, len(o.legs))

	// Plain group, not WithContext: a failed leg must not cancel the others.
	var g errgroup.Group
	g.SetLimit(legPoolSize)

	for i, leg := range o.legs {
		g.Go(func() error {
			reports[i] = o.runLeg(ctx, leg)
			return nil
		})
	}
	g.Wait()

	for _, report := range reports {
		o.runs.Add(ctx, 1, metric.WithAttributes(
			attribute.String("leg", report.Leg),
			attribute.String("stage", string(report.Stage)),
			attribute.String("outcome", report.Outcome.String()),
		))
	}

	return reports
}

// runLeg approves the swapper's allowance, then swaps, each within its own
// retry budget. A leg that cannot get its approval confirmed never swaps.
func (o *ArbitrageOrchestrator) runLeg(ctx context.Context, leg Leg) LegReport {
	ctx, span := o.tracer.Start(ctx, "arbitrage.leg",
		trace.WithAttributes(attribute.String("leg", leg.Name)),
	)
	defer span.End()

	log := o.logger.With("leg", leg.Name)

	log.Info(ctx, "approving allowance",
		"token", leg.SellCoin.Address().Hex(), "spender", leg.Swapper.Address().Hex())

	approval, err := retry.Do(ctx, o.params.Retries,
		func(r chaindomain.TransactionResult) bool {
			if r.Outcome != chaindomain.OutcomeSuccess {
				log.Warn(ctx, "approval attempt not successful, retrying",
					"outcome", r.Outcome.String())
			}
			return r.Outcome == chaindomain.OutcomeSuccess
		},
		func(ctx context.Context) (chaindomain.TransactionResult, error) {
			return leg.SellCoin.Approve(ctx, leg.Swapper.Address(), o.params.Amount)
		},
	)
	if err != nil {
		log.Error(ctx, "approval aborted", "error", err)
		return LegReport{Leg: leg.Name, Stage: StageApproval, Outcome: chaindomain.OutcomeUnverified, Err: err}
	}

	switch approval.Outcome {
	case chaindomain.OutcomeSuccess:
		log.Info(ctx, "approval succeeded", "hash", approval.Hash.Hex())
	case chaindomain.OutcomeFailure:
		log.Warn(ctx, "approval processed but failed", "hash", approval.Hash.Hex())
		return LegReport{Leg: leg.Name, Stage: StageApproval, Outcome: approval.Outcome}
	default:
		log.Warn(ctx, "approval not processed", "hash", approval.Hash.Hex())
		return LegReport{Leg: leg.Name, Stage: StageApproval, Outcome: approval.Outcome}
	}

	log.Info(ctx, "swapping",
		"sell", leg.SellCoin.Address().Hex(), "buy", leg.BuyCoin.Hex(),
		"amount", o.params.Amount.String())

	swap, err := retry.Do(ctx, o.params.Retries,
		func(r chaindomain.TransactionResult) bool {
			if r.Outcome != chaindomain.OutcomeSuccess {
				log.Warn(ctx, "swap attempt not successful, retrying",
					"outcome", r.Outcome.String())
			}
			return r.Outcome == chaindomain.OutcomeSuccess
		},
		func(ctx context.Context) (chaindomain.TransactionResult, error) {
			return leg.Swapper.Swap(ctx, leg.SellCoin.Address(), leg.BuyCoin, o.params.Amount)
		},
	)
	if err != nil {
		log.Error(ctx, "swap aborted", "error", err)
		return LegReport{Leg: leg.Name, Stage: StageSwap, Outcome: chaindomain.OutcomeUnverified, Err: err}
	}

	switch swap.Outcome {
	case chaindomain.OutcomeSuccess:
		log.Info(ctx, "swap succeeded", "hash", swap.Hash.Hex())
	case chaindomain.OutcomeFailure:
		log.Warn(ctx, "swap processed but failed", "hash", swap.Hash.Hex())
	default:
		log.Warn(ctx, "swap not processed", "hash", swap.Hash.Hex())
	}

	return LegReport{Leg: leg.Name, Stage: StageSwap, Outcome: swap.Outcome}
}
