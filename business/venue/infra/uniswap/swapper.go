// Package uniswap implements the Swapper port against a V3-style router.
package uniswap

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/ncoria/txflow/business/chain/app"
	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue/app"
	"github.com/ncoria/txflow/business/venue/domain"
	"github.com/ncoria/txflow/business/venue/infra/contracts"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"
)

// Ensure Swapper implements the port.
var _ app.Swapper = (*Swapper)(nil)

// exactInputSingleParams mirrors the router's tuple layout for abi encoding.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Swapper executes single-hop exact-input sells on one router contract.
type Swapper struct {
	address common.Address
	abi     abi.ABI
	client  chainapp.ChainClient
	logger  logger.LoggerInterface

	fee    *big.Int
	minOut *big.Int

	tracer trace.Tracer
	swaps  metric.Int64Counter
}

// NewSwapper creates a Swapper for the router at address with the default fee
// tier and no minimum output.
func NewSwapper(address string, client chainapp.ChainClient, log logger.LoggerInterface) (*Swapper, error) {
	addr, err := chaindomain.ValidateAddress(address)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidAddress, apperror.WithCause(err))
	}

	contractABI, err := contracts.Get(contracts.UniswapPool)
	if err != nil {
		return nil, err
	}

	swaps, err := otel.Meter(meterName).Int64Counter(
		"venue_swaps_total",
		metric.WithDescription("Total swap transactions by venue and outcome"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, err
	}

	return &Swapper{
		address: addr,
		abi:     contractABI,
		client:  client,
		logger:  log,
		fee:     big.NewInt(domain.DefaultPoolFee),
		minOut:  big.NewInt(0),
		tracer:  otel.Tracer(tracerName),
		swaps:   swaps,
	}, nil
}

// WithFee overrides the pool fee tier.
func (s *Swapper) WithFee(fee int64) *Swapper {
	s.fee = big.NewInt(fee)
	return s
}

// WithMinAmountOut overrides the minimum acceptable output.
func (s *Swapper) WithMinAmountOut(minOut *big.Int) *Swapper {
	s.minOut = new(big.Int).Set(minOut)
	return s
}

// Address returns the router contract's address.
func (s *Swapper) Address() common.Address {
	return s.address
}

// Swap sells amount of sellCoin for buyCoin through the router, with the
// signing account as recipient.
func (s *Swapper) Swap(ctx context.Context, sellCoin, buyCoin common.Address, amount *big.Int) (chaindomain.TransactionResult, error) {
	ctx, span := s.tracer.Start(ctx, "uniswap.swap",
		trace.WithAttributes(
			attribute.String("token_in", sellCoin.Hex()),
			attribute.String("token_out", buyCoin.Hex()),
		),
	)
	defer span.End()

	order := domain.NewExactInputOrder(sellCoin, buyCoin, s.client.Address(), amount)
	order.Fee = s.fee
	order.AmountOutMinimum = s.minOut

	if err := order.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid order")
		return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeUnverified},
			apperror.New(apperror.CodeSwapBuildFailed, apperror.WithCause(err))
	}

	data, err := s.abi.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           order.TokenIn,
		TokenOut:          order.TokenOut,
		Fee:               order.Fee,
		Recipient:         order.Recipient,
		AmountIn:          order.AmountIn,
		AmountOutMinimum:  order.AmountOutMinimum,
		SqrtPriceLimitX96: order.SqrtPriceLimitX96,
	})
	if err != nil {
		span.SetStatus(codes.Error, "encoding failed")
		return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeUnverified},
			apperror.New(apperror.CodeSwapBuildFailed, apperror.WithCause(err))
	}

	result, err := s.client.SubmitCall(ctx, s.address, data)
	if err != nil {
		return result, err
	}

	s.swaps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", "uniswap"),
		attribute.String("outcome", result.Outcome.String()),
	))
	s.logger.Info(ctx, "swap settled",
		"venue", "uniswap", "router", s.address.Hex(), "outcome", result.Outcome.String())

	return result, nil
}
