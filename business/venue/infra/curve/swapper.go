// Package curve implements the Swapper port against a StableSwap-style pool.
//
// Pool entrypoints address coins by slot index rather than by contract
// address, so every swap first resolves the traded pair's indices from the
// pool's own slot table.
package curve

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	chainapp "github.com/ncoria/txflow/business/chain/app"
	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue/app"
	"github.com/ncoria/txflow/business/venue/domain"
	"github.com/ncoria/txflow/business/venue/infra/contracts"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

const (
	tracerName = "curve"
	meterName  = "curve"
)

// Ensure Swapper implements the port.
var _ app.Swapper = (*Swapper)(nil)

// Swapper executes exchanges on one index-addressed pool contract.
type Swapper struct {
	address common.Address
	abi     abi.ABI
	client  chainapp.ChainClient
	logger  logger.LoggerInterface

	minOut *big.Int

	tracer trace.Tracer
	swaps  metric.Int64Counter
}

// NewSwapper creates a Swapper for the pool at address with no minimum
// output.
func NewSwapper(address string, client chainapp.ChainClient, log logger.LoggerInterface) (*Swapper, error) {
	addr, err := chaindomain.ValidateAddress(address)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidAddress, apperror.WithCause(err))
	}

	contractABI, err := contracts.Get(contracts.CurvePool)
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
		minOut:  big.NewInt(0),
		tracer:  otel.Tracer(tracerName),
		swaps:   swaps,
	}, nil
}

// WithMinAmountOut overrides the minimum acceptable output.
func (s *Swapper) WithMinAmountOut(minOut *big.Int) *Swapper {
	s.minOut = new(big.Int).Set(minOut)
	return s
}

// Address returns the pool contract's address.
func (s *Swapper) Address() common.Address {
	return s.address
}

// CoinIndexes resolves each requested coin's slot index. All slot lookups run
// concurrently and the call waits for every slot before returning. Coins not
// present in the pool are simply absent from the result.
func (s *Swapper) CoinIndexes(ctx context.Context, coins []common.Address) (map[common.Address]int, error) {
	numCoins, err := s.poolSize(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[common.Address]bool, len(coins))
	for _, coin := range coins {
		wanted[coin] = true
	}

	indexes := make(map[common.Address]int, len(coins))
	var indexesMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range numCoins {
		g.Go(func() error {
			coin, err := s.coinAt(gctx, i)
			if err != nil {
				return err
			}
			if wanted[coin] {
				indexesMu.Lock()
				indexes[coin] = i
				indexesMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return indexes, nil
}

func (s *Swapper) poolSize(ctx context.Context) (int, error) {
	data, err := s.abi.Pack("N_COINS")
	if err != nil {
		return 0, apperror.New(apperror.CodeSwapBuildFailed, apperror.WithCause(err))
	}

	out, err := s.client.CallContract(ctx, s.address, data)
	if err != nil {
		return 0, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("pool size read"))
	}

	values, err := s.abi.Unpack("N_COINS", out)
	if err != nil {
		return 0, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("pool size decode"))
	}

	return int(values[0].(*big.Int).Int64()), nil
}

func (s *Swapper) coinAt(ctx context.Context, index int) (common.Address, error) {
	data, err := s.abi.Pack("coins", big.NewInt(int64(index)))
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeSwapBuildFailed, apperror.WithCause(err))
	}

	out, err := s.client.CallContract(ctx, s.address, data)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("coin slot read"))
	}

	values, err := s.abi.Unpack("coins", out)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("coin slot decode"))
	}

	return values[0].(common.Address), nil
}

func (s *Swapper) estimateOut(ctx context.Context, inIndex, outIndex int, amount *big.Int) (*big.Int, error) {
	data, err := s.abi.Pack("get_dy", big.NewInt(int64(inIndex)), big.NewInt(int64(outIndex)), amount)
	if err != nil {
		return nil, apperror.New(apperror.CodeSwapBuildFailed, apperror.WithCause(err))
	}

	out, err := s.client.CallContract(ctx, s.address, data)
	if err != nil {
		return nil, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("output estimate read"))
	}

	values, err := s.abi.Unpack("get_dy", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeSwapFailed,
			apperror.WithCause(err),
			apperror.WithContext("output estimate decode"))
	}

	return values[0].(*big.Int), nil
}

// prepareOrder resolves the traded pair's slots and the estimated output.
// A pool that does not hold both coins is a mismatch; no exchange is built.
func (s *Swapper) prepareOrder(ctx context.Context, sellCoin, buyCoin common.Address, amount *big.Int) (domain.IndexedExchangeOrder, error) {
	indexes, err := s.CoinIndexes(ctx, []common.Address{sellCoin, buyCoin})
	if err != nil {
		return domain.IndexedExchangeOrder{}, err
	}

	if len(indexes) != 2 {
		return domain.IndexedExchangeOrder{}, apperror.New(apperror.CodePoolMismatch,
			apperror.WithContext(s.address.Hex()))
	}

	estimated, err := s.estimateOut(ctx, indexes[sellCoin], indexes[buyCoin], amount)
	if err != nil {
		return domain.IndexedExchangeOrder{}, err
	}

	order := domain.IndexedExchangeOrder{
		InIndex:      big.NewInt(int64(indexes[sellCoin])),
		OutIndex:     big.NewInt(int64(indexes[buyCoin])),
		EstimatedOut: estimated,
		MinOut:       s.minOut,
	}

	if err := order.Validate(); err != nil {
		return domain.IndexedExchangeOrder{}, apperror.New(apperror.CodeSwapBuildFailed,
			apperror.WithCause(err))
	}

	return order, nil
}

// Swap sells amount of sellCoin for buyCoin through the pool.
func (s *Swapper) Swap(ctx context.Context, sellCoin, buyCoin common.Address, amount *big.Int) (chaindomain.TransactionResult, error) {
	ctx, span := s.tracer.Start(ctx, "curve.swap",
		trace.WithAttributes(
			attribute.String("token_in", sellCoin.Hex()),
			attribute.String("token_out", buyCoin.Hex()),
		),
	)
	defer span.End()

	order, err := s.prepareOrder(ctx, sellCoin, buyCoin, amount)
	if err != nil {
		span.SetStatus(codes.Error, "order preparation failed")
		return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeUnverified}, err
	}

	data, err := s.abi.Pack("exchange", order.InIndex, order.OutIndex, order.EstimatedOut, order.MinOut)
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
		attribute.String("venue", "curve"),
		attribute.String("outcome", result.Outcome.String()),
	))
	s.logger.Info(ctx, "swap settled",
		"venue", "curve", "pool", s.address.Hex(), "outcome", result.Outcome.String())

	return result, nil
}
