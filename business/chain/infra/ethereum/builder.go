package ethereum

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/apperror"
)

const gasFeeCacheKey = "gasfees"

// GasFees derives the current fee pair from the chain, caching the result
// briefly so back-to-back builds do not repeat the queries.
func (n *Node) GasFees(ctx context.Context) (domain.GasFees, error) {
	if fees, ok := n.feeCache.Get(ctx, gasFeeCacheKey); ok {
		return fees, nil
	}

	backend, err := n.getBackend()
	if err != nil {
		return domain.GasFees{}, err
	}

	header, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		return domain.GasFees{}, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("base fee query"))
	}

	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		return domain.GasFees{}, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("priority fee query"))
	}

	fees := domain.NewGasFees(header.BaseFee, tip)
	n.feeCache.Set(ctx, gasFeeCacheKey, fees, n.config.GasFeeTTL)

	return fees, nil
}

// BuildTransaction resolves every absent field of the overrides from live
// chain state and returns a fully populated spec. Fields the caller supplied
// are passed through untouched, so a caller pinning the nonce or one fee keeps
// exactly that value.
func (n *Node) BuildTransaction(ctx context.Context, overrides domain.TxOverrides) (domain.TransactionSpec, error) {
	ctx, span := n.tracer.Start(ctx, "node.build_transaction")
	defer span.End()

	backend, err := n.getBackend()
	if err != nil {
		return domain.TransactionSpec{}, err
	}

	spec := domain.TransactionSpec{
		MaxFeePerGas:         overrides.MaxFeePerGas,
		MaxPriorityFeePerGas: overrides.MaxPriorityFeePerGas,
		ChainID:              overrides.ChainID,
		Value:                overrides.Value,
		GasLimit:             overrides.GasLimit,
		To:                   overrides.To,
		Data:                 overrides.Data,
	}

	if overrides.Nonce != nil {
		spec.Nonce = *overrides.Nonce
	} else {
		nonce, err := backend.PendingNonceAt(ctx, n.address)
		if err != nil {
			n.metrics.rpcErrors.Add(ctx, 1)
			span.SetStatus(codes.Error, "nonce query failed")
			return domain.TransactionSpec{}, apperror.New(apperror.CodeBuildFailed,
				apperror.WithCause(err),
				apperror.WithContext("nonce query"))
		}
		spec.Nonce = nonce
	}

	// One derivation covers both fee fields; only the absent ones take the
	// derived values.
	if spec.MaxFeePerGas == nil || spec.MaxPriorityFeePerGas == nil {
		fees, err := n.GasFees(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "fee derivation failed")
			return domain.TransactionSpec{}, apperror.New(apperror.CodeBuildFailed,
				apperror.WithCause(err),
				apperror.WithContext("fee derivation"))
		}
		if spec.MaxFeePerGas == nil {
			spec.MaxFeePerGas = fees.MaxFee
		}
		if spec.MaxPriorityFeePerGas == nil {
			spec.MaxPriorityFeePerGas = fees.PriorityFee
		}
	}

	if spec.ChainID == nil {
		chainID, err := backend.ChainID(ctx)
		if err != nil {
			n.metrics.rpcErrors.Add(ctx, 1)
			span.SetStatus(codes.Error, "chain id query failed")
			return domain.TransactionSpec{}, apperror.New(apperror.CodeBuildFailed,
				apperror.WithCause(err),
				apperror.WithContext("chain id query"))
		}
		spec.ChainID = chainID
	}

	if spec.Value == nil {
		spec.Value = big.NewInt(0)
	}

	if spec.GasLimit == 0 {
		spec.GasLimit = domain.DefaultGasLimit
	}

	if err := spec.Validate(); err != nil {
		span.SetStatus(codes.Error, "spec validation failed")
		return domain.TransactionSpec{}, apperror.New(apperror.CodeBuildFailed,
			apperror.WithCause(err))
	}

	span.SetAttributes(
		attribute.Int64("tx.nonce", int64(spec.Nonce)),
		attribute.String("tx.chain_id", spec.ChainID.String()),
	)

	return spec, nil
}
