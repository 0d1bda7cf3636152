package ethereum

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/apperror"
)

const receiptPollInterval = time.Second

// Submit signs and broadcasts the spec, then waits for the receipt and
// classifies the outcome. The transaction is broadcast at most once per call;
// an unobservable receipt yields Unverified, never an error, because the
// transaction may still land.
func (n *Node) Submit(ctx context.Context, spec domain.TransactionSpec) (domain.TransactionResult, error) {
	ctx, span := n.tracer.Start(ctx, "node.submit")
	defer span.End()

	backend, err := n.getBackend()
	if err != nil {
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified}, err
	}

	if err := spec.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid spec")
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified},
			apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))
	}

	signed, err := types.SignNewTx(n.key, types.NewLondonSigner(spec.ChainID), &types.DynamicFeeTx{
		ChainID:   spec.ChainID,
		Nonce:     spec.Nonce,
		GasTipCap: spec.MaxPriorityFeePerGas,
		GasFeeCap: spec.MaxFeePerGas,
		Gas:       spec.GasLimit,
		To:        spec.To,
		Value:     spec.Value,
		Data:      spec.Data,
	})
	if err != nil {
		span.SetStatus(codes.Error, "signing failed")
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified},
			apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))
	}

	hash := signed.Hash()
	span.SetAttributes(attribute.String("tx.hash", hash.Hex()))

	if err := backend.SendTransaction(ctx, signed); err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "broadcast rejected")
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified},
			apperror.New(apperror.CodeSubmissionFailed,
				apperror.WithCause(err),
				apperror.WithContext(hash.Hex()))
	}

	n.metrics.txSubmitted.Add(ctx, 1)
	n.logger.Info(ctx, "transaction broadcast", "hash", hash.Hex(), "nonce", spec.Nonce)

	outcome := n.waitReceipt(ctx, backend, hash)

	n.metrics.txOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome.String())))
	span.SetAttributes(attribute.String("tx.outcome", outcome.String()))
	n.logger.Info(ctx, "transaction settled", "hash", hash.Hex(), "outcome", outcome.String())

	return domain.TransactionResult{Outcome: outcome, Hash: hash}, nil
}

// waitReceipt polls for the receipt until it appears or the timeout elapses.
// Any condition that prevents observing a receipt maps to Unverified.
func (n *Node) waitReceipt(ctx context.Context, backend Backend, hash common.Hash) domain.TransactionOutcome {
	start := time.Now()
	defer func() {
		n.metrics.receiptWait.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, n.config.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				return domain.OutcomeSuccess
			}
			return domain.OutcomeFailure
		case errors.Is(err, ethereum.NotFound):
			// not mined yet, keep polling
		default:
			n.metrics.rpcErrors.Add(ctx, 1)
			n.logger.Warn(ctx, "receipt query failed", "hash", hash.Hex(), "error", err)
			return domain.OutcomeUnverified
		}

		select {
		case <-ctx.Done():
			n.logger.Warn(ctx, "receipt wait timed out", "hash", hash.Hex())
			return domain.OutcomeUnverified
		case <-ticker.C:
		}
	}
}
