package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/apperror"
)

func testSpec() domain.TransactionSpec {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	return domain.TransactionSpec{
		Nonce:                7,
		MaxFeePerGas:         big.NewInt(4_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
		ChainID:              big.NewInt(11155111),
		Value:                big.NewInt(0),
		GasLimit:             21000,
		To:                   &to,
	}
}

func TestSubmitClassifiesReceiptStatus(t *testing.T) {
	tests := []struct {
		name   string
		status uint64
		want   domain.TransactionOutcome
	}{
		{"successful receipt", types.ReceiptStatusSuccessful, domain.OutcomeSuccess},
		{"reverted receipt", types.ReceiptStatusFailed, domain.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{
				transactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
					return &types.Receipt{Status: tt.status}, nil
				},
			}
			node := newTestNode(t, backend)

			result, err := node.Submit(context.Background(), testSpec())
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if result.Outcome != tt.want {
				t.Errorf("expected outcome %v, got %v", tt.want, result.Outcome)
			}
			if result.Hash == (common.Hash{}) {
				t.Error("expected populated transaction hash")
			}
		})
	}
}

func TestSubmitBroadcastsOnce(t *testing.T) {
	var broadcasts int
	backend := &mockBackend{
		sendTransactionFn: func(ctx context.Context, tx *types.Transaction) error {
			broadcasts++
			return nil
		},
	}
	node := newTestNode(t, backend)

	if _, err := node.Submit(context.Background(), testSpec()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if broadcasts != 1 {
		t.Errorf("expected exactly 1 broadcast, got %d", broadcasts)
	}
}

func TestSubmitBroadcastRejected(t *testing.T) {
	backend := &mockBackend{
		sendTransactionFn: func(ctx context.Context, tx *types.Transaction) error {
			return errors.New("nonce too low")
		},
	}
	node := newTestNode(t, backend)

	result, err := node.Submit(context.Background(), testSpec())
	if !apperror.IsCode(err, apperror.CodeSubmissionFailed) {
		t.Errorf("expected CodeSubmissionFailed, got %v", err)
	}
	if result.Outcome != domain.OutcomeUnverified {
		t.Errorf("expected unverified outcome, got %v", result.Outcome)
	}
}

func TestSubmitUnverifiedOnReceiptTimeout(t *testing.T) {
	backend := &mockBackend{
		transactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return nil, ethereum.NotFound
		},
	}
	node := newTestNode(t, backend)

	result, err := node.Submit(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("an unobservable receipt must not be an error, got %v", err)
	}
	if result.Outcome != domain.OutcomeUnverified {
		t.Errorf("expected unverified outcome, got %v", result.Outcome)
	}
	if result.Hash == (common.Hash{}) {
		t.Error("expected hash populated for later lookup")
	}
}

func TestSubmitUnverifiedOnReceiptError(t *testing.T) {
	backend := &mockBackend{
		transactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return nil, errors.New("rpc down")
		},
	}
	node := newTestNode(t, backend)

	result, err := node.Submit(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("an unobservable receipt must not be an error, got %v", err)
	}
	if result.Outcome != domain.OutcomeUnverified {
		t.Errorf("expected unverified outcome, got %v", result.Outcome)
	}
}

func TestSubmitRejectsUnresolvedSpec(t *testing.T) {
	node := newTestNode(t, &mockBackend{})

	spec := testSpec()
	spec.ChainID = nil

	_, err := node.Submit(context.Background(), spec)
	if !apperror.IsCode(err, apperror.CodeSigningFailed) {
		t.Errorf("expected CodeSigningFailed, got %v", err)
	}
}

func TestSendNative(t *testing.T) {
	var sent *types.Transaction
	backend := &mockBackend{
		sendTransactionFn: func(ctx context.Context, tx *types.Transaction) error {
			sent = tx
			return nil
		},
	}
	node := newTestNode(t, backend)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	result, err := node.SendNative(context.Background(), big.NewInt(5000), to)
	if err != nil {
		t.Fatalf("SendNative: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Errorf("expected success, got %v", result.Outcome)
	}
	if sent == nil {
		t.Fatal("expected a broadcast transaction")
	}
	if sent.Value().Cmp(big.NewInt(5000)) != 0 {
		t.Errorf("unexpected value %s", sent.Value())
	}
	if *sent.To() != to {
		t.Errorf("unexpected recipient %s", sent.To())
	}
}
