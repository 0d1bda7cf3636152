package ethereum

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ncoria/txflow/internal/logger"
)

// testPrivateKey is a throwaway key used only in tests.
const testPrivateKey = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"

// mockBackend implements Backend with per-method function hooks. Unset hooks
// return usable defaults for a healthy chain.
type mockBackend struct {
	blockNumberFn        func(ctx context.Context) (uint64, error)
	headerByNumberFn     func(ctx context.Context, number *big.Int) (*types.Header, error)
	pendingNonceAtFn     func(ctx context.Context, account common.Address) (uint64, error)
	chainIDFn            func(ctx context.Context) (*big.Int, error)
	suggestGasTipCapFn   func(ctx context.Context) (*big.Int, error)
	sendTransactionFn    func(ctx context.Context, tx *types.Transaction) error
	transactionReceiptFn func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	callContractFn       func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	closed bool
}

func (m *mockBackend) BlockNumber(ctx context.Context) (uint64, error) {
	if m.blockNumberFn != nil {
		return m.blockNumberFn(ctx)
	}
	return 100, nil
}

func (m *mockBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if m.headerByNumberFn != nil {
		return m.headerByNumberFn(ctx, number)
	}
	return &types.Header{
		Number:  big.NewInt(100),
		BaseFee: big.NewInt(1_000_000_000),
		Time:    1700000000,
	}, nil
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if m.pendingNonceAtFn != nil {
		return m.pendingNonceAtFn(ctx, account)
	}
	return 7, nil
}

func (m *mockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if m.chainIDFn != nil {
		return m.chainIDFn(ctx)
	}
	return big.NewInt(11155111), nil
}

func (m *mockBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if m.suggestGasTipCapFn != nil {
		return m.suggestGasTipCapFn(ctx)
	}
	return big.NewInt(2_000_000_000), nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if m.sendTransactionFn != nil {
		return m.sendTransactionFn(ctx, tx)
	}
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if m.transactionReceiptFn != nil {
		return m.transactionReceiptFn(ctx, txHash)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (m *mockBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.callContractFn != nil {
		return m.callContractFn(ctx, msg, blockNumber)
	}
	return nil, nil
}

func (m *mockBackend) Close() {
	m.closed = true
}

// newTestNode builds a connected node backed by the mock.
func newTestNode(t interface{ Fatalf(string, ...any) }, backend *mockBackend) *Node {
	cfg := DefaultNodeConfig("http://localhost:8545")
	cfg.ConnectBackoff = time.Millisecond
	cfg.ReceiptTimeout = 200 * time.Millisecond

	node, err := NewNode(cfg, testPrivateKey, logger.NewNop())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	node.WithDialer(func(ctx context.Context, endpoint string) (Backend, error) {
		return backend, nil
	})
	if err := node.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	return node
}
