package curve

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue/infra/contracts"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

const poolAddress = "0xbEbc44782C7dB0a1A60Cb6fe97d0b483032FF1C7"

var (
	coinA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	coinB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	coinC = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	coinX = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
)

// fakeClient implements the chain client surface against an in-memory pool.
type fakeClient struct {
	coins   []common.Address
	dy      *big.Int
	submits [][]byte
}

func (f *fakeClient) Address() common.Address { return common.HexToAddress("0x1") }

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }

func (f *fakeClient) LatestBlock(ctx context.Context) (*chaindomain.Block, error) { return nil, nil }

func (f *fakeClient) BuildTransaction(ctx context.Context, overrides chaindomain.TxOverrides) (chaindomain.TransactionSpec, error) {
	return chaindomain.TransactionSpec{}, nil
}

func (f *fakeClient) Submit(ctx context.Context, spec chaindomain.TransactionSpec) (chaindomain.TransactionResult, error) {
	return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeSuccess}, nil
}

func (f *fakeClient) SendNative(ctx context.Context, amountWei *big.Int, to common.Address) (chaindomain.TransactionResult, error) {
	return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeSuccess}, nil
}

func (f *fakeClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	poolABI, err := contracts.Get(contracts.CurvePool)
	if err != nil {
		return nil, err
	}

	switch {
	case bytes.Equal(data[:4], poolABI.Methods["N_COINS"].ID):
		return poolABI.Methods["N_COINS"].Outputs.Pack(big.NewInt(int64(len(f.coins))))

	case bytes.Equal(data[:4], poolABI.Methods["coins"].ID):
		args, err := poolABI.Methods["coins"].Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		index := args[0].(*big.Int).Int64()
		return poolABI.Methods["coins"].Outputs.Pack(f.coins[index])

	case bytes.Equal(data[:4], poolABI.Methods["get_dy"].ID):
		return poolABI.Methods["get_dy"].Outputs.Pack(f.dy)
	}

	return nil, nil
}

func (f *fakeClient) SubmitCall(ctx context.Context, to common.Address, data []byte) (chaindomain.TransactionResult, error) {
	f.submits = append(f.submits, data)
	return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeSuccess}, nil
}

func (f *fakeClient) State() chaindomain.ConnectionState { return chaindomain.StateConnected }

func (f *fakeClient) Close() error { return nil }

func newTestSwapper(t *testing.T, client *fakeClient) *Swapper {
	t.Helper()
	swapper, err := NewSwapper(poolAddress, client, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSwapper: %v", err)
	}
	return swapper
}

func TestCoinIndexesResolvesBothCoins(t *testing.T) {
	client := &fakeClient{coins: []common.Address{coinC, coinA, coinB}}
	swapper := newTestSwapper(t, client)

	indexes, err := swapper.CoinIndexes(context.Background(), []common.Address{coinA, coinB})
	if err != nil {
		t.Fatalf("CoinIndexes: %v", err)
	}

	if len(indexes) != 2 {
		t.Fatalf("expected 2 resolved coins, got %d", len(indexes))
	}
	if indexes[coinA] != 1 {
		t.Errorf("expected coin A at slot 1, got %d", indexes[coinA])
	}
	if indexes[coinB] != 2 {
		t.Errorf("expected coin B at slot 2, got %d", indexes[coinB])
	}
}

func TestCoinIndexesOmitsMissingCoins(t *testing.T) {
	client := &fakeClient{coins: []common.Address{coinC, coinA}}
	swapper := newTestSwapper(t, client)

	indexes, err := swapper.CoinIndexes(context.Background(), []common.Address{coinA, coinX})
	if err != nil {
		t.Fatalf("CoinIndexes: %v", err)
	}

	if len(indexes) != 1 {
		t.Fatalf("expected 1 resolved coin, got %d", len(indexes))
	}
	if _, ok := indexes[coinX]; ok {
		t.Error("coin absent from the pool must not resolve")
	}
}

func TestSwapPoolMismatch(t *testing.T) {
	client := &fakeClient{coins: []common.Address{coinC, coinA}}
	swapper := newTestSwapper(t, client)

	_, err := swapper.Swap(context.Background(), coinA, coinX, big.NewInt(1000))
	if !apperror.IsCode(err, apperror.CodePoolMismatch) {
		t.Fatalf("expected CodePoolMismatch, got %v", err)
	}
	if len(client.submits) != 0 {
		t.Error("no exchange may be submitted for a mismatched pool")
	}
}

func TestSwapBuildsExchangeCall(t *testing.T) {
	client := &fakeClient{
		coins: []common.Address{coinA, coinB},
		dy:    big.NewInt(995),
	}
	swapper := newTestSwapper(t, client)

	result, err := swapper.Swap(context.Background(), coinA, coinB, big.NewInt(1000))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if result.Outcome != chaindomain.OutcomeSuccess {
		t.Errorf("expected success, got %v", result.Outcome)
	}
	if len(client.submits) != 1 {
		t.Fatalf("expected 1 submitted exchange, got %d", len(client.submits))
	}

	poolABI, err := contracts.Get(contracts.CurvePool)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	data := client.submits[0]
	if !bytes.Equal(data[:4], poolABI.Methods["exchange"].ID) {
		t.Fatal("submitted call is not an exchange")
	}

	args, err := poolABI.Methods["exchange"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	if got := args[0].(*big.Int).Int64(); got != 0 {
		t.Errorf("expected in index 0, got %d", got)
	}
	if got := args[1].(*big.Int).Int64(); got != 1 {
		t.Errorf("expected out index 1, got %d", got)
	}
	if got := args[2].(*big.Int); got.Cmp(big.NewInt(995)) != 0 {
		t.Errorf("expected estimated output 995, got %s", got)
	}
	if got := args[3].(*big.Int); got.Sign() != 0 {
		t.Errorf("expected zero minimum output, got %s", got)
	}
}

func TestNewSwapperRejectsInvalidAddress(t *testing.T) {
	_, err := NewSwapper("not-an-address", &fakeClient{}, logger.NewNop())
	if !apperror.IsCode(err, apperror.CodeInvalidAddress) {
		t.Errorf("expected CodeInvalidAddress, got %v", err)
	}
}
