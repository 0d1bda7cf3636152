package uniswap

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue/infra/contracts"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

const routerAddress = "0xE592427A0AEce92De3Edee1F18E0157C05861564"

var (
	sellCoin = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	buyCoin  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	signer   = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

type fakeClient struct {
	submits [][]byte
}

func (f *fakeClient) Address() common.Address { return signer }

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
	return nil, nil
}

func (f *fakeClient) SubmitCall(ctx context.Context, to common.Address, data []byte) (chaindomain.TransactionResult, error) {
	f.submits = append(f.submits, data)
	return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeSuccess}, nil
}

func (f *fakeClient) State() chaindomain.ConnectionState { return chaindomain.StateConnected }

func (f *fakeClient) Close() error { return nil }

// decodeParams unpacks a submitted exactInputSingle call back into the
// params struct.
func decodeParams(t *testing.T, data []byte) exactInputSingleParams {
	t.Helper()

	routerABI, err := contracts.Get(contracts.UniswapPool)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	method := routerABI.Methods["exactInputSingle"]
	if !bytes.Equal(data[:4], method.ID) {
		t.Fatal("submitted call is not exactInputSingle")
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	return *abi.ConvertType(args[0], new(exactInputSingleParams)).(*exactInputSingleParams)
}

func TestSwapBuildsExactInputSingleCall(t *testing.T) {
	client := &fakeClient{}
	swapper, err := NewSwapper(routerAddress, client, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSwapper: %v", err)
	}

	result, err := swapper.Swap(context.Background(), sellCoin, buyCoin, big.NewInt(1000))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if result.Outcome != chaindomain.OutcomeSuccess {
		t.Errorf("expected success, got %v", result.Outcome)
	}
	if len(client.submits) != 1 {
		t.Fatalf("expected 1 submitted swap, got %d", len(client.submits))
	}

	params := decodeParams(t, client.submits[0])

	if params.TokenIn != sellCoin {
		t.Errorf("unexpected tokenIn %s", params.TokenIn)
	}
	if params.TokenOut != buyCoin {
		t.Errorf("unexpected tokenOut %s", params.TokenOut)
	}
	if params.Fee.Int64() != 100 {
		t.Errorf("expected default fee tier 100, got %s", params.Fee)
	}
	if params.Recipient != signer {
		t.Errorf("expected signing account as recipient, got %s", params.Recipient)
	}
	if params.AmountIn.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("unexpected amountIn %s", params.AmountIn)
	}
	if params.AmountOutMinimum.Sign() != 0 {
		t.Errorf("expected zero minimum output, got %s", params.AmountOutMinimum)
	}
	if params.SqrtPriceLimitX96.Sign() != 0 {
		t.Errorf("expected no price limit, got %s", params.SqrtPriceLimitX96)
	}
}

func TestSwapRejectsInvalidOrder(t *testing.T) {
	client := &fakeClient{}
	swapper, err := NewSwapper(routerAddress, client, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSwapper: %v", err)
	}

	tests := []struct {
		name   string
		sell   common.Address
		buy    common.Address
		amount *big.Int
	}{
		{"same coin both sides", sellCoin, sellCoin, big.NewInt(1000)},
		{"zero amount", sellCoin, buyCoin, big.NewInt(0)},
		{"negative amount", sellCoin, buyCoin, big.NewInt(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := swapper.Swap(context.Background(), tt.sell, tt.buy, tt.amount)
			if !apperror.IsCode(err, apperror.CodeSwapBuildFailed) {
				t.Errorf("expected CodeSwapBuildFailed, got %v", err)
			}
		})
	}

	if len(client.submits) != 0 {
		t.Errorf("invalid orders must not be submitted, got %d submissions", len(client.submits))
	}
}

func TestSwapHonorsFeeOverride(t *testing.T) {
	client := &fakeClient{}
	swapper, err := NewSwapper(routerAddress, client, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSwapper: %v", err)
	}
	swapper.WithFee(3000)

	if _, err := swapper.Swap(context.Background(), sellCoin, buyCoin, big.NewInt(1000)); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	params := decodeParams(t, client.submits[0])
	if params.Fee.Int64() != 3000 {
		t.Errorf("expected fee tier 3000, got %s", params.Fee)
	}
}

func TestNewSwapperRejectsInvalidAddress(t *testing.T) {
	_, err := NewSwapper("0xnope", &fakeClient{}, logger.NewNop())
	if !apperror.IsCode(err, apperror.CodeInvalidAddress) {
		t.Errorf("expected CodeInvalidAddress, got %v", err)
	}
}
