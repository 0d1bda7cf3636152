package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/ncoria/txflow/business/chain/domain"
)

// ChainService coordinates chain interactions for the workflow programs.
type ChainService struct {
	client ChainClient
}

// NewChainService creates a new ChainService.
func NewChainService(client ChainClient) *ChainService {
	return &ChainService{client: client}
}

// Client exposes the underlying chain client.
func (s *ChainService) Client() ChainClient {
	return s.client
}

// BlockNumber returns the current chain height.
func (s *ChainService) BlockNumber(ctx context.Context) (uint64, error) {
	return s.client.BlockNumber(ctx)
}

// SendEther submits a native transfer of an ether-denominated amount.
func (s *ChainService) SendEther(ctx context.Context, ether decimal.Decimal, to common.Address) (domain.TransactionResult, error) {
	wei := ether.Mul(decimal.New(1, 18)).BigInt()
	return s.client.SendNative(ctx, wei, to)
}

// SendWei submits a native transfer of a wei-denominated amount.
func (s *ChainService) SendWei(ctx context.Context, amount *big.Int, to common.Address) (domain.TransactionResult, error) {
	return s.client.SendNative(ctx, amount, to)
}

// ConnectionState returns the client's connection state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.client.State()
}
