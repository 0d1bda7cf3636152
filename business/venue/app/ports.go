// Package app contains application services and port definitions for the venue context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	chaindomain "github.com/ncoria/txflow/business/chain/domain"
)

// Token is the ERC20 surface the workflows need: granting a spender an
// allowance over the holder's balance.
type Token interface {
	// Address returns the token contract's address.
	Address() common.Address

	// Approve grants spender an allowance of amount and verifies the
	// transaction on-chain.
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (chaindomain.TransactionResult, error)
}

// Swapper is the venue-contract surface shared by every venue type: sell
// amount of sellCoin for buyCoin through the venue's pool. Each venue
// resolves its own call shape internally.
type Swapper interface {
	// Address returns the swap contract's address.
	Address() common.Address

	// Swap executes the exchange and verifies it on-chain.
	Swap(ctx context.Context, sellCoin, buyCoin common.Address, amount *big.Int) (chaindomain.TransactionResult, error)
}
