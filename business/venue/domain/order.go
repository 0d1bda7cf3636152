// Package domain contains the core domain types for the venue context.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultPoolFee is the fee tier used when the caller does not pick one, in
// hundredths of a bip (0.01%).
const DefaultPoolFee = 100

// ExactInputOrder is a single-hop sell on a fee-tier pool venue. Optional
// fields carry usable defaults from NewExactInputOrder.
type ExactInputOrder struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int // uint24
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int // uint160, 0 for no limit
}

// NewExactInputOrder creates an order with defaults for the optional fields.
func NewExactInputOrder(tokenIn, tokenOut, recipient common.Address, amountIn *big.Int) ExactInputOrder {
	return ExactInputOrder{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(DefaultPoolFee),
		Recipient:         recipient,
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	}
}

// Validate checks the order shape before encoding.
func (o *ExactInputOrder) Validate() error {
	if o.TokenIn == o.TokenOut {
		return fmt.Errorf("tokenIn and tokenOut are the same address")
	}
	if o.AmountIn == nil || o.AmountIn.Sign() <= 0 {
		return fmt.Errorf("amountIn must be positive")
	}
	if o.Fee == nil || o.Fee.Sign() < 0 {
		return fmt.Errorf("fee must be non-negative")
	}
	return nil
}

// IndexedExchangeOrder is a sell on an index-addressed pool venue. Indices
// come from on-chain slot resolution, never from configuration.
type IndexedExchangeOrder struct {
	InIndex      *big.Int
	OutIndex     *big.Int
	EstimatedOut *big.Int
	MinOut       *big.Int
}

// Args returns the order as positional call arguments.
func (o *IndexedExchangeOrder) Args() []any {
	return []any{o.InIndex, o.OutIndex, o.EstimatedOut, o.MinOut}
}

// Validate checks the order shape before encoding.
func (o *IndexedExchangeOrder) Validate() error {
	if o.InIndex == nil || o.OutIndex == nil {
		return fmt.Errorf("pool indices are not resolved")
	}
	if o.InIndex.Cmp(o.OutIndex) == 0 {
		return fmt.Errorf("in and out indices are the same slot")
	}
	if o.EstimatedOut == nil {
		return fmt.Errorf("estimated output is not resolved")
	}
	if o.MinOut == nil || o.MinOut.Sign() < 0 {
		return fmt.Errorf("minimum output must be non-negative")
	}
	return nil
}
