// Package domain contains the core domain types for the chain context.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultGasLimit is applied when a caller does not supply a gas limit.
const DefaultGasLimit uint64 = 400000

// TransactionOutcome classifies the terminal state of a submitted transaction.
// Unverified means the receipt could not be observed within the timeout; it is
// an ambiguous state, not a failure.
type TransactionOutcome int

const (
	OutcomeFailure    TransactionOutcome = 0
	OutcomeSuccess    TransactionOutcome = 1
	OutcomeUnverified TransactionOutcome = -1
)

func (o TransactionOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeUnverified:
		return "unverified"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// GasFees holds the EIP-1559 fee pair for one transaction.
type GasFees struct {
	PriorityFee *big.Int // maxPriorityFeePerGas
	MaxFee      *big.Int // maxFeePerGas
}

// NewGasFees derives the fee pair from the latest base fee and the priority
// fee estimate: maxFee = 2*baseFee + priorityFee.
func NewGasFees(baseFee, priorityFee *big.Int) GasFees {
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, priorityFee)

	return GasFees{
		PriorityFee: new(big.Int).Set(priorityFee),
		MaxFee:      maxFee,
	}
}

// TxOverrides carries caller-supplied transaction fields. Nil fields are
// resolved from live chain state by the builder.
type TxOverrides struct {
	Nonce                *uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              *big.Int
	Value                *big.Int
	GasLimit             uint64
	To                   *common.Address
	Data                 []byte
}

// TransactionSpec is a fully resolved set of unsigned transaction fields.
// The builder guarantees nonce, both fee fields, and chain id are populated
// before the spec reaches the signer; a spec is never partially resolved.
type TransactionSpec struct {
	Nonce                uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              *big.Int
	Value                *big.Int
	GasLimit             uint64
	To                   *common.Address
	Data                 []byte
}

// Validate checks the spec shape after resolution.
func (s *TransactionSpec) Validate() error {
	if s.MaxFeePerGas == nil {
		return fmt.Errorf("maxFeePerGas is not resolved")
	}
	if s.MaxPriorityFeePerGas == nil {
		return fmt.Errorf("maxPriorityFeePerGas is not resolved")
	}
	if s.ChainID == nil {
		return fmt.Errorf("chainId is not resolved")
	}
	if s.MaxFeePerGas.Sign() < 0 || s.MaxPriorityFeePerGas.Sign() < 0 {
		return fmt.Errorf("fee fields cannot be negative")
	}
	if s.MaxFeePerGas.Cmp(s.MaxPriorityFeePerGas) < 0 {
		return fmt.Errorf("maxFeePerGas below maxPriorityFeePerGas")
	}
	if s.Value != nil && s.Value.Sign() < 0 {
		return fmt.Errorf("value cannot be negative")
	}
	if s.GasLimit == 0 {
		return fmt.Errorf("gas limit is not resolved")
	}
	return nil
}

// TransactionResult is the immutable outcome of one submission attempt. The
// hash is populated even when the outcome is Unverified so the transaction
// can be looked up manually later.
type TransactionResult struct {
	Outcome TransactionOutcome
	Hash    common.Hash
}
