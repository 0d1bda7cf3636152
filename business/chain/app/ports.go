// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ncoria/txflow/business/chain/domain"
)

// ChainClient is the node surface the workflows and venue contracts consume:
// chain queries, transaction building, and the full sign-submit-verify
// lifecycle for one endpoint.
type ChainClient interface {
	// Address returns the signing account's checksummed address.
	Address() common.Address

	// BlockNumber returns the current chain height.
	BlockNumber(ctx context.Context) (uint64, error)

	// LatestBlock retrieves the most recent block header.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// BuildTransaction resolves overrides into a complete spec using live
	// chain state for any absent field.
	BuildTransaction(ctx context.Context, overrides domain.TxOverrides) (domain.TransactionSpec, error)

	// Submit signs, broadcasts, and verifies a spec. Exactly one broadcast
	// per call; an unobservable receipt yields OutcomeUnverified, not an error.
	Submit(ctx context.Context, spec domain.TransactionSpec) (domain.TransactionResult, error)

	// SendNative builds and submits a native-coin transfer of amountWei.
	SendNative(ctx context.Context, amountWei *big.Int, to common.Address) (domain.TransactionResult, error)

	// CallContract performs a read-only contract call.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// SubmitCall builds and submits a state-changing contract call with the
	// given calldata.
	SubmitCall(ctx context.Context, to common.Address, data []byte) (domain.TransactionResult, error)

	// State returns the current connection state.
	State() domain.ConnectionState

	// Close releases the underlying connection.
	Close() error
}
