// Package erc20 implements the Token port against an ERC20 contract.
package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/ncoria/txflow/business/chain/app"
	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue/app"
	"github.com/ncoria/txflow/business/venue/infra/contracts"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

const (
	tracerName = "erc20"
	meterName  = "erc20"
)

// Ensure Token implements the port.
var _ app.Token = (*Token)(nil)

// Token binds one ERC20 contract address to a chain client.
type Token struct {
	address common.Address
	abi     abi.ABI
	client  chainapp.ChainClient
	logger  logger.LoggerInterface

	tracer    trace.Tracer
	approvals metric.Int64Counter
}

// NewToken creates a Token for the contract at address. The address is
// validated eagerly.
func NewToken(address string, client chainapp.ChainClient, log logger.LoggerInterface) (*Token, error) {
	addr, err := chaindomain.ValidateAddress(address)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidAddress, apperror.WithCause(err))
	}

	contractABI, err := contracts.Get(contracts.ERC20Coin)
	if err != nil {
		return nil, err
	}

	approvals, err := otel.Meter(meterName).Int64Counter(
		"venue_approvals_total",
		metric.WithDescription("Total approval transactions by outcome"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, err
	}

	return &Token{
		address:   addr,
		abi:       contractABI,
		client:    client,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		approvals: approvals,
	}, nil
}

// Address returns the token contract's address.
func (t *Token) Address() common.Address {
	return t.address
}

// Approve grants spender an allowance of amount and verifies the transaction.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (chaindomain.TransactionResult, error) {
	ctx, span := t.tracer.Start(ctx, "erc20.approve",
		trace.WithAttributes(
			attribute.String("token", t.address.Hex()),
			attribute.String("spender", spender.Hex()),
		),
	)
	defer span.End()

	if amount == nil || amount.Sign() < 0 {
		return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeUnverified},
			apperror.New(apperror.CodeApprovalFailed,
				apperror.WithContext("amount must be non-negative"))
	}

	data, err := t.abi.Pack("approve", spender, amount)
	if err != nil {
		return chaindomain.TransactionResult{Outcome: chaindomain.OutcomeUnverified},
			apperror.New(apperror.CodeApprovalFailed, apperror.WithCause(err))
	}

	result, err := t.client.SubmitCall(ctx, t.address, data)
	if err != nil {
		return result, err
	}

	t.approvals.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", result.Outcome.String())))
	t.logger.Info(ctx, "approval settled",
		"token", t.address.Hex(), "spender", spender.Hex(), "outcome", result.Outcome.String())

	return result, nil
}
