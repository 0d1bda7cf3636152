// Package ethereum implements the chain client against a JSON-RPC node
// using go-ethereum.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/cache"
	"github.com/ncoria/txflow/internal/circuitbreaker"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/ratelimit"
	"github.com/ncoria/txflow/internal/retry"
)

const (
	tracerName = "github.com/ncoria/txflow/business/chain/infra/ethereum"
	meterName  = "github.com/ncoria/txflow/business/chain/infra/ethereum"
)

// Backend is the low-level RPC contract the node consumes, implemented by
// *ethclient.Client.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer opens a Backend for an endpoint. Swappable in tests.
type Dialer func(ctx context.Context, endpoint string) (Backend, error)

func defaultDialer(ctx context.Context, endpoint string) (Backend, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// NodeConfig holds configuration for one node connection.
type NodeConfig struct {
	Endpoint       string
	ConnectRetries int           // additional connect attempts after the first
	ConnectBackoff time.Duration // fixed delay between connect attempts
	ReceiptTimeout time.Duration // how long to wait for a receipt before Unverified
	GasFeeTTL      time.Duration // how long a derived fee pair stays fresh
	PollRate       float64       // height queries per second allowed
}

// DefaultNodeConfig returns the defaults used by both programs.
func DefaultNodeConfig(endpoint string) NodeConfig {
	return NodeConfig{
		Endpoint:       endpoint,
		ConnectRetries: 5,
		ConnectBackoff: time.Second,
		ReceiptTimeout: 120 * time.Second,
		GasFeeTTL:      12 * time.Second, // ~1 block
		PollRate:       20,
	}
}

// nodeMetrics holds OTEL metric instruments.
type nodeMetrics struct {
	txSubmitted     metric.Int64Counter
	txOutcomes      metric.Int64Counter
	receiptWait     metric.Float64Histogram
	rpcErrors       metric.Int64Counter
	connectionState metric.Int64Gauge
}

// Node implements app.ChainClient for one RPC endpoint. A Node is used by at
// most one logical task at a time by construction; the mutex only guards the
// backend pointer across Connect/Close.
type Node struct {
	config NodeConfig
	logger logger.LoggerInterface

	dialer    Dialer
	backend   Backend
	backendMu sync.RWMutex

	key     *ecdsa.PrivateKey
	address common.Address

	state   domain.ConnectionState
	stateMu sync.RWMutex

	feeCache *cache.Cache[string, domain.GasFees]
	limiter  *ratelimit.Limiter
	readCB   *circuitbreaker.CircuitBreaker[uint64]
	callCB   *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *nodeMetrics
}

// NewNode creates a Node for the endpoint. The private key is validated
// eagerly; a malformed key aborts construction.
func NewNode(cfg NodeConfig, privateKeyHex string, log logger.LoggerInterface) (*Node, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidPrivateKey, apperror.WithCause(err))
	}

	n := &Node{
		config:   cfg,
		logger:   log,
		dialer:   defaultDialer,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		state:    domain.StateDisconnected,
		feeCache: cache.New[string, domain.GasFees](time.Minute),
		limiter:  ratelimit.NewWithBurst(cfg.PollRate, 1),
		tracer:   otel.Tracer(tracerName),
	}

	if err := n.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	n.initCircuitBreakers()

	return n, nil
}

// WithDialer overrides the backend dialer. Used in tests.
func (n *Node) WithDialer(d Dialer) *Node {
	n.dialer = d
	return n
}

func (n *Node) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	n.metrics = &nodeMetrics{}

	n.metrics.txSubmitted, err = meter.Int64Counter(
		"chain_tx_submitted_total",
		metric.WithDescription("Total transactions broadcast"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	n.metrics.txOutcomes, err = meter.Int64Counter(
		"chain_tx_outcomes_total",
		metric.WithDescription("Transaction outcomes by classification"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	n.metrics.receiptWait, err = meter.Float64Histogram(
		"chain_receipt_wait_ms",
		metric.WithDescription("Time spent waiting for transaction receipts"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	n.metrics.rpcErrors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Total RPC errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	n.metrics.connectionState, err = meter.Int64Gauge(
		"chain_connection_state",
		metric.WithDescription("Connection state (0=disconnected, 1=connecting, 2=connected)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	return nil
}

func (n *Node) initCircuitBreakers() {
	readCfg := circuitbreaker.DefaultConfig("node-read")
	readCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		n.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	n.readCB = circuitbreaker.New[uint64](readCfg)

	callCfg := circuitbreaker.DefaultConfig("node-call")
	callCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		n.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	n.callCB = circuitbreaker.New[[]byte](callCfg)
}

// Connect dials the endpoint and verifies it answers, retrying with a fixed
// backoff. Exhaustion is fatal: the caller cannot proceed unconnected.
func (n *Node) Connect(ctx context.Context) error {
	ctx, span := n.tracer.Start(ctx, "node.connect",
		trace.WithAttributes(attribute.String("endpoint", n.config.Endpoint)),
	)
	defer span.End()

	n.setState(domain.StateConnecting)

	connected := retry.Until(ctx, n.config.ConnectRetries, n.config.ConnectBackoff, func(ctx context.Context) bool {
		if err := n.tryConnect(ctx); err != nil {
			n.logger.Warn(ctx, "node connection failed, retrying", "endpoint", n.config.Endpoint, "error", err)
			return false
		}
		return true
	})

	if !connected {
		n.setState(domain.StateDisconnected)
		span.SetStatus(codes.Error, "connect exhausted")
		return apperror.New(apperror.CodeConnectionFailed,
			apperror.WithContext(n.config.Endpoint))
	}

	n.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "connected")
	n.logger.Info(ctx, "node connected", "endpoint", n.config.Endpoint, "address", n.address.Hex())

	return nil
}

// tryConnect dials and probes the endpoint. Dialing alone is lazy for HTTP
// transports, so the chain id query doubles as the handshake.
func (n *Node) tryConnect(ctx context.Context) error {
	backend, err := n.dialer(ctx, n.config.Endpoint)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	if _, err := backend.ChainID(ctx); err != nil {
		backend.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	n.backendMu.Lock()
	if n.backend != nil {
		n.backend.Close()
	}
	n.backend = backend
	n.backendMu.Unlock()

	return nil
}

func (n *Node) getBackend() (Backend, error) {
	n.backendMu.RLock()
	defer n.backendMu.RUnlock()

	if n.backend == nil {
		return nil, apperror.New(apperror.CodeConnectionFailed,
			apperror.WithContext("node not connected"))
	}
	return n.backend, nil
}

// Address returns the signing account's address.
func (n *Node) Address() common.Address {
	return n.address
}

// BlockNumber returns the current chain height, throttled by the poll limiter.
func (n *Node) BlockNumber(ctx context.Context) (uint64, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	backend, err := n.getBackend()
	if err != nil {
		return 0, err
	}

	number, err := n.readCB.Execute(func() (uint64, error) {
		return backend.BlockNumber(ctx)
	})
	if err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		return 0, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("block number query"))
	}

	return number, nil
}

// LatestBlock retrieves the most recent block header.
func (n *Node) LatestBlock(ctx context.Context) (*domain.Block, error) {
	backend, err := n.getBackend()
	if err != nil {
		return nil, err
	}

	header, err := backend.HeaderByNumber(ctx, nil) // nil = latest
	if err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		return nil, apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext("latest block query"))
	}

	return &domain.Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		BaseFee:   header.BaseFee,
		Timestamp: time.Unix(int64(header.Time), 0),
	}, nil
}

// CallContract performs a read-only contract call.
func (n *Node) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	backend, err := n.getBackend()
	if err != nil {
		return nil, err
	}

	result, err := n.callCB.Execute(func() ([]byte, error) {
		return backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		n.metrics.rpcErrors.Add(ctx, 1)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(to.Hex()))
	}

	return result, nil
}

// SendNative builds and submits a native-coin transfer.
func (n *Node) SendNative(ctx context.Context, amountWei *big.Int, to common.Address) (domain.TransactionResult, error) {
	spec, err := n.BuildTransaction(ctx, domain.TxOverrides{
		To:    &to,
		Value: amountWei,
	})
	if err != nil {
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified}, err
	}

	return n.Submit(ctx, spec)
}

// SubmitCall builds and submits a state-changing contract call.
func (n *Node) SubmitCall(ctx context.Context, to common.Address, data []byte) (domain.TransactionResult, error) {
	spec, err := n.BuildTransaction(ctx, domain.TxOverrides{
		To:   &to,
		Data: data,
	})
	if err != nil {
		return domain.TransactionResult{Outcome: domain.OutcomeUnverified}, err
	}

	return n.Submit(ctx, spec)
}

// State returns the current connection state.
func (n *Node) State() domain.ConnectionState {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.state
}

// Close releases the backend connection.
func (n *Node) Close() error {
	n.backendMu.Lock()
	if n.backend != nil {
		n.backend.Close()
		n.backend = nil
	}
	n.backendMu.Unlock()

	n.feeCache.Close()
	n.setState(domain.StateDisconnected)

	return nil
}

func (n *Node) setState(state domain.ConnectionState) {
	n.stateMu.Lock()
	n.state = state
	n.stateMu.Unlock()

	stateValue := int64(0)
	switch state {
	case domain.StateConnecting:
		stateValue = 1
	case domain.StateConnected:
		stateValue = 2
	}

	n.metrics.connectionState.Record(context.Background(), stateValue)
}
