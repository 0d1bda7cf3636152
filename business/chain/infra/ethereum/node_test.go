package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/internal/apperror"
	"github.com/ncoria/txflow/internal/logger"
)

func TestNewNodeRejectsMalformedKey(t *testing.T) {
	_, err := NewNode(DefaultNodeConfig("http://localhost:8545"), "not-a-key", logger.NewNop())
	if err == nil {
		t.Fatal("expected error for malformed private key")
	}
	if !apperror.IsCode(err, apperror.CodeInvalidPrivateKey) {
		t.Errorf("expected CodeInvalidPrivateKey, got %v", err)
	}
}

func TestConnectRetriesThenFails(t *testing.T) {
	cfg := DefaultNodeConfig("http://localhost:8545")
	cfg.ConnectRetries = 3
	cfg.ConnectBackoff = time.Millisecond

	node, err := NewNode(cfg, testPrivateKey, logger.NewNop())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	var attempts int
	node.WithDialer(func(ctx context.Context, endpoint string) (Backend, error) {
		attempts++
		return nil, errors.New("connection refused")
	})

	err = node.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	if !apperror.IsCode(err, apperror.CodeConnectionFailed) {
		t.Errorf("expected CodeConnectionFailed, got %v", err)
	}
	// initial attempt plus the configured retries
	if attempts != 4 {
		t.Errorf("expected 4 dial attempts, got %d", attempts)
	}
	if got := node.State(); got != domain.StateDisconnected {
		t.Errorf("expected disconnected state, got %v", got)
	}
}

func TestConnectSucceedsAfterTransientFailures(t *testing.T) {
	cfg := DefaultNodeConfig("http://localhost:8545")
	cfg.ConnectRetries = 5
	cfg.ConnectBackoff = time.Millisecond

	node, err := NewNode(cfg, testPrivateKey, logger.NewNop())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	var attempts int
	node.WithDialer(func(ctx context.Context, endpoint string) (Backend, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return &mockBackend{}, nil
	})

	if err := node.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 dial attempts, got %d", attempts)
	}
	if got := node.State(); got != domain.StateConnected {
		t.Errorf("expected connected state, got %v", got)
	}
}

func TestConnectClosesBackendOnFailedHandshake(t *testing.T) {
	cfg := DefaultNodeConfig("http://localhost:8545")
	cfg.ConnectRetries = 0

	node, err := NewNode(cfg, testPrivateKey, logger.NewNop())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	backend := &mockBackend{
		chainIDFn: func(ctx context.Context) (*big.Int, error) {
			return nil, errors.New("handshake refused")
		},
	}
	node.WithDialer(func(ctx context.Context, endpoint string) (Backend, error) {
		return backend, nil
	})

	if err := node.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail")
	}
	if !backend.closed {
		t.Error("expected backend to be closed after failed handshake")
	}
}

func TestBlockNumberWithoutConnection(t *testing.T) {
	node, err := NewNode(DefaultNodeConfig("http://localhost:8545"), testPrivateKey, logger.NewNop())
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}

	_, err = node.BlockNumber(context.Background())
	if !apperror.IsCode(err, apperror.CodeConnectionFailed) {
		t.Errorf("expected CodeConnectionFailed, got %v", err)
	}
}

func TestLatestBlock(t *testing.T) {
	node := newTestNode(t, &mockBackend{})

	block, err := node.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock: %v", err)
	}
	if block.Number != 100 {
		t.Errorf("expected block 100, got %d", block.Number)
	}
	if block.BaseFee.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Errorf("unexpected base fee %s", block.BaseFee)
	}
}
