package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is the slice of an Ethereum block header the workflows care about.
type Block struct {
	Number    uint64
	Hash      common.Hash
	BaseFee   *big.Int
	Timestamp time.Time
}

// ConnectionState represents the state of a node connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)
