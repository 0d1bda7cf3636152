// Package contracts holds the ABI registry for the venue contracts.
package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/ncoria/txflow/internal/apperror"
)

// Registry names.
const (
	ERC20Coin   = "coin_erc20"
	UniswapPool = "swap_uniswap"
	CurvePool   = "swap_curve"
)

// ERC20ABI covers the approve entrypoint used by the workflows.
const ERC20ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [
			{"internalType": "bool", "name": "", "type": "bool"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// UniswapRouterABI covers exactInputSingle on a V3-style router.
const UniswapRouterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct ISwapRouter.ExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "exactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// CurvePoolABI covers the slot reads and the exchange entrypoint of a
// StableSwap-style pool.
const CurvePoolABI = `[
	{
		"inputs": [],
		"name": "N_COINS",
		"outputs": [
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "arg0", "type": "uint256"}
		],
		"name": "coins",
		"outputs": [
			{"internalType": "address", "name": "", "type": "address"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "int128", "name": "i", "type": "int128"},
			{"internalType": "int128", "name": "j", "type": "int128"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"}
		],
		"name": "get_dy",
		"outputs": [
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "int128", "name": "i", "type": "int128"},
			{"internalType": "int128", "name": "j", "type": "int128"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"},
			{"internalType": "uint256", "name": "min_dy", "type": "uint256"}
		],
		"name": "exchange",
		"outputs": [
			{"internalType": "uint256", "name": "", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var sources = map[string]string{
	ERC20Coin:   ERC20ABI,
	UniswapPool: UniswapRouterABI,
	CurvePool:   CurvePoolABI,
}

var (
	parsedMu sync.Mutex
	parsed   = map[string]abi.ABI{}
)

// Get returns the named ABI, parsing it on first use. An unknown name is a
// configuration error for the caller.
func Get(name string) (abi.ABI, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()

	if a, ok := parsed[name]; ok {
		return a, nil
	}

	src, ok := sources[name]
	if !ok {
		return abi.ABI{}, apperror.New(apperror.CodeABINotFound, apperror.WithContext(name))
	}

	a, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		return abi.ABI{}, apperror.New(apperror.CodeABINotFound,
			apperror.WithCause(err),
			apperror.WithContext(name))
	}

	parsed[name] = a
	return a, nil
}
