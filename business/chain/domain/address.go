package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks a hex address and returns its checksummed form.
// Validation happens once at construction; downstream code assumes stored
// addresses are already checksum-valid.
func ValidateAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}
	return common.HexToAddress(address), nil
}
