package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidWalletAddress reports whether addr matches ^0x[a-fA-F0-9]{40}$.
func IsValidWalletAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// NormalizeWalletAddress returns the stored form of a wallet address.
func NormalizeWalletAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
