package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeBatchID computes a deterministic batch_id using SHA256.
// Formula: SHA256(trader_vault_id|token_in|token_out|trader_amount_in|timestamp)
// Returns hex-encoded hash (64 characters).
func ComputeBatchID(
	traderVaultID string,
	tokenIn string,
	tokenOut string,
	traderAmountIn string,
	timestamp int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		traderVaultID,
		tokenIn,
		tokenOut,
		traderAmountIn,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
