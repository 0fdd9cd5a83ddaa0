package reporting

import "time"

// Report summarizes protocol state: vaults, subscriptions, and settled batches.
type Report struct {
	// Metadata
	GeneratedAt       time.Time
	TraderCount       int
	FollowerCount     int
	SubscriptionCount int

	// Data Summary
	Summary Summary

	// Vault balances (sorted by vault_id)
	VaultRows []VaultRow

	// Settled batches (sorted by timestamp, batch_id)
	BatchRows []BatchRow

	// Collected fees by token (sorted by token)
	FeeRows []FeeRow
}

// Summary contains protocol-wide totals.
type Summary struct {
	TotalVaults    int
	TotalBatches   int
	TotalCopied    string // summed across batches, base units
	TotalFees      string // summed across batches, tokenOut units
	DateRangeStart int64  // Unix ms, zero when no batches settled
	DateRangeEnd   int64  // Unix ms
}

// VaultRow represents one vault in the balances table.
type VaultRow struct {
	VaultID          string
	Kind             string
	Owner            string
	BaseToken        string
	BaseBalance      string
	TotalDeposits    string
	TotalWithdrawals string
	HighWaterMark    string
}

// BatchRow represents one settled mirror batch.
type BatchRow struct {
	BatchID        string
	TraderVaultID  string
	TokenIn        string
	TokenOut       string
	TraderAmountIn string
	TotalCopied    string
	TotalFees      string
	FollowerCount  int
	Timestamp      int64
}

// FeeRow represents collected fees for one token.
type FeeRow struct {
	Token  string
	Amount string
}
