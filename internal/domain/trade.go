package domain

// TraderBatchTotals aggregates settled batches for one trader vault.
type TraderBatchTotals struct {
	TraderVaultID string
	BatchCount    uint64
	TotalCopied   string // summed follower scaled amounts in base units
	TotalFees     string // summed performance fees in tokenOut units
}

// TradeRecord is the audit record emitted once per mirror batch.
// Corresponds to trade_records table in PostgreSQL.
type TradeRecord struct {
	BatchID        string // deterministic sha256 hex, see idhash.ComputeBatchID
	TraderVaultID  string // base58 trader vault address
	TokenIn        string // token sold by the trader
	TokenOut       string // token bought by the trader
	TraderAmountIn string // trader trade size in base units
	TotalCopied    string // sum of follower scaled amounts in base units
	TotalFees      string // sum of follower performance fees in tokenOut units
	FollowerCount  int    // number of followers that executed in the batch
	Timestamp      int64  // batch execution time, Unix ms
	CreatedAt      int64  // record creation timestamp (ms)
}
