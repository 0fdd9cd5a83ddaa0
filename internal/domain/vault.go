package domain

// VaultKind discriminates trader vaults from follower vaults.
type VaultKind string

// Vault kind constants
const (
	VaultKindTrader   VaultKind = "trader"
	VaultKindFollower VaultKind = "follower"
)

// VaultState is the durable snapshot of a single vault's ledger.
// Corresponds to the vault_states table in PostgreSQL. Amounts are
// stored as decimal strings because they are unsigned 256-bit integers
// in base units and must round-trip without precision loss.
type VaultState struct {
	VaultID          string            // base58 vault address
	Kind             VaultKind         // "trader" | "follower"
	Owner            string            // base58 owner address
	BaseToken        string            // settlement asset identifier
	Balances         map[string]string // token -> balance in base units
	TotalDeposits    string            // cumulative base-token deposits
	TotalWithdrawals string            // cumulative base-token withdrawals
	HighWaterMark    string            // max portfolio value ever observed
	UpdatedAt        int64             // Unix timestamp in milliseconds
}
