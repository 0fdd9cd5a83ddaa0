package domain

// Subscription links a trader vault to one follower vault.
// The relation is append-only and deliberately NOT deduplicated: registering
// the same follower twice yields two entries and double mirroring. This is a
// documented defect surface of the protocol, preserved faithfully and covered
// by an explicit test rather than silently patched.
type Subscription struct {
	ID              int64  // BIGSERIAL primary key, also the registration order
	TraderVaultID   string // base58 trader vault address
	FollowerVaultID string // base58 follower vault address
	CreatedAt       int64  // registration timestamp (ms)
}
