package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// VaultStateStore implements storage.VaultStateStore using PostgreSQL.
type VaultStateStore struct {
	pool *Pool
}

// NewVaultStateStore creates a new VaultStateStore.
func NewVaultStateStore(pool *Pool) *VaultStateStore {
	return &VaultStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VaultStateStore = (*VaultStateStore)(nil)

const vaultStateColumns = `
	vault_id, kind, owner_address, base_token, balances,
	total_deposits::text, total_withdrawals::text, high_water_mark::text,
	updated_at
`

// Save upserts a vault's durable snapshot, keyed by vault_id.
func (s *VaultStateStore) Save(ctx context.Context, state *domain.VaultState) error {
	if state == nil || state.VaultID == "" {
		return storage.ErrInvalidInput
	}

	balances, err := json.Marshal(state.Balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}

	query := `
		INSERT INTO vault_states (
			vault_id, kind, owner_address, base_token, balances,
			total_deposits, total_withdrawals, high_water_mark, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::numeric, $7::numeric, $8::numeric, $9
		)
		ON CONFLICT (vault_id) DO UPDATE SET
			balances          = EXCLUDED.balances,
			total_deposits    = EXCLUDED.total_deposits,
			total_withdrawals = EXCLUDED.total_withdrawals,
			high_water_mark   = EXCLUDED.high_water_mark,
			updated_at        = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		state.VaultID, string(state.Kind), state.Owner, state.BaseToken, balances,
		state.TotalDeposits, state.TotalWithdrawals, state.HighWaterMark, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save vault state: %w", err)
	}
	return nil
}

// Get retrieves a vault snapshot by its ID. Returns ErrNotFound if not exists.
func (s *VaultStateStore) Get(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	query := `SELECT ` + vaultStateColumns + ` FROM vault_states WHERE vault_id = $1`

	row := s.pool.QueryRow(ctx, query, vaultID)
	state, err := scanVaultState(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get vault state: %w", err)
	}
	return state, nil
}

// List retrieves all vault snapshots, ordered by vault_id.
func (s *VaultStateStore) List(ctx context.Context) ([]*domain.VaultState, error) {
	query := `SELECT ` + vaultStateColumns + ` FROM vault_states ORDER BY vault_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vault states: %w", err)
	}
	defer rows.Close()

	var states []*domain.VaultState
	for rows.Next() {
		state, err := scanVaultState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vault state row: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault state rows: %w", err)
	}
	return states, nil
}

// scanVaultState scans a single row into a VaultState.
func scanVaultState(row pgx.Row) (*domain.VaultState, error) {
	var (
		state    domain.VaultState
		kind     string
		balances []byte
	)

	err := row.Scan(
		&state.VaultID, &kind, &state.Owner, &state.BaseToken, &balances,
		&state.TotalDeposits, &state.TotalWithdrawals, &state.HighWaterMark,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Kind = domain.VaultKind(kind)
	if err := json.Unmarshal(balances, &state.Balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	return &state, nil
}
