package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/observability"
	"mirrorvault/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	batch_id, trader_vault_id, token_in, token_out,
	trader_amount_in::text, total_copied::text, total_fees::text,
	follower_count, timestamp_ms, created_at
`

// Insert adds a new batch audit record. Returns ErrDuplicateKey if batch_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.BatchID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (
			batch_id, trader_vault_id, token_in, token_out,
			trader_amount_in, total_copied, total_fees,
			follower_count, timestamp_ms, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric,
			$8, $9, $10
		)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		t.BatchID, t.TraderVaultID, t.TokenIn, t.TokenOut,
		t.TraderAmountIn, t.TotalCopied, t.TotalFees,
		t.FollowerCount, t.Timestamp, t.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "trade_record_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its batch ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, batchID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE batch_id = $1`

	row := s.pool.QueryRow(ctx, query, batchID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByTrader retrieves all records for a trader vault, ordered by timestamp ASC.
func (s *TradeRecordStore) GetByTrader(ctx context.Context, traderVaultID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE trader_vault_id = $1
		ORDER BY timestamp_ms ASC, batch_id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, traderVaultID)
	observability.RecordDBQuery("postgres", "trade_record_by_trader", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get trade records by trader: %w", err)
	}
	defer rows.Close()

	var records []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}
	return records, nil
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord

	err := row.Scan(
		&t.BatchID, &t.TraderVaultID, &t.TokenIn, &t.TokenOut,
		&t.TraderAmountIn, &t.TotalCopied, &t.TotalFees,
		&t.FollowerCount, &t.Timestamp, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
