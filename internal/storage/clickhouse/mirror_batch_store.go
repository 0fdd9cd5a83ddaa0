package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/observability"
	"mirrorvault/internal/storage"
)

// MirrorBatchStore stores the analytical copy of settled mirror batches.
// It satisfies the engine's analytics sink.
type MirrorBatchStore struct {
	conn *Conn
}

// NewMirrorBatchStore creates a new MirrorBatchStore.
func NewMirrorBatchStore(conn *Conn) *MirrorBatchStore {
	return &MirrorBatchStore{conn: conn}
}

// InsertBatch adds a settled batch record. Returns ErrDuplicateKey if the
// batch ID was already inserted (MergeTree does not deduplicate for us).
func (s *MirrorBatchStore) InsertBatch(ctx context.Context, r *domain.TradeRecord) error {
	exists, err := s.exists(ctx, r.BatchID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	amountIn, err := parseUint256("trader_amount_in", r.TraderAmountIn)
	if err != nil {
		return err
	}
	copied, err := parseUint256("total_copied", r.TotalCopied)
	if err != nil {
		return err
	}
	fees, err := parseUint256("total_fees", r.TotalFees)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mirror_batches (
			batch_id, trader_vault_id, token_in, token_out,
			trader_amount_in, total_copied, total_fees,
			follower_count, timestamp_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err = s.conn.Exec(ctx, query,
		r.BatchID, r.TraderVaultID, r.TokenIn, r.TokenOut,
		amountIn, copied, fees,
		uint32(r.FollowerCount), r.Timestamp, r.CreatedAt,
	)
	observability.RecordDBQuery("clickhouse", "mirror_batch_insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("insert mirror batch: %w", err)
	}
	return nil
}

// InsertBulk adds multiple batch records in one driver batch.
func (s *MirrorBatchStore) InsertBulk(ctx context.Context, records []*domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO mirror_batches (
			batch_id, trader_vault_id, token_in, token_out,
			trader_amount_in, total_copied, total_fees,
			follower_count, timestamp_ms, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		amountIn, err := parseUint256("trader_amount_in", r.TraderAmountIn)
		if err != nil {
			return err
		}
		copied, err := parseUint256("total_copied", r.TotalCopied)
		if err != nil {
			return err
		}
		fees, err := parseUint256("total_fees", r.TotalFees)
		if err != nil {
			return err
		}

		err = batch.Append(
			r.BatchID, r.TraderVaultID, r.TokenIn, r.TokenOut,
			amountIn, copied, fees,
			uint32(r.FollowerCount), r.Timestamp, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "mirror_batch_bulk_insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTrader retrieves all batch records for a trader vault in settlement order.
func (s *MirrorBatchStore) GetByTrader(ctx context.Context, traderVaultID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT
			batch_id, trader_vault_id, token_in, token_out,
			trader_amount_in, total_copied, total_fees,
			follower_count, timestamp_ms, created_at
		FROM mirror_batches
		WHERE trader_vault_id = ?
		ORDER BY timestamp_ms ASC, batch_id ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, traderVaultID)
	observability.RecordDBQuery("clickhouse", "mirror_batch_by_trader", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by trader: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// TotalsByTrader aggregates batch count, copied volume, and fees per trader.
func (s *MirrorBatchStore) TotalsByTrader(ctx context.Context) ([]*domain.TraderBatchTotals, error) {
	query := `
		SELECT
			trader_vault_id,
			count() AS batch_count,
			sum(total_copied) AS total_copied,
			sum(total_fees) AS total_fees
		FROM mirror_batches
		GROUP BY trader_vault_id
		ORDER BY trader_vault_id ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query)
	observability.RecordDBQuery("clickhouse", "mirror_batch_totals", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []*domain.TraderBatchTotals
	for rows.Next() {
		var (
			t            domain.TraderBatchTotals
			copied, fees big.Int
		)
		if err := rows.Scan(&t.TraderVaultID, &t.BatchCount, &copied, &fees); err != nil {
			return nil, fmt.Errorf("scan totals row: %w", err)
		}
		t.TotalCopied = copied.String()
		t.TotalFees = fees.String()
		totals = append(totals, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals rows: %w", err)
	}
	return totals, nil
}

// exists checks if a batch record with the given ID exists.
func (s *MirrorBatchStore) exists(ctx context.Context, batchID string) (bool, error) {
	query := `SELECT count(*) FROM mirror_batches WHERE batch_id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, batchID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTradeRecords scans multiple rows into a slice.
func scanTradeRecords(rows chRows) ([]*domain.TradeRecord, error) {
	var records []*domain.TradeRecord

	for rows.Next() {
		var (
			r                      domain.TradeRecord
			amountIn, copied, fees big.Int
			followerCount          uint32
		)
		err := rows.Scan(
			&r.BatchID, &r.TraderVaultID, &r.TokenIn, &r.TokenOut,
			&amountIn, &copied, &fees,
			&followerCount, &r.Timestamp, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		r.TraderAmountIn = amountIn.String()
		r.TotalCopied = copied.String()
		r.TotalFees = fees.String()
		r.FollowerCount = int(followerCount)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}

	return records, nil
}

// parseUint256 converts a decimal string amount into the driver's UInt256 form.
func parseUint256(column, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s is not a valid unsigned amount: %q", storage.ErrInvalidInput, column, value)
	}
	return n, nil
}
