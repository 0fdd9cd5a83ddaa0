package reporting

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mirrorvault/internal/domain"
	"mirrorvault/internal/storage"
)

// FeeSource exposes collected fee totals by token. Satisfied by the vault
// package's FeeCollector.
type FeeSource interface {
	Totals() map[string]*big.Int
}

// Generator produces reports from stored protocol state.
type Generator struct {
	vaultStore        storage.VaultStateStore
	subscriptionStore storage.SubscriptionStore
	tradeRecordStore  storage.TradeRecordStore
	fees              FeeSource
	decimals          map[string]int32 // token decimals for display rendering
	now               func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. fees may be nil when no
// collector is wired.
func NewGenerator(
	vaultStore storage.VaultStateStore,
	subscriptionStore storage.SubscriptionStore,
	tradeStore storage.TradeRecordStore,
	fees FeeSource,
) *Generator {
	return &Generator{
		vaultStore:        vaultStore,
		subscriptionStore: subscriptionStore,
		tradeRecordStore:  tradeStore,
		fees:              fees,
		decimals:          map[string]int32{},
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTokenDecimals sets per-token decimals used to render base-unit amounts.
// Tokens without an entry render raw.
func (g *Generator) WithTokenDecimals(decimals map[string]int32) *Generator {
	g.decimals = decimals
	return g
}

// Generate produces a complete protocol report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	states, err := g.vaultStore.List(ctx)
	if err != nil {
		return nil, err
	}

	subscriptions, err := g.subscriptionStore.List(ctx)
	if err != nil {
		return nil, err
	}

	batches, err := g.loadBatches(ctx, states)
	if err != nil {
		return nil, err
	}

	traderCount, followerCount := 0, 0
	for _, s := range states {
		switch s.Kind {
		case domain.VaultKindTrader:
			traderCount++
		case domain.VaultKindFollower:
			followerCount++
		}
	}

	return &Report{
		GeneratedAt:       g.now(),
		TraderCount:       traderCount,
		FollowerCount:     followerCount,
		SubscriptionCount: len(subscriptions),
		Summary:           g.generateSummary(states, batches),
		VaultRows:         g.generateVaultRows(states),
		BatchRows:         g.generateBatchRows(batches),
		FeeRows:           g.generateFeeRows(),
	}, nil
}

// loadBatches collects the batch records of every trader vault.
func (g *Generator) loadBatches(ctx context.Context, states []*domain.VaultState) ([]*domain.TradeRecord, error) {
	var batches []*domain.TradeRecord
	for _, s := range states {
		if s.Kind != domain.VaultKindTrader {
			continue
		}
		records, err := g.tradeRecordStore.GetByTrader(ctx, s.VaultID)
		if err != nil {
			return nil, err
		}
		batches = append(batches, records...)
	}
	return batches, nil
}

func (g *Generator) generateSummary(states []*domain.VaultState, batches []*domain.TradeRecord) Summary {
	copied := new(big.Int)
	fees := new(big.Int)
	var dateRangeStart, dateRangeEnd int64

	for i, b := range batches {
		if n, ok := new(big.Int).SetString(b.TotalCopied, 10); ok {
			copied.Add(copied, n)
		}
		if n, ok := new(big.Int).SetString(b.TotalFees, 10); ok {
			fees.Add(fees, n)
		}
		if i == 0 || b.Timestamp < dateRangeStart {
			dateRangeStart = b.Timestamp
		}
		if b.Timestamp > dateRangeEnd {
			dateRangeEnd = b.Timestamp
		}
	}

	return Summary{
		TotalVaults:    len(states),
		TotalBatches:   len(batches),
		TotalCopied:    copied.String(),
		TotalFees:      fees.String(),
		DateRangeStart: dateRangeStart,
		DateRangeEnd:   dateRangeEnd,
	}
}

func (g *Generator) generateVaultRows(states []*domain.VaultState) []VaultRow {
	rows := make([]VaultRow, len(states))
	for i, s := range states {
		base := s.Balances[s.BaseToken]
		if base == "" {
			base = "0"
		}
		rows[i] = VaultRow{
			VaultID:          s.VaultID,
			Kind:             string(s.Kind),
			Owner:            s.Owner,
			BaseToken:        s.BaseToken,
			BaseBalance:      g.formatAmount(s.BaseToken, base),
			TotalDeposits:    g.formatAmount(s.BaseToken, s.TotalDeposits),
			TotalWithdrawals: g.formatAmount(s.BaseToken, s.TotalWithdrawals),
			HighWaterMark:    g.formatAmount(s.BaseToken, s.HighWaterMark),
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].VaultID < rows[j].VaultID
	})
	return rows
}

func (g *Generator) generateBatchRows(batches []*domain.TradeRecord) []BatchRow {
	rows := make([]BatchRow, len(batches))
	for i, b := range batches {
		rows[i] = BatchRow{
			BatchID:        b.BatchID,
			TraderVaultID:  b.TraderVaultID,
			TokenIn:        b.TokenIn,
			TokenOut:       b.TokenOut,
			TraderAmountIn: g.formatAmount(b.TokenIn, b.TraderAmountIn),
			TotalCopied:    g.formatAmount(b.TokenIn, b.TotalCopied),
			TotalFees:      g.formatAmount(b.TokenOut, b.TotalFees),
			FollowerCount:  b.FollowerCount,
			Timestamp:      b.Timestamp,
		}
	}

	// Sort by (timestamp, batch_id)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp < rows[j].Timestamp
		}
		return rows[i].BatchID < rows[j].BatchID
	})
	return rows
}

func (g *Generator) generateFeeRows() []FeeRow {
	if g.fees == nil {
		return nil
	}

	totals := g.fees.Totals()
	rows := make([]FeeRow, 0, len(totals))
	for token, amount := range totals {
		rows = append(rows, FeeRow{
			Token:  token,
			Amount: g.formatAmount(token, amount.String()),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Token < rows[j].Token
	})
	return rows
}

// formatAmount shifts a base-unit amount by the token's decimals for display.
// Unknown tokens and unparseable amounts render raw.
func (g *Generator) formatAmount(token, raw string) string {
	shift, ok := g.decimals[token]
	if !ok || shift == 0 {
		return raw
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return d.Shift(-shift).String()
}
