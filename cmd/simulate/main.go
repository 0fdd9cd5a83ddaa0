// Command simulate runs a deterministic copy-trading scenario against the
// in-memory stores and the stub gateway, then writes the protocol report.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"mirrorvault/internal/account"
	"mirrorvault/internal/domain"
	"mirrorvault/internal/engine"
	"mirrorvault/internal/fees"
	"mirrorvault/internal/gateway/stub"
	"mirrorvault/internal/pricing"
	"mirrorvault/internal/reporting"
	"mirrorvault/internal/storage"
	"mirrorvault/internal/storage/memory"
	"mirrorvault/internal/vault"
)

const (
	registrarAddr = "registrar"
	relayerAddr   = "relayer"
	engineAddr    = "engine-core"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failed follower legs instead of aborting the batch")
	flag.Parse()

	ctx := context.Background()

	// Fixed clock for deterministic output
	fixedTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixedTime }
	deadline := fixedTime.Add(time.Minute)

	// Venue: USDC has 6 decimals, SOL has 9, SOL trades at 150 USDC.
	// 1 USDC base unit buys 20/3 SOL base units; 1 SOL base unit is worth
	// 3/20 USDC base units.
	gw := stub.New().WithClock(clock)
	gw.SetRate("USDC", "SOL", 20, 3)
	gw.SetRate("SOL", "USDC", 3, 20)

	prices := pricing.NewStaticSource()
	prices.SetPrice("SOL", 3, 20)

	// Stores and shared collector
	vaultStore := memory.NewVaultStateStore()
	subStore := memory.NewSubscriptionStore()
	tradeStore := memory.NewTradeRecordStore()
	collector := vault.NewFeeCollector()
	schedule := fees.DefaultSchedule()

	eng := engine.New(engine.Config{
		Address:         engineAddr,
		Registrar:       registrarAddr,
		Relayer:         relayerAddr,
		ContinueOnError: *continueOnError,
	}, subStore, tradeStore, vaultStore, nil).WithClock(clock)

	// Vaults: one trader, two followers
	traderID := account.DeriveVaultAddress("alice", "trader", 0)
	trader := vault.NewTraderVault(traderID, "alice", "USDC", gw, prices, schedule, collector)
	eng.AddTrader(trader)

	followerA := vault.NewFollowerVault(account.DeriveVaultAddress("bob", "follower", 0),
		"bob", "USDC", engineAddr, gw, prices, schedule, collector)
	followerB := vault.NewFollowerVault(account.DeriveVaultAddress("carol", "follower", 0),
		"carol", "USDC", engineAddr, gw, prices, schedule, collector)
	eng.AddFollower(followerA)
	eng.AddFollower(followerB)

	if err := runScenario(ctx, eng, trader, followerA, followerB, vaultStore, deadline); err != nil {
		fmt.Fprintf(os.Stderr, "Error running scenario: %v\n", err)
		os.Exit(1)
	}

	// Generate report
	gen := reporting.NewGenerator(vaultStore, subStore, tradeStore, collector).
		WithClock(clock).
		WithTokenDecimals(map[string]int32{"USDC": 6, "SOL": 9})

	report, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := writeOutputs(*outputDir, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing outputs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Simulation report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/MIRROR_BATCHES.csv\n", *outputDir)
}

// runScenario deposits capital, registers the followers, and mirrors two
// trader trades.
func runScenario(ctx context.Context, eng *engine.Engine, trader *vault.TraderVault,
	followerA, followerB *vault.FollowerVault, vaultStore storage.VaultStateStore,
	deadline time.Time) error {
	// Capital in
	if err := trader.Deposit(ctx, usdc(1000)); err != nil {
		return fmt.Errorf("trader deposit: %w", err)
	}
	if err := followerA.Deposit(ctx, usdc(500)); err != nil {
		return fmt.Errorf("follower A deposit: %w", err)
	}
	if err := followerB.Deposit(ctx, usdc(300)); err != nil {
		return fmt.Errorf("follower B deposit: %w", err)
	}

	// Subscriptions
	if _, err := eng.RegisterFollower(ctx, registrarAddr, trader.ID(), followerA.ID()); err != nil {
		return fmt.Errorf("register follower A: %w", err)
	}
	if _, err := eng.RegisterFollower(ctx, registrarAddr, trader.ID(), followerB.ID()); err != nil {
		return fmt.Errorf("register follower B: %w", err)
	}

	// Two trader trades, each mirrored by the relayer
	for _, amount := range []*big.Int{usdc(100), usdc(50)} {
		if _, err := trader.ExecuteSwap(ctx, "alice", "USDC", "SOL", amount, nil, deadline); err != nil {
			return fmt.Errorf("trader swap %s: %w", amount, err)
		}
		if _, err := eng.MirrorTrade(ctx, relayerAddr, trader.ID(), "USDC", "SOL", amount, nil, deadline); err != nil {
			return fmt.Errorf("mirror %s: %w", amount, err)
		}
	}

	// The engine persists mutated followers per batch; the trader is ours to save.
	for _, state := range []*domain.VaultState{trader.State(), followerA.State(), followerB.State()} {
		if err := vaultStore.Save(ctx, state); err != nil {
			return fmt.Errorf("save vault %s: %w", state.VaultID, err)
		}
	}
	return nil
}

// usdc converts whole USDC into 6-decimal base units.
func usdc(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), big.NewInt(1_000_000))
}

// writeOutputs renders the report to markdown and CSV files.
func writeOutputs(outputDir string, report *reporting.Report) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	md := reporting.RenderMarkdown(report)
	if err := os.WriteFile(filepath.Join(outputDir, "REPORT.md"), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	csv := reporting.RenderCSV(report.BatchRows)
	if err := os.WriteFile(filepath.Join(outputDir, "MIRROR_BATCHES.csv"), []byte(csv), 0o644); err != nil {
		return fmt.Errorf("write batches csv: %w", err)
	}

	return nil
}
