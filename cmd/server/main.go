// Package main provides the unified vault server:
// - Vault lifecycle: creation, deposits, withdrawals, trader swaps
// - Subscriptions: registrar-gated follower registration
// - Mirroring: relayer-triggered fan-out of trader trades
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"mirrorvault/internal/account"
	"mirrorvault/internal/domain"
	"mirrorvault/internal/engine"
	"mirrorvault/internal/fees"
	"mirrorvault/internal/gateway"
	"mirrorvault/internal/gateway/stub"
	"mirrorvault/internal/ledger"
	"mirrorvault/internal/observability"
	"mirrorvault/internal/pricing"
	"mirrorvault/internal/storage"
	chstore "mirrorvault/internal/storage/clickhouse"
	"mirrorvault/internal/storage/memory"
	"mirrorvault/internal/storage/migrations"
	pgstore "mirrorvault/internal/storage/postgres"
	"mirrorvault/internal/vault"
)

// Server holds all components of the vault service.
type Server struct {
	// Configuration
	listenAddr string
	registrar  string
	relayer    string

	// Collaborators
	stores    *allStores
	engine    *engine.Engine
	gateway   gateway.ExecutionGateway
	prices    pricing.Source
	schedule  fees.Schedule
	collector *vault.FeeCollector
	logger    *log.Logger

	// State
	mu            sync.Mutex
	started       time.Time
	nonces        map[string]uint64
	vaultsCreated int
	batchesRun    int
}

// allStores holds all storage implementations.
type allStores struct {
	vaults        storage.VaultStateStore
	subscriptions storage.SubscriptionStore
	records       storage.TradeRecordStore
	analytics     *chstore.MirrorBatchStore // nil in memory mode
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	venueEndpoint := flag.String("venue-endpoint", os.Getenv("VENUE_WS_ENDPOINT"), "Execution venue WebSocket endpoint (empty: stub gateway)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	registrar := flag.String("registrar", envOr("REGISTRAR_ADDRESS", "registrar"), "Address allowed to register followers")
	relayer := flag.String("relayer", envOr("RELAYER_ADDRESS", "relayer"), "Address allowed to trigger mirroring")
	stubRates := flag.String("stub-rates", "", "Stub gateway routes, comma-separated tokenIn:tokenOut:num:den")
	staticPrices := flag.String("prices", "", "Static price table, comma-separated token:num:den in base units")
	protocolFeeBps := flag.Uint("protocol-fee-bps", 300, "Protocol fee in basis points")
	performanceFeeBps := flag.Uint("performance-fee-bps", 700, "Performance fee in basis points")
	swapFeeBps := flag.Uint("swap-fee-bps", 30, "Swap fee in basis points")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failed follower legs instead of aborting the batch")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	schedule := fees.Schedule{
		ProtocolFeeBps:    uint32(*protocolFeeBps),
		PerformanceFeeBps: uint32(*performanceFeeBps),
		SwapFeeBps:        uint32(*swapFeeBps),
	}
	if err := schedule.Validate(); err != nil {
		logger.Fatalf("Invalid fee schedule: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create execution gateway
	gw, gwCleanup, err := createGateway(ctx, *venueEndpoint, *stubRates, logger)
	if err != nil {
		logger.Fatalf("Failed to create gateway: %v", err)
	}
	defer gwCleanup()

	prices, err := parsePrices(*staticPrices)
	if err != nil {
		logger.Fatalf("Invalid --prices: %v", err)
	}

	// Create engine
	engineAddr := account.DeriveVaultAddress("engine", "core", 0)
	var analytics engine.AnalyticsSink
	if stores.analytics != nil {
		analytics = stores.analytics
	}
	eng := engine.New(engine.Config{
		Address:         engineAddr,
		Registrar:       *registrar,
		Relayer:         *relayer,
		ContinueOnError: *continueOnError,
	}, stores.subscriptions, stores.records, stores.vaults, analytics)

	server := &Server{
		listenAddr: *listenAddr,
		registrar:  *registrar,
		relayer:    *relayer,
		stores:     stores,
		engine:     eng,
		gateway:    gw,
		prices:     prices,
		schedule:   schedule,
		collector:  vault.NewFeeCollector(),
		logger:     logger,
		started:    time.Now(),
		nonces:     make(map[string]uint64),
	}

	// Rebuild vaults from durable snapshots
	if err := server.restoreVaults(ctx); err != nil {
		logger.Fatalf("Failed to restore vaults: %v", err)
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and runs migrations in DB mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			vaults:        memory.NewVaultStateStore(),
			subscriptions: memory.NewSubscriptionStore(),
			records:       memory.NewTradeRecordStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		vaults:        pgstore.NewVaultStateStore(pool),
		subscriptions: pgstore.NewSubscriptionStore(pool),
		records:       pgstore.NewTradeRecordStore(pool),
		analytics:     chstore.NewMirrorBatchStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createGateway connects to the venue over WebSocket, or builds a stub
// gateway from the configured rate table when no endpoint is given.
func createGateway(ctx context.Context, endpoint, rates string, logger *log.Logger) (gateway.ExecutionGateway, func(), error) {
	if endpoint != "" {
		ws, err := gateway.NewWSClient(ctx, endpoint, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to venue: %w", err)
		}
		logger.Printf("Execution gateway: venue %s", endpoint)
		return ws, func() { ws.Close() }, nil
	}

	gw := stub.New()
	count := 0
	for _, route := range splitList(rates) {
		parts := strings.Split(route, ":")
		if len(parts) != 4 {
			return nil, nil, fmt.Errorf("malformed stub rate %q, want tokenIn:tokenOut:num:den", route)
		}
		var num, den int64
		if _, err := fmt.Sscanf(parts[2]+" "+parts[3], "%d %d", &num, &den); err != nil || den == 0 {
			return nil, nil, fmt.Errorf("malformed stub rate %q: %v", route, err)
		}
		gw.SetRate(parts[0], parts[1], num, den)
		count++
	}
	logger.Printf("Execution gateway: stub with %d routes", count)
	return gw, func() {}, nil
}

// parsePrices builds the static price source from token:num:den entries.
func parsePrices(spec string) (pricing.Source, error) {
	src := pricing.NewStaticSource()
	for _, entry := range splitList(spec) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed price %q, want token:num:den", entry)
		}
		var num, den int64
		if _, err := fmt.Sscanf(parts[1]+" "+parts[2], "%d %d", &num, &den); err != nil || den == 0 {
			return nil, fmt.Errorf("malformed price %q: %v", entry, err)
		}
		src.SetPrice(parts[0], num, den)
	}
	return src, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// restoreVaults rebuilds in-memory vaults from the durable snapshots.
func (s *Server) restoreVaults(ctx context.Context) error {
	states, err := s.stores.vaults.List(ctx)
	if err != nil {
		return fmt.Errorf("list vault states: %w", err)
	}

	for _, state := range states {
		switch state.Kind {
		case domain.VaultKindTrader:
			v, err := vault.TraderVaultFromState(state, s.gateway, s.prices, s.schedule, s.collector)
			if err != nil {
				return fmt.Errorf("restore trader %s: %w", state.VaultID, err)
			}
			s.engine.AddTrader(v)
		case domain.VaultKindFollower:
			v, err := vault.FollowerVaultFromState(state, s.engine.Address(), s.gateway, s.prices, s.schedule, s.collector)
			if err != nil {
				return fmt.Errorf("restore follower %s: %w", state.VaultID, err)
			}
			s.engine.AddFollower(v)
		default:
			return fmt.Errorf("vault %s has unknown kind %q", state.VaultID, state.Kind)
		}
		s.vaultsCreated++
	}

	if len(states) > 0 {
		s.logger.Printf("Restored %d vaults from storage", len(states))
	}
	return nil
}

// Run serves the HTTP API until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("GET /status", s.handleStatus)

	// Vault lifecycle
	mux.HandleFunc("POST /vaults", s.handleCreateVault)
	mux.HandleFunc("POST /vaults/{id}/deposit", s.handleDeposit)
	mux.HandleFunc("POST /vaults/{id}/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /vaults/{id}/swap", s.handleSwap)

	// Mirroring
	mux.HandleFunc("POST /subscriptions", s.handleRegisterFollower)
	mux.HandleFunc("POST /mirror", s.handleMirror)

	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", s.listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	VaultsCreated int    `json:"vaults_created"`
	BatchesRun    int    `json:"batches_run"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		VaultsCreated: s.vaultsCreated,
		BatchesRun:    s.batchesRun,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type createVaultRequest struct {
	Owner     string `json:"owner"`
	Kind      string `json:"kind"` // "trader" | "follower"
	BaseToken string `json:"base_token"`
}

type createVaultResponse struct {
	VaultID   string `json:"vault_id"`
	Kind      string `json:"kind"`
	Owner     string `json:"owner"`
	BaseToken string `json:"base_token"`
}

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	var req createVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	if req.Owner == "" || req.BaseToken == "" {
		writeError(w, fmt.Errorf("%w: owner and base_token are required", storage.ErrInvalidInput))
		return
	}

	s.mu.Lock()
	nonce := s.nonces[req.Owner+"|"+req.Kind]
	s.nonces[req.Owner+"|"+req.Kind] = nonce + 1
	s.mu.Unlock()

	id := account.DeriveVaultAddress(req.Owner, req.Kind, nonce)

	var state *domain.VaultState
	switch domain.VaultKind(req.Kind) {
	case domain.VaultKindTrader:
		v := vault.NewTraderVault(id, req.Owner, req.BaseToken, s.gateway, s.prices, s.schedule, s.collector)
		s.engine.AddTrader(v)
		state = v.State()
	case domain.VaultKindFollower:
		v := vault.NewFollowerVault(id, req.Owner, req.BaseToken, s.engine.Address(),
			s.gateway, s.prices, s.schedule, s.collector)
		s.engine.AddFollower(v)
		state = v.State()
	default:
		writeError(w, fmt.Errorf("%w: kind must be trader or follower", storage.ErrInvalidInput))
		return
	}

	if err := s.stores.vaults.Save(r.Context(), state); err != nil {
		writeError(w, fmt.Errorf("persist vault: %w", err))
		return
	}

	s.mu.Lock()
	s.vaultsCreated++
	s.mu.Unlock()

	observability.RecordVaultOperation(req.Kind, "create", nil)
	s.logger.Printf("created %s vault %s for %s", req.Kind, id, req.Owner)
	writeJSON(w, http.StatusCreated, createVaultResponse{
		VaultID: id, Kind: req.Kind, Owner: req.Owner, BaseToken: req.BaseToken,
	})
}

type amountRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token,omitempty"` // withdraw only; empty means base token
	Amount string `json:"amount"`
}

type balanceResponse struct {
	VaultID string `json:"vault_id"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	kind, trader, follower, err := s.lookupVault(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var baseToken string
	if kind == domain.VaultKindTrader {
		err = trader.Deposit(r.Context(), amount)
		baseToken = trader.BaseToken()
	} else {
		err = follower.Deposit(r.Context(), amount)
		baseToken = follower.BaseToken()
	}
	observability.RecordVaultOperation(string(kind), "deposit", err)
	if err != nil {
		writeError(w, err)
		return
	}

	s.persistVault(r.Context(), kind, trader, follower)
	balance := s.vaultBalance(kind, trader, follower, baseToken)
	writeJSON(w, http.StatusOK, balanceResponse{VaultID: id, Token: baseToken, Balance: balance})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	kind, trader, follower, err := s.lookupVault(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var token string
	if kind == domain.VaultKindTrader {
		token = trader.BaseToken()
		err = trader.Withdraw(r.Context(), req.Caller, amount)
	} else {
		token = req.Token
		if token == "" {
			token = follower.BaseToken()
		}
		err = follower.Withdraw(r.Context(), req.Caller, token, amount)
	}
	observability.RecordVaultOperation(string(kind), "withdraw", err)
	if err != nil {
		writeError(w, err)
		return
	}

	s.persistVault(r.Context(), kind, trader, follower)
	balance := s.vaultBalance(kind, trader, follower, token)
	writeJSON(w, http.StatusOK, balanceResponse{VaultID: id, Token: token, Balance: balance})
}

type swapRequest struct {
	Caller       string `json:"caller"`
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	AmountIn     string `json:"amount_in"`
	MinAmountOut string `json:"min_amount_out,omitempty"`
	DeadlineMs   int64  `json:"deadline_ms,omitempty"`
}

type swapResponse struct {
	VaultID   string `json:"vault_id"`
	TokenOut  string `json:"token_out"`
	AmountOut string `json:"amount_out"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		writeError(w, err)
		return
	}
	minOut, err := parseOptionalAmount(req.MinAmountOut)
	if err != nil {
		writeError(w, err)
		return
	}

	trader, err := s.engine.Trader(id)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	out, err := trader.ExecuteSwap(r.Context(), req.Caller, req.TokenIn, req.TokenOut,
		amountIn, minOut, deadlineFromMs(req.DeadlineMs))
	observability.RecordGatewaySwap(req.TokenIn+"/"+req.TokenOut, time.Since(start).Seconds(), swapOutcome(err))
	observability.RecordVaultOperation("trader", "swap", err)
	if err != nil {
		writeError(w, err)
		return
	}

	if saveErr := s.stores.vaults.Save(r.Context(), trader.State()); saveErr != nil {
		s.logger.Printf("WARNING: persist vault %s failed: %v", id, saveErr)
	}
	writeJSON(w, http.StatusOK, swapResponse{VaultID: id, TokenOut: req.TokenOut, AmountOut: out.String()})
}

type registerRequest struct {
	Caller          string `json:"caller"`
	TraderVaultID   string `json:"trader_vault_id"`
	FollowerVaultID string `json:"follower_vault_id"`
}

type registerResponse struct {
	SubscriptionID  int64  `json:"subscription_id"`
	TraderVaultID   string `json:"trader_vault_id"`
	FollowerVaultID string `json:"follower_vault_id"`
}

func (s *Server) handleRegisterFollower(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}

	sub, err := s.engine.RegisterFollower(r.Context(), req.Caller, req.TraderVaultID, req.FollowerVaultID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		SubscriptionID:  sub.ID,
		TraderVaultID:   sub.TraderVaultID,
		FollowerVaultID: sub.FollowerVaultID,
	})
}

type mirrorRequest struct {
	Caller        string `json:"caller"`
	TraderVaultID string `json:"trader_vault_id"`
	TokenIn       string `json:"token_in"`
	TokenOut      string `json:"token_out"`
	AmountIn      string `json:"amount_in"`
	MinAmountOut  string `json:"min_amount_out,omitempty"`
	DeadlineMs    int64  `json:"deadline_ms,omitempty"`
}

func (s *Server) handleMirror(w http.ResponseWriter, r *http.Request) {
	var req mirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err))
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		writeError(w, err)
		return
	}
	minOut, err := parseOptionalAmount(req.MinAmountOut)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := s.engine.MirrorTrade(r.Context(), req.Caller, req.TraderVaultID,
		req.TokenIn, req.TokenOut, amountIn, minOut, deadlineFromMs(req.DeadlineMs))
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.batchesRun++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, record)
}

// lookupVault resolves a vault ID to either a trader or a follower.
func (s *Server) lookupVault(id string) (domain.VaultKind, *vault.TraderVault, *vault.FollowerVault, error) {
	if trader, err := s.engine.Trader(id); err == nil {
		return domain.VaultKindTrader, trader, nil, nil
	}
	if follower, err := s.engine.Follower(id); err == nil {
		return domain.VaultKindFollower, nil, follower, nil
	}
	return "", nil, nil, fmt.Errorf("%w: vault %s", engine.ErrVaultNotFound, id)
}

func (s *Server) persistVault(ctx context.Context, kind domain.VaultKind, trader *vault.TraderVault, follower *vault.FollowerVault) {
	var state *domain.VaultState
	if kind == domain.VaultKindTrader {
		state = trader.State()
	} else {
		state = follower.State()
	}
	if err := s.stores.vaults.Save(ctx, state); err != nil {
		s.logger.Printf("WARNING: persist vault %s failed: %v", state.VaultID, err)
	}
}

func (s *Server) vaultBalance(kind domain.VaultKind, trader *vault.TraderVault, follower *vault.FollowerVault, token string) string {
	if kind == domain.VaultKindTrader {
		return trader.Balance(token).String()
	}
	return follower.Balance(token).String()
}

func parseAmount(raw string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q is not a decimal integer", storage.ErrInvalidInput, raw)
	}
	return n, nil
}

func parseOptionalAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, nil
	}
	return parseAmount(raw)
}

func deadlineFromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func swapOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, gateway.ErrSlippage):
		return "slippage"
	case errors.Is(err, gateway.ErrDeadlineExpired):
		return "deadline"
	case errors.Is(err, gateway.ErrUnsupportedPair):
		return "no_route"
	default:
		return "error"
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, vault.ErrWrongToken):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrVaultNotFound), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrReentrancy):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, vault.ErrInsufficientAllocation), errors.Is(err, vault.ErrOverdraft),
		errors.Is(err, engine.ErrEmptyPortfolio):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrSlippage), errors.Is(err, gateway.ErrDeadlineExpired),
		errors.Is(err, gateway.ErrUnsupportedPair), errors.Is(err, gateway.ErrUnauthorizedCaller):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
