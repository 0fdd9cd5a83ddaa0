package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket gateway client behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// CallTimeout is timeout for a single executeSwap round trip.
	CallTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket gateway configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		CallTimeout:       30 * time.Second,
	}
}

// wsRequest is the JSON-RPC frame sent to the gateway venue.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsResponse is the JSON-RPC frame received from the gateway venue.
type wsResponse struct {
	ID     uint64 `json:"id"`
	Result *struct {
		AmountOut string `json:"amountOut"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Gateway venue error codes mapped to sentinel errors.
const (
	wsErrCodeSlippage     = 1001
	wsErrCodeDeadline     = 1002
	wsErrCodeUnauthorized = 1003
	wsErrCodeNoRoute      = 1004
)

// WSClient implements ExecutionGateway over a WebSocket JSON-RPC venue.
type WSClient struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to channel waiting for the response
	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket gateway client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]chan wsResponse),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// ExecuteSwap implements ExecutionGateway. The swap instruction is sent as a
// JSON-RPC call; the venue either executes atomically and returns amountOut,
// or rejects with an error code.
func (c *WSClient) ExecuteSwap(ctx context.Context, req SwapRequest) (*big.Int, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("gateway client closed")
	}

	reqID := c.requestID.Add(1)

	// Zero values mean "no floor" and "no deadline" on the wire.
	minOut := "0"
	if req.MinAmountOut != nil {
		minOut = req.MinAmountOut.String()
	}
	var deadline int64
	if !req.Deadline.IsZero() {
		deadline = req.Deadline.UnixMilli()
	}

	frame := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "executeSwap",
		Params: []interface{}{
			map[string]interface{}{
				"tokenIn":      req.TokenIn,
				"tokenOut":     req.TokenOut,
				"amountIn":     req.AmountIn.String(),
				"minAmountOut": minOut,
				"recipient":    req.Recipient,
				"deadline":     deadline,
			},
		},
	}

	respCh := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = respCh
	c.pendingMu.Unlock()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		c.dropPending(reqID)
		return nil, fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(frame)
	c.connMu.Unlock()

	if err != nil {
		c.dropPending(reqID)
		return nil, fmt.Errorf("write swap request: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, fmt.Errorf("gateway client closed")
		}
		return decodeSwapResponse(resp)
	case <-time.After(c.config.CallTimeout):
		c.dropPending(reqID)
		return nil, fmt.Errorf("swap response timeout after %v", c.config.CallTimeout)
	case <-c.done:
		return nil, fmt.Errorf("gateway client closed")
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	}
}

// decodeSwapResponse maps a venue response to (amountOut, error).
func decodeSwapResponse(resp wsResponse) (*big.Int, error) {
	if resp.Error != nil {
		switch resp.Error.Code {
		case wsErrCodeSlippage:
			return nil, fmt.Errorf("%w: %s", ErrSlippage, resp.Error.Message)
		case wsErrCodeDeadline:
			return nil, fmt.Errorf("%w: %s", ErrDeadlineExpired, resp.Error.Message)
		case wsErrCodeUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorizedCaller, resp.Error.Message)
		case wsErrCodeNoRoute:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPair, resp.Error.Message)
		default:
			return nil, fmt.Errorf("gateway error %d: %s", resp.Error.Code, resp.Error.Message)
		}
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("gateway response missing result")
	}

	amountOut, ok := new(big.Int).SetString(resp.Result.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("gateway returned malformed amountOut %q", resp.Result.AmountOut)
	}
	if amountOut.Sign() < 0 {
		return nil, fmt.Errorf("gateway returned negative amountOut %s", amountOut)
	}
	return amountOut, nil
}

// dropPending removes a pending request entry.
func (c *WSClient) dropPending(reqID uint64) {
	c.pendingMu.Lock()
	delete(c.pending, reqID)
	c.pendingMu.Unlock()
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Fail all pending calls
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to pending calls.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff.
			// Pending calls fail by timeout; swap instructions are never
			// replayed on a new connection.
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// handleMessage routes a response frame to the waiting call.
func (c *WSClient) handleMessage(message []byte) {
	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if ok {
		ch <- resp
	}
}

// reconnect attempts to re-establish the connection after a read failure.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

var _ ExecutionGateway = (*WSClient)(nil)
