package gateway

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapHandler answers executeSwap frames with a canned response per pair.
type swapHandler struct {
	upgrader websocket.Upgrader
	respond  func(params map[string]interface{}) (result, errMsg string, errCode int)
}

func (h *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "executeSwap" {
			continue
		}

		params, _ := req.Params[0].(map[string]interface{})
		result, errMsg, errCode := h.respond(params)

		frame := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if errMsg != "" {
			frame["error"] = map[string]interface{}{"code": errCode, "message": errMsg}
		} else {
			frame["result"] = map[string]interface{}{"amountOut": result}
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func startVenue(t *testing.T, respond func(params map[string]interface{}) (string, string, int)) string {
	t.Helper()
	srv := httptest.NewServer(&swapHandler{respond: respond})
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testWSConfig() *WSConfig {
	cfg := DefaultWSConfig()
	cfg.CallTimeout = 2 * time.Second
	cfg.ReadTimeout = 5 * time.Second
	return &cfg
}

func TestWSClient_ExecuteSwap(t *testing.T) {
	url := startVenue(t, func(params map[string]interface{}) (string, string, int) {
		// venue doubles the input
		in, ok := new(big.Int).SetString(params["amountIn"].(string), 10)
		require.True(t, ok)
		return new(big.Int).Mul(in, big.NewInt(2)).String(), "", 0
	})

	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	defer client.Close()

	out, err := client.ExecuteSwap(context.Background(), SwapRequest{
		TokenIn:      "USDC",
		TokenOut:     "SOL",
		AmountIn:     big.NewInt(500),
		MinAmountOut: big.NewInt(0),
		Recipient:    "vault1",
		Deadline:     time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), out)
}

func TestWSClient_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr error
	}{
		{"slippage", wsErrCodeSlippage, ErrSlippage},
		{"deadline", wsErrCodeDeadline, ErrDeadlineExpired},
		{"unauthorized", wsErrCodeUnauthorized, ErrUnauthorizedCaller},
		{"no route", wsErrCodeNoRoute, ErrUnsupportedPair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := startVenue(t, func(map[string]interface{}) (string, string, int) {
				return "", "rejected", tt.code
			})

			client, err := NewWSClient(context.Background(), url, testWSConfig())
			require.NoError(t, err)
			defer client.Close()

			_, err = client.ExecuteSwap(context.Background(), SwapRequest{
				TokenIn:      "USDC",
				TokenOut:     "SOL",
				AmountIn:     big.NewInt(1),
				MinAmountOut: big.NewInt(0),
				Deadline:     time.Now().Add(time.Minute),
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWSClient_ContextCancelled(t *testing.T) {
	url := startVenue(t, func(map[string]interface{}) (string, string, int) {
		time.Sleep(5 * time.Second)
		return "0", "", 0
	})

	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.ExecuteSwap(ctx, SwapRequest{
		TokenIn:      "USDC",
		TokenOut:     "SOL",
		AmountIn:     big.NewInt(1),
		MinAmountOut: big.NewInt(0),
		Deadline:     time.Now().Add(time.Minute),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWSClient_ClosedClient(t *testing.T) {
	url := startVenue(t, func(map[string]interface{}) (string, string, int) {
		return "0", "", 0
	})

	client, err := NewWSClient(context.Background(), url, testWSConfig())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.ExecuteSwap(context.Background(), SwapRequest{
		TokenIn:  "USDC",
		TokenOut: "SOL",
		AmountIn: big.NewInt(1), MinAmountOut: big.NewInt(0),
	})
	assert.Error(t, err)
}

func TestDecodeSwapResponse_Malformed(t *testing.T) {
	var resp wsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"result":{"amountOut":"not-a-number"}}`), &resp))

	_, err := decodeSwapResponse(resp)
	assert.Error(t, err)
}
