package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	taker    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

const orderJSON = `{
  "requestId": "req-1",
  "transaction": "AQAAAA==",
  "inputMint": "So11111111111111111111111111111111111111112",
  "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
  "inAmount": "10000000",
  "outAmount": "1500000",
  "inUsdValue": 1.5,
  "outUsdValue": 1.499,
  "priceImpact": -0.0123,
  "swapMode": "ExactIn",
  "slippageBps": 50,
  "otherAmountThreshold": "1492500",
  "feeBps": 5,
  "prioritizationFeeLamports": 10000,
  "signatureFeeLamports": 5000,
  "rentFeeLamports": 0,
  "gasless": false,
  "routePlan": [
    {"swapInfo": {"ammKey": "amm1", "label": "Whirlpool", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "10000000", "outAmount": "1500000", "feeAmount": "100", "feeMint": "So11111111111111111111111111111111111111112"}, "percent": 100}
  ],
  "expireAt": "1735689600"
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "test-key", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func validOrder() OrderRequest {
	slip := uint16(50)
	return OrderRequest{InputMint: solMint, OutputMint: usdcMint, Amount: "10000000", Taker: taker, SlippageBps: &slip}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	c, err := NewClient(Config{APIKey: "   "})
	assert.Nil(t, c)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestOrder_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		q := r.URL.Query()
		assert.Equal(t, solMint, q.Get("inputMint"))
		assert.Equal(t, usdcMint, q.Get("outputMint"))
		assert.Equal(t, "10000000", q.Get("amount"))
		assert.Equal(t, taker, q.Get("taker"))
		assert.Equal(t, "50", q.Get("slippageBps"))
		assert.False(t, q.Has("receiver"))
		_, _ = w.Write([]byte(orderJSON))
	})

	out, err := c.Order(context.Background(), validOrder())
	require.NoError(t, err)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, "1500000", out.OutAmount)
	assert.Equal(t, uint64(5000), out.SignatureFeeLamports)
	require.Len(t, out.RoutePlan, 1)
	assert.Equal(t, "Whirlpool", out.RoutePlan[0].SwapInfo.Label)

	exp, ok := out.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, int64(1735689600), exp.Unix())
	assert.True(t, out.Expired(exp))
	assert.False(t, out.Expired(exp.Add(-time.Second)))
}

func TestOrder_UpstreamErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode": 3, "errorMessage": "Insufficient liquidity"}`))
	})

	_, err := c.Order(context.Background(), validOrder())
	var qe *UpstreamQuoteError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "Insufficient liquidity", qe.Error())
	assert.Equal(t, 3, qe.Code)
	assert.Equal(t, http.StatusBadRequest, qe.Status)
	assert.True(t, IsUpstream(err))
}

func TestOrder_GenericFailureWithoutPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Order(context.Background(), validOrder())
	var qe *UpstreamQuoteError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "quote failed (HTTP 503)", qe.Message)
}

func TestOrder_SuccessStatusWithErrorFieldsIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"requestId":"req-2","transaction":"","inAmount":"1","outAmount":"1","errorCode":1,"errorMessage":"Insufficient funds"}`))
	})

	_, err := c.Order(context.Background(), validOrder())
	var qe *UpstreamQuoteError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "Insufficient funds", qe.Message)
	assert.Equal(t, http.StatusOK, qe.Status)
}

func TestOrder_InvalidRequestNeverHitsNetwork(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	cases := map[string]func(*OrderRequest){
		"missing taker":    func(r *OrderRequest) { r.Taker = "" },
		"bad input mint":   func(r *OrderRequest) { r.InputMint = "not-a-mint" },
		"same mints":       func(r *OrderRequest) { r.OutputMint = r.InputMint },
		"decimal amount":   func(r *OrderRequest) { r.Amount = "0.01" },
		"zero amount":      func(r *OrderRequest) { r.Amount = "0" },
		"bad receiver":     func(r *OrderRequest) { r.Receiver = "0x1234" },
		"zero slippage":    func(r *OrderRequest) { z := uint16(0); r.SlippageBps = &z },
		"missing out mint": func(r *OrderRequest) { r.OutputMint = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validOrder()
			mutate(&req)
			_, err := c.Order(context.Background(), req)
			var ir *InvalidRequestError
			assert.ErrorAs(t, err, &ir)
		})
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestOrder_NoRetryOnFailure(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Order(context.Background(), validOrder())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecute_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/execute", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var body ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "req-1", body.RequestID)
		assert.Equal(t, "c2lnbmVk", body.SignedTransaction)

		_, _ = w.Write([]byte(`{"status":"Success","signature":"5sig","code":0}`))
	})

	out, err := c.Execute(context.Background(), "req-1", "c2lnbmVk")
	require.NoError(t, err)
	assert.Equal(t, "5sig", out.Signature)
}

func TestExecute_Failures(t *testing.T) {
	t.Run("non-2xx with error text", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"Failed","error":"Slippage tolerance exceeded","code":-1}`))
		})
		_, err := c.Execute(context.Background(), "req-1", "c2lnbmVk")
		var ee *UpstreamExecuteError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "Slippage tolerance exceeded", ee.Message)
		assert.Equal(t, -1, ee.Code)
	})

	t.Run("2xx with failed status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"Failed","signature":"5sig","error":"Transaction expired"}`))
		})
		_, err := c.Execute(context.Background(), "req-1", "c2lnbmVk")
		var ee *UpstreamExecuteError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "Transaction expired", ee.Message)
		assert.Equal(t, "5sig", ee.Signature)
	})

	t.Run("missing fields", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("must not be called")
		})
		_, err := c.Execute(context.Background(), "", "c2lnbmVk")
		var ir *InvalidRequestError
		assert.ErrorAs(t, err, &ir)
	})
}
