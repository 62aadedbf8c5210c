package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.jup.ag/ultra/v1"

// Config configures the Ultra client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *logrus.Logger
}

// Client is a typed transport for the Ultra /order and /execute endpoints.
// It never retries: retry cadence belongs to the caller.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	logger  *logrus.Logger
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}, nil
}

// ValidateOrderRequest checks required fields and address encodings.
func ValidateOrderRequest(req OrderRequest) error {
	if err := validateAddress("inputMint", req.InputMint); err != nil {
		return err
	}
	if err := validateAddress("outputMint", req.OutputMint); err != nil {
		return err
	}
	if req.InputMint == req.OutputMint {
		return &InvalidRequestError{Field: "outputMint", Reason: "must differ from inputMint"}
	}
	amount := strings.TrimSpace(req.Amount)
	if amount == "" {
		return &InvalidRequestError{Field: "amount", Reason: "required"}
	}
	n, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return &InvalidRequestError{Field: "amount", Reason: "must be a raw uint64 integer"}
	}
	if n == 0 {
		return &InvalidRequestError{Field: "amount", Reason: "must be positive"}
	}
	if err := validateAddress("taker", req.Taker); err != nil {
		return err
	}
	if req.Receiver != "" {
		if err := validateAddress("receiver", req.Receiver); err != nil {
			return err
		}
	}
	if req.SlippageBps != nil && (*req.SlippageBps == 0 || *req.SlippageBps > 10000) {
		return &InvalidRequestError{Field: "slippageBps", Reason: "must be in 1..10000"}
	}
	return nil
}

func validateAddress(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return &InvalidRequestError{Field: field, Reason: "required"}
	}
	if _, err := solana.PublicKeyFromBase58(v); err != nil {
		return &InvalidRequestError{Field: field, Reason: "not a base58 address"}
	}
	return nil
}

// Order fetches a quote with an embedded unsigned transaction.
func (c *Client) Order(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if err := ValidateOrderRequest(req); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strings.TrimSpace(req.Amount))
	q.Set("taker", req.Taker)
	if req.Receiver != "" {
		q.Set("receiver", req.Receiver)
	}
	if req.SlippageBps != nil {
		q.Set("slippageBps", strconv.FormatUint(uint64(*req.SlippageBps), 10))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/order?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	status, body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var env orderEnvelope
	decodeErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		return nil, quoteError(status, &env, body, decodeErr)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode jupiter order response: %w", decodeErr)
	}
	if env.failed() {
		return nil, quoteError(status, &env, body, nil)
	}

	out := env.OrderResponse
	c.logger.WithFields(logrus.Fields{
		"request_id": out.RequestID,
		"in_amount":  out.InAmount,
		"out_amount": out.OutAmount,
	}).Debug("jupiter order")
	return &out, nil
}

// Execute submits a signed transaction for broadcast. The payload is passed
// through untouched.
func (c *Client) Execute(ctx context.Context, requestID, signedTransaction string) (*ExecuteResponse, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, &InvalidRequestError{Field: "requestId", Reason: "required"}
	}
	if strings.TrimSpace(signedTransaction) == "" {
		return nil, &InvalidRequestError{Field: "signedTransaction", Reason: "required"}
	}

	payload, err := json.Marshal(ExecuteRequest{RequestID: requestID, SignedTransaction: signedTransaction})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var out ExecuteResponse
	decodeErr := json.Unmarshal(body, &out)

	if status < 200 || status >= 300 || decodeErr != nil || !strings.EqualFold(out.Status, "Success") {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			if decodeErr != nil && status >= 200 && status < 300 {
				msg = "failed to decode jupiter execute response"
			} else {
				msg = fmt.Sprintf("execute failed (HTTP %d)", status)
			}
		}
		return nil, &UpstreamExecuteError{Status: status, Code: out.Code, Message: msg, Signature: out.Signature}
	}

	c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"signature":  out.Signature,
	}).Info("jupiter execute")
	return &out, nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("accept", "application/json")
	r.Header.Set("x-api-key", c.APIKey)
}

func (c *Client) do(r *http.Request) (int, []byte, error) {
	res, err := c.HTTP.Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("failed to read jupiter response: %w", err)
	}
	return res.StatusCode, body, nil
}

func quoteError(status int, env *orderEnvelope, body []byte, decodeErr error) *UpstreamQuoteError {
	msg := strings.TrimSpace(env.ErrorMessage)
	if msg == "" {
		msg = strings.TrimSpace(env.Error)
	}
	if msg == "" && decodeErr != nil {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 256 {
			msg = msg[:256]
		}
	}
	if msg == "" {
		if status >= 200 && status < 300 {
			msg = "quote returned no transaction"
		} else {
			msg = fmt.Sprintf("quote failed (HTTP %d)", status)
		}
	}
	return &UpstreamQuoteError{Status: status, Code: env.ErrorCode, Message: msg}
}
