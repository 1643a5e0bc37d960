package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/cache"
	"github.com/emperorhan/neo-wallet-engine/internal/chain/ratelimit"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
)

const maxResponseBytes = 8 << 20

// Client talks to a NEO node over JSON-RPC and to the wallet REST API for
// account and claim queries. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	rpcURL     atomic.Pointer[string]
	restURL    string
	requestID  atomic.Int64
	logger     *slog.Logger
	limiter    *ratelimit.Limiter
	tokens     *cache.WriteOnce[model.TokenInfo]
}

func NewClient(rpcURL, restURL string, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		restURL: restURL,
		logger:  logger.With("component", "neo_rpc"),
		tokens:  cache.NewWriteOnce[model.TokenInfo](),
	}
	c.rpcURL.Store(&rpcURL)
	return c
}

// SetRateLimiter sets the rate limiter shared by RPC and REST calls.
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

// SetHTTPClient replaces the transport, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *Client) SetEndpoint(rpcURL string) {
	prev := c.Endpoint()
	c.rpcURL.Store(&rpcURL)
	if prev != rpcURL {
		c.logger.Info("rpc endpoint switched", "from", prev, "to", rpcURL)
	}
}

func (c *Client) Endpoint() string {
	return *c.rpcURL.Load()
}

func (c *Client) RESTURL() string {
	return c.restURL
}

// call issues method against the endpoint current at call time.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	return c.callAt(ctx, c.Endpoint(), method, params)
}

func (c *Client) callAt(ctx context.Context, endpoint, method string, params []interface{}) (result json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		ratelimit.RecordCall(method, statusOf(err), time.Since(start))
	}()

	if err := validateEndpoint(endpoint); err != nil {
		return nil, newNodeError(KindInvalidEndpoint, method, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, newNodeError(KindTransportFailure, method, err)
	}

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(c.newRequest(method, params))
	if err != nil {
		return nil, newNodeError(KindMalformedRequest, method, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newNodeError(KindInvalidEndpoint, method, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq, method)
	if err != nil {
		return nil, err
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, newNodeError(KindMalformedResponse, method, fmt.Errorf("unmarshal response: %w", err))
	}
	if rpcResp.Error != nil {
		return nil, newNodeError(KindMalformedRequest, method, rpcResp.Error)
	}
	if isEmptyResult(rpcResp.Result) {
		return nil, newNodeError(KindMalformedResponse, method, errors.New("missing result"))
	}
	return rpcResp.Result, nil
}

// getREST fetches {restURL}/{address}/{resource} and returns the result
// member of the envelope.
func (c *Client) getREST(ctx context.Context, address, resource string) (result json.RawMessage, err error) {
	op := "rest." + resource
	start := time.Now()
	defer func() {
		ratelimit.RecordCall(op, statusOf(err), time.Since(start))
	}()

	if err := validateEndpoint(c.restURL); err != nil {
		return nil, newNodeError(KindInvalidEndpoint, op, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, newNodeError(KindTransportFailure, op, err)
	}

	target := strings.TrimRight(c.restURL, "/") + "/" + url.PathEscape(address) + "/" + resource
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, newNodeError(KindInvalidEndpoint, op, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	respBody, err := c.do(httpReq, op)
	if err != nil {
		return nil, err
	}

	var env restEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, newNodeError(KindMalformedResponse, op, fmt.Errorf("unmarshal response: %w", err))
	}
	if isEmptyResult(env.Result) {
		return nil, newNodeError(KindMalformedResponse, op, errors.New("missing result"))
	}
	return env.Result, nil
}

func (c *Client) do(httpReq *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newNodeError(KindUnreachable, op, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newNodeError(KindTransportFailure, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newNodeError(KindTransportFailure, op, fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}
	return respBody, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) newRequest(method string, params []interface{}) Request {
	id := int(c.requestID.Add(1))
	return Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("empty endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}

func isEmptyResult(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
