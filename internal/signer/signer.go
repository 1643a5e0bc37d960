// Package signer talks to the external signing service. The engine only
// describes the transaction it wants; keys never leave the signer.
package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/retry"
	"github.com/shopspring/decimal"
)

const signPath = "/v1/sign"

type IntentType string

const (
	IntentSelfTransfer IntentType = "self_transfer"
	IntentClaim        IntentType = "claim"
)

// Signer produces raw signed transactions ready for sendrawtransaction.
type Signer interface {
	// SignSelfTransfer sends the full amount of assetID from address back
	// to itself.
	SignSelfTransfer(ctx context.Context, address, assetID string, amount decimal.Decimal) ([]byte, error)
	// SignClaim claims the unclaimed GAS referenced by info.
	SignClaim(ctx context.Context, info model.ClaimableInfo) ([]byte, error)
}

type intent struct {
	Type    IntentType             `json:"type"`
	Address string                 `json:"address"`
	AssetID string                 `json:"asset_id,omitempty"`
	Amount  decimal.Decimal        `json:"amount"`
	Claims  []model.ClaimReference `json:"claims,omitempty"`
	Network string                 `json:"network"`
}

type signResponse struct {
	RawTx string `json:"raw_tx"`
	Error string `json:"error,omitempty"`
}

type RemoteSigner struct {
	baseURL string
	network model.Network
	client  *http.Client
	logger  *slog.Logger
}

var _ Signer = (*RemoteSigner)(nil)

func NewRemoteSigner(baseURL string, network model.Network, logger *slog.Logger) *RemoteSigner {
	return &RemoteSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With("component", "signer"),
	}
}

func (s *RemoteSigner) SetHTTPClient(c *http.Client) {
	s.client = c
}

func (s *RemoteSigner) SignSelfTransfer(ctx context.Context, address, assetID string, amount decimal.Decimal) ([]byte, error) {
	return s.sign(ctx, intent{
		Type:    IntentSelfTransfer,
		Address: address,
		AssetID: assetID,
		Amount:  amount,
		Network: s.network.String(),
	})
}

func (s *RemoteSigner) SignClaim(ctx context.Context, info model.ClaimableInfo) ([]byte, error) {
	return s.sign(ctx, intent{
		Type:    IntentClaim,
		Address: info.Address,
		AssetID: model.GASAssetID,
		Amount:  info.Amount,
		Claims:  info.Claims,
		Network: s.network.String(),
	})
}

// sign posts the intent. Transport failures and 5xx are transient; a 4xx
// means the signer refused the intent and retrying cannot help.
func (s *RemoteSigner) sign(ctx context.Context, in intent) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, retry.Terminal(fmt.Errorf("marshal %s intent: %w", in.Type, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+signPath, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Terminal(fmt.Errorf("create sign request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(fmt.Errorf("sign %s: %w", in.Type, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("read sign response: %w", err))
	}

	var out signResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode == http.StatusOK {
			return nil, retry.Transient(fmt.Errorf("decode sign response: %w", err))
		}
		// Non-JSON error pages carry the reason as plain text.
		out.Error = snippet(raw, 256)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, retry.Transient(fmt.Errorf("signer status %d: %s", resp.StatusCode, out.Error))
	case resp.StatusCode >= 400:
		return nil, retry.Terminal(fmt.Errorf("signer rejected %s intent: status %d: %s", in.Type, resp.StatusCode, out.Error))
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Transient(fmt.Errorf("signer status %d", resp.StatusCode))
	}

	tx, err := hex.DecodeString(strings.TrimPrefix(out.RawTx, "0x"))
	if err != nil || len(tx) == 0 {
		return nil, retry.Transient(fmt.Errorf("signer returned invalid raw_tx %q", out.RawTx))
	}
	s.logger.Debug("transaction signed", "type", in.Type, "address", in.Address, "size", len(tx))
	return tx, nil
}

func snippet(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
