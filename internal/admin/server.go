package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/claim"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/watchlist"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// PortfolioService is the aggregator surface the API reads and refreshes.
type PortfolioService interface {
	WritableAddress() string
	View() model.AggregateView
	Refresh(ctx context.Context) model.AggregateView
}

// WatchList manages the read-only addresses.
type WatchList interface {
	Entries() []watchlist.Entry
	Add(ctx context.Context, address, label string) (bool, error)
	Remove(ctx context.Context, address string) (bool, error)
}

// ClaimService drives the GAS claim state machine.
type ClaimService interface {
	State() model.ClaimState
	StartClaim(ctx context.Context) error
	Cancel() bool
	UpdateClaimable(ctx context.Context) (decimal.Decimal, error)
	SetClaimable(amount decimal.Decimal) bool
}

// ClaimStats reports persisted claim history.
type ClaimStats interface {
	ClaimCount(ctx context.Context) (int64, error)
}

// Server exposes the wallet engine over HTTP.
type Server struct {
	portfolio PortfolioService
	watched   WatchList
	claims    ClaimService
	stats     ClaimStats
	network   model.Network
	logger    *slog.Logger
}

func NewServer(
	portfolio PortfolioService,
	watched WatchList,
	claims ClaimService,
	logger *slog.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		portfolio: portfolio,
		watched:   watched,
		claims:    claims,
		logger:    logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption configures optional dependencies for the admin server.
type ServerOption func(*Server)

// WithClaimStats adds the claim counter to GET /v1/claim.
func WithClaimStats(stats ClaimStats) ServerOption {
	return func(s *Server) { s.stats = stats }
}

// WithNetwork labels responses with the configured network.
func WithNetwork(network model.Network) ServerOption {
	return func(s *Server) { s.network = network }
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/portfolio", s.handleGetPortfolio)
	mux.HandleFunc("POST /v1/portfolio/refresh", s.handleRefreshPortfolio)

	mux.HandleFunc("GET /v1/watched-addresses", s.handleListWatchedAddresses)
	mux.HandleFunc("POST /v1/watched-addresses", s.handleAddWatchedAddress)
	mux.HandleFunc("DELETE /v1/watched-addresses", s.handleRemoveWatchedAddress)

	mux.HandleFunc("GET /v1/claim", s.handleClaimState)
	mux.HandleFunc("POST /v1/claim", s.handleStartClaim)
	mux.HandleFunc("DELETE /v1/claim", s.handleCancelClaim)
	mux.HandleFunc("POST /v1/claim/claimable", s.handleClaimable)

	return mux
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSONBody reads and decodes a JSON request body into v.
// Returns false (and writes an error response) if decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"network": s.network.String(),
		"address": s.portfolio.WritableAddress(),
	})
}

// --- Portfolio ---

type portfolioResponse struct {
	Mode     model.ViewMode        `json:"mode"`
	Writable model.AddressSnapshot `json:"writable"`
	ReadOnly model.AddressSnapshot `json:"read_only"`
	Assets   []model.Asset         `json:"assets"`
}

func newPortfolioResponse(v model.AggregateView) portfolioResponse {
	return portfolioResponse{
		Mode:     v.Mode,
		Writable: v.Writable,
		ReadOnly: v.ReadOnly,
		Assets:   v.Assets(),
	}
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPortfolioResponse(s.portfolio.View().WithMode(mode)))
}

func (s *Server) handleRefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	view := s.portfolio.Refresh(r.Context())
	s.logger.Info("portfolio refreshed via admin API", "duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, newPortfolioResponse(view.WithMode(mode)))
}

// --- Watched addresses ---

func (s *Server) handleListWatchedAddresses(w http.ResponseWriter, _ *http.Request) {
	entries := s.watched.Entries()
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type addWatchedAddressRequest struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

func (s *Server) handleAddWatchedAddress(w http.ResponseWriter, r *http.Request) {
	var req addWatchedAddressRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	created, err := s.watched.Add(r.Context(), req.Address, req.Label)
	switch {
	case errors.Is(err, neo.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "invalid neo address")
		return
	case errors.Is(err, watchlist.ErrWritableAddress):
		writeError(w, http.StatusConflict, "address is the writable address")
		return
	case err != nil:
		s.logger.Error("add watched address failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("watched address added via admin API", "address", req.Address, "created", created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"success": true, "created": created})
}

func (s *Server) handleRemoveWatchedAddress(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "address query param required")
		return
	}

	removed, err := s.watched.Remove(r.Context(), address)
	if err != nil {
		s.logger.Error("remove watched address failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "address not watched")
		return
	}

	s.logger.Info("watched address removed via admin API", "address", address)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Claim ---

type claimStateResponse struct {
	model.ClaimState
	InProgress bool   `json:"in_progress"`
	ClaimCount *int64 `json:"claim_count,omitempty"`
}

func (s *Server) claimStateResponse(ctx context.Context) claimStateResponse {
	state := s.claims.State()
	resp := claimStateResponse{ClaimState: state, InProgress: state.Phase.InProgress()}
	if s.stats != nil {
		count, err := s.stats.ClaimCount(ctx)
		if err != nil {
			s.logger.Warn("read claim count failed", "error", err)
		} else {
			resp.ClaimCount = &count
		}
	}
	return resp
}

func (s *Server) handleClaimState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.claimStateResponse(r.Context()))
}

func (s *Server) handleStartClaim(w http.ResponseWriter, r *http.Request) {
	err := s.claims.StartClaim(r.Context())
	var rejectErr *claim.RejectError
	switch {
	case errors.Is(err, claim.ErrClaimInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.As(err, &rejectErr):
		resp := map[string]any{"error": rejectErr.Error(), "reason": rejectErr.Reason}
		if rejectErr.Reason == claim.RejectCooldown {
			w.Header().Set("Retry-After", retryAfterSeconds(rejectErr.Remaining))
			resp["remaining_seconds"] = int64(rejectErr.Remaining.Round(time.Second) / time.Second)
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	case err != nil:
		s.logger.Error("start claim failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, s.claimStateResponse(r.Context()))
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func (s *Server) handleCancelClaim(w http.ResponseWriter, r *http.Request) {
	if !s.claims.Cancel() {
		writeError(w, http.StatusNotFound, "no claim in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.claimStateResponse(r.Context()))
}

type claimableRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// handleClaimable records a claimable amount when the body carries one and
// polls the node otherwise.
func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	var req claimableRequest
	if r.ContentLength != 0 {
		if !decodeJSONBody(w, r, &req) {
			return
		}
	}

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			writeError(w, http.StatusBadRequest, "amount must be >= 0")
			return
		}
		s.claims.SetClaimable(*req.Amount)
	} else if _, err := s.claims.UpdateClaimable(r.Context()); err != nil {
		s.logger.Warn("claimable update failed", "error", err)
		writeError(w, http.StatusBadGateway, "node query failed")
		return
	}

	writeJSON(w, http.StatusOK, s.claimStateResponse(r.Context()))
}
