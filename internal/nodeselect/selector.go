// Package nodeselect chooses the RPC endpoint a claim run talks to.
package nodeselect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/emperorhan/neo-wallet-engine/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// HeightProber is the slice of the RPC client the selector needs.
type HeightProber interface {
	BlockCountAt(ctx context.Context, endpoint string) (int64, error)
}

type Selector struct {
	prober       HeightProber
	endpoints    []string
	tolerance    int64
	probeTimeout time.Duration
	health       *health
	logger       *slog.Logger
}

type Option func(*Selector)

func WithProbeTimeout(d time.Duration) Option {
	return func(s *Selector) { s.probeTimeout = d }
}

func WithHeightTolerance(blocks int64) Option {
	return func(s *Selector) { s.tolerance = blocks }
}

func WithBreakerConfig(cfg BreakerConfig) Option {
	return func(s *Selector) { s.health = newHealth(cfg) }
}

func New(prober HeightProber, endpoints []string, logger *slog.Logger, opts ...Option) *Selector {
	s := &Selector{
		prober:       prober,
		endpoints:    append([]string(nil), endpoints...),
		tolerance:    DefaultHeightTolerance,
		probeTimeout: 5 * time.Second,
		logger:       logger.With("component", "nodeselect"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = newHealth(BreakerConfig{})
	}
	prev := s.health.cfg.OnStateChange
	s.health.cfg.OnStateChange = func(endpoint string, from, to BreakerState) {
		metrics.NodeBreakerState.WithLabelValues(endpoint).Set(float64(to))
		s.logger.Info("endpoint breaker state changed", "endpoint", endpoint, "from", from.String(), "to", to.String())
		if prev != nil {
			prev(endpoint, from, to)
		}
	}
	return s
}

func (s *Selector) Endpoints() []string {
	return append([]string(nil), s.endpoints...)
}

// ProbeAll queries every endpoint whose breaker allows it, concurrently.
// Skipped endpoints are returned with Err set to ErrCircuitOpen.
func (s *Selector) ProbeAll(ctx context.Context) []Probe {
	probes := make([]Probe, len(s.endpoints))
	g, gctx := errgroup.WithContext(ctx)
	for i, endpoint := range s.endpoints {
		g.Go(func() error {
			probes[i] = s.probe(gctx, endpoint)
			return nil
		})
	}
	_ = g.Wait()
	return probes
}

func (s *Selector) probe(ctx context.Context, endpoint string) Probe {
	if err := s.health.allow(endpoint); err != nil {
		return Probe{URL: endpoint, Err: err}
	}

	ctx, span := tracing.Tracer("nodeselect").Start(ctx, "nodeselect.probe")
	span.SetAttributes(attribute.String("endpoint", endpoint))

	pctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	height, err := s.prober.BlockCountAt(pctx, endpoint)
	latency := time.Since(start)
	tracing.End(span, err)

	metrics.NodeProbeLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
	if err != nil {
		metrics.NodeProbeErrors.WithLabelValues(endpoint).Inc()
		// A cancelled parent says nothing about the endpoint.
		if ctx.Err() == nil {
			s.health.recordFailure(endpoint)
		}
		s.logger.Debug("endpoint probe failed", "endpoint", endpoint, "error", err)
		return Probe{URL: endpoint, Latency: latency, Err: err}
	}
	s.health.recordSuccess(endpoint)
	return Probe{URL: endpoint, Height: height, Latency: latency}
}

// Best probes the catalog and returns the selected endpoint URL.
func (s *Selector) Best(ctx context.Context) (string, error) {
	ctx, span := tracing.Tracer("nodeselect").Start(ctx, "nodeselect.best")
	if len(s.endpoints) == 0 {
		err := fmt.Errorf("%w: empty endpoint list", ErrNoHealthyEndpoint)
		tracing.End(span, err)
		return "", err
	}

	probes := s.ProbeAll(ctx)
	best, err := Select(probes, s.tolerance)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		tracing.End(span, err)
		return "", err
	}

	span.SetAttributes(attribute.String("endpoint", best.URL), attribute.Int64("height", best.Height))
	tracing.End(span, nil)
	metrics.NodeSelectedHeight.Set(float64(best.Height))
	s.logger.Info("endpoint selected", "endpoint", best.URL, "height", best.Height, "latency", best.Latency.String())
	return best.URL, nil
}

// BreakerState exposes an endpoint's breaker for the admin API and tests.
func (s *Selector) BreakerState(endpoint string) BreakerState {
	return s.health.state(endpoint)
}
