package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const instrumentationName = "github.com/jaminalder/solo-tic-tac-toe"

// InitOtel installs a global meter provider exporting over OTLP gRPC to
// endpoint. An empty endpoint leaves the no-op provider in place.
func InitOtel(ctx context.Context, endpoint, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("solo-tic-tac-toe"),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown MeterProvider: %w", err)
		}
		return nil
	}
	return shutdown, nil
}

// Metrics records game counters. A nil *Metrics records nothing.
type Metrics struct {
	gamesStarted  metric.Int64Counter
	gamesFinished metric.Int64Counter
	opponentMoves metric.Int64Counter
}

// NewMetrics creates the counters on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	started, err := meter.Int64Counter("tictactoe.games.started",
		metric.WithDescription("Games started, including play-again resets"))
	if err != nil {
		return nil, fmt.Errorf("games.started counter: %w", err)
	}
	finished, err := meter.Int64Counter("tictactoe.games.finished",
		metric.WithDescription("Games that reached a terminal state, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("games.finished counter: %w", err)
	}
	moves, err := meter.Int64Counter("tictactoe.opponent.moves",
		metric.WithDescription("Computer moves, by heuristic tier"))
	if err != nil {
		return nil, fmt.Errorf("opponent.moves counter: %w", err)
	}

	return &Metrics{gamesStarted: started, gamesFinished: finished, opponentMoves: moves}, nil
}

func (m *Metrics) GameStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.gamesStarted.Add(ctx, 1)
}

// GameFinished counts a finished game; outcome is "x_wins", "o_wins" or "draw".
func (m *Metrics) GameFinished(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.gamesFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) OpponentMoved(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.opponentMoves.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}
