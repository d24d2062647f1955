// Package app wires configuration, the PostgreSQL store and the order
// service together for posctl.
package app

import (
	"context"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/pos-orders/internal/domain/order"
	"github.com/xenking/pos-orders/internal/seed"
	"github.com/xenking/pos-orders/internal/storage/postgres"
	"github.com/xenking/pos-orders/pkg/health"
)

// Env holds the wired components for one posctl invocation.
type Env struct {
	pool   *pgxpool.Pool
	schema *postgres.SchemaManager
	orders *order.Service
	seeder *seed.Seeder
	doctor DoctorConfig
}

// Open connects to the database and creates all dependencies. It is the
// single wiring point for the application. The caller must Close the Env.
func Open(ctx context.Context, m *sdkapp.Telemetry, cfg *Config) (*Env, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}

	opts := []postgres.Option{
		postgres.WithTracerProvider(m.TracerProvider()),
		postgres.WithMeterProvider(m.MeterProvider()),
	}

	schema, err := postgres.NewSchemaManager(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create schema manager")
	}
	repo, err := postgres.NewOrderRepository(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create order repository")
	}

	zctx.From(ctx).Debug("Store opened", zap.Bool("strict_totals", cfg.Orders.StrictTotals))

	return &Env{
		pool:   pool,
		schema: schema,
		orders: order.NewService(order.ServiceConfig{StrictTotals: cfg.Orders.StrictTotals}, repo),
		seeder: seed.New(pool, schema, repo),
		doctor: cfg.Doctor,
	}, nil
}

// Close releases the connection pool.
func (e *Env) Close() {
	e.pool.Close()
}

// EnsureSchema creates the orders relation if it does not exist.
func (e *Env) EnsureSchema(ctx context.Context) error {
	return e.schema.EnsureSchema(ctx)
}

// Place validates and persists a new order.
func (e *Env) Place(ctx context.Context, o order.NewOrder) (order.ID, error) {
	return e.orders.Place(ctx, o)
}

// List returns the order summaries, newest first.
func (e *Env) List(ctx context.Context) ([]order.Summary, error) {
	return e.orders.List(ctx)
}

// Get returns one order with its line items.
func (e *Env) Get(ctx context.Context, id order.ID) (*order.Detail, error) {
	return e.orders.Get(ctx, id)
}

// Stats returns the dashboard aggregates.
func (e *Env) Stats(ctx context.Context) (*order.Stats, error) {
	return e.orders.Stats(ctx)
}

// Seed loads a fixture into the store.
func (e *Env) Seed(ctx context.Context, fx *seed.Fixture) (*seed.Result, error) {
	return e.seeder.Run(ctx, fx)
}

// Doctor checks database connectivity and the presence of the orders
// relation.
func (e *Env) Doctor(ctx context.Context) health.Report {
	c := health.New(e.doctor.Attempts, e.doctor.Backoff)
	c.Add("postgres", e.doctor.Timeout, health.PingCheck(e.pool))
	c.Add("orders_schema", e.doctor.Timeout, e.schema.Check)
	return c.Run(ctx)
}
