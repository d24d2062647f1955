package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-orders/db"
)

// SchemaManager creates the orders relation.
type SchemaManager struct {
	conn DBTX
	tel  *telemetry
}

// NewSchemaManager returns a SchemaManager that executes DDL through conn.
func NewSchemaManager(conn DBTX, opts ...Option) (*SchemaManager, error) {
	tel, err := newTelemetry(buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &SchemaManager{conn: conn, tel: tel}, nil
}

// EnsureSchema creates the orders relation and its foreign keys to users and
// customers unless it already exists. The referenced relations must exist.
// A failure here leaves the store unable to persist orders, so callers
// should abort startup.
func (m *SchemaManager) EnsureSchema(ctx context.Context) (rerr error) {
	ctx, end := m.tel.start(ctx, "schema.ensure")
	defer func() { end(rerr) }()

	if _, err := m.conn.Exec(ctx, db.Orders); err != nil {
		return errors.Wrap(err, "create orders table")
	}
	return nil
}

// ErrSchemaMissing is returned by Check when the orders relation is absent.
var ErrSchemaMissing = errors.New("orders relation does not exist")

const schemaPresentSQL = `SELECT to_regclass('orders') IS NOT NULL`

// Check reports whether the orders relation exists without creating it.
func (m *SchemaManager) Check(ctx context.Context) (rerr error) {
	ctx, end := m.tel.start(ctx, "schema.check")
	defer func() { end(rerr) }()

	var present bool
	if err := m.conn.QueryRow(ctx, schemaPresentSQL).Scan(&present); err != nil {
		return errors.Wrap(err, "look up orders relation")
	}
	if !present {
		return ErrSchemaMissing
	}
	return nil
}
