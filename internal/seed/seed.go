// Package seed loads fixture data into the store for local setups and
// integration tests. It stands in for the sibling modules that own users,
// customers, menu items and order line items.
package seed

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/xenking/pos-orders/db"
	"github.com/xenking/pos-orders/internal/domain/order"
	"github.com/xenking/pos-orders/internal/storage/postgres"
)

const (
	upsertUserSQL = `INSERT INTO users (user_id, username) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username`

	upsertCustomerSQL = `INSERT INTO customers (customer_id, customer_name, email, phone_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id) DO UPDATE SET customer_name = EXCLUDED.customer_name,
			email = EXCLUDED.email, phone_number = EXCLUDED.phone_number`

	upsertMenuItemSQL = `INSERT INTO menu_items (item_name, price) VALUES ($1, $2)
		ON CONFLICT (item_name) DO UPDATE SET price = EXCLUDED.price`

	insertLineItemSQL = `INSERT INTO order_items (order_id, item_name, quantity) VALUES ($1, $2, $3)`

	// Explicit ids leave the serial sequences behind.
	syncUserSeqSQL     = `SELECT setval(pg_get_serial_sequence('users', 'user_id'), GREATEST((SELECT MAX(user_id) FROM users), 1))`
	syncCustomerSeqSQL = `SELECT setval(pg_get_serial_sequence('customers', 'customer_id'), GREATEST((SELECT MAX(customer_id) FROM customers), 1))`
)

// Fixture is the on-disk seed format.
type Fixture struct {
	Users     []User     `yaml:"users"`
	Customers []Customer `yaml:"customers"`
	Menu      []MenuItem `yaml:"menu"`
	Orders    []Order    `yaml:"orders"`
}

// User is a cashier account.
type User struct {
	ID       int64  `yaml:"id"`
	Username string `yaml:"username"`
}

// Customer is a customer record.
type Customer struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// MenuItem is a catalog entry.
type MenuItem struct {
	Name  string          `yaml:"name"`
	Price decimal.Decimal `yaml:"price"`
}

// Order is an order with its line items.
type Order struct {
	UserID     int64           `yaml:"user_id"`
	CustomerID int64           `yaml:"customer_id"`
	At         time.Time       `yaml:"at"`
	Total      decimal.Decimal `yaml:"total"`
	Subtotal   decimal.Decimal `yaml:"subtotal"`
	Tax        decimal.Decimal `yaml:"tax"`
	Items      []Item          `yaml:"items"`
}

// Item is a line item of a fixture order.
type Item struct {
	Name     string `yaml:"name"`
	Quantity int    `yaml:"quantity"`
}

// Load reads a fixture file. Files ending in ".gz" are decompressed.
func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open fixture")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	fx, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return fx, nil
}

// Decode parses a YAML fixture.
func Decode(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, errors.Wrap(err, "decode yaml")
	}
	return &fx, nil
}

// SchemaEnsurer creates the orders relation.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// Seeder writes fixtures.
type Seeder struct {
	conn   postgres.DBTX
	schema SchemaEnsurer
	orders order.Writer
}

// New creates a Seeder. conn must be safe for concurrent use, e.g. a pool.
func New(conn postgres.DBTX, schema SchemaEnsurer, orders order.Writer) *Seeder {
	return &Seeder{conn: conn, schema: schema, orders: orders}
}

// Result lists what a seed run created.
type Result struct {
	Orders []order.ID
}

// Run creates all relations and loads the fixture. Reference data is
// upserted; orders are always inserted as new rows.
func (s *Seeder) Run(ctx context.Context, fx *Fixture) (*Result, error) {
	lg := zctx.From(ctx)

	if err := s.ensureRelations(ctx); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.upsertUsers(gctx, fx.Users) })
	g.Go(func() error { return s.upsertCustomers(gctx, fx.Customers) })
	g.Go(func() error { return s.upsertMenu(gctx, fx.Menu) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	lg.Info("Reference data loaded",
		zap.Int("users", len(fx.Users)),
		zap.Int("customers", len(fx.Customers)),
		zap.Int("menu_items", len(fx.Menu)),
	)

	res := &Result{Orders: make([]order.ID, 0, len(fx.Orders))}
	for i, o := range fx.Orders {
		id, err := s.orders.Create(ctx, order.NewOrder{
			UserID:     o.UserID,
			CustomerID: o.CustomerID,
			Timestamp:  o.At,
			Amounts: order.Amounts{
				Total:    o.Total,
				Subtotal: o.Subtotal,
				Tax:      o.Tax,
			},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "create order #%d", i)
		}
		for _, item := range o.Items {
			if _, err := s.conn.Exec(ctx, insertLineItemSQL, int64(id), item.Name, item.Quantity); err != nil {
				return nil, errors.Wrapf(err, "insert line item %q for order %d", item.Name, id)
			}
		}
		lg.Debug("Seeded order", zap.Int64("order_id", int64(id)), zap.Int("items", len(o.Items)))
		res.Orders = append(res.Orders, id)
	}

	lg.Info("Orders loaded", zap.Int("orders", len(res.Orders)))
	return res, nil
}

func (s *Seeder) ensureRelations(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, db.Collaborators); err != nil {
		return errors.Wrap(err, "create collaborator tables")
	}
	if err := s.schema.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "ensure orders schema")
	}
	if _, err := s.conn.Exec(ctx, db.LineItems); err != nil {
		return errors.Wrap(err, "create order_items table")
	}
	return nil
}

func (s *Seeder) upsertUsers(ctx context.Context, users []User) error {
	for _, u := range users {
		if _, err := s.conn.Exec(ctx, upsertUserSQL, u.ID, u.Username); err != nil {
			return errors.Wrapf(err, "upsert user %d", u.ID)
		}
	}
	if len(users) == 0 {
		return nil
	}
	if _, err := s.conn.Exec(ctx, syncUserSeqSQL); err != nil {
		return errors.Wrap(err, "sync users sequence")
	}
	return nil
}

func (s *Seeder) upsertCustomers(ctx context.Context, customers []Customer) error {
	for _, c := range customers {
		if _, err := s.conn.Exec(ctx, upsertCustomerSQL, c.ID, c.Name, nullable(c.Email), nullable(c.Phone)); err != nil {
			return errors.Wrapf(err, "upsert customer %d", c.ID)
		}
	}
	if len(customers) == 0 {
		return nil
	}
	if _, err := s.conn.Exec(ctx, syncCustomerSeqSQL); err != nil {
		return errors.Wrap(err, "sync customers sequence")
	}
	return nil
}

func (s *Seeder) upsertMenu(ctx context.Context, items []MenuItem) error {
	for _, m := range items {
		if _, err := s.conn.Exec(ctx, upsertMenuItemSQL, m.Name, m.Price); err != nil {
			return errors.Wrapf(err, "upsert menu item %q", m.Name)
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
