package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, customer_id, order_timestamp, total_amount, sub_total, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING order_id`

	listOrdersSQL = `SELECT o.order_id, o.user_id, o.customer_id, o.order_timestamp,
			o.total_amount, o.sub_total, o.tax_amount,
			COALESCE(c.customer_name, ''), COALESCE(c.email, ''), COALESCE(c.phone_number, ''),
			oi.item_name, oi.quantity
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id
		JOIN order_items oi ON oi.order_id = o.order_id
		ORDER BY o.order_id DESC, oi.order_item_id`

	getOrderSQL = `SELECT o.order_id, o.user_id, o.customer_id, o.order_timestamp,
			o.total_amount, o.sub_total, o.tax_amount,
			COALESCE(c.customer_name, ''), COALESCE(c.email, ''), COALESCE(c.phone_number, ''),
			oi.item_name, oi.quantity, m.price
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id
		LEFT JOIN order_items oi ON oi.order_id = o.order_id
		LEFT JOIN LATERAL (
			SELECT price FROM menu_items WHERE item_name = oi.item_name LIMIT 1
		) m ON TRUE
		WHERE o.order_id = $1
		ORDER BY oi.order_item_id`

	statsSQL = `SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders),
			(SELECT COALESCE(SUM(quantity), 0) FROM order_items)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	conn DBTX
	tel  *telemetry
}

// NewOrderRepository returns an OrderRepository that uses the given
// connection or pool.
func NewOrderRepository(conn DBTX, opts ...Option) (*OrderRepository, error) {
	tel, err := newTelemetry(buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &OrderRepository{conn: conn, tel: tel}, nil
}

// Create inserts a new order and returns the identity assigned by the store.
// The identity comes from the INSERT itself, so concurrent writers with equal
// user, customer and timestamp always get their own row back.
func (r *OrderRepository) Create(ctx context.Context, o order.NewOrder) (_ order.ID, rerr error) {
	ctx, end := r.tel.start(ctx, "order.create")
	defer func() { end(rerr) }()

	var id int64
	err := r.conn.QueryRow(ctx, createOrderSQL,
		o.UserID, o.CustomerID, o.Timestamp,
		o.Amounts.Total, o.Amounts.Subtotal, o.Amounts.Tax,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, order.ErrNotPersisted
		}
		return 0, errors.Wrapf(err, "insert order for customer %d", o.CustomerID)
	}

	return order.ID(id), nil
}

// List returns every order that has a customer and at least one line item,
// newest first. Line items keep their insertion order.
func (r *OrderRepository) List(ctx context.Context) (_ []order.Summary, rerr error) {
	ctx, end := r.tel.start(ctx, "order.list")
	defer func() { end(rerr) }()

	rows, err := r.conn.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	summaries := make([]order.Summary, 0)
	for rows.Next() {
		var (
			s        order.Summary
			id       int64
			amounts  nullAmounts
			name     string
			quantity int32
		)
		if err := rows.Scan(
			&id, &s.UserID, &s.CustomerID, &s.Timestamp,
			&amounts.total, &amounts.subtotal, &amounts.tax,
			&s.Customer.Name, &s.Customer.Email, &s.Customer.PhoneNumber,
			&name, &quantity,
		); err != nil {
			return nil, errors.Wrap(err, "scan order row")
		}
		s.ID = order.ID(id)
		item := order.LineItem{Name: name, Quantity: int(quantity)}

		// Rows of one order are adjacent because of the ORDER BY.
		if n := len(summaries); n > 0 && summaries[n-1].ID == s.ID {
			summaries[n-1].Items = append(summaries[n-1].Items, item)
			continue
		}

		s.Amounts = amounts.value()
		s.Customer.ID = s.CustomerID
		s.Items = []order.LineItem{item}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read order rows")
	}

	return summaries, nil
}

// Get returns the order with the given identity together with its line
// items and their catalog prices. It returns order.ErrNotFound when no such
// order exists.
func (r *OrderRepository) Get(ctx context.Context, id order.ID) (_ *order.Detail, rerr error) {
	ctx, end := r.tel.start(ctx, "order.get")
	defer func() { end(rerr) }()

	rows, err := r.conn.Query(ctx, getOrderSQL, int64(id))
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	defer rows.Close()

	var d *order.Detail
	for rows.Next() {
		var (
			hdr      order.Detail
			rowID    int64
			amounts  nullAmounts
			name     pgtype.Text
			quantity pgtype.Int4
			price    decimal.NullDecimal
		)
		if err := rows.Scan(
			&rowID, &hdr.UserID, &hdr.CustomerID, &hdr.Timestamp,
			&amounts.total, &amounts.subtotal, &amounts.tax,
			&hdr.Customer.Name, &hdr.Customer.Email, &hdr.Customer.PhoneNumber,
			&name, &quantity, &price,
		); err != nil {
			return nil, errors.Wrapf(err, "scan order %d", id)
		}

		if d == nil {
			hdr.ID = order.ID(rowID)
			hdr.Amounts = amounts.value()
			hdr.Customer.ID = hdr.CustomerID
			d = &hdr
		}
		// A left join without line items yields one row with NULL item columns.
		if !name.Valid {
			continue
		}
		d.Items = append(d.Items, order.DetailItem{
			Name:     name.String,
			Price:    price,
			Quantity: int(quantity.Int32),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read order %d", id)
	}

	if d == nil {
		return nil, order.ErrNotFound
	}
	return d, nil
}

// Stats returns aggregate totals for the dashboard, read in one statement so
// the figures come from a single snapshot.
func (r *OrderRepository) Stats(ctx context.Context) (_ *order.Stats, rerr error) {
	ctx, end := r.tel.start(ctx, "order.stats")
	defer func() { end(rerr) }()

	var st order.Stats
	err := r.conn.QueryRow(ctx, statsSQL).Scan(
		&st.TotalCustomers, &st.TotalOrders, &st.TotalRevenue, &st.ProductsSold,
	)
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}

	return &st, nil
}

// nullAmounts scans the nullable amount columns. Missing amounts read as zero.
type nullAmounts struct {
	total, subtotal, tax decimal.NullDecimal
}

func (a nullAmounts) value() order.Amounts {
	return order.Amounts{
		Total:    a.total.Decimal,
		Subtotal: a.subtotal.Decimal,
		Tax:      a.tax.Decimal,
	}
}
