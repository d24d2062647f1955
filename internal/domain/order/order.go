package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned by order repositories.
var (
	// ErrNotFound is returned when no order matches the requested identity.
	ErrNotFound = errors.New("order not found")
	// ErrNotPersisted is returned when an insert reports success but yields
	// no identity for the new row.
	ErrNotPersisted = errors.New("order not persisted")
)

// ID is the store-assigned identity of an order.
type ID int64

// Amounts holds the monetary fields of an order.
type Amounts struct {
	Total    decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
}

// Reconciles reports whether Subtotal + Tax equals Total.
func (a Amounts) Reconciles() bool {
	return a.Subtotal.Add(a.Tax).Equal(a.Total)
}

// NewOrder is the input for creating an order.
type NewOrder struct {
	UserID     int64     `validate:"required,gt=0"`
	CustomerID int64     `validate:"required,gt=0"`
	Timestamp  time.Time `validate:"required"`
	Amounts    Amounts
}

// Order is one completed transaction.
type Order struct {
	ID         ID
	UserID     int64
	CustomerID int64
	Timestamp  time.Time
	Amounts    Amounts
}

// Customer holds the customer fields surfaced by read models.
type Customer struct {
	ID          int64
	Name        string
	Email       string
	PhoneNumber string
}

// LineItem is one product line of an order.
type LineItem struct {
	Name     string
	Quantity int
}

// Summary is the listing projection of an order: header, customer and the
// ordered line items.
type Summary struct {
	Order
	Customer Customer
	Items    []LineItem
}

// DetailItem is a line item with its catalog price resolved. Price is
// invalid when the item name has no catalog entry.
type DetailItem struct {
	Name     string
	Price    decimal.NullDecimal
	Quantity int
}

// Detail is the single-order projection. Items is nil when the order has no
// line items.
type Detail struct {
	Order
	Customer Customer
	Items    []DetailItem
}

// Stats aggregates totals across all orders.
type Stats struct {
	TotalCustomers int64
	TotalOrders    int64
	TotalRevenue   decimal.Decimal
	ProductsSold   int64
}

// Writer persists new orders.
type Writer interface {
	Create(ctx context.Context, o NewOrder) (ID, error)
}

// Reader builds read models over persisted orders.
type Reader interface {
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, id ID) (*Detail, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Repository combines Writer and Reader.
type Repository interface {
	Writer
	Reader
}
