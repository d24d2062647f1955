package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-orders/internal/domain/order"
	"github.com/xenking/pos-orders/internal/seed"
	"github.com/xenking/pos-orders/pkg/health"
)

// --- Mock implementations ---

type fakeBackend struct {
	opened, closed int

	placed  []order.NewOrder
	placeID order.ID
	err     error

	summaries []order.Summary
	detail    *order.Detail
	stats     *order.Stats
	seeded    *seed.Fixture
	report    health.Report
}

func (f *fakeBackend) EnsureSchema(_ context.Context) error { return f.err }

func (f *fakeBackend) Place(_ context.Context, o order.NewOrder) (order.ID, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.placed = append(f.placed, o)
	return f.placeID, nil
}

func (f *fakeBackend) List(_ context.Context) ([]order.Summary, error) {
	return f.summaries, f.err
}

func (f *fakeBackend) Get(_ context.Context, id order.ID) (*order.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.detail == nil || f.detail.ID != id {
		return nil, order.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeBackend) Stats(_ context.Context) (*order.Stats, error) {
	return f.stats, f.err
}

func (f *fakeBackend) Seed(_ context.Context, fx *seed.Fixture) (*seed.Result, error) {
	f.seeded = fx
	return &seed.Result{Orders: []order.ID{1, 2}}, f.err
}

func (f *fakeBackend) Doctor(_ context.Context) health.Report { return f.report }

func (f *fakeBackend) Close() { f.closed++ }

func execute(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd(func(context.Context) (Backend, error) {
		b.opened++
		return b, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func burgerDetail() *order.Detail {
	return &order.Detail{
		Order: order.Order{
			ID:         7,
			UserID:     1,
			CustomerID: 1,
			Timestamp:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Amounts:    order.Amounts{Total: dec("118"), Subtotal: dec("100"), Tax: dec("18")},
		},
		Customer: order.Customer{ID: 1, Name: "Asha", Email: "asha@example.com", PhoneNumber: "555-0100"},
		Items: []order.DetailItem{
			{Name: "Burger", Price: decimal.NewNullDecimal(dec("50")), Quantity: 2},
			{Name: "Seasonal Soup", Quantity: 1},
		},
	}
}

// --- Tests ---

func TestOrderCreate(t *testing.T) {
	b := &fakeBackend{placeID: 42}
	out, err := execute(t, b, "order", "create",
		"--user", "1", "--customer", "3", "--at", "2024-01-01T10:00:00Z",
		"--total", "118.00", "--subtotal", "100.00", "--tax", "18.00",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Order 42 created")

	require.Len(t, b.placed, 1)
	o := b.placed[0]
	assert.Equal(t, int64(1), o.UserID)
	assert.Equal(t, int64(3), o.CustomerID)
	assert.True(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).Equal(o.Timestamp))
	assert.True(t, dec("118").Equal(o.Amounts.Total))
	assert.True(t, dec("18").Equal(o.Amounts.Tax))
	assert.Equal(t, 1, b.closed)
}

func TestOrderCreate_JSON(t *testing.T) {
	b := &fakeBackend{placeID: 42}
	out, err := execute(t, b, "-o", "json", "order", "create",
		"--user", "1", "--customer", "1",
		"--total", "1", "--subtotal", "1", "--tax", "0",
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id": 42}`, out)
}

func TestOrderCreate_InvalidAmount(t *testing.T) {
	b := &fakeBackend{}
	_, err := execute(t, b, "order", "create",
		"--user", "1", "--customer", "1",
		"--total", "ten", "--subtotal", "1", "--tax", "0",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --total")
	assert.Zero(t, b.opened)
}

func TestOrderCreate_MissingFlag(t *testing.T) {
	b := &fakeBackend{}
	_, err := execute(t, b, "order", "create", "--user", "1")
	require.Error(t, err)
	assert.Zero(t, b.opened)
}

func TestOrderCreate_Rejected(t *testing.T) {
	b := &fakeBackend{err: &order.ValidationError{Field: "Total", Reason: "subtotal plus tax does not equal total"}}
	_, err := execute(t, b, "order", "create",
		"--user", "1", "--customer", "1",
		"--total", "10", "--subtotal", "1", "--tax", "0",
	)
	var verr *order.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Total", verr.Field)
	assert.Equal(t, 1, b.closed)
}

func TestUnknownOutputFormat(t *testing.T) {
	b := &fakeBackend{}
	_, err := execute(t, b, "-o", "xml", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
	assert.Zero(t, b.opened)
}

func TestOrderGet_JSON(t *testing.T) {
	b := &fakeBackend{detail: burgerDetail()}
	out, err := execute(t, b, "--output", "json", "order", "get", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"order_id": 7,
		"user_id": 1,
		"placed_at": "2024-01-01T10:00:00Z",
		"customer": {"id": 1, "name": "Asha", "email": "asha@example.com", "phone_number": "555-0100"},
		"total": "118.00",
		"subtotal": "100.00",
		"tax": "18.00",
		"items": [
			{"name": "Burger", "price": "50.00", "quantity": 2},
			{"name": "Seasonal Soup", "price": null, "quantity": 1}
		]
	}`, out)
}

func TestOrderGet_JSONWithoutItems(t *testing.T) {
	d := burgerDetail()
	d.Items = nil
	b := &fakeBackend{detail: d}

	out, err := execute(t, b, "-o", "json", "order", "get", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"order_id": 7,
		"user_id": 1,
		"placed_at": "2024-01-01T10:00:00Z",
		"customer": {"id": 1, "name": "Asha", "email": "asha@example.com", "phone_number": "555-0100"},
		"total": "118.00",
		"subtotal": "100.00",
		"tax": "18.00",
		"items": null
	}`, out)
}

func TestOrderGet_Table(t *testing.T) {
	b := &fakeBackend{detail: burgerDetail()}
	out, err := execute(t, b, "order", "get", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Order 7")
	assert.Contains(t, out, "Asha (#1)")
	assert.Contains(t, out, "118.00")
	assert.Contains(t, out, "Burger")
	assert.Contains(t, out, "50.00")
}

func TestOrderGet_NotFound(t *testing.T) {
	b := &fakeBackend{detail: burgerDetail()}
	_, err := execute(t, b, "order", "get", "8")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderGet_InvalidID(t *testing.T) {
	b := &fakeBackend{}
	_, err := execute(t, b, "order", "get", "seven")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid order id "seven"`)
	assert.Zero(t, b.opened)
}

func TestOrderList(t *testing.T) {
	d := burgerDetail()
	b := &fakeBackend{summaries: []order.Summary{{
		Order:    d.Order,
		Customer: d.Customer,
		Items:    []order.LineItem{{Name: "Burger", Quantity: 2}, {Name: "Fries", Quantity: 1}},
	}}}

	out, err := execute(t, b, "order", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Burger x2, Fries x1")
	assert.Contains(t, out, "asha@example.com")
}

func TestOrderList_EmptyJSON(t *testing.T) {
	b := &fakeBackend{summaries: []order.Summary{}}
	out, err := execute(t, b, "-o", "json", "order", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestStats_JSON(t *testing.T) {
	b := &fakeBackend{stats: &order.Stats{TotalCustomers: 3, TotalOrders: 5, TotalRevenue: dec("590"), ProductsSold: 12}}
	out, err := execute(t, b, "-o", "json", "stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_customers": 3, "total_orders": 5, "total_revenue": "590.00", "products_sold": 12}`, out)
}

func TestSchema_Error(t *testing.T) {
	dbErr := errors.New("permission denied")
	b := &fakeBackend{err: dbErr}
	_, err := execute(t, b, "schema")
	require.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, b.closed)
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - id: 1\n    username: cashier\n"), 0o600))

	b := &fakeBackend{}
	out, err := execute(t, b, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 2 orders")
	require.NotNil(t, b.seeded)
	assert.Len(t, b.seeded.Users, 1)
}

func TestDoctor_Failure(t *testing.T) {
	b := &fakeBackend{report: health.Report{
		{Name: "postgres", Attempts: 1},
		{Name: "orders_schema", Attempts: 3, Err: errors.New("orders relation does not exist")},
	}}
	out, err := execute(t, b, "doctor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 checks failed")
	assert.Contains(t, out, "orders_schema")
	assert.Contains(t, out, "orders relation does not exist")
}

func TestDoctor_JSON(t *testing.T) {
	b := &fakeBackend{report: health.Report{{Name: "postgres", Attempts: 1, Duration: time.Millisecond}}}
	out, err := execute(t, b, "-o", "json", "doctor")
	require.NoError(t, err)
	assert.JSONEq(t, `{"healthy": true, "checks": [{"name": "postgres", "ok": true, "attempts": 1, "duration": "1ms"}]}`, out)
}

func TestOpenError(t *testing.T) {
	openErr := errors.New("database URL is required")
	cmd := NewRootCmd(func(context.Context) (Backend, error) { return nil, openErr })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats"})

	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, openErr)
	assert.Contains(t, err.Error(), "open store")
}
