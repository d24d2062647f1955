package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-orders/internal/domain/order"
	"github.com/xenking/pos-orders/internal/seed"
	"github.com/xenking/pos-orders/pkg/health"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
)

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatTable, formatJSON:
		return f, nil
	default:
		return "", errors.Errorf("unknown output format %q: want table or json", s)
	}
}

var (
	accent = lipgloss.Color("#D97706")
	dim    = lipgloss.Color("#6B7280")
	good   = lipgloss.Color("#22C55E")
	bad    = lipgloss.Color("#EF4444")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(dim)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(good)
	failStyle   = lipgloss.NewStyle().Foreground(bad)
)

// printer renders command results as tables or JSON.
type printer struct {
	w      io.Writer
	format format
}

func newPrinter(w io.Writer, f format) *printer {
	return &printer{w: w, format: f}
}

func (p *printer) json(fn func(e *jx.Encoder)) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.SetIdent(2)

	fn(e)
	if _, err := p.w.Write(append(e.Bytes(), '\n')); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

func (p *printer) text(s string) error {
	if _, err := fmt.Fprintln(p.w, s); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Status prints a one-line confirmation.
func (p *printer) Status(msg string) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("status")
			e.Str("ok")
			e.FieldStart("message")
			e.Str(msg)
			e.ObjEnd()
		})
	}
	return p.text(okStyle.Render(msg))
}

// Created prints the identity of a new order.
func (p *printer) Created(id order.ID) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("order_id")
			e.Int64(int64(id))
			e.ObjEnd()
		})
	}
	return p.text(fmt.Sprintf("Order %d created", id))
}

// Summaries prints the order listing.
func (p *printer) Summaries(summaries []order.Summary) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ArrStart()
			for _, s := range summaries {
				e.ObjStart()
				encodeHeader(e, s.Order, s.Customer)
				e.FieldStart("items")
				e.ArrStart()
				for _, item := range s.Items {
					e.ObjStart()
					e.FieldStart("name")
					e.Str(item.Name)
					e.FieldStart("quantity")
					e.Int(item.Quantity)
					e.ObjEnd()
				}
				e.ArrEnd()
				e.ObjEnd()
			}
			e.ArrEnd()
		})
	}

	if len(summaries) == 0 {
		return p.text(lipgloss.NewStyle().Foreground(dim).Render("No orders"))
	}
	t := newTable("ID", "Placed", "Customer", "Email", "Phone", "Items", "Subtotal", "Tax", "Total")
	for _, s := range summaries {
		items := make([]string, 0, len(s.Items))
		for _, item := range s.Items {
			items = append(items, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		}
		t.Row(
			strconv.FormatInt(int64(s.ID), 10),
			s.Timestamp.Format(time.DateTime),
			s.Customer.Name,
			s.Customer.Email,
			s.Customer.PhoneNumber,
			strings.Join(items, ", "),
			money(s.Amounts.Subtotal),
			money(s.Amounts.Tax),
			money(s.Amounts.Total),
		)
	}
	return p.text(t.String())
}

// Detail prints one order with its priced line items.
func (p *printer) Detail(d *order.Detail) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			encodeHeader(e, d.Order, d.Customer)
			e.FieldStart("items")
			if d.Items == nil {
				e.Null()
				e.ObjEnd()
				return
			}
			e.ArrStart()
			for _, item := range d.Items {
				e.ObjStart()
				e.FieldStart("name")
				e.Str(item.Name)
				e.FieldStart("price")
				if item.Price.Valid {
					e.Str(money(item.Price.Decimal))
				} else {
					e.Null()
				}
				e.FieldStart("quantity")
				e.Int(item.Quantity)
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Order %d", d.ID)))
	b.WriteString("\n")

	hdr := newTable("Field", "Value").
		Row("Placed", d.Timestamp.Format(time.DateTime)).
		Row("User", strconv.FormatInt(d.UserID, 10)).
		Row("Customer", fmt.Sprintf("%s (#%d)", d.Customer.Name, d.Customer.ID)).
		Row("Email", d.Customer.Email).
		Row("Phone", d.Customer.PhoneNumber).
		Row("Subtotal", money(d.Amounts.Subtotal)).
		Row("Tax", money(d.Amounts.Tax)).
		Row("Total", money(d.Amounts.Total))
	b.WriteString(hdr.String())

	if len(d.Items) > 0 {
		items := newTable("Item", "Price", "Qty")
		for _, item := range d.Items {
			price := "-"
			if item.Price.Valid {
				price = money(item.Price.Decimal)
			}
			items.Row(item.Name, price, strconv.Itoa(item.Quantity))
		}
		b.WriteString("\n")
		b.WriteString(items.String())
	}

	return p.text(b.String())
}

// Stats prints the dashboard aggregates.
func (p *printer) Stats(st *order.Stats) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("total_customers")
			e.Int64(st.TotalCustomers)
			e.FieldStart("total_orders")
			e.Int64(st.TotalOrders)
			e.FieldStart("total_revenue")
			e.Str(money(st.TotalRevenue))
			e.FieldStart("products_sold")
			e.Int64(st.ProductsSold)
			e.ObjEnd()
		})
	}

	t := newTable("Metric", "Value").
		Row("Customers", strconv.FormatInt(st.TotalCustomers, 10)).
		Row("Orders", strconv.FormatInt(st.TotalOrders, 10)).
		Row("Revenue", money(st.TotalRevenue)).
		Row("Products sold", strconv.FormatInt(st.ProductsSold, 10))
	return p.text(t.String())
}

// Seeded prints the orders created by a seed run.
func (p *printer) Seeded(res *seed.Result) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("orders")
			e.ArrStart()
			for _, id := range res.Orders {
				e.Int64(int64(id))
			}
			e.ArrEnd()
			e.ObjEnd()
		})
	}
	return p.text(okStyle.Render(fmt.Sprintf("Seeded %d orders", len(res.Orders))))
}

// Report prints doctor results.
func (p *printer) Report(report health.Report) error {
	if p.format == formatJSON {
		return p.json(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("healthy")
			e.Bool(report.Healthy())
			e.FieldStart("checks")
			e.ArrStart()
			for _, res := range report {
				e.ObjStart()
				e.FieldStart("name")
				e.Str(res.Name)
				e.FieldStart("ok")
				e.Bool(res.OK())
				e.FieldStart("attempts")
				e.Int(res.Attempts)
				e.FieldStart("duration")
				e.Str(res.Duration.String())
				if res.Err != nil {
					e.FieldStart("error")
					e.Str(res.Err.Error())
				}
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
	}

	t := newTable("Check", "Status", "Attempts", "Duration", "Error")
	for _, res := range report {
		status, msg := okStyle.Render("ok"), ""
		if !res.OK() {
			status, msg = failStyle.Render("fail"), res.Err.Error()
		}
		t.Row(res.Name, status, strconv.Itoa(res.Attempts), res.Duration.Round(time.Millisecond).String(), msg)
	}
	return p.text(t.String())
}

func encodeHeader(e *jx.Encoder, o order.Order, c order.Customer) {
	e.FieldStart("order_id")
	e.Int64(int64(o.ID))
	e.FieldStart("user_id")
	e.Int64(o.UserID)
	e.FieldStart("placed_at")
	e.Str(o.Timestamp.Format(time.RFC3339))
	e.FieldStart("customer")
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("phone_number")
	e.Str(c.PhoneNumber)
	e.ObjEnd()
	e.FieldStart("total")
	e.Str(money(o.Amounts.Total))
	e.FieldStart("subtotal")
	e.Str(money(o.Amounts.Subtotal))
	e.FieldStart("tax")
	e.Str(money(o.Amounts.Tax))
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
