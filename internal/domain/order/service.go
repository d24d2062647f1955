package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ValidationError indicates the order input was rejected before reaching the
// store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s: %s", e.Field, e.Reason)
}

// ServiceConfig controls input checks performed by the Service.
type ServiceConfig struct {
	// StrictTotals rejects orders whose subtotal plus tax differs from the
	// total. When false the amounts are stored as given.
	StrictTotals bool
}

// Service is the validated entry point to the order store.
type Service struct {
	repo     Repository
	validate *validator.Validate
	strict   bool
}

// NewService creates a Service over the given repository.
func NewService(cfg ServiceConfig, repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		strict:   cfg.StrictTotals,
	}
}

// Place validates the input and persists a new order, returning its identity.
func (s *Service) Place(ctx context.Context, o NewOrder) (ID, error) {
	if err := s.check(o); err != nil {
		zctx.From(ctx).Warn("Order rejected",
			zap.Int64("user_id", o.UserID),
			zap.Int64("customer_id", o.CustomerID),
			zap.Error(err),
		)
		return 0, err
	}

	id, err := s.repo.Create(ctx, o)
	if err != nil {
		return 0, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", int64(id)),
		zap.Int64("user_id", o.UserID),
		zap.Int64("customer_id", o.CustomerID),
		zap.Stringer("total", o.Amounts.Total),
	)
	return id, nil
}

func (s *Service) check(o NewOrder) error {
	if err := s.validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Reason: verrs[0].Tag()}
		}
		return errors.Wrap(err, "validate order")
	}

	switch {
	case o.Amounts.Total.IsNegative():
		return &ValidationError{Field: "Total", Reason: "negative"}
	case o.Amounts.Subtotal.IsNegative():
		return &ValidationError{Field: "Subtotal", Reason: "negative"}
	case o.Amounts.Tax.IsNegative():
		return &ValidationError{Field: "Tax", Reason: "negative"}
	}

	if s.strict && !o.Amounts.Reconciles() {
		return &ValidationError{Field: "Total", Reason: "subtotal plus tax does not equal total"}
	}
	return nil
}

// List returns the order listing, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	summaries, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return summaries, nil
}

// Get returns a single order with its line items. It returns an error
// matching ErrNotFound when the order does not exist.
func (s *Service) Get(ctx context.Context, id ID) (*Detail, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return d, nil
}

// Stats returns aggregate totals across all orders.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	return st, nil
}
