// Package checkout purchases every item in a cart, one at a time.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmcleod/daystore/cart"
)

var (
	// ErrCartEmpty is returned when there is nothing to purchase.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrLoginRequired is returned when no session is present.
	ErrLoginRequired = errors.New("login required to check out")
)

// Buyer purchases a single product. *api.Catalog satisfies it.
type Buyer interface {
	Buy(ctx context.Context, id string) error
}

// Session reports whether a credential is present. *session.Store
// satisfies it.
type Session interface {
	IsAuthenticated() bool
}

// Failure is one item whose purchase failed.
type Failure struct {
	ID  string
	Err error
}

// Report summarizes a sweep.
type Report struct {
	Succeeded int
	Failed    int
	Failures  []Failure
}

func (r Report) String() string {
	return fmt.Sprintf("Purchased: %d, errors: %d", r.Succeeded, r.Failed)
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	progress func(item cart.Item, err error)
}

// WithLogger sets the logger for per-item results.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress calls fn after each purchase attempt.
func WithProgress(fn func(item cart.Item, err error)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Run buys each item in order. A failed purchase is recorded and the sweep
// continues with the next item. Run never modifies the cart; callers decide
// what to do with purchased items.
//
// A precondition failure returns an error before any purchase is attempted.
// If ctx is cancelled the sweep stops and returns ctx.Err() with a report
// of the items attempted so far.
func Run(ctx context.Context, items []cart.Item, sess Session, buyer Buyer, opts ...Option) (Report, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(items) == 0 {
		return Report{}, ErrCartEmpty
	}
	if sess == nil || !sess.IsAuthenticated() {
		return Report{}, ErrLoginRequired
	}

	var r Report
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("checkout interrupted",
				slog.Int("attempted", r.Succeeded+r.Failed),
				slog.Int("remaining", len(items)-r.Succeeded-r.Failed))
			return r, err
		}
		err := buyer.Buy(ctx, item.ID)
		if err != nil {
			r.Failed++
			r.Failures = append(r.Failures, Failure{ID: item.ID, Err: err})
			o.logger.Warn("purchase failed", slog.String("product_id", item.ID), slog.String("error", err.Error()))
		} else {
			r.Succeeded++
			o.logger.Debug("purchased", slog.String("product_id", item.ID))
		}
		if o.progress != nil {
			o.progress(item, err)
		}
	}
	return r, nil
}
