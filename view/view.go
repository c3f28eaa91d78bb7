// Package view renders catalog, cart and account data as plain terminal
// text. Every string that came from the API or local storage is sanitized
// before it is printed.
package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jmcleod/daystore/api"
	"github.com/jmcleod/daystore/cart"
	"github.com/jmcleod/daystore/client"
	"github.com/jmcleod/daystore/internal/util"
)

const (
	missing     = "-"
	unknownName = "?"
	timeLayout  = "2006-01-02 15:04:05"
)

// Renderer writes tables to an io.Writer.
type Renderer struct {
	w       io.Writer
	printer *message.Printer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLanguage sets the locale used for number formatting.
func WithLanguage(tag language.Tag) Option {
	return func(r *Renderer) {
		r.printer = message.NewPrinter(tag)
	}
}

// New returns a Renderer writing to w. Numbers are formatted for
// language.English unless WithLanguage says otherwise.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, printer: message.NewPrinter(language.English)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.w, 2, 0, 3, ' ', 0)
}

// Price formats an optional price.
func (r *Renderer) Price(v *float64) string {
	if v == nil {
		return missing
	}
	return r.printer.Sprintf("%.2f", *v)
}

// Products prints one row per product.
func (r *Renderer) Products(items []api.Product) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(r.w, "No products.")
		return err
	}
	tw := r.table()
	fmt.Fprintln(tw, "ID\tPRODUCT\tCATEGORY\tPRICE")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			text(p.ID, missing),
			title(p.Brand, p.Model),
			text(p.Category, missing),
			r.Price(p.Price),
		)
	}
	return tw.Flush()
}

// Product prints a single product as a key/value block.
func (r *Renderer) Product(p *api.Product) error {
	tw := r.table()
	fmt.Fprintf(tw, "Product:\t%s\n", title(p.Brand, p.Model))
	fmt.Fprintf(tw, "ID:\t%s\n", text(p.ID, missing))
	fmt.Fprintf(tw, "Category:\t%s\n", text(p.Category, missing))
	fmt.Fprintf(tw, "Price:\t%s\n", r.Price(p.Price))
	return tw.Flush()
}

// Cart prints the cart contents and a total over the items that have a
// price.
func (r *Renderer) Cart(items []cart.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(r.w, "Cart is empty.")
		return err
	}
	tw := r.table()
	fmt.Fprintln(tw, "#\tID\tPRODUCT\tPRICE")
	var total float64
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, text(it.ID, missing), title(it.Brand, it.Model), r.Price(it.Price))
		if it.Price != nil {
			total += *it.Price
		}
	}
	fmt.Fprintf(tw, "\t\tTotal (%d items)\t%s\n", len(items), r.Price(&total))
	return tw.Flush()
}

// ActionLabel maps an action code to its display label. Unknown codes are
// shown as received.
func ActionLabel(code string) string {
	switch code {
	case api.ActionView:
		return "View"
	case api.ActionLike:
		return "Like"
	case api.ActionPurchase:
		return "Purchase"
	}
	return text(code, missing)
}

// History prints the action log.
func (r *Renderer) History(actions []api.Action) error {
	if len(actions) == 0 {
		_, err := fmt.Fprintln(r.w, "No history yet.")
		return err
	}
	tw := r.table()
	fmt.Fprintln(tw, "TIME\tACTION\tPRODUCT\tCATEGORY")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			timestamp(a.Timestamp),
			ActionLabel(a.Action),
			util.ShortID(text(a.ProductID, missing)),
			text(a.Category, missing),
		)
	}
	fmt.Fprintf(tw, "Total records: %d\n", len(actions))
	return tw.Flush()
}

// Purchases prints the purchase log.
func (r *Renderer) Purchases(purchases []api.Purchase) error {
	if len(purchases) == 0 {
		_, err := fmt.Fprintln(r.w, "No purchases yet.")
		return err
	}
	tw := r.table()
	fmt.Fprintln(tw, "TIME\tPRODUCT\tID\tPRICE")
	for _, p := range purchases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			timestamp(p.Timestamp),
			title(p.Product.Brand, p.Product.Model),
			util.ShortID(text(p.Product.ID, missing)),
			r.Price(p.Product.Price),
		)
	}
	fmt.Fprintf(tw, "Total purchases: %d\n", len(purchases))
	return tw.Flush()
}

// Users prints the admin user listing.
func (r *Renderer) Users(users []api.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(r.w, "No users.")
		return err
	}
	tw := r.table()
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE")
	for _, u := range users {
		role := "user"
		if u.Username == api.AdminUsername {
			role = "admin"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", text(u.ID, missing), text(u.Username, unknownName), role)
	}
	return tw.Flush()
}

// Status describes the local session for display.
type Status struct {
	Authenticated bool
	Username      string
	ExpiresAt     time.Time
	CartCount     int
	Degraded      bool
}

// Status prints the session summary.
func (r *Renderer) Status(s Status) error {
	tw := r.table()
	if s.Authenticated {
		who := "authorized"
		if s.Username != "" {
			who += " as " + util.Sanitize(s.Username)
		}
		fmt.Fprintf(tw, "Session:\t%s\n", who)
		if !s.ExpiresAt.IsZero() {
			fmt.Fprintf(tw, "Expires:\t%s\n", s.ExpiresAt.Local().Format(timeLayout))
		}
	} else {
		fmt.Fprintf(tw, "Session:\tanonymous\n")
	}
	fmt.Fprintf(tw, "Cart:\t%d items\n", s.CartCount)
	if s.Degraded {
		fmt.Fprintf(tw, "Storage:\tunavailable, changes are kept in memory only\n")
	}
	return tw.Flush()
}

// Error prints err as a single status line.
func (r *Renderer) Error(err error) error {
	if err == nil {
		return nil
	}
	_, werr := fmt.Fprintln(r.w, "Error: "+util.Sanitize(client.Message(err)))
	return werr
}

// Line prints a sanitized status line.
func (r *Renderer) Line(format string, args ...any) error {
	_, err := fmt.Fprintln(r.w, util.Sanitize(fmt.Sprintf(format, args...)))
	return err
}

func text(s, fallback string) string {
	s = util.Sanitize(s)
	if s == "" {
		return fallback
	}
	return s
}

func title(brand, model string) string {
	return text(brand, unknownName) + " — " + text(model, unknownName)
}

func timestamp(t api.Timestamp) string {
	if t.Time.IsZero() {
		return text(t.Raw, missing)
	}
	return t.Time.Local().Format(timeLayout)
}
