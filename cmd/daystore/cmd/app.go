package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/daystore/api"
	"github.com/jmcleod/daystore/cart"
	"github.com/jmcleod/daystore/client"
	"github.com/jmcleod/daystore/config"
	"github.com/jmcleod/daystore/session"
	"github.com/jmcleod/daystore/storage"
	bboltstorage "github.com/jmcleod/daystore/storage/bbolt"
	"github.com/jmcleod/daystore/view"
)

const dbOpenTimeout = 2 * time.Second

// app holds the stores and API wrappers shared by every command.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	db       *bboltstorage.Store
	session  *session.Store
	cart     *cart.Store
	catalog  *api.Catalog
	account  *api.Account
	admin    *api.Admin
	view     *view.Renderer
	badge    *view.Badge
	registry *prometheus.Registry
	metrics  bool
	prompt   *prompter
}

func (a *app) open(flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.apiURL != "" {
		cfg.API.URL = flags.apiURL
	}
	if flags.dataDir != "" {
		cfg.DataDir = config.ExpandHome(flags.dataDir)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.metrics = flags.metrics
	a.logger = cfg.NewLogger(a.errOut)
	a.prompt = newPrompter(a.in, a.errOut)

	// A nil repository puts both stores in memory-only mode.
	var repo storage.Repository
	if db, err := a.openDB(); err != nil {
		a.logger.Warn("local storage unavailable, state will not persist",
			slog.String("path", cfg.DatabasePath()),
			slog.String("error", err.Error()))
	} else {
		a.db = db
		repo = db
	}

	a.session = session.New(repo,
		session.WithIdleTimeout(cfg.IdleTimeout()),
		session.WithLogger(a.logger))
	a.cart = cart.New(repo, cart.WithLogger(a.logger))

	a.registry = prometheus.NewRegistry()
	c, err := client.New(cfg.API.URL, a.session,
		client.WithTimeout(cfg.HTTPTimeout()),
		client.WithLogger(a.logger),
		client.WithRegisterer(a.registry),
		client.WithUserAgent("daystore-cli/"+Version))
	if err != nil {
		return err
	}

	a.catalog = api.NewCatalog(c, a.session)
	a.account = api.NewAccount(c, a.session)
	a.admin = api.NewAdmin(c, a.account)
	a.view = view.New(a.out)
	a.badge = view.NewBadge(a.session, a.cart, func(line string) {
		a.logger.Debug("status changed", slog.String("status", line))
	})
	return nil
}

func (a *app) openDB() (*bboltstorage.Store, error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return bboltstorage.NewRepositoryFromFile(a.cfg.DatabasePath(), &bbolt.Options{Timeout: dbOpenTimeout})
}

// close releases local state. It is safe to call on an app that was never
// opened, and more than once.
func (a *app) close() error {
	if a.badge != nil {
		a.badge.Close()
		a.badge = nil
	}
	if a.metrics && a.registry != nil {
		a.printMetrics()
		a.metrics = false
	}
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil {
		return fmt.Errorf("closing local storage: %w", err)
	}
	return nil
}

// printMetrics writes the request counters gathered during this run.
func (a *app) printMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("gathering metrics", slog.String("error", err.Error()))
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName() + "{" + strings.Join(labels, ",") + "}"
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(a.errOut, l)
	}
}

// status summarizes local state without calling the API.
func (a *app) status() view.Status {
	st := view.Status{
		Authenticated: a.session.IsAuthenticated(),
		CartCount:     a.cart.Count(),
		Degraded:      a.session.Degraded() || a.cart.Degraded(),
	}
	if exp, ok := a.session.ExpiresAt(); ok {
		st.ExpiresAt = exp
	}
	return st
}
