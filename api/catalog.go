package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmcleod/daystore/client"
)

// Catalog wraps the product endpoints.
type Catalog struct {
	doer    Doer
	session Session
}

// NewCatalog returns a Catalog. sess gates Like, Unlike and Buy locally.
func NewCatalog(doer Doer, sess Session) *Catalog {
	return &Catalog{doer: doer, session: sess}
}

// Products lists the catalog. useCache asks the API to serve its cached
// copy.
func (c *Catalog) Products(ctx context.Context, useCache bool) ([]Product, error) {
	var out productList
	q := url.Values{"use_cache": {strconv.FormatBool(useCache)}}
	if err := c.doer.DoJSON(ctx, http.MethodGet, endpoint("products"), q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Items), nil
}

// Product fetches one product by id.
func (c *Catalog) Product(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, client.Invalid("id", "product id is required")
	}
	var p Product
	if err := c.doer.DoJSON(ctx, http.MethodGet, endpoint("products", url.PathEscape(id)), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ByCategory lists products in any of the given categories. Category codes
// are trimmed and upper-cased; empty entries are dropped.
func (c *Catalog) ByCategory(ctx context.Context, categories ...string) ([]Product, error) {
	codes := CategoryCodes(categories...)
	if len(codes) == 0 {
		return nil, client.Invalid("category", "choose at least one category")
	}
	var out productList
	q := url.Values{"category": {strings.Join(codes, ",")}}
	if err := c.doer.DoJSON(ctx, http.MethodGet, endpoint("products", "by-category"), q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Items), nil
}

// CategoryCodes normalizes category names to the API's upper-case codes.
// Each argument may itself be a comma separated list.
func CategoryCodes(categories ...string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, arg := range categories {
		for _, c := range strings.Split(arg, ",") {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			codes = append(codes, c)
		}
	}
	return codes
}

// Search runs a free-text query. A response without a count reports the
// number of items returned.
func (c *Catalog) Search(ctx context.Context, query string) (*SearchResult, error) {
	var raw struct {
		Items []Product `json:"items"`
		Count *int      `json:"count"`
	}
	q := url.Values{"q": {strings.TrimSpace(query)}}
	if err := c.doer.DoJSON(ctx, http.MethodGet, endpoint("search"), q, nil, &raw); err != nil {
		return nil, err
	}
	res := &SearchResult{Items: nonNil(raw.Items), Count: len(raw.Items)}
	if raw.Count != nil {
		res.Count = *raw.Count
	}
	return res, nil
}

// Like records a like for id.
func (c *Catalog) Like(ctx context.Context, id string) error {
	return c.productAction(ctx, http.MethodPost, id, "like")
}

// Unlike removes a like for id.
func (c *Catalog) Unlike(ctx context.Context, id string) error {
	return c.productAction(ctx, http.MethodDelete, id, "like")
}

// Buy purchases one unit of id.
func (c *Catalog) Buy(ctx context.Context, id string) error {
	return c.productAction(ctx, http.MethodPost, id, "buy")
}

func (c *Catalog) productAction(ctx context.Context, method, id, action string) error {
	if err := requireSession(c.session); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return client.Invalid("id", "product id is required")
	}
	return c.doer.DoJSON(ctx, method, endpoint("products", url.PathEscape(id), action), nil, nil, nil)
}

func nonNil(items []Product) []Product {
	if items == nil {
		return []Product{}
	}
	return items
}
