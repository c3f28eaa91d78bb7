// Package api wraps the storefront endpoints the client consumes.
//
// Catalog, Account and Admin are thin: they validate input locally, build the
// request, and decode the response shape. Authentication and error
// classification are left to the gateway in package client.
package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/jmcleod/daystore/client"
)

const prefix = "/api/v1"

var (
	// ErrLoginRequired is returned, without a network call, when an
	// operation needs a session and none is present.
	ErrLoginRequired = errors.New("login required")

	// ErrAdminRequired is returned when the current account is not the
	// admin account. This is a client-side gate only.
	ErrAdminRequired = errors.New("admin only")

	// ErrBadCredentials is returned by Login when the API rejects the
	// username and password.
	ErrBadCredentials = errors.New("invalid username or password")
)

// Doer sends API requests. *client.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error
}

// Session is the part of the session store the wrappers depend on.
// *session.Store satisfies it.
type Session interface {
	IsAuthenticated() bool
	Set(credential string)
	Clear()
}

func endpoint(segments ...string) string {
	p := prefix
	for _, s := range segments {
		p += "/" + s
	}
	return p
}

func requireSession(s Session) error {
	if s == nil || !s.IsAuthenticated() {
		return ErrLoginRequired
	}
	return nil
}
