package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jmcleod/daystore/client"
)

// Admin wraps the user management endpoints. Every call first checks that
// the current account is the admin account; the API enforces its own rules.
type Admin struct {
	doer    Doer
	account *Account
}

// NewAdmin returns an Admin gated by account.IsAdmin.
func NewAdmin(doer Doer, account *Account) *Admin {
	return &Admin{doer: doer, account: account}
}

func (a *Admin) gate(ctx context.Context) error {
	ok, err := a.account.IsAdmin(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAdminRequired
	}
	return nil
}

// Users lists every account.
func (a *Admin) Users(ctx context.Context) ([]User, error) {
	if err := a.gate(ctx); err != nil {
		return nil, err
	}
	out := []User{}
	if err := a.doer.DoJSON(ctx, http.MethodGet, endpoint("users", "admin", "users"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPassword replaces the password of the account with the given id.
func (a *Admin) SetPassword(ctx context.Context, id, newPassword, confirm string) error {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return client.Invalid("id", "user id is required")
	case newPassword == "" || confirm == "":
		return client.Invalid("password", "fill in both password fields")
	case newPassword != confirm:
		return client.Invalid("confirm", "passwords do not match")
	case utf8.RuneCountInString(newPassword) < minPassword:
		return client.Invalid("new_password", fmt.Sprintf("new password must be at least %d characters", minPassword))
	}
	if err := a.gate(ctx); err != nil {
		return err
	}
	body := SetPasswordRequest{NewPassword: newPassword, NewPasswordConfirmation: confirm}
	return a.doer.DoJSON(ctx, http.MethodPost, endpoint("users", "admin", "users", url.PathEscape(id), "password"), nil, body, nil)
}

// DeleteUser removes the account with the given id.
func (a *Admin) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return client.Invalid("id", "user id is required")
	}
	if err := a.gate(ctx); err != nil {
		return err
	}
	return a.doer.DoJSON(ctx, http.MethodDelete, endpoint("users", "admin", "users", url.PathEscape(id)), nil, nil, nil)
}
