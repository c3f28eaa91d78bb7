package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jmcleod/daystore/client"
	"github.com/jmcleod/daystore/credential"
)

// AdminUsername is the account the admin screens are shown to.
const AdminUsername = "admin"

const (
	minUsername = 3
	minPassword = 6
)

// Account wraps registration, login and the /users/me endpoints.
type Account struct {
	doer    Doer
	session Session
}

// NewAccount returns an Account that stores credentials in sess.
func NewAccount(doer Doer, sess Session) *Account {
	return &Account{doer: doer, session: sess}
}

// Register creates an account and returns the username the API assigned.
// It does not log in.
func (a *Account) Register(ctx context.Context, username, password, confirm string) (string, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "" || password == "":
		return "", client.Invalid("username", "enter a username and password")
	case utf8.RuneCountInString(username) < minUsername:
		return "", client.Invalid("username", fmt.Sprintf("username must be at least %d characters", minUsername))
	case utf8.RuneCountInString(password) < minPassword:
		return "", client.Invalid("password", fmt.Sprintf("password must be at least %d characters", minPassword))
	case password != confirm:
		return "", client.Invalid("confirm", "passwords do not match")
	}

	var out User
	body := RegisterRequest{Username: username, Password: password, PasswordConfirmation: confirm}
	if err := a.doer.DoJSON(ctx, http.MethodPost, endpoint("users", "registration"), nil, body, &out); err != nil {
		return "", err
	}
	if out.Username == "" {
		out.Username = username
	}
	return out.Username, nil
}

// Login verifies the credential against the API and, on success, stores it
// in the session. Any failure leaves the session cleared.
func (a *Account) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", client.Invalid("username", "enter a username and password")
	}

	cred := credential.Encode(username, password)
	resp, err := a.doer.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   endpoint("users", "me", "username"),
		Header: http.Header{"Authorization": {cred}},
	})
	if err != nil {
		a.session.Clear()
		if errors.Is(err, client.ErrUnauthorized) {
			return "", ErrBadCredentials
		}
		return "", err
	}
	a.session.Set(cred)
	return strings.TrimSpace(usernameText(resp)), nil
}

// Logout clears the stored session. It never calls the API.
func (a *Account) Logout() {
	a.session.Clear()
}

// Me returns the current account.
func (a *Account) Me(ctx context.Context) (*User, error) {
	if err := requireSession(a.session); err != nil {
		return nil, err
	}
	var u User
	if err := a.doer.DoJSON(ctx, http.MethodGet, endpoint("users", "me"), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Username returns the current username as reported by the API.
func (a *Account) Username(ctx context.Context) (string, error) {
	if err := requireSession(a.session); err != nil {
		return "", err
	}
	resp, err := a.doer.Do(ctx, client.Request{Method: http.MethodGet, Path: endpoint("users", "me", "username")})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(usernameText(resp)), nil
}

// usernameText accepts the plain-text body as well as a JSON string or
// {"username": ...} object.
func usernameText(resp *client.Response) string {
	if !resp.IsJSON() {
		return resp.Text()
	}
	var s string
	if err := resp.Decode(&s); err == nil {
		return s
	}
	var u User
	if err := resp.Decode(&u); err == nil && u.Username != "" {
		return u.Username
	}
	return resp.Text()
}

// History returns every recorded action of the current account.
func (a *Account) History(ctx context.Context) ([]Action, error) {
	if err := requireSession(a.session); err != nil {
		return nil, err
	}
	out := []Action{}
	q := url.Values{"all": {"true"}}
	if err := a.doer.DoJSON(ctx, http.MethodGet, endpoint("users", "me", "history"), q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Purchases returns the purchase history of the current account.
func (a *Account) Purchases(ctx context.Context) ([]Purchase, error) {
	if err := requireSession(a.session); err != nil {
		return nil, err
	}
	out := []Purchase{}
	if err := a.doer.DoJSON(ctx, http.MethodGet, endpoint("users", "me", "purchases"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recommendations returns personalized products for the current account.
func (a *Account) Recommendations(ctx context.Context) ([]Product, error) {
	if err := requireSession(a.session); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := a.doer.DoJSON(ctx, http.MethodGet, endpoint("users", "me", "recommendation"), nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeRecommendations(raw)
}

// decodeRecommendations accepts a bare array or an object carrying the list
// under items, data or recommendations, in that order of preference.
func decodeRecommendations(raw json.RawMessage) ([]Product, error) {
	if len(raw) == 0 {
		return []Product{}, nil
	}
	var list []Product
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonNil(list), nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding recommendations: %w", err)
	}
	for _, key := range []string{"items", "data", "recommendations"} {
		v, ok := env[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("decoding recommendations.%s: %w", key, err)
		}
		return nonNil(list), nil
	}
	return []Product{}, nil
}

// UpdatePassword changes the current account's password. On success the
// local session is cleared and the user must log in again.
func (a *Account) UpdatePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if err := requireSession(a.session); err != nil {
		return err
	}
	switch {
	case oldPassword == "" || newPassword == "" || confirm == "":
		return client.Invalid("password", "fill in all password fields")
	case utf8.RuneCountInString(newPassword) < minPassword:
		return client.Invalid("new_password", fmt.Sprintf("new password must be at least %d characters", minPassword))
	case newPassword != confirm:
		return client.Invalid("confirm", "new password and confirmation do not match")
	case newPassword == oldPassword:
		return client.Invalid("new_password", "new password must differ from the current one")
	}

	body := UpdatePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword, NewPasswordConfirmation: confirm}
	if err := a.doer.DoJSON(ctx, http.MethodPost, endpoint("users", "me", "update", "password"), nil, body, nil); err != nil {
		return err
	}
	a.session.Clear()
	return nil
}

// UpdateUsername renames the current account. The stored credential names
// the old account, so the session is cleared on success.
func (a *Account) UpdateUsername(ctx context.Context, newUsername string) (string, error) {
	if err := requireSession(a.session); err != nil {
		return "", err
	}
	newUsername = strings.TrimSpace(newUsername)
	if utf8.RuneCountInString(newUsername) < minUsername {
		return "", client.Invalid("username", fmt.Sprintf("username must be at least %d characters", minUsername))
	}
	var out User
	query := url.Values{"new_username": {newUsername}}
	if err := a.doer.DoJSON(ctx, http.MethodPost, endpoint("users", "me", "update", "username"), query, nil, &out); err != nil {
		return "", err
	}
	a.session.Clear()
	if out.Username == "" {
		out.Username = newUsername
	}
	return out.Username, nil
}

// IsAdmin reports whether the current account is the admin account.
func (a *Account) IsAdmin(ctx context.Context) (bool, error) {
	me, err := a.Me(ctx)
	if err != nil {
		return false, err
	}
	return me.Username == AdminUsername, nil
}
