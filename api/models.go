package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action codes recorded in a user's history.
const (
	ActionView     = "VIEW"
	ActionLike     = "LIKE"
	ActionPurchase = "PURCHASE"
)

// Product is a catalog entry. Price is nil when the API omits it.
type Product struct {
	ID       string   `json:"id"`
	Brand    string   `json:"brand,omitempty"`
	Model    string   `json:"model,omitempty"`
	Category string   `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// productList is the envelope of GET /products and /products/by-category.
type productList struct {
	Items []Product `json:"items"`
}

// SearchResult is returned from GET /search.
type SearchResult struct {
	Items []Product `json:"items"`
	Count int       `json:"count"`
}

// Action is one entry of GET /users/me/history.
type Action struct {
	Timestamp Timestamp `json:"timestamp"`
	Action    string    `json:"action"`
	ProductID string    `json:"productId"`
	Category  string    `json:"category,omitempty"`
}

// Purchase is one entry of GET /users/me/purchases.
type Purchase struct {
	Timestamp Timestamp `json:"timestamp"`
	Product   Product   `json:"product"`
}

// User is an account as returned by /users/me and the admin listing.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// RegisterRequest is the JSON body for POST /users/registration.
type RegisterRequest struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// UpdatePasswordRequest is the JSON body for POST /users/me/update/password.
type UpdatePasswordRequest struct {
	OldPassword             string `json:"old_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// SetPasswordRequest is the JSON body for POST /users/admin/users/{id}/password.
type SetPasswordRequest struct {
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// Timestamp accepts both zoned RFC 3339 and the naive ISO 8601 form some
// backends emit. Naive values are read as UTC. The raw text is kept so it
// can be shown even when it does not parse.
type Timestamp struct {
	Time time.Time
	Raw  string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Raw: s}, nil
		}
	}
	return Timestamp{Raw: s}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable strings are kept
// in Raw with a zero Time instead of failing the whole response.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, _ := ParseTimestamp(s)
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// IsZero reports whether no timestamp was received.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

func (t Timestamp) String() string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format("2006-01-02 15:04:05")
}
