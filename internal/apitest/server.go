// Package apitest runs an in-memory storefront API for tests.
//
// It implements the endpoints the client consumes with the same status
// codes and body shapes as the real service, records every call, and lets a
// test inject failures.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/daystore/credential"
)

// AdminUsername is the account the admin endpoints accept.
const AdminUsername = "admin"

// Product mirrors the API product shape.
type Product struct {
	ID       string   `json:"id"`
	Brand    string   `json:"brand"`
	Model    string   `json:"model"`
	Category string   `json:"category"`
	Price    *float64 `json:"price"`
}

// Call is one recorded request.
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type user struct {
	id       string
	username string
	password string
}

type action struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	ProductID string    `json:"productId"`
	Category  string    `json:"category"`
}

type purchase struct {
	Timestamp time.Time `json:"timestamp"`
	Product   Product   `json:"product"`
}

// Server is a fake storefront API backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	products  []Product
	users     map[string]*user
	nextUser  int
	likes     map[string]map[string]bool
	history   map[string][]action
	purchases map[string][]purchase
	failBuy   map[string]int
	reco      any
	calls     []Call
	now       func() time.Time
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:     make(map[string]*user),
		likes:     make(map[string]map[string]bool),
		history:   make(map[string][]action),
		purchases: make(map[string][]purchase),
		failBuy:   make(map[string]int),
		now:       time.Now,
	}
	s.Server = httptest.NewServer(s.Router())
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password).id
}

func (s *Server) addUserLocked(username, password string) *user {
	s.nextUser++
	u := &user{id: "u" + strconv.Itoa(s.nextUser) + "-0000-0000", username: username, password: password}
	s.users[username] = u
	return u
}

// AddProduct appends p to the catalog.
func (s *Server) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p)
}

// FailBuy makes purchases of id respond with status.
func (s *Server) FailBuy(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBuy[id] = status
}

// SetRecommendations overrides the recommendation response body.
func (s *Server) SetRecommendations(body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reco = body
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns the number of requests received so far.
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// ResetCalls forgets recorded requests.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Password returns the current password of username, for assertions.
func (s *Server) Password(username string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return "", false
	}
	return u.password, true
}

// Router returns the chi router serving the API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Get("/products/by-category", s.productsByCategory)
		r.Get("/products/{id}", s.getProduct)
		r.Get("/search", s.search)

		r.Post("/users/registration", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/products/{id}/like", s.like)
			r.Delete("/products/{id}/like", s.unlike)
			r.Post("/products/{id}/buy", s.buy)

			r.Get("/users/me", s.me)
			r.Get("/users/me/username", s.username)
			r.Get("/users/me/history", s.userHistory)
			r.Get("/users/me/purchases", s.userPurchases)
			r.Get("/users/me/recommendation", s.recommendation)
			r.Post("/users/me/update/password", s.updatePassword)
			r.Post("/users/me/update/username", s.updateUsername)

			r.Route("/users/admin/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.adminUsers)
				r.Post("/{id}/password", s.adminSetPassword)
				r.Delete("/{id}", s.adminDelete)
			})
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, pass, ok := credential.Decode(r.Header.Get("Authorization"))
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		u, found := s.users[name]
		s.mu.Unlock()
		if !found || u.password != pass {
			writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, u)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r).username != AdminUsername {
			writeDetail(w, http.StatusForbidden, "Admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) findProductLocked(id string) (Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := append([]Product{}, s.products...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) productsByCategory(w http.ResponseWriter, r *http.Request) {
	want := map[string]bool{}
	for _, c := range strings.Split(r.URL.Query().Get("category"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			want[strings.ToUpper(c)] = true
		}
	}
	s.mu.Lock()
	items := []Product{}
	for _, p := range s.products {
		if want[strings.ToUpper(p.Category)] {
			items = append(items, p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.findProductLocked(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	s.mu.Lock()
	items := []Product{}
	for _, p := range s.products {
		hay := strings.ToLower(p.Brand + " " + p.Model + " " + p.Category)
		if q == "" || strings.Contains(hay, q) {
			items = append(items, p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username             string `json:"username"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"passwordConfirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	name := strings.TrimSpace(body.Username)
	switch {
	case body.Password != body.PasswordConfirmation:
		writeDetail(w, http.StatusBadRequest, "Passwords do not match")
		return
	case utf8.RuneCountInString(body.Password) < 6:
		writeDetail(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	case utf8.RuneCountInString(name) < 3:
		writeDetail(w, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[name]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	u := s.addUserLocked(name, body.Password)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"id": u.id, "username": u.username})
}

func (s *Server) like(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProductLocked(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	if s.likes[u.id] == nil {
		s.likes[u.id] = make(map[string]bool)
	}
	s.likes[u.id][id] = true
	s.history[u.id] = append(s.history[u.id], action{Timestamp: s.now(), Action: "LIKE", ProductID: id, Category: p.Category})
	writeJSON(w, http.StatusOK, map[string]string{"message": "liked"})
}

func (s *Server) unlike(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	delete(s.likes[u.id], chi.URLParam(r, "id"))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) buy(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.failBuy[id]; ok {
		writeDetail(w, status, "purchase rejected for "+id)
		return
	}
	p, ok := s.findProductLocked(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	now := s.now()
	s.purchases[u.id] = append(s.purchases[u.id], purchase{Timestamp: now, Product: p})
	s.history[u.id] = append(s.history[u.id], action{Timestamp: now, Action: "PURCHASE", ProductID: id, Category: p.Category})
	writeJSON(w, http.StatusOK, map[string]string{"message": "purchased"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeJSON(w, http.StatusOK, map[string]string{"id": u.id, "username": u.username})
}

func (s *Server) username(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(currentUser(r).username + "\n"))
}

func (s *Server) userHistory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	out := append([]action{}, s.history[u.id]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userPurchases(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	s.mu.Lock()
	out := append([]purchase{}, s.purchases[u.id]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) recommendation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.reco
	if body == nil {
		body = append([]Product{}, s.products...)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var body struct {
		Old     string `json:"old_password"`
		New     string `json:"new_password"`
		Confirm string `json:"new_password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case body.Old != u.password:
		writeDetail(w, http.StatusBadRequest, "Current password is incorrect")
	case utf8.RuneCountInString(body.New) < 6:
		writeDetail(w, http.StatusBadRequest, "New password must be at least 6 characters")
	case body.New != body.Confirm:
		writeDetail(w, http.StatusBadRequest, "Password confirmation does not match")
	default:
		u.password = body.New
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
	}
}

func (s *Server) updateUsername(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	raw, ok := r.URL.Query()["new_username"]
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "new_username query parameter is required")
		return
	}
	name := strings.TrimSpace(raw[0])
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		writeDetail(w, http.StatusBadRequest, "Username cannot be empty")
		return
	}
	if utf8.RuneCountInString(name) < 3 {
		writeDetail(w, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}
	if _, exists := s.users[name]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	delete(s.users, u.username)
	u.username = name
	s.users[name] = u
	writeJSON(w, http.StatusOK, map[string]string{"id": u.id, "username": name})
}

type publicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) userByIDLocked(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]publicUser, 0, len(s.users))
	for i := 1; i <= s.nextUser; i++ {
		id := "u" + strconv.Itoa(i) + "-0000-0000"
		if u := s.userByIDLocked(id); u != nil {
			out = append(out, publicUser{ID: u.id, Username: u.username})
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminSetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		New     string `json:"new_password"`
		Confirm string `json:"new_password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(chi.URLParam(r, "id"))
	switch {
	case utf8.RuneCountInString(body.New) < 6:
		writeDetail(w, http.StatusBadRequest, "New password must be at least 6 characters")
	case body.New != body.Confirm:
		writeDetail(w, http.StatusBadRequest, "Password confirmation does not match")
	case u == nil:
		writeDetail(w, http.StatusNotFound, "User not found")
	case u.username == AdminUsername:
		writeDetail(w, http.StatusBadRequest, "Cannot change admin password here")
	default:
		u.password = body.New
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated by admin"})
	}
}

func (s *Server) adminDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(chi.URLParam(r, "id"))
	switch {
	case u == nil:
		writeDetail(w, http.StatusNotFound, "User not found")
	case u.username == AdminUsername:
		writeDetail(w, http.StatusBadRequest, "Cannot delete admin user")
	default:
		delete(s.users, u.username)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func withUser(r *http.Request, u *user) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, u)
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(ctxKey{}).(*user)
	if u == nil {
		return &user{}
	}
	return u
}
