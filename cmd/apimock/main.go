// Command apimock serves a small users API under /api/v1 that honours
// openapi.yaml in this directory, except for /api/v1/broken which returns a
// body the contract rejects.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

type user struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type usersAPI struct {
	mu     sync.Mutex
	users  map[int]user
	nextID atomic.Int64
}

func newMux() http.Handler {
	api := &usersAPI{users: map[int]user{1: {ID: 1, Email: "tom@example.com", Name: "tom"}}}
	api.nextID.Store(1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users", api.list)
	mux.HandleFunc("POST /api/v1/users", api.create)
	mux.HandleFunc("GET /api/v1/users/{id}", api.get)
	mux.HandleFunc("DELETE /api/v1/users/{id}", api.remove)
	mux.HandleFunc("GET /api/v1/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "not-a-number", "email": "x@example.com"})
	})
	return mux
}

func (a *usersAPI) list(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("name"))
	a.mu.Lock()
	out := []user{}
	for _, u := range a.users {
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (a *usersAPI) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "email is required"})
		return
	}
	u := user{ID: int(a.nextID.Add(1)), Email: in.Email, Name: in.Name}
	a.mu.Lock()
	a.users[u.ID] = u
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, u)
}

func (a *usersAPI) get(w http.ResponseWriter, r *http.Request) {
	u, ok := a.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *usersAPI) remove(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing token"})
		return
	}
	u, ok := a.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	a.mu.Lock()
	delete(a.users, u.ID)
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *usersAPI) lookup(r *http.Request) (user, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return user{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	return u, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	log.Info("apimock listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, newMux()); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}
