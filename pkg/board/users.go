package board

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Role classifies board users. Carriers post sell offers, buyers post buy
// requests, super admins can see every declaration.
type Role string

const (
	RoleCarrier    Role = "carrier_user"
	RoleBuyer      Role = "buyer_user"
	RoleSuperAdmin Role = "super_admin"
)

// User is a roster entry. The roster is read-only reference data; the
// engine itself only ever sees opaque actor IDs.
type User struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
	CompanyName string `json:"company_name"`
	Role        Role   `json:"role"`
}

// Roster is an immutable user directory loaded at startup.
type Roster struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]*User
	order   []string
}

// NewRoster builds a roster from a user list.
func NewRoster(users []User) *Roster {
	r := &Roster{
		users:   make(map[string]*User),
		byEmail: make(map[string]*User),
	}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
		r.byEmail[strings.ToLower(u.Email)] = &u
		r.order = append(r.order, u.ID)
	}
	return r
}

// LoadRoster reads a JSON user file (an array of users) from disk.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	return NewRoster(users), nil
}

// Get returns a user by ID, or ErrNotFound.
func (r *Roster) Get(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	snapshot := *u
	return &snapshot, nil
}

// GetByEmail returns a user by email (case-insensitive), or ErrNotFound.
func (r *Roster) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.byEmail[strings.ToLower(email)]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	snapshot := *u
	return &snapshot, nil
}

// List returns all users in file order.
func (r *Roster) List() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*User, 0, len(r.order))
	for _, id := range r.order {
		snapshot := *r.users[id]
		users = append(users, &snapshot)
	}
	return users
}
