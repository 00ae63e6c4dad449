package board

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testUsersJSON = `[
  {"id": "u1", "first_name": "Hana", "last_name": "Kim", "email": "hana@acme.example",
   "country_code": "+82", "phone_number": "1012345678", "company_name": "Acme Freight", "role": "carrier_user"},
  {"id": "u2", "first_name": "Leo", "last_name": "Park", "email": "leo@globex.example",
   "country_code": "+1", "phone_number": "5551234567", "company_name": "Globex", "role": "buyer_user"},
  {"id": "u3", "first_name": "Ada", "last_name": "Admin", "email": "admin@board.example",
   "country_code": "+44", "phone_number": "7700900000", "company_name": "Board", "role": "super_admin"}
]`

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte(testUsersJSON), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	r, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster() error: %v", err)
	}

	users := r.List()
	if len(users) != 3 {
		t.Fatalf("got %d users, want 3", len(users))
	}
	if users[0].ID != "u1" || users[2].Role != RoleSuperAdmin {
		t.Errorf("unexpected roster contents: %+v", users)
	}

	u, err := r.Get("u2")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if u.CompanyName != "Globex" || u.Role != RoleBuyer {
		t.Errorf("unexpected user: %+v", u)
	}

	// Email lookup is case-insensitive
	u, err = r.GetByEmail("HANA@acme.example")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if u.ID != "u1" {
		t.Errorf("GetByEmail() = %s, want u1", u.ID)
	}

	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := r.GetByEmail("nope@x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail(nope) error = %v, want ErrNotFound", err)
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
