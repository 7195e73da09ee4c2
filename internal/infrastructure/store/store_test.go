package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

func sampleSession(token string, role domain.Role) domain.Session {
	return domain.Session{
		Token: token,
		User: domain.User{
			ID:        "7",
			UserID:    "alice",
			Username:  "alice",
			Email:     "alice@example.com",
			Mobile:    "555-0100",
			Role:      role,
			IsActive:  true,
			CreatedAt: domain.Timestamp{Time: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		},
	}
}

type storeFactory func(t *testing.T) ports.CredentialStore

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) ports.CredentialStore {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) ports.CredentialStore {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"), zerolog.Nop())
		},
		"sqlite": func(t *testing.T) ports.CredentialStore {
			db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "session.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			return NewSQLiteStore(db, zerolog.Nop())
		},
	}
}

func TestStores_RoundTrip(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			for _, role := range domain.Roles {
				want := sampleSession("tok-"+string(role), role)
				if err := s.Save(want); err != nil {
					t.Fatalf("save: %v", err)
				}
				got, ok := s.Load()
				if !ok {
					t.Fatalf("expected session after save")
				}
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
				}
			}
		})
	}
}

func TestStores_EmptyLoadsAbsent(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			if _, ok := newStore(t).Load(); ok {
				t.Fatalf("expected no session in a fresh store")
			}
		})
	}
}

func TestStores_ClearRemovesBothKeys(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			if err := s.Save(sampleSession("t1", domain.RoleAdmin)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.Clear(); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, ok := s.Load(); ok {
				t.Fatalf("expected no session after clear")
			}
			if err := s.Clear(); err != nil {
				t.Fatalf("second clear should be a no-op, got %v", err)
			}
		})
	}
}

func TestStores_SaveReplacesPriorSession(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			_ = s.Save(sampleSession("old", domain.RoleUser))
			next := sampleSession("new", domain.RoleAdmin)
			next.User.ID = "8"
			if err := s.Save(next); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok := s.Load()
			if !ok || got.Token != "new" || got.User.ID != "8" {
				t.Fatalf("expected replaced session, got %+v (ok=%v)", got, ok)
			}
		})
	}
}

func TestStores_RejectIncompleteSession(t *testing.T) {
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			noToken := sampleSession("", domain.RoleUser)
			if err := s.Save(noToken); err == nil {
				t.Fatalf("expected error saving session without token")
			}
			noUser := domain.Session{Token: "t"}
			if err := s.Save(noUser); err == nil {
				t.Fatalf("expected error saving session without user")
			}
			if _, ok := s.Load(); ok {
				t.Fatalf("rejected saves must not leave a session behind")
			}
		})
	}
}

func TestDecode_CorruptHalves(t *testing.T) {
	good := `{"id":"1","userid":"bob","username":"bob","email":"","mobile":"","role":"user","isActive":true,"createdAt":""}`
	cases := map[string][2]string{
		"missing token":   {"", good},
		"missing user":    {"tok", ""},
		"user not json":   {"tok", "{not json"},
		"user wrong type": {"tok", `"just a string"`},
		"unknown role":    {"tok", `{"id":"1","role":"superuser"}`},
		"missing id":      {"tok", `{"role":"admin"}`},
		"bad timestamp":   {"tok", `{"id":"1","role":"user","createdAt":"yesterday"}`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := decode(c[0], c[1]); ok {
				t.Fatalf("expected absent session")
			}
		})
	}

	if _, ok := decode("tok", good); !ok {
		t.Fatalf("expected well-formed pair to decode")
	}
}

func TestMemoryStore_CorruptUserLoadsAbsent(t *testing.T) {
	s := NewMemoryStore()
	s.SetRaw(TokenKey, "t1")
	s.SetRaw(UserKey, "{broken")
	if _, ok := s.Load(); ok {
		t.Fatalf("expected corrupt user to read as no session")
	}
}

func TestFileStore_CorruptDocumentLoadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("\x00garbage"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	s := NewFileStore(path, zerolog.Nop())
	if _, ok := s.Load(); ok {
		t.Fatalf("expected corrupt file to read as no session")
	}
}

func TestFileStore_TokenWithoutUserLoadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"authToken":"t1"}`), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, ok := NewFileStore(path, zerolog.Nop()).Load(); ok {
		t.Fatalf("expected token-only file to read as no session")
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "session.json")
	s := NewFileStore(path, zerolog.Nop())
	if err := s.Save(sampleSession("t1", domain.RoleUser)); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Fatalf("session file readable by others: %v", perm)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestSQLiteStore_TokenWithoutUserLoadsAbsent(t *testing.T) {
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("INSERT INTO credentials (key, value) VALUES (?, ?)", TokenKey, "t1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := NewSQLiteStore(db, zerolog.Nop()).Load(); ok {
		t.Fatalf("expected token-only rows to read as no session")
	}
}

func TestStores_RoundTripKeepsOffset(t *testing.T) {
	zone := time.FixedZone("", -5*60*60)
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			want := sampleSession("tok", domain.RoleUser)
			want.User.CreatedAt = domain.Timestamp{Time: time.Date(2024, 3, 1, 10, 30, 0, 0, zone)}
			if err := s.Save(want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok := s.Load()
			if !ok {
				t.Fatalf("expected session after save")
			}
			if !got.User.CreatedAt.Equal(want.User.CreatedAt.Time) {
				t.Fatalf("createdAt = %v, want %v", got.User.CreatedAt.Time, want.User.CreatedAt.Time)
			}
			if _, off := got.User.CreatedAt.Zone(); off != -5*60*60 {
				t.Fatalf("offset lost: %d", off)
			}
		})
	}
}
