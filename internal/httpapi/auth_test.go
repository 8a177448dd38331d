package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store/memory"
)

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("secret-1", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != "admin" {
		t.Errorf("role = %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Errorf("actor = %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := NewAuthManager("secret-1", time.Hour, memory.NewSeeded())

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Error("unknown user accepted")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: ""}); err == nil {
		t.Error("empty password accepted")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-1", time.Hour, memory.NewSeeded())
	verifier := NewAuthManager("secret-2", time.Hour, memory.NewSeeded())

	resp, err := issuer.Login(domain.LoginRequest{Username: "manager", Password: "manager123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := issuer.ParseToken("not.a.token"); err == nil {
		t.Error("malformed token accepted")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("secret-1", time.Millisecond, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "manager", Password: "manager123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Error("expired token accepted")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	auth := NewAuthManager("secret-1", time.Hour, memory.NewSeeded())

	cases := []struct {
		name string
		req  domain.StaffCreateRequest
	}{
		{"short username", domain.StaffCreateRequest{Username: "ab", Password: "longenough"}},
		{"short password", domain.StaffCreateRequest{Username: "gudang1", Password: "abc"}},
		{"bad role", domain.StaffCreateRequest{Username: "gudang1", Password: "longenough", Role: "superadmin"}},
		{"duplicate", domain.StaffCreateRequest{Username: "manager", Password: "longenough"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.CreateStaff(tc.req); err == nil {
				t.Error("expected error")
			}
		})
	}

	user, err := auth.CreateStaff(domain.StaffCreateRequest{Username: "Gudang1", Password: "rahasia1"})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if user.Username != "gudang1" {
		t.Errorf("username = %s, want lowercased", user.Username)
	}
	if user.Role != "staff" {
		t.Errorf("role = %s, want staff default", user.Role)
	}

	staff := auth.ListStaff()
	found := false
	for _, s := range staff {
		if s.Username == "gudang1" {
			found = true
		}
		if s.Role == "admin" {
			t.Errorf("admin account leaked into staff listing: %+v", s)
		}
	}
	if !found {
		t.Error("created staff account missing from listing")
	}
	if !strings.HasPrefix(staffPasswordFromStore(t, auth, "gudang1"), "$2") {
		t.Error("stored password is not a bcrypt hash")
	}
}

// countingUserStore tracks store reads so tests can see how often the
// credential cache goes back to the store.
type countingUserStore struct {
	*memory.Store
	listCalls int
}

func (c *countingUserStore) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	c.listCalls++
	return c.Store.ListUsers(ctx)
}

func TestLoginDoesNotReloadStorePerRequest(t *testing.T) {
	userStore := &countingUserStore{Store: memory.NewSeeded()}
	auth := NewAuthManager("secret-1", time.Hour, userStore)

	afterStartup := userStore.listCalls
	for i := 0; i < 3; i++ {
		if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
	}
	if userStore.listCalls != afterStartup {
		t.Errorf("store reads = %d, want %d, logins inside the reload interval must use the cache", userStore.listCalls, afterStartup)
	}
}

func staffPasswordFromStore(t *testing.T, auth *AuthManager, username string) string {
	t.Helper()
	auth.mu.RLock()
	defer auth.mu.RUnlock()
	cred, ok := auth.users[username]
	if !ok {
		t.Fatalf("user %s not in credential cache", username)
	}
	return cred.password
}
