package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ledgerlite/internal/core"
	"ledgerlite/internal/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T) *Service {
	t.Helper()
	tokens, err := NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(memory.NewRepository(), tokens).WithHashCost(bcrypt.MinCost)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, " Ada ", "Ada@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res.Token == "" || res.User.Name != "Ada" || res.User.Email != "ada@example.com" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.User.PasswordHash != "" {
		t.Error("password hash must not be returned")
	}

	if _, err := svc.Register(ctx, "Other", "ADA@example.com", "secret2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate: want ErrEmailTaken, got %v", err)
	}

	login, err := svc.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	u, err := svc.Authenticate(ctx, login.Token)
	if err != nil || u.ID != res.User.ID {
		t.Errorf("Authenticate() = %+v, %v", u, err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Ada", "ada@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"unknown email", "bob@example.com", "secret1"},
		{"wrong password", "ada@example.com", "nope123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	tests := []struct {
		name, user, email, password string
		want                        error
	}{
		{"empty name", "", "a@b.io", "secret1", core.ErrEmptyName},
		{"bad email", "A", "not-an-email", "secret1", core.ErrInvalidEmail},
		{"short password", "A", "a@b.io", "123", core.ErrPasswordTooWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.user, tt.email, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTokenRejections(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, time.Minute)
	u := core.User{ID: "u1", Name: "Ada"}

	tok, _, err := issuer.Issue(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Parse(tok); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	other, _ := NewTokenIssuer(strings.Repeat("x", 32), time.Minute)
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign signature: want ErrInvalidToken, got %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: want ErrInvalidToken, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "iss": "ledgerlite"})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := issuer.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: want ErrInvalidToken, got %v", err)
	}

	if _, err := NewTokenIssuer("short", time.Minute); err == nil {
		t.Error("short secret should be rejected")
	}
}
