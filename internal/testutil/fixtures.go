package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/identity"
	"github.com/google/uuid"
)

// DefaultPassword satisfies every password rule.
const DefaultPassword = "Secur3#Pass"

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email    string
	name     string
	password string
	admin    bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		name:     fmt.Sprintf("Test User %s", suffix),
		password: DefaultPassword,
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) AsAdmin() *UserBuilder {
	b.admin = true
	return b
}

// Build inserts the user straight into dir and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, dir *identity.Directory) (domain.PublicUser, string) {
	t.Helper()

	var (
		user domain.PublicUser
		err  error
	)
	if b.admin {
		user, err = dir.CreateAdmin(b.email, b.name, b.password)
	} else {
		user, err = dir.Register(b.email, b.name, b.password)
	}
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildAndAuthenticate creates the user in the server's directory, logs in
// over HTTP and returns the user with a bearer token.
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (domain.PublicUser, string) {
	t.Helper()

	user, password := b.Build(t, ts.Directory)

	resp := DoJSON(t, http.MethodPost, ts.APIURL("/auth/login"), "", map[string]string{
		"email":    user.Email,
		"password": password,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return user, authResp.Token.Token
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User  domain.PublicUser `json:"user"`
	Token struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
		TokenType string `json:"token_type"`
	} `json:"token"`
	Message string `json:"message"`
}

// UserResponse matches single-user API responses
type UserResponse struct {
	User    domain.PublicUser `json:"user"`
	Message string            `json:"message"`
}

// UsersListResponse matches the admin user listing
type UsersListResponse struct {
	Users []domain.PublicUser `json:"users"`
	Total int                 `json:"total"`
}

// MessageResponse matches acknowledgement responses
type MessageResponse struct {
	Message string `json:"message"`
}

// DoJSON sends body as JSON with an optional bearer token. The caller
// closes the response body.
func DoJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	return resp
}
