package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name            string
		request         map[string]string
		setup           func()
		expectedStatus  int
		expectedMessage string
		checkResponse   func(*testing.T, *http.Response)
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"email":    "alice@example.com",
				"name":     "Alice",
				"password": testutil.DefaultPassword,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result testutil.AuthResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "alice@example.com", result.User.Email)
				assert.False(t, result.User.IsAdmin)
				assert.NotEmpty(t, result.Token.Token)
				assert.Equal(t, "Bearer", result.Token.TokenType)
				assert.Equal(t, int64(3600), result.Token.ExpiresIn)
				assert.Equal(t, "User registered successfully", result.Message)
			},
		},
		{
			name: "missing name",
			request: map[string]string{
				"email":    "bob@example.com",
				"password": testutil.DefaultPassword,
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email, name and password are required",
		},
		{
			name: "weak password",
			request: map[string]string{
				"email":    "bob@example.com",
				"name":     "Bob",
				"password": "alllowercase1!",
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Password must contain at least one uppercase letter",
		},
		{
			name: "malformed email",
			request: map[string]string{
				"email":    "bob@example",
				"name":     "Bob",
				"password": testutil.DefaultPassword,
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email domain must contain at least one dot",
		},
		{
			name: "duplicate email",
			request: map[string]string{
				"email":    "taken@example.com",
				"name":     "Second",
				"password": testutil.DefaultPassword,
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("taken@example.com").
					Build(t, ts.Directory)
			},
			expectedStatus:  http.StatusConflict,
			expectedMessage: "User with this email already exists",
		},
		{
			name:            "empty request body",
			request:         map[string]string{},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email, name and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}

			resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/register"), "", tt.request)
			defer resp.Body.Close()

			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, password := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		Build(t, ts.Directory)

	tests := []struct {
		name            string
		request         map[string]string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "successful login",
			request:        map[string]string{"email": user.Email, "password": password},
			expectedStatus: http.StatusOK,
		},
		{
			name:            "wrong password",
			request:         map[string]string{"email": user.Email, "password": "Wr0ng#Pass"},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid email or password",
		},
		{
			name:            "unknown email",
			request:         map[string]string{"email": "nobody@example.com", "password": password},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid email or password",
		},
		{
			name:            "email differs in case",
			request:         map[string]string{"email": "LOGIN@example.com", "password": password},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid email or password",
		},
		{
			name:            "missing password",
			request:         map[string]string{"email": user.Email},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/login"), "", tt.request)
			defer resp.Body.Close()

			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var result testutil.AuthResponse
			testutil.AssertJSONResponse(t, resp, &result)
			assert.Equal(t, user.ID, result.User.ID)
			assert.Equal(t, "Login successful", result.Message)
			assert.NotEmpty(t, result.Token.Token)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, token := testutil.NewUserBuilder().
		WithEmail("me@example.com").
		WithName("Me").
		BuildAndAuthenticate(t, ts)

	t.Run("valid token", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), token, nil)
		defer resp.Body.Close()

		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var result testutil.UserResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, "me@example.com", result.User.Email)
	})

	t.Run("missing header", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), "", nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Authorization header required")
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), "not-a-jwt", nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Invalid or expired token")
	})
}

func TestAuthHandler_TokenExpires(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	ts.Clock.Advance(59 * time.Minute)
	resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ts.Clock.Advance(time.Minute)
	resp = testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), token, nil)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Invalid or expired token")
}

func TestAuthHandler_MeAfterDelete(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	require.NoError(t, ts.Directory.Delete(user.ID))

	resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/auth/me"), token, nil)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "User not found")
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/logout"), "", nil)
	defer resp.Body.Close()

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var result testutil.MessageResponse
	testutil.AssertJSONResponse(t, resp, &result)
	assert.Equal(t, "Logged out successfully. Please discard your token.", result.Message)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, _ := testutil.NewUserBuilder().
		WithEmail("reset@example.com").
		Build(t, ts.Directory)

	forgot := func(t *testing.T, email string) {
		t.Helper()
		resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "", map[string]string{"email": email})
		defer resp.Body.Close()
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var result testutil.MessageResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, "Password reset instructions have been sent to your email", result.Message)
	}

	reset := func(t *testing.T, tok, password string) *http.Response {
		t.Helper()
		return testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/reset-password"), "", map[string]string{
			"token":        tok,
			"new_password": password,
		})
	}

	t.Run("unknown email gets the same acknowledgement", func(t *testing.T) {
		forgot(t, "ghost@example.com")
		assert.Empty(t, ts.LastResetToken())
	})

	t.Run("token resets once", func(t *testing.T) {
		forgot(t, user.Email)
		tok := ts.LastResetToken()
		require.Len(t, tok, 64)

		resp := reset(t, tok, "Brand#New1")
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		resp.Body.Close()

		resp = reset(t, tok, "Brand#New2")
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid or expired reset token")
		resp.Body.Close()

		resp = testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/login"), "", map[string]string{
			"email":    user.Email,
			"password": "Brand#New1",
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		resp.Body.Close()
	})

	t.Run("weak password burns the token", func(t *testing.T) {
		forgot(t, user.Email)
		tok := ts.LastResetToken()

		resp := reset(t, tok, "short")
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Password must be at least 8 characters long")
		resp.Body.Close()

		resp = reset(t, tok, "Brand#New3")
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid or expired reset token")
		resp.Body.Close()
	})

	t.Run("expired token", func(t *testing.T) {
		forgot(t, user.Email)
		tok := ts.LastResetToken()

		ts.Clock.Advance(time.Hour + time.Second)

		resp := reset(t, tok, "Brand#New4")
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid or expired reset token")
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := reset(t, "", "")
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Token and new password are required")
	})
}
