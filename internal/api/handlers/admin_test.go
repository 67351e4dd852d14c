package handlers_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/dom/tps-identity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_CreateAdmin(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, userToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	_, adminToken := testutil.NewUserBuilder().AsAdmin().BuildAndAuthenticate(t, ts)

	body := map[string]string{
		"email":    "ops@example.com",
		"name":     "Ops",
		"password": testutil.DefaultPassword,
	}

	t.Run("regular user", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/admin/users"), userToken, body)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusForbidden, "Access denied")
	})

	t.Run("admin", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/admin/users"), adminToken, body)
		defer resp.Body.Close()

		testutil.AssertStatusCode(t, resp, http.StatusCreated)
		var result testutil.UserResponse
		testutil.AssertJSONResponse(t, resp, &result)
		assert.True(t, result.User.IsAdmin)
		assert.Equal(t, "Admin user created successfully", result.Message)
	})

	t.Run("duplicate", func(t *testing.T) {
		resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/admin/users"), adminToken, body)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusConflict, "User with this email already exists")
	})
}

func TestAdminHandler_RecentEvents(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, userToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	_, adminToken := testutil.NewUserBuilder().AsAdmin().BuildAndAuthenticate(t, ts)

	tests := []struct {
		name            string
		token           string
		query           string
		expectedStatus  int
		expectedMessage string
	}{
		{name: "admin without store", token: adminToken, expectedStatus: http.StatusOK},
		{name: "regular user", token: userToken, expectedStatus: http.StatusForbidden, expectedMessage: "Access denied"},
		{name: "bad limit", token: adminToken, query: "?limit=abc", expectedStatus: http.StatusBadRequest, expectedMessage: "limit must be a positive integer"},
		{name: "zero limit", token: adminToken, query: "?limit=0", expectedStatus: http.StatusBadRequest, expectedMessage: "limit must be a positive integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, http.MethodGet, ts.APIURL("/admin/events/recent"+tt.query), tt.token, nil)
			defer resp.Body.Close()

			if tt.expectedMessage != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var result struct {
				Events []map[string]any `json:"events"`
				Total  int              `json:"total"`
			}
			testutil.AssertJSONResponse(t, resp, &result)
			assert.NotNil(t, result.Events)
			assert.Zero(t, result.Total)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.BaseURL() + "/health/db")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]string
	testutil.AssertJSONResponse(t, resp, &status)
	assert.Equal(t, "not_configured", status["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t)

	testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp, err := http.Get(ts.BaseURL() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `identity_login_total{outcome="success"} 1`)
	assert.Contains(t, string(body), `identity_http_responses_total{status_code="200"}`)
}
