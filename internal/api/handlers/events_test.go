package handlers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/domain"
	"github.com/dom/tps-identity/internal/testutil"
	"github.com/dom/tps-identity/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsHandler_StreamsAuditEvents(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, adminToken := testutil.NewUserBuilder().AsAdmin().BuildAndAuthenticate(t, ts)

	client := testutil.NewWSClient(t, ts.EventsURL(adminToken))
	require.Eventually(t, func() bool { return ts.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/register"), "", map[string]string{
		"email":    "watched@example.com",
		"name":     "Watched",
		"password": testutil.DefaultPassword,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ev, msg := client.ExpectAuditEvent(2 * time.Second)
	assert.Equal(t, domain.AuditUserRegistered, ev.Type)
	assert.NotNil(t, ev.SubjectID)
	assert.Positive(t, msg.Seq)
}

func TestEventsHandler_ResetTokenNeverStreamed(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, _ := testutil.NewUserBuilder().Build(t, ts.Directory)
	_, adminToken := testutil.NewUserBuilder().AsAdmin().BuildAndAuthenticate(t, ts)

	client := testutil.NewWSClient(t, ts.EventsURL(adminToken))
	require.Eventually(t, func() bool { return ts.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := testutil.DoJSON(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "", map[string]string{"email": user.Email})
	resp.Body.Close()

	msg := client.ExpectMessage(websocket.MessageTypeAuditEvent, 2*time.Second)
	tok := ts.LastResetToken()
	require.NotEmpty(t, tok)
	assert.False(t, strings.Contains(string(msg.Payload), tok))
}

func TestEventsHandler_Rejects(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, userToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	httpURL := ts.APIURL("/admin/events?token=")

	tests := []struct {
		name            string
		token           string
		expectedStatus  int
		expectedMessage string
	}{
		{name: "missing token", token: "", expectedStatus: http.StatusUnauthorized, expectedMessage: "Unauthorized"},
		{name: "invalid token", token: "garbage", expectedStatus: http.StatusUnauthorized, expectedMessage: "Invalid or expired token"},
		{name: "non-admin", token: userToken, expectedStatus: http.StatusForbidden, expectedMessage: "Access denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.DoJSON(t, http.MethodGet, httpURL+tt.token, "", nil)
			defer resp.Body.Close()
			testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMessage)
		})
	}
}
