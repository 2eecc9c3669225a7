package custody

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, &ClientOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c, srv
}

func TestSubmitActivity_Success(t *testing.T) {
	t.Parallel()
	var gotPath, gotStamp, gotWebAuthn, gotContentType string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStamp = r.Header.Get("X-Stamp")
		gotWebAuthn = r.Header.Get("X-Stamp-WebAuthn")
		gotContentType = r.Header.Get("Content-Type")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"activity": map[string]any{
				"id":             "act-123",
				"status":         "ACTIVITY_STATUS_COMPLETED",
				"type":           ActivityTypeSignTransaction,
				"organizationId": "org-1",
				"timestampMs":    "1700000000000",
				"result":         map[string]any{"signedTransaction": "0xabc"},
			},
		})
	})

	activity, err := c.SubmitActivity(context.Background(), ActivityTypeSignTransaction,
		[]byte(`{"type":"ACTIVITY_TYPE_SIGN_TRANSACTION"}`), stamp.AuthModeAPIKey, "encoded-stamp")
	require.NoError(t, err)

	assert.Equal(t, "/submit/"+ActivityTypeSignTransaction, gotPath)
	assert.Equal(t, "encoded-stamp", gotStamp)
	assert.Empty(t, gotWebAuthn)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "act-123", activity.ID)
	assert.NotNil(t, activity.Result)
}

func TestSubmitActivity_ClientStampHeader(t *testing.T) {
	t.Parallel()
	var gotStamp, gotWebAuthn string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotStamp = r.Header.Get("X-Stamp")
		gotWebAuthn = r.Header.Get("X-Stamp-WebAuthn")
		_ = json.NewEncoder(w).Encode(map[string]any{"activity": map[string]any{"id": "act-1"}})
	})

	_, err := c.SubmitActivity(context.Background(), ActivityTypeCreateAuthenticator,
		[]byte(`{}`), stamp.AuthModeClient, "client-stamp")
	require.NoError(t, err)

	// Client stamps are forwarded opaquely under their own header,
	// never under the API key header.
	assert.Empty(t, gotStamp)
	assert.Equal(t, "client-stamp", gotWebAuthn)
}

func TestSubmitActivity_MissingResultTolerated(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"activity": map[string]any{
				"id":     "act-9",
				"status": "ACTIVITY_STATUS_COMPLETED",
			},
		})
	})

	activity, err := c.SubmitActivity(context.Background(), ActivityTypeCreateWallet,
		[]byte(`{}`), stamp.AuthModeAPIKey, "s")
	require.NoError(t, err)
	assert.Nil(t, activity.Result)
}

func TestSubmitActivity_UpstreamErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, walleterr.ErrAuthFailure},
		{http.StatusForbidden, walleterr.ErrAuthFailure},
		{http.StatusBadRequest, walleterr.ErrValidation},
		{http.StatusNotFound, walleterr.ErrValidation},
		{http.StatusConflict, walleterr.ErrValidation},
		{http.StatusUnprocessableEntity, walleterr.ErrValidation},
		{http.StatusTooManyRequests, walleterr.ErrRateLimited},
		{http.StatusInternalServerError, walleterr.ErrTransientUpstream},
		{http.StatusBadGateway, walleterr.ErrTransientUpstream},
		{http.StatusServiceUnavailable, walleterr.ErrTransientUpstream},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"upstream says no"}`))
			})

			_, err := c.SubmitActivity(context.Background(), ActivityTypeSignRawPayload,
				[]byte(`{}`), stamp.AuthModeAPIKey, "s")
			require.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), "upstream says no")
		})
	}
}

func TestSubmitActivity_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	httpClient := srv.Client()
	httpClient.Timeout = 20 * time.Millisecond
	c, err := NewClient(srv.URL, &ClientOptions{HTTPClient: httpClient})
	require.NoError(t, err)

	_, err = c.SubmitActivity(context.Background(), ActivityTypeSignTransaction,
		[]byte(`{}`), stamp.AuthModeAPIKey, "s")
	require.ErrorIs(t, err, walleterr.ErrTransientUpstream)
	assert.True(t, walleterr.IsRetryable(err))
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   int
		sentinel error
		retry    bool
	}{
		{"401 auth", 401, walleterr.ErrAuthFailure, false},
		{"403 auth", 403, walleterr.ErrAuthFailure, false},
		{"400 validation", 400, walleterr.ErrValidation, false},
		{"404 validation", 404, walleterr.ErrValidation, false},
		{"409 validation", 409, walleterr.ErrValidation, false},
		{"422 validation", 422, walleterr.ErrValidation, false},
		{"429 rate limited", 429, walleterr.ErrRateLimited, true},
		{"500 transient", 500, walleterr.ErrTransientUpstream, true},
		{"503 transient", 503, walleterr.ErrTransientUpstream, true},
		{"599 transient", 599, walleterr.ErrTransientUpstream, true},
		{"999 unknown", 999, walleterr.ErrInternal, false},
		{"302 unknown", 302, walleterr.ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ClassifyStatus(tt.status)
			require.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retry, walleterr.IsRetryable(err))
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	t.Parallel()
	body, err := NewEnvelope(ActivityTypeCreateReadOnlySession, "org-7",
		CreateReadOnlySessionParams{UserID: "user-1"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, ActivityTypeCreateReadOnlySession, env.Type)
	assert.Equal(t, "org-7", env.OrganizationID)
	assert.NotEmpty(t, env.TimestampMs)

	var params CreateReadOnlySessionParams
	require.NoError(t, json.Unmarshal(env.Parameters, &params))
	assert.Equal(t, "user-1", params.UserID)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	t.Parallel()
	_, err := NewClient("", nil)
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)
}
