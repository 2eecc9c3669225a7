package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/executor"
	"github.com/votis/walletd/internal/metrics"
	"github.com/votis/walletd/internal/retryqueue"
	"github.com/votis/walletd/internal/session"
	"github.com/votis/walletd/internal/stamp"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// custodyStub speaks the activity submission protocol.
type custodyStub struct {
	status   int
	activity map[string]any
	requests []string
}

func (cs *custodyStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs.requests = append(cs.requests, r.URL.Path)
		if cs.status != http.StatusOK {
			w.WriteHeader(cs.status)
			_, _ = w.Write([]byte(`{"message":"upstream rejected"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"activity": cs.activity})
	}
}

type testEnv struct {
	server *Server
	stub   *custodyStub
	queue  *retryqueue.Memory
	signer *stamp.P256Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stub := &custodyStub{
		status: http.StatusOK,
		activity: map[string]any{
			"id":     "activity-1",
			"status": "ACTIVITY_STATUS_COMPLETED",
			"result": map[string]any{
				"createReadOnlySessionResult": map[string]any{
					"userId":  "user-1",
					"session": "ro-token",
				},
			},
		},
	}
	backend := httptest.NewServer(stub.handler())
	t.Cleanup(backend.Close)

	client, err := custody.NewClient(backend.URL, nil)
	require.NoError(t, err)

	operator, err := stamp.GenerateP256Signer()
	require.NoError(t, err)

	store := session.NewStore(zap.NewNop())
	t.Cleanup(store.Close)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	broker, err := session.NewBroker(store, client, operator, zap.NewNop(), &session.BrokerOptions{Metrics: m})
	require.NoError(t, err)

	queue := retryqueue.NewMemory(zap.NewNop(), 8)
	exec, err := executor.New(client, zap.NewNop(), &executor.Options{Queue: queue, Metrics: m})
	require.NoError(t, err)

	srv, err := New(zap.NewNop(), Options{
		OrganizationID: "org-default",
		Registry:       chains.NewRegistry(),
		Broker:         broker,
		Executor:       exec,
		Gatherer:       reg,
	})
	require.NoError(t, err)

	return &testEnv{server: srv, stub: stub, queue: queue, signer: operator}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) stampFor(t *testing.T, body string) string {
	t.Helper()
	st, err := stamp.New([]byte(body), e.signer)
	require.NoError(t, err)
	encoded, err := stamp.Encode(st)
	require.NoError(t, err)
	return encoded
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListChains(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/chains", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Chains []string `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Chains, "eth")
	assert.Contains(t, body.Chains, "btc")

	rec = env.do(t, http.MethodGet, "/v1/chains?evm=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Chains, "eth")
	assert.NotContains(t, body.Chains, "btc")
}

func TestResolveChain(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/chains/eth", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var spec chains.Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, "Ethereum", spec.Name)
	assert.Equal(t, chains.EthereumDerivationPath, spec.DerivationPath)
}

func TestResolveChain_NumericFallback(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/chains/999999", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var spec chains.Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, "EVM Chain 999999", spec.Name)
	assert.Equal(t, chains.EthereumDerivationPath, spec.DerivationPath)
}

func TestResolveChain_NotFoundWithSuggestion(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/chains/etj", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "CHAIN_NOT_FOUND")
	assert.Contains(t, rec.Body.String(), "eth")
}

func TestAddressPreview(t *testing.T) {
	env := newTestEnv(t)

	body := `{"mnemonic":"` + testMnemonic + `"}`
	rec := env.do(t, http.MethodPost, "/v1/chains/eth/address", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var preview struct {
		Address string `json:"address"`
		Path    string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", preview.Address)
	assert.Equal(t, "m/44'/60'/0'/0/0", preview.Path)
}

func TestAddressPreview_BadMnemonic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/chains/eth/address", `{"mnemonic":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignTransaction_Success(t *testing.T) {
	env := newTestEnv(t)
	env.stub.activity = map[string]any{
		"id":     "activity-42",
		"status": "ACTIVITY_STATUS_COMPLETED",
		"result": map[string]any{"signTransactionResult": map[string]any{"signedTransaction": "0xdead"}},
	}

	body := `{"type":"ACTIVITY_TYPE_SIGN_TRANSACTION","organizationId":"org-default"}`
	rec := env.do(t, http.MethodPost, "/v1/sign/transaction", body, map[string]string{
		stamp.HeaderAPIKey: env.stampFor(t, body),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "activity-42")
	require.Len(t, env.stub.requests, 1)
	assert.True(t, strings.HasSuffix(env.stub.requests[0], "/submit/ACTIVITY_TYPE_SIGN_TRANSACTION"))
}

func TestSignTransaction_MissingStamp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sign/transaction", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestSignTransaction_RateLimitedQueues(t *testing.T) {
	env := newTestEnv(t)
	env.stub.status = http.StatusTooManyRequests

	body := `{"type":"ACTIVITY_TYPE_SIGN_TRANSACTION"}`
	rec := env.do(t, http.MethodPost, "/v1/sign/transaction", body, map[string]string{
		stamp.HeaderAPIKey: env.stampFor(t, body),
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "queued")
	assert.Equal(t, 1, env.queue.Len())
}

func TestSignTransaction_AuthFailureFailsFast(t *testing.T) {
	env := newTestEnv(t)
	env.stub.status = http.StatusUnauthorized

	body := `{"type":"ACTIVITY_TYPE_SIGN_TRANSACTION"}`
	rec := env.do(t, http.MethodPost, "/v1/sign/payload", body, map[string]string{
		stamp.HeaderAPIKey: env.stampFor(t, body),
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH_FAILURE")
	assert.Equal(t, 0, env.queue.Len())
}

func TestSignPayload_ClientStampForwarded(t *testing.T) {
	env := newTestEnv(t)

	body := `{"type":"ACTIVITY_TYPE_SIGN_RAW_PAYLOAD"}`
	rec := env.do(t, http.MethodPost, "/v1/sign/payload", body, map[string]string{
		stamp.HeaderClient: env.stampFor(t, body),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateReadOnlySession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/readonly", `{"user_id":"user-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID             string `json:"id"`
		OrganizationID string `json:"organization_id"`
		Purpose        string `json:"purpose"`
		Token          string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "org-default", resp.OrganizationID)
	assert.Equal(t, "read_only", resp.Purpose)
	assert.Equal(t, "ro-token", resp.Token)

	// Second request reuses the cached session.
	rec2 := env.do(t, http.MethodPost, "/v1/sessions/readonly", `{"user_id":"user-1"}`, nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	var resp2 struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp2))
	assert.Equal(t, resp.ID, resp2.ID)
	assert.Len(t, env.stub.requests, 1)
}

func TestCreateClientSession(t *testing.T) {
	env := newTestEnv(t)
	env.stub.activity = map[string]any{
		"id":     "activity-1",
		"status": "ACTIVITY_STATUS_COMPLETED",
		"result": map[string]any{
			"createReadWriteSessionResult": map[string]any{
				"userId":           "user-1",
				"credentialBundle": "opaque-bundle",
			},
		},
	}

	body := `{"user_id":"user-1","target_public_key":"client-key"}`
	rec := env.do(t, http.MethodPost, "/v1/sessions/client", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opaque-bundle")
}

func TestCreateClientSession_MissingTargetKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/client", `{"user_id":"user-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidateSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/readonly", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/sessions?purpose=readonly", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/sessions?purpose=readonly", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/sessions?purpose=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerSessionExpiryWindow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/readonly", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.DefaultReadOnlyTTL, resp.ExpiresAt.Sub(resp.CreatedAt))
}
