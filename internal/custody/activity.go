// Package custody provides the client for the external custodial
// key-management service. Every operation is an activity envelope POSTed
// to the submit endpoint under a stamp header; the service's own
// behavior is opaque to this core.
package custody

import (
	"encoding/json"
	"strconv"
	"time"
)

// Activity types accepted by the submit endpoint.
const (
	ActivityTypeCreateReadOnlySession  = "ACTIVITY_TYPE_CREATE_READ_ONLY_SESSION"
	ActivityTypeCreateReadWriteSession = "ACTIVITY_TYPE_CREATE_READ_WRITE_SESSION"
	ActivityTypeSignTransaction        = "ACTIVITY_TYPE_SIGN_TRANSACTION"
	ActivityTypeSignRawPayload         = "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD"
	ActivityTypeCreateAuthenticator    = "ACTIVITY_TYPE_CREATE_AUTHENTICATOR"
	ActivityTypeCreateWallet           = "ACTIVITY_TYPE_CREATE_WALLET"
	ActivityTypeCreateSubOrganization  = "ACTIVITY_TYPE_CREATE_SUB_ORGANIZATION"
)

// Envelope is the request body for every activity submission.
type Envelope struct {
	Type           string          `json:"type"`
	OrganizationID string          `json:"organizationId"`
	Parameters     json.RawMessage `json:"parameters"`
	TimestampMs    string          `json:"timestampMs"`
}

// NewEnvelope builds a marshaled activity envelope stamped with the
// current wall-clock time. The returned bytes are what must be stamped:
// the signature covers these exact bytes.
func NewEnvelope(activityType, organizationID string, parameters any) ([]byte, error) {
	params, err := json.Marshal(parameters)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Type:           activityType,
		OrganizationID: organizationID,
		Parameters:     params,
		TimestampMs:    strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

// Activity is the service's view of one submitted operation.
type Activity struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	Type           string          `json:"type"`
	OrganizationID string          `json:"organizationId"`
	TimestampMs    string          `json:"timestampMs"`
	// Result is absent for some activity types and schema versions;
	// absence is not an error.
	Result json.RawMessage `json:"result,omitempty"`
}

// activityResponse is the wire shape of a successful submission.
type activityResponse struct {
	Activity Activity `json:"activity"`
}

// ReadOnlySessionResult is the plaintext credential payload returned by
// a read-only session creation.
type ReadOnlySessionResult struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Session        string `json:"session"`
	SessionExpiry  string `json:"sessionExpiry,omitempty"`
}

// ReadWriteSessionResult carries the encrypted credential bundle from a
// read-write session creation. The bundle is decryptable only by the
// holder of the target key.
type ReadWriteSessionResult struct {
	OrganizationID   string `json:"organizationId"`
	UserID           string `json:"userId"`
	APIKeyID         string `json:"apiKeyId"`
	CredentialBundle string `json:"credentialBundle"`
}

// CreateReadOnlySessionParams are the parameters for a read-only session.
type CreateReadOnlySessionParams struct {
	UserID string `json:"userId,omitempty"`
}

// CreateReadWriteSessionParams are the parameters for a read-write
// session. TargetPublicKey is the hex uncompressed P-256 key the service
// encrypts the credential bundle to.
type CreateReadWriteSessionParams struct {
	TargetPublicKey string `json:"targetPublicKey"`
	UserID          string `json:"userId,omitempty"`
	APIKeyName      string `json:"apiKeyName,omitempty"`
	ExpirationSecs  string `json:"expirationSeconds,omitempty"`
}
