package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/metrics"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// Submitter is the slice of the custody client the broker needs.
type Submitter interface {
	SubmitActivity(ctx context.Context, activityType string, body []byte, authMode stamp.AuthMode, encodedStamp string) (*custody.Activity, error)
}

// Broker creates sessions against the custody service and keeps them in
// the store, arming proactive refresh on each one it builds. It holds
// the operator signing key used to stamp session-creation requests.
type Broker struct {
	store    *Store
	client   Submitter
	operator stamp.Signer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time

	readOnlyTTL  time.Duration
	readWriteTTL time.Duration

	// newEphemeralKey is swapped in tests to make bundle decryption
	// deterministic.
	newEphemeralKey func() (*stamp.P256Signer, error)
}

// BrokerOptions configures a Broker. Zero values take defaults.
type BrokerOptions struct {
	ReadOnlyTTL  time.Duration
	ReadWriteTTL time.Duration
	Metrics      *metrics.Metrics
	Clock        func() time.Time
}

// NewBroker wires a broker over a store and custody client. The operator
// signer stamps every session-creation envelope.
func NewBroker(store *Store, client Submitter, operator stamp.Signer, logger *zap.Logger, opts *BrokerOptions) (*Broker, error) {
	if store == nil || client == nil {
		return nil, walleterr.Wrap(walleterr.ErrConfigInvalid, "broker requires a store and custody client")
	}
	if operator == nil {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "broker requires an operator signing key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts == nil {
		opts = &BrokerOptions{}
	}

	b := &Broker{
		store:           store,
		client:          client,
		operator:        operator,
		logger:          logger,
		metrics:         opts.Metrics,
		clock:           opts.Clock,
		readOnlyTTL:     opts.ReadOnlyTTL,
		readWriteTTL:    opts.ReadWriteTTL,
		newEphemeralKey: stamp.GenerateP256Signer,
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	if b.readOnlyTTL <= 0 {
		b.readOnlyTTL = DefaultReadOnlyTTL
	}
	if b.readWriteTTL <= 0 {
		b.readWriteTTL = DefaultReadWriteTTL
	}
	return b, nil
}

// ReadOnly returns the live read-only session for the organization,
// creating one if needed. Concurrent callers share a single upstream
// call.
func (b *Broker) ReadOnly(ctx context.Context, organizationID, userID string) (*Session, error) {
	return b.acquire(ctx, Key{OrganizationID: organizationID, Purpose: PurposeReadOnly}, func(ctx context.Context) (*Session, error) {
		return b.buildReadOnly(ctx, organizationID, userID)
	})
}

// ReadWriteForClient returns the live client-mode read-write session for
// the organization. The credential bundle stays encrypted; only the
// client holding the target key can open it.
func (b *Broker) ReadWriteForClient(ctx context.Context, organizationID, userID, targetPublicKey string) (*Session, error) {
	if targetPublicKey == "" {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "client session requires a target public key")
	}
	return b.acquire(ctx, Key{OrganizationID: organizationID, Purpose: PurposeReadWriteClient}, func(ctx context.Context) (*Session, error) {
		return b.buildReadWriteClient(ctx, organizationID, userID, targetPublicKey)
	})
}

// ReadWriteForServer returns the live server-mode read-write session for
// the organization. The broker generates an ephemeral key, has the
// bundle encrypted to it, and decrypts into locked memory so the
// resulting session can sign locally.
func (b *Broker) ReadWriteForServer(ctx context.Context, organizationID, userID string) (*Session, error) {
	return b.acquire(ctx, Key{OrganizationID: organizationID, Purpose: PurposeReadWriteServer}, func(ctx context.Context) (*Session, error) {
		return b.buildReadWriteServer(ctx, organizationID, userID)
	})
}

// Invalidate removes the session for the organization and purpose, if
// any, cancelling its refresh chain.
func (b *Broker) Invalidate(organizationID string, purpose Purpose) bool {
	removed := b.store.Invalidate(Key{OrganizationID: organizationID, Purpose: purpose})
	if removed && b.metrics != nil {
		b.metrics.SessionsInvalidated.Inc()
	}
	return removed
}

// acquire runs the store's coalesced get-or-create and, for the call
// that built, arms the refresh chain from the new session's RefreshAt.
func (b *Broker) acquire(ctx context.Context, key Key, build BuildFunc) (*Session, error) {
	if key.OrganizationID == "" {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "organization id is required")
	}

	sess, built, err := b.store.GetOrCreate(ctx, key, build)
	if err != nil {
		return nil, err
	}
	if built {
		if b.metrics != nil {
			b.metrics.SessionsCreated.WithLabelValues(string(key.Purpose)).Inc()
		}
		b.store.ScheduleRefresh(key, sess.RefreshAt, func(ctx context.Context) (*Session, error) {
			refreshed, err := build(ctx)
			if err == nil && b.metrics != nil {
				b.metrics.SessionsRefreshed.Inc()
			}
			return refreshed, err
		})
		b.logger.Info("session created",
			zap.String("key", key.String()),
			zap.Time("expires_at", sess.ExpiresAt))
	}
	return sess, nil
}

func (b *Broker) buildReadOnly(ctx context.Context, organizationID, userID string) (*Session, error) {
	activity, err := b.submit(ctx, custody.ActivityTypeCreateReadOnlySession, organizationID,
		custody.CreateReadOnlySessionParams{UserID: userID})
	if err != nil {
		return nil, err
	}

	var result custody.ReadOnlySessionResult
	if err := decodeResult(activity.Result, "createReadOnlySessionResult", &result); err != nil {
		return nil, err
	}
	if result.Session == "" {
		return nil, walleterr.Wrap(walleterr.ErrTransientUpstream, "session creation returned no credential")
	}

	return b.newSession(Key{OrganizationID: organizationID, Purpose: PurposeReadOnly},
		result.UserID, b.readOnlyTTL, Credentials{Token: result.Session}), nil
}

func (b *Broker) buildReadWriteClient(ctx context.Context, organizationID, userID, targetPublicKey string) (*Session, error) {
	result, err := b.createReadWrite(ctx, organizationID, userID, targetPublicKey)
	if err != nil {
		return nil, err
	}

	// The bundle is stored encrypted and handed to the client as-is.
	return b.newSession(Key{OrganizationID: organizationID, Purpose: PurposeReadWriteClient},
		result.UserID, b.readWriteTTL, Credentials{Bundle: result.CredentialBundle}), nil
}

func (b *Broker) buildReadWriteServer(ctx context.Context, organizationID, userID string) (*Session, error) {
	ephemeral, err := b.newEphemeralKey()
	if err != nil {
		return nil, walleterr.Wrap(err, "generate ephemeral session key")
	}

	result, err := b.createReadWrite(ctx, organizationID, userID, ephemeral.PublicKeyHex())
	if err != nil {
		return nil, err
	}

	scalar, err := DecryptBundle(result.CredentialBundle, ephemeral.PrivateKey())
	if err != nil {
		return nil, err
	}

	key, err := privateKeyFromScalar(scalar.Bytes())
	if err != nil {
		scalar.Destroy()
		return nil, err
	}
	signer, err := stamp.NewP256Signer(key)
	if err != nil {
		scalar.Destroy()
		return nil, err
	}

	return b.newSession(Key{OrganizationID: organizationID, Purpose: PurposeReadWriteServer},
		result.UserID, b.readWriteTTL, Credentials{Signer: signer, raw: scalar}), nil
}

func (b *Broker) createReadWrite(ctx context.Context, organizationID, userID, targetPublicKey string) (*custody.ReadWriteSessionResult, error) {
	activity, err := b.submit(ctx, custody.ActivityTypeCreateReadWriteSession, organizationID,
		custody.CreateReadWriteSessionParams{
			TargetPublicKey: targetPublicKey,
			UserID:          userID,
			ExpirationSecs:  strconv.Itoa(int(b.readWriteTTL.Seconds())),
		})
	if err != nil {
		return nil, err
	}

	var result custody.ReadWriteSessionResult
	if err := decodeResult(activity.Result, "createReadWriteSessionResult", &result); err != nil {
		return nil, err
	}
	if result.CredentialBundle == "" {
		return nil, walleterr.Wrap(walleterr.ErrTransientUpstream, "session creation returned no credential bundle")
	}
	return &result, nil
}

func (b *Broker) submit(ctx context.Context, activityType, organizationID string, params any) (*custody.Activity, error) {
	body, err := custody.NewEnvelope(activityType, organizationID, params)
	if err != nil {
		return nil, walleterr.Wrap(err, "encode activity envelope")
	}

	st, err := stamp.New(body, b.operator)
	if err != nil {
		return nil, err
	}
	encoded, err := stamp.Encode(st)
	if err != nil {
		return nil, err
	}

	start := b.clock()
	activity, err := b.client.SubmitActivity(ctx, activityType, body, stamp.AuthModeAPIKey, encoded)
	if b.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = walleterr.Code(err)
		}
		b.metrics.CustodyCalls.WithLabelValues(activityType, outcome).Inc()
		b.metrics.CustodyLatency.WithLabelValues(activityType).Observe(b.clock().Sub(start).Seconds())
	}
	return activity, err
}

func (b *Broker) newSession(key Key, userID string, ttl time.Duration, creds Credentials) *Session {
	now := b.clock()
	return &Session{
		ID:          uuid.NewString(),
		Key:         key,
		UserID:      userID,
		Credentials: creds,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		// Refresh at 80% of the lifetime so replacement lands well
		// before any caller can observe expiry.
		RefreshAt: now.Add(ttl * 4 / 5),
	}
}

// decodeResult unmarshals an activity result that may arrive either as
// the bare result object or nested under a per-activity wrapper key.
func decodeResult(raw json.RawMessage, wrapperKey string, out any) error {
	if len(raw) == 0 {
		return walleterr.Wrap(walleterr.ErrTransientUpstream, "activity completed without a result")
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return walleterr.Wrap(walleterr.ErrTransientUpstream, "malformed activity result")
	}
	if nested, ok := wrapper[wrapperKey]; ok {
		raw = nested
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return walleterr.Wrap(walleterr.ErrTransientUpstream, "malformed activity result")
	}
	return nil
}
