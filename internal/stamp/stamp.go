// Package stamp produces signed request envelopes ("stamps") proving an
// outgoing custody request originated from a holder of a specific private
// key. A stamp is the SHA-256 of the request body signed with ECDSA, the
// signature DER-encoded, carried alongside the uncompressed public key.
package stamp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	walleterr "github.com/votis/walletd/pkg/errors"
)

// Signature scheme identifiers carried inside a stamp.
const (
	SchemeAPIP256      = "SIGNATURE_SCHEME_API_P256"
	SchemeAPISecp256k1 = "SIGNATURE_SCHEME_API_SECP256K1"
)

// Stamp header variants. An API-key stamp is produced server-side from
// an operator key; a client stamp is produced on-device and forwarded by
// the server without inspection.
const (
	HeaderAPIKey = "X-Stamp"
	HeaderClient = "X-Stamp-WebAuthn"
)

// AuthMode selects which stamp header an operation is submitted under.
type AuthMode string

// Auth modes.
const (
	AuthModeAPIKey AuthMode = "api_key"
	AuthModeClient AuthMode = "client"
)

// HeaderName returns the HTTP header carrying the stamp for this mode.
func (m AuthMode) HeaderName() string {
	if m == AuthModeClient {
		return HeaderClient
	}
	return HeaderAPIKey
}

// Stamp is the signature envelope attached to an outgoing request.
type Stamp struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	Scheme    string `json:"scheme"`
}

// Signer signs request digests with a held private key.
type Signer interface {
	// SignDigest signs a SHA-256 digest, returning a DER signature.
	SignDigest(digest []byte) ([]byte, error)

	// PublicKeyHex returns the uncompressed public key in hex.
	PublicKeyHex() string

	// Scheme returns the signature scheme identifier.
	Scheme() string
}

// New stamps a request body with the given signer. It is a pure function
// over its inputs; no key material is retained or logged. A nil signer
// or signing failure is fatal for the calling operation - retrying with
// the same key cannot succeed.
func New(body []byte, signer Signer) (Stamp, error) {
	if signer == nil {
		return Stamp{}, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "stamping request")
	}

	digest := sha256.Sum256(body)
	der, err := signer.SignDigest(digest[:])
	if err != nil {
		return Stamp{}, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "signing request digest")
	}

	return Stamp{
		PublicKey: signer.PublicKeyHex(),
		Signature: hex.EncodeToString(der),
		Scheme:    signer.Scheme(),
	}, nil
}

// Encode serializes a stamp to base64url without padding, the form the
// custody service expects in the stamp header.
func Encode(s Stamp) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", walleterr.Wrap(err, "encoding stamp")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. decode(encode(stamp)) == stamp.
func Decode(encoded string) (Stamp, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Stamp{}, walleterr.Wrap(walleterr.ErrInvalidStamp, "decoding stamp")
	}

	var s Stamp
	if err := json.Unmarshal(raw, &s); err != nil {
		return Stamp{}, walleterr.Wrap(walleterr.ErrInvalidStamp, "parsing stamp")
	}
	return s, nil
}

// P256Signer signs with a NIST P-256 key, the scheme used by operator
// API keys.
type P256Signer struct {
	key *ecdsa.PrivateKey
}

// NewP256Signer wraps an existing P-256 private key.
func NewP256Signer(key *ecdsa.PrivateKey) (*P256Signer, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "P-256 key required")
	}
	return &P256Signer{key: key}, nil
}

// GenerateP256Signer creates a signer over a fresh ephemeral P-256 key.
func GenerateP256Signer() (*P256Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, walleterr.Wrap(err, "generating P-256 key")
	}
	return &P256Signer{key: key}, nil
}

// ParseP256Signer loads a signer from a PKCS#8 DER private key.
func ParseP256Signer(der []byte) (*P256Signer, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "parsing PKCS#8 key")
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "not an ECDSA key")
	}
	return NewP256Signer(key)
}

// SignDigest implements Signer.
func (s *P256Signer) SignDigest(digest []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, s.key, digest)
}

// PublicKeyHex implements Signer.
func (s *P256Signer) PublicKeyHex() string {
	//nolint:staticcheck // SA1019: uncompressed point encoding is the wire format here
	return hex.EncodeToString(elliptic.Marshal(elliptic.P256(), s.key.PublicKey.X, s.key.PublicKey.Y))
}

// Scheme implements Signer.
func (s *P256Signer) Scheme() string {
	return SchemeAPIP256
}

// PrivateKey exposes the underlying key for HPKE receiver setup.
func (s *P256Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// Secp256k1Signer signs with a secp256k1 key, the scheme used by
// stamps produced with a wallet key rather than an operator API key.
type Secp256k1Signer struct {
	key *secp256k1.PrivateKey
}

// NewSecp256k1Signer wraps raw 32-byte private key material.
func NewSecp256k1Signer(raw []byte) (*Secp256k1Signer, error) {
	if len(raw) != 32 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "secp256k1 key must be 32 bytes")
	}
	return &Secp256k1Signer{key: secp256k1.PrivKeyFromBytes(raw)}, nil
}

// SignDigest implements Signer.
func (s *Secp256k1Signer) SignDigest(digest []byte) ([]byte, error) {
	return dcrecdsa.Sign(s.key, digest).Serialize(), nil
}

// PublicKeyHex implements Signer.
func (s *Secp256k1Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.key.PubKey().SerializeUncompressed())
}

// Scheme implements Signer.
func (s *Secp256k1Signer) Scheme() string {
	return SchemeAPISecp256k1
}

// Zero clears the private key material. The signer is unusable after.
func (s *Secp256k1Signer) Zero() {
	s.key.Zero()
}
