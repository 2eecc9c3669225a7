package session

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"math/big"

	"github.com/cloudflare/circl/hpke"

	"github.com/votis/walletd/internal/secure"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// Credential bundles are HPKE-sealed to the target key: base64url of
// the encapsulated P-256 key (65 bytes uncompressed) followed by the
// AEAD ciphertext over the 32-byte temporary API private key scalar.
const (
	bundleInfo     = "credential-bundle"
	encapKeyLength = 65
	scalarLength   = 32
)

func bundleSuite() hpke.Suite {
	return hpke.NewSuite(hpke.KEM_P256_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES256GCM)
}

// DecryptBundle opens a credential bundle with the recipient's P-256
// private key and returns the decrypted scalar in locked memory.
func DecryptBundle(bundle string, recipient *ecdsa.PrivateKey) (*secure.Buffer, error) {
	raw, err := base64.RawURLEncoding.DecodeString(bundle)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "decoding bundle")
	}
	if len(raw) <= encapKeyLength {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "bundle too short")
	}
	encap, ciphertext := raw[:encapKeyLength], raw[encapKeyLength:]

	scheme := hpke.KEM_P256_HKDF_SHA256.Scheme()
	priv, err := scheme.UnmarshalBinaryPrivateKey(recipient.D.FillBytes(make([]byte, scalarLength)))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "loading recipient key")
	}

	receiver, err := bundleSuite().NewReceiver(priv, []byte(bundleInfo))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "initializing receiver")
	}
	opener, err := receiver.Setup(encap)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "recovering shared secret")
	}

	plaintext, err := opener.Open(ciphertext, nil)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "opening bundle")
	}
	if len(plaintext) != scalarLength {
		secure.Zero(plaintext)
		return nil, walleterr.Wrap(walleterr.ErrBundleDecryption, "unexpected credential length")
	}

	buf := secure.FromSlice(plaintext)
	secure.Zero(plaintext)
	return buf, nil
}

// EncryptBundle seals a 32-byte private key scalar to the recipient's
// uncompressed P-256 public key. Used by tests standing in for the
// custody service; the production service performs the sealing itself.
func EncryptBundle(scalar []byte, recipientPub []byte) (string, error) {
	if len(scalar) != scalarLength {
		return "", walleterr.Wrap(walleterr.ErrValidation, "scalar must be 32 bytes")
	}

	scheme := hpke.KEM_P256_HKDF_SHA256.Scheme()
	pub, err := scheme.UnmarshalBinaryPublicKey(recipientPub)
	if err != nil {
		return "", walleterr.Wrap(walleterr.ErrValidation, "parsing recipient public key")
	}

	sender, err := bundleSuite().NewSender(pub, []byte(bundleInfo))
	if err != nil {
		return "", walleterr.Wrap(err, "initializing sender")
	}
	encap, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return "", walleterr.Wrap(err, "encapsulating")
	}

	ciphertext, err := sealer.Seal(scalar, nil)
	if err != nil {
		return "", walleterr.Wrap(err, "sealing bundle")
	}

	return base64.RawURLEncoding.EncodeToString(append(encap, ciphertext...)), nil
}

// privateKeyFromScalar rebuilds a P-256 private key from its scalar.
func privateKeyFromScalar(scalar []byte) (*ecdsa.PrivateKey, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(scalar)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, walleterr.Wrap(walleterr.ErrInvalidSigningKey, "scalar out of range")
	}

	key := &ecdsa.PrivateKey{D: d}
	key.PublicKey.Curve = curve
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(d.FillBytes(make([]byte, scalarLength)))
	return key, nil
}
