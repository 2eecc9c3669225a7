// Package keystore persists the operator API signing key as an
// age-encrypted PKCS#8 file. The key is the only secret walletd stores
// on disk; sessions and credential bundles stay in memory.
package keystore

import (
	"bytes"
	"crypto/x509"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/votis/walletd/internal/secure"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// keyFileMode keeps the encrypted key readable by the service user only.
const keyFileMode = os.FileMode(0o600)

// Generate creates a fresh operator key, writes it encrypted to path,
// and returns the live signer.
func Generate(path, passphrase string) (*stamp.P256Signer, error) {
	signer, err := stamp.GenerateP256Signer()
	if err != nil {
		return nil, err
	}
	if err := Save(path, signer, passphrase); err != nil {
		return nil, err
	}
	return signer, nil
}

// Save writes the signer's private key to path, age-encrypted under the
// passphrase. The plaintext encoding is zeroed before returning.
func Save(path string, signer *stamp.P256Signer, passphrase string) error {
	if path == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "key file path is empty")
	}
	if signer == nil {
		return walleterr.Wrap(walleterr.ErrInvalidSigningKey, "no signer to save")
	}
	if passphrase == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "passphrase is empty")
	}

	der, err := x509.MarshalPKCS8PrivateKey(signer.PrivateKey())
	if err != nil {
		return walleterr.Wrap(err, "encoding operator key")
	}
	defer secure.Zero(der)

	ciphertext, err := encrypt(der, passphrase)
	if err != nil {
		return err
	}

	return writeAtomic(path, ciphertext)
}

// Load reads and decrypts the operator key at path.
func Load(path, passphrase string) (*stamp.P256Signer, error) {
	if path == "" {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "key file path is empty")
	}

	ciphertext, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, walleterr.WithSuggestion(
				walleterr.WithDetails(walleterr.ErrKeystoreNotFound, map[string]string{"path": path}),
				"run 'walletd keygen' to create an operator key")
		}
		return nil, walleterr.Wrap(err, "reading key file")
	}

	der, err := decrypt(ciphertext, passphrase)
	if err != nil {
		return nil, err
	}
	defer secure.Zero(der)

	signer, err := stamp.ParseP256Signer(der)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, walleterr.Wrap(err, "creating scrypt recipient")
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, walleterr.Wrap(err, "initializing encryption")
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, walleterr.Wrap(err, "writing encrypted key")
	}
	if err := w.Close(); err != nil {
		return nil, walleterr.Wrap(err, "finalizing encryption")
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, walleterr.Wrap(err, "creating scrypt identity")
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrDecryptionFailed, "decrypting key file")
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrDecryptionFailed, "reading decrypted key")
	}
	return plaintext, nil
}

// writeAtomic writes to a temp file in the target directory, fsyncs,
// then renames into place so a crash never leaves a partial key file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return walleterr.Wrap(err, "creating temp key file")
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return walleterr.Wrap(err, "writing key file")
	}
	if err := tmp.Chmod(keyFileMode); err != nil {
		return walleterr.Wrap(err, "setting key file permissions")
	}
	if err := tmp.Sync(); err != nil {
		return walleterr.Wrap(err, "syncing key file")
	}
	if err := tmp.Close(); err != nil {
		return walleterr.Wrap(err, "closing key file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return walleterr.Wrap(err, "installing key file")
	}
	return nil
}
