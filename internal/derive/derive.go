// Package derive previews the address a chain's derivation path would
// produce for a given mnemonic, and wraps derived wallet keys for
// request stamping. Transaction signing always goes through the custody
// service; a locally derived key only authenticates requests.
package derive

import (
	"encoding/hex"
	"strconv"
	"strings"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/secure"
	"github.com/votis/walletd/internal/stamp"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// Preview is a derived address for operator inspection.
type Preview struct {
	Chain     string `json:"chain"`
	Path      string `json:"path"`
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

// Key wraps a BIP32 master key for preview derivation.
type Key struct {
	master *bip32.Key
}

// FromMnemonic builds a master key from a BIP39 mnemonic. The
// intermediate seed is zeroed before returning.
func FromMnemonic(mnemonic, passphrase string) (*Key, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	defer secure.Zero(seed)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, walleterr.Wrap(err, "deriving master key")
	}
	return &Key{master: master}, nil
}

// Preview derives the address at the chain's default derivation path.
func (k *Key) Preview(spec chains.Spec) (*Preview, error) {
	if spec.Curve != chains.CurveSECP256K1 {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrValidation, "address preview unsupported for curve"),
			map[string]string{"curve": string(spec.Curve)})
	}

	child, err := k.deriveAtPath(spec.DerivationPath)
	if err != nil {
		return nil, err
	}

	compressed := child.PublicKey().Key
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, walleterr.Wrap(err, "parsing derived public key")
	}

	address, err := formatAddress(pub, spec.AddressFormat)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Chain:     spec.Name,
		Path:      spec.DerivationPath,
		Address:   address,
		PublicKey: hex.EncodeToString(compressed),
	}, nil
}

// Signer derives the wallet key at the chain's registered path and
// wraps it for request stamping. The scalar copy handed to the signer
// is the only key material retained; callers must Zero the signer when
// done.
func (k *Key) Signer(spec chains.Spec) (*stamp.Secp256k1Signer, error) {
	if spec.Curve != chains.CurveSECP256K1 {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrValidation, "wallet-key stamping unsupported for curve"),
			map[string]string{"curve": string(spec.Curve)})
	}

	child, err := k.deriveAtPath(spec.DerivationPath)
	if err != nil {
		return nil, err
	}

	scalar := make([]byte, len(child.Key))
	copy(scalar, child.Key)
	defer secure.Zero(scalar)

	return stamp.NewSecp256k1Signer(scalar)
}

func (k *Key) deriveAtPath(path string) (*bip32.Key, error) {
	indices, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	key := k.master
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, walleterr.Wrap(err, "deriving child key")
		}
	}
	return key, nil
}

// parsePath parses a BIP44-style path like m/44'/60'/0'/0/0 into child
// indices, with hardened markers folded in.
func parsePath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] != "m" {
		return nil, walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrValidation, "malformed derivation path"),
			map[string]string{"path": path})
	}

	indices := make([]uint32, 0, len(segments)-1)
	for _, segment := range segments[1:] {
		hardened := strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h")
		if hardened {
			segment = segment[:len(segment)-1]
		}

		value, err := strconv.ParseUint(segment, 10, 32)
		if err != nil || value >= uint64(bip32.FirstHardenedChild) {
			return nil, walleterr.WithDetails(
				walleterr.Wrap(walleterr.ErrValidation, "malformed derivation path"),
				map[string]string{"path": path, "segment": segment})
		}

		index := uint32(value)
		if hardened {
			index += bip32.FirstHardenedChild
		}
		indices = append(indices, index)
	}
	return indices, nil
}
