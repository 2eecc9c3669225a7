package derive

import (
	"crypto/sha256"
	"math/big"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // SA1019: required by the P2PKH address format
	"golang.org/x/crypto/sha3"

	"github.com/votis/walletd/internal/chains"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// P2PKH version bytes per chain family.
const (
	versionBitcoin  = 0x00
	versionLitecoin = 0x30
	versionDogecoin = 0x1E
	versionTron     = 0x41
)

func formatAddress(pub *secp256k1.PublicKey, format chains.AddressFormat) (string, error) {
	switch format {
	case chains.AddressFormatEthereum:
		return ethcrypto.PubkeyToAddress(*pub.ToECDSA()).Hex(), nil
	case chains.AddressFormatP2PKH:
		return p2pkhAddress(pub.SerializeCompressed(), versionBitcoin), nil
	case chains.AddressFormatLitecoin:
		return p2pkhAddress(pub.SerializeCompressed(), versionLitecoin), nil
	case chains.AddressFormatDogecoin:
		return p2pkhAddress(pub.SerializeCompressed(), versionDogecoin), nil
	case chains.AddressFormatTron:
		return tronAddress(pub), nil
	default:
		return "", walleterr.WithDetails(
			walleterr.Wrap(walleterr.ErrValidation, "address preview unsupported for format"),
			map[string]string{"format": string(format)})
	}
}

// p2pkhAddress is Base58Check(version || RIPEMD160(SHA256(pubkey))).
func p2pkhAddress(compressed []byte, version byte) string {
	sha := sha256.Sum256(compressed)
	ripe := ripemd160.New()
	ripe.Write(sha[:])

	payload := append([]byte{version}, ripe.Sum(nil)...)
	return base58Check(payload)
}

// tronAddress is Base58Check(0x41 || keccak256(pubkey[1:])[12:]).
func tronAddress(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()

	hash := sha3.NewLegacyKeccak256()
	hash.Write(uncompressed[1:])

	payload := append([]byte{versionTron}, hash.Sum(nil)[12:]...)
	return base58Check(payload)
}

func base58Check(payload []byte) string {
	checksum := doubleSHA256(payload)[:4]
	return base58Encode(append(payload, checksum...))
}

func doubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

func base58Encode(input []byte) string {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	leadingZeros := 0
	for _, b := range input {
		if b != 0 {
			break
		}
		leadingZeros++
	}

	x := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	zero := big.NewInt(0)
	mod := new(big.Int)

	var result []byte
	for x.Cmp(zero) > 0 {
		x.DivMod(x, base, mod)
		result = append(result, alphabet[mod.Int64()])
	}
	for i := 0; i < leadingZeros; i++ {
		result = append(result, alphabet[0])
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return string(result)
}
