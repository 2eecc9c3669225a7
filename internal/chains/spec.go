// Package chains provides the chain registry: a table mapping chain
// identifiers (symbol, alias, name, or numeric chain id) to key-derivation
// parameters. Unknown EVM chain ids synthesize a fallback spec that reuses
// Ethereum's curve and path so addresses stay Ethereum-compatible.
package chains

import "fmt"

// Curve identifies the elliptic curve a chain signs with.
type Curve string

// Supported curves.
const (
	CurveSECP256K1 Curve = "secp256k1"
	CurveED25519   Curve = "ed25519"
)

// AddressFormat identifies how a derived public key becomes an address.
type AddressFormat string

// Supported address formats.
const (
	AddressFormatEthereum AddressFormat = "ethereum"
	AddressFormatP2PKH    AddressFormat = "p2pkh"
	AddressFormatSolana   AddressFormat = "solana"
	AddressFormatTron     AddressFormat = "tron"
	AddressFormatCosmos   AddressFormat = "cosmos"
	AddressFormatAptos    AddressFormat = "aptos"
	AddressFormatDogecoin AddressFormat = "dogecoin"
	AddressFormatLitecoin AddressFormat = "litecoin"
)

// EthereumDerivationPath is the BIP44 path used by Ethereum and, by
// design, by every EVM chain without a dedicated registered path.
const EthereumDerivationPath = "m/44'/60'/0'/0/0"

// Spec is an immutable description of one chain's derivation parameters.
type Spec struct {
	// ChainID is the numeric EVM chain id, nil for non-EVM chains.
	ChainID *uint64 `json:"chain_id,omitempty"`

	// Name is the human-readable chain name.
	Name string `json:"name"`

	// Symbol is the primary ticker symbol.
	Symbol string `json:"symbol"`

	// SymbolAliases are alternate tickers that resolve to this chain.
	SymbolAliases []string `json:"symbol_aliases,omitempty"`

	// Curve is the signing curve.
	Curve Curve `json:"curve"`

	// AddressFormat is the address encoding.
	AddressFormat AddressFormat `json:"address_format"`

	// DerivationPath is the full BIP44 path for the default account.
	DerivationPath string `json:"derivation_path"`

	// EVMCompatible marks chains sharing Ethereum's account model.
	EVMCompatible bool `json:"evm_compatible"`
}

// chainIDOf returns a pointer to id for Spec literals.
func chainIDOf(id uint64) *uint64 {
	return &id
}

// FallbackSpec synthesizes a spec for an EVM chain id absent from the
// registry. It intentionally reuses Ethereum's curve, path, and address
// format so the derived address matches the user's Ethereum address on
// the unconfigured chain. Sharing one path across unconfigured chains is
// a documented compatibility trade-off, not an oversight.
func FallbackSpec(id uint64) Spec {
	return Spec{
		ChainID:        chainIDOf(id),
		Name:           fmt.Sprintf("EVM Chain %d", id),
		Symbol:         fmt.Sprintf("EVM-%d", id),
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	}
}
