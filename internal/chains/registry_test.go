package chains

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/votis/walletd/pkg/errors"
)

func TestResolve_BuiltinLookups(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	tests := []struct {
		name       string
		identifier string
		wantSymbol string
	}{
		{"key exact", "eth", "ETH"},
		{"key uppercase", "ETH", "ETH"},
		{"symbol", "pol", "POL"},
		{"alias matic", "matic", "POL"},
		{"alias bsc", "bsc", "BNB"},
		{"alias avaxc", "avaxc", "AVAX"},
		{"name", "Ethereum", "ETH"},
		{"name mixed case", "bnb smart chain", "BNB"},
		{"whitespace", "  sol  ", "SOL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec, err := r.Resolve(tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSymbol, spec.Symbol)
		})
	}
}

func TestResolve_AliasTransparency(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	for _, key := range r.List() {
		spec, err := r.Resolve(key)
		require.NoError(t, err)

		bySymbol, err := r.Resolve(spec.Symbol)
		require.NoError(t, err)
		assert.Equal(t, spec, bySymbol, "symbol lookup for %s", key)

		for _, alias := range spec.SymbolAliases {
			byAlias, err := r.Resolve(alias)
			require.NoError(t, err)
			assert.Equal(t, spec, byAlias, "alias %s for %s", alias, key)
		}
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	_, err := r.Resolve("definitely-not-a-chain")
	require.ErrorIs(t, err, walleterr.ErrChainNotFound)
}

func TestResolve_NotFoundSuggestion(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	_, err := r.Resolve("etj")
	require.ErrorIs(t, err, walleterr.ErrChainNotFound)

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Contains(t, we.Suggestion, "eth")
}

func TestResolve_EmptyIdentifier(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	_, err := r.Resolve("   ")
	require.ErrorIs(t, err, walleterr.ErrValidation)
}

func TestResolveByChainID_Configured(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	tests := []struct {
		id         uint64
		wantSymbol string
	}{
		{1, "ETH"},
		{10, "OP"},
		{56, "BNB"},
		{137, "POL"},
		{8453, "BASE"},
		{42161, "ARB"},
		{43114, "AVAX"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("chain_%d", tt.id), func(t *testing.T) {
			t.Parallel()
			spec := r.ResolveByChainID(tt.id)
			assert.Equal(t, tt.wantSymbol, spec.Symbol)
			require.NotNil(t, spec.ChainID)
			assert.Equal(t, tt.id, *spec.ChainID)
		})
	}
}

func TestResolveByChainID_Fallback(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	eth, err := r.Resolve("eth")
	require.NoError(t, err)

	for _, id := range []uint64{2, 7777, 999999} {
		spec := r.ResolveByChainID(id)
		assert.Equal(t, fmt.Sprintf("EVM Chain %d", id), spec.Name)
		assert.Equal(t, eth.DerivationPath, spec.DerivationPath)
		assert.Equal(t, CurveSECP256K1, spec.Curve)
		assert.Equal(t, AddressFormatEthereum, spec.AddressFormat)
		assert.True(t, spec.EVMCompatible)
	}
}

func TestResolveByChainID_FallbackNotStored(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	before := len(r.List())
	_ = r.ResolveByChainID(424242)
	assert.Len(t, r.List(), before)

	_, err := r.Resolve("EVM Chain 424242")
	require.ErrorIs(t, err, walleterr.ErrChainNotFound)
}

func TestRegister_CustomChain(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.Register("kava", Spec{
		ChainID:        chainIDOf(2222),
		Name:           "Kava",
		Symbol:         "KAVA",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	})

	spec, err := r.Resolve("kava")
	require.NoError(t, err)
	assert.Equal(t, "KAVA", spec.Symbol)

	// Registered chain ids resolve directly, not via fallback.
	byID := r.ResolveByChainID(2222)
	assert.Equal(t, "Kava", byID.Name)
}

func TestRegister_BuiltinShadowingIgnored(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.Register("eth", Spec{
		Name:           "Fakechain",
		Symbol:         "FAKE",
		Curve:          CurveED25519,
		DerivationPath: "m/44'/999'/0'/0/0",
	})

	spec, err := r.Resolve("eth")
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", spec.Name)
	assert.Equal(t, CurveSECP256K1, spec.Curve)
}

func TestRegister_LastWriteWins(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	r.Register("testnet", Spec{Name: "Testnet v1", Symbol: "TST"})
	r.Register("testnet", Spec{Name: "Testnet v2", Symbol: "TST"})

	spec, err := r.Resolve("testnet")
	require.NoError(t, err)
	assert.Equal(t, "Testnet v2", spec.Name)
}

func TestList_SortedAndComplete(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register("zzz-custom", Spec{Name: "Custom", Symbol: "ZZZ"})

	keys := r.List()
	assert.True(t, sort.StringsAreSorted(keys))
	assert.Contains(t, keys, "eth")
	assert.Contains(t, keys, "btc")
	assert.Contains(t, keys, "zzz-custom")
}

func TestListEVMCompatible(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	keys := r.ListEVMCompatible()
	assert.True(t, sort.StringsAreSorted(keys))
	assert.Contains(t, keys, "eth")
	assert.Contains(t, keys, "pol")
	assert.NotContains(t, keys, "btc")
	assert.NotContains(t, keys, "sol")
}

func TestBuiltinTable_EVMChainsShareEthereumPath(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	for _, key := range r.ListEVMCompatible() {
		spec, err := r.Resolve(key)
		require.NoError(t, err)
		assert.Equal(t, EthereumDerivationPath, spec.DerivationPath, "chain %s", key)
		assert.Equal(t, CurveSECP256K1, spec.Curve, "chain %s", key)
	}
}

func TestBuiltinTable_UniqueIdentifiers(t *testing.T) {
	t.Parallel()

	seen := make(map[string]string)
	for key, spec := range builtinSpecs {
		idents := append([]string{spec.Symbol, spec.Name}, spec.SymbolAliases...)
		for _, ident := range idents {
			lower := strings.ToLower(ident)
			if prev, dup := seen[lower]; dup {
				t.Errorf("identifier %q claimed by both %s and %s", ident, prev, key)
			}
			seen[lower] = key
		}
	}
}
