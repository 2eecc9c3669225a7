package chains

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	walleterr "github.com/votis/walletd/pkg/errors"
)

// maxSuggestionDistance bounds how far a "did you mean" candidate may be
// from the failed identifier.
const maxSuggestionDistance = 2

// Registry resolves chain identifiers to derivation specs. Built-in
// chains are fixed at construction; custom chains may be registered at
// runtime and are shadowed by built-ins sharing the same key. The
// registry is an injected value, not ambient global state, so tests can
// construct a fresh one per case.
type Registry struct {
	mu     sync.RWMutex
	custom map[string]Spec

	builtin     map[string]Spec
	builtinByID map[uint64]Spec
}

// NewRegistry creates a registry populated with the built-in chain table.
func NewRegistry() *Registry {
	byID := make(map[uint64]Spec, len(builtinSpecs))
	for _, spec := range builtinSpecs {
		if spec.ChainID != nil {
			byID[*spec.ChainID] = spec
		}
	}

	return &Registry{
		custom:      make(map[string]Spec),
		builtin:     builtinSpecs,
		builtinByID: byID,
	}
}

// Register adds or replaces a custom chain under the given key.
// Registration under a built-in key is silently ignored: built-ins are
// immutable and always win. Last write wins among custom entries.
func (r *Registry) Register(key string, spec Spec) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if _, exists := r.builtin[key]; exists {
		return
	}

	r.mu.Lock()
	r.custom[key] = spec
	r.mu.Unlock()
}

// Resolve looks up a chain by string identifier. Matching is
// case-insensitive with precedence: exact key, symbol, symbol alias,
// name. Returns ErrChainNotFound (with a spelling suggestion when one
// is close) if nothing matches; it never synthesizes a fallback for
// string identifiers.
func (r *Registry) Resolve(identifier string) (Spec, error) {
	needle := strings.ToLower(strings.TrimSpace(identifier))
	if needle == "" {
		return Spec{}, walleterr.Wrap(walleterr.ErrValidation, "empty chain identifier")
	}

	r.mu.RLock()
	custom := make(map[string]Spec, len(r.custom))
	for k, v := range r.custom {
		custom[k] = v
	}
	r.mu.RUnlock()

	// Exact key match.
	if spec, ok := r.builtin[needle]; ok {
		return spec, nil
	}
	if spec, ok := custom[needle]; ok {
		return spec, nil
	}

	// Symbol match.
	if spec, ok := matchBy(r.builtin, custom, func(s Spec) []string {
		return []string{s.Symbol}
	}, needle); ok {
		return spec, nil
	}

	// Symbol alias match.
	if spec, ok := matchBy(r.builtin, custom, func(s Spec) []string {
		return s.SymbolAliases
	}, needle); ok {
		return spec, nil
	}

	// Name match.
	if spec, ok := matchBy(r.builtin, custom, func(s Spec) []string {
		return []string{s.Name}
	}, needle); ok {
		return spec, nil
	}

	err := walleterr.WithDetails(walleterr.ErrChainNotFound, map[string]string{
		"identifier": identifier,
	})
	if suggestion := r.suggest(needle, custom); suggestion != "" {
		err = walleterr.WithSuggestion(err, "did you mean '"+suggestion+"'?")
	}
	return Spec{}, err
}

// ResolveByChainID looks up a chain by numeric EVM chain id. It never
// fails: ids absent from the table get the synthesized Ethereum-path
// fallback spec, which is not stored.
func (r *Registry) ResolveByChainID(id uint64) Spec {
	if spec, ok := r.builtinByID[id]; ok {
		return spec
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, spec := range r.custom {
		if spec.ChainID != nil && *spec.ChainID == id {
			return spec
		}
	}

	return FallbackSpec(id)
}

// List returns the sorted set of registered keys, built-in and custom.
func (r *Registry) List() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.builtin)+len(r.custom))
	for k := range r.custom {
		if _, shadowed := r.builtin[k]; !shadowed {
			keys = append(keys, k)
		}
	}
	r.mu.RUnlock()

	for k := range r.builtin {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListEVMCompatible returns the sorted keys of EVM-compatible chains.
func (r *Registry) ListEVMCompatible() []string {
	var keys []string

	r.mu.RLock()
	for k, spec := range r.custom {
		if _, shadowed := r.builtin[k]; shadowed {
			continue
		}
		if spec.EVMCompatible {
			keys = append(keys, k)
		}
	}
	r.mu.RUnlock()

	for k, spec := range r.builtin {
		if spec.EVMCompatible {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// matchBy scans built-ins before customs so built-ins win ties.
func matchBy(builtin, custom map[string]Spec, fields func(Spec) []string, needle string) (Spec, bool) {
	if spec, ok := scan(builtin, fields, needle); ok {
		return spec, true
	}
	return scan(custom, fields, needle)
}

func scan(table map[string]Spec, fields func(Spec) []string, needle string) (Spec, bool) {
	// Iterate keys in sorted order so lookups are deterministic even if
	// two entries share a symbol or name.
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		spec := table[k]
		for _, f := range fields(spec) {
			if strings.EqualFold(f, needle) {
				return spec, true
			}
		}
	}
	return Spec{}, false
}

// suggest returns the closest known key or symbol within the edit
// distance bound, or "" when nothing is close enough.
func (r *Registry) suggest(needle string, custom map[string]Spec) string {
	best := ""
	bestDist := maxSuggestionDistance + 1

	consider := func(candidate string) {
		candidate = strings.ToLower(candidate)
		if candidate == "" {
			return
		}
		d := levenshtein.ComputeDistance(needle, candidate)
		if d < bestDist || (d == bestDist && candidate < best) {
			best = candidate
			bestDist = d
		}
	}

	for k, spec := range r.builtin {
		consider(k)
		consider(spec.Symbol)
		consider(spec.Name)
	}
	for k, spec := range custom {
		consider(k)
		consider(spec.Symbol)
		consider(spec.Name)
	}

	if bestDist > maxSuggestionDistance {
		return ""
	}
	return best
}
