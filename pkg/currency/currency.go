// Package currency maintains the set of currencies the ledger accepts and the
// metadata (decimal places, symbol) needed to render and round amounts.
package currency

import (
	"fmt"
	"regexp"
	"sync"
)

const (
	// DefaultCurrency is the fallback currency code (USD)
	DefaultCurrency = Code("USD")
	// DefaultDecimals is the default number of decimal places for currencies
	DefaultDecimals = 2
)

// Code is an ISO 4217 currency code (3 uppercase letters).
type Code string

func (c Code) String() string { return string(c) }

// Meta holds currency-specific metadata.
type Meta struct {
	Decimals int32
	Symbol   string
}

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValidFormat reports whether code has the shape of an ISO 4217 code.
// It does not check that the currency is registered.
func IsValidFormat(code string) bool {
	return codePattern.MatchString(code)
}

// Registry holds supported currencies. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	currencies map[Code]Meta
}

// NewRegistry creates a registry preloaded with the default currency set.
func NewRegistry() *Registry {
	r := &Registry{currencies: make(map[Code]Meta)}

	defaults := map[Code]Meta{
		"USD": {Decimals: 2, Symbol: "$"},
		"EUR": {Decimals: 2, Symbol: "€"},
		"GBP": {Decimals: 2, Symbol: "£"},
		"JPY": {Decimals: 0, Symbol: "¥"},
		"KWD": {Decimals: 3, Symbol: "د.ك"},
		"EGP": {Decimals: 2, Symbol: "£"},
		"CAD": {Decimals: 2, Symbol: "C$"},
		"AUD": {Decimals: 2, Symbol: "A$"},
		"CHF": {Decimals: 2, Symbol: "CHF"},
		"CNY": {Decimals: 2, Symbol: "¥"},
		"INR": {Decimals: 2, Symbol: "₹"},
	}
	for code, meta := range defaults {
		r.Register(code, meta)
	}
	return r
}

// Register adds or updates a currency in the registry.
func (r *Registry) Register(code Code, meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[code] = meta
}

// Unregister removes a currency from the registry.
func (r *Registry) Unregister(code Code) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.currencies[code]
	delete(r.currencies, code)
	return ok
}

// Get returns the metadata for code, or an error if the code is malformed or
// not registered.
func (r *Registry) Get(code Code) (Meta, error) {
	if !IsValidFormat(string(code)) {
		return Meta{}, fmt.Errorf("invalid currency code format: %q", code)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.currencies[code]
	if !ok {
		return Meta{}, fmt.Errorf("unsupported currency: %q", code)
	}
	return meta, nil
}

// IsSupported reports whether code is registered.
func (r *Registry) IsSupported(code Code) bool {
	_, err := r.Get(code)
	return err == nil
}

// ListSupported returns all registered currency codes.
func (r *Registry) ListSupported() []Code {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]Code, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	return codes
}

// Count returns the total number of registered currencies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.currencies)
}

// Global currency registry instance
var globalRegistry = NewRegistry()

// Register adds or updates a currency in the global registry.
func Register(code Code, meta Meta) { globalRegistry.Register(code, meta) }

// Get returns metadata for code from the global registry.
func Get(code Code) (Meta, error) { return globalRegistry.Get(code) }

// IsSupported reports whether code is registered in the global registry.
func IsSupported(code Code) bool { return globalRegistry.IsSupported(code) }

// ListSupported returns all codes registered in the global registry.
func ListSupported() []Code { return globalRegistry.ListSupported() }
