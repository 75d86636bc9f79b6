package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/waterline/internal/ir"
)

// Rescaler selects the rescale insertion policy.
type Rescaler string

const (
	// RescalerMinimum rescales multiplication operands ahead of the product
	// when both can shed at least half of the fixed rescale width.
	RescalerMinimum Rescaler = "minimum"

	// RescalerAlways rescales every product straight back to the waterline.
	RescalerAlways Rescaler = "always"

	// RescalerEagerWaterline rescales a product as soon as it reaches
	// the waterline plus the fixed rescale width.
	RescalerEagerWaterline Rescaler = "eager_waterline"

	// RescalerLazyWaterline defers rescaling across single-use chains.
	RescalerLazyWaterline Rescaler = "lazy_waterline"
)

// Config holds the compiler options.
//
// Options arrive as a string map (from YAML, flags or artifacts) and are parsed
// by ParseConfig. ToMap is the inverse and feeds CompilationID, so every field
// that changes the compiled output must appear there.
type Config struct {
	BalanceReductions bool
	Rescaler          Rescaler
	LazyRelinearize   bool
	SecurityLevel     int
	QuantumSafe       bool
	WarnVecSize       bool

	// MaxChainLength bounds the number of primes in the selected chain.
	// Zero means unlimited.
	MaxChainLength int
}

// Option keys accepted by ParseConfig.
const (
	KeyBalanceReductions = "balance_reductions"
	KeyRescaler          = "rescaler"
	KeyLazyRelinearize   = "lazy_relinearize"
	KeySecurityLevel     = "security_level"
	KeyQuantumSafe       = "quantum_safe"
	KeyWarnVecSize       = "warn_vec_size"
	KeyMaxChainLength    = "max_chain_length"
)

// DefaultConfig returns the options used when none are given.
func DefaultConfig() Config {
	return Config{
		BalanceReductions: true,
		Rescaler:          RescalerLazyWaterline,
		LazyRelinearize:   true,
		SecurityLevel:     128,
		QuantumSafe:       false,
		WarnVecSize:       true,
		MaxChainLength:    0,
	}
}

// ParseConfig overlays options onto DefaultConfig.
// Unknown keys and malformed values are validation errors.
func ParseConfig(options map[string]string) (Config, error) {
	cfg := DefaultConfig()
	for _, key := range slices.Sorted(maps.Keys(options)) {
		value := strings.TrimSpace(options[key])
		var err error
		switch key {
		case KeyBalanceReductions:
			cfg.BalanceReductions, err = parseBool(key, value)
		case KeyRescaler:
			cfg.Rescaler, err = parseRescaler(value)
		case KeyLazyRelinearize:
			cfg.LazyRelinearize, err = parseBool(key, value)
		case KeySecurityLevel:
			cfg.SecurityLevel, err = parseInt(key, value)
		case KeyQuantumSafe:
			cfg.QuantumSafe, err = parseBool(key, value)
		case KeyWarnVecSize:
			cfg.WarnVecSize, err = parseBool(key, value)
		case KeyMaxChainLength:
			cfg.MaxChainLength, err = parseInt(key, value)
			if err == nil && cfg.MaxChainLength < 0 {
				err = ir.NewValidationError("%s must not be negative, got %d", key, cfg.MaxChainLength)
			}
		default:
			err = ir.NewValidationError("unknown option %q", key)
		}
		if err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// ToMap returns every option as a string, suitable for ParseConfig.
func (c Config) ToMap() map[string]string {
	return map[string]string{
		KeyBalanceReductions: strconv.FormatBool(c.BalanceReductions),
		KeyRescaler:          string(c.Rescaler),
		KeyLazyRelinearize:   strconv.FormatBool(c.LazyRelinearize),
		KeySecurityLevel:     strconv.Itoa(c.SecurityLevel),
		KeyQuantumSafe:       strconv.FormatBool(c.QuantumSafe),
		KeyWarnVecSize:       strconv.FormatBool(c.WarnVecSize),
		KeyMaxChainLength:    strconv.Itoa(c.MaxChainLength),
	}
}

// String renders the options one per line in key order.
func (c Config) String() string {
	m := c.ToMap()
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&b, "%s: %s\n", k, m[k])
	}
	return b.String()
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, ir.NewValidationError("%s must be a boolean, got %q", key, value)
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, ir.NewValidationError("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func parseRescaler(value string) (Rescaler, error) {
	switch r := Rescaler(strings.ToLower(value)); r {
	case RescalerMinimum, RescalerAlways, RescalerEagerWaterline, RescalerLazyWaterline:
		return r, nil
	}
	return "", ir.NewValidationError("unknown rescaler %q (want minimum, always, eager_waterline or lazy_waterline)", value)
}
