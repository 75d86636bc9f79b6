package compiler

import (
	"log/slog"

	"github.com/roach88/waterline/internal/ir"
)

// minPolyDegree is the smallest ring degree the tables cover.
const minPolyDegree = 1024

// maxModulusBits holds, per security level, the largest total modulus size in
// bits that keeps a ring of the given degree at that level. Values follow the
// homomorphic encryption security standard for ternary secrets.
var maxModulusBits = map[securityKey]map[int]int{
	{128, false}: {1024: 27, 2048: 54, 4096: 109, 8192: 218, 16384: 438, 32768: 881},
	{192, false}: {1024: 19, 2048: 37, 4096: 75, 8192: 152, 16384: 305, 32768: 611},
	{256, false}: {1024: 14, 2048: 29, 4096: 58, 8192: 118, 16384: 237, 32768: 476},
	{128, true}:  {1024: 25, 2048: 51, 4096: 101, 8192: 202, 16384: 411, 32768: 827},
	{192, true}:  {1024: 17, 2048: 35, 4096: 70, 8192: 141, 16384: 284, 32768: 571},
	{256, true}:  {1024: 13, 2048: 27, 4096: 54, 8192: 109, 16384: 220, 32768: 443},
}

type securityKey struct {
	level       int
	quantumSafe bool
}

// MaxModulusBits returns the largest modulus admitted at degree for the given
// security level, or 0 if the degree is outside the table.
func MaxModulusBits(level int, quantumSafe bool, degree int) (int, error) {
	table, ok := maxModulusBits[securityKey{level, quantumSafe}]
	if !ok {
		return 0, ir.NewUnsupportedSecurityLevelError(level, quantumSafe)
	}
	return table[degree], nil
}

func checkSecurityLevel(cfg Config) error {
	if _, ok := maxModulusBits[securityKey{cfg.SecurityLevel, cfg.QuantumSafe}]; !ok {
		return ir.NewUnsupportedSecurityLevelError(cfg.SecurityLevel, cfg.QuantumSafe)
	}
	return nil
}

// selectPolyDegree returns the smallest ring degree that admits totalBits at
// the configured security level and has at least vecSize slots.
func selectPolyDegree(cfg Config, totalBits, vecSize int) (int, error) {
	table, ok := maxModulusBits[securityKey{cfg.SecurityLevel, cfg.QuantumSafe}]
	if !ok {
		return 0, ir.NewUnsupportedSecurityLevelError(cfg.SecurityLevel, cfg.QuantumSafe)
	}

	degree, largest := minPolyDegree, 0
	for {
		bits, ok := table[degree]
		if !ok {
			return 0, ir.NewDepthOverflowError(
				"program needs a %d bit modulus, but %d-bit security allows at most %d bits", totalBits, cfg.SecurityLevel, largest)
		}
		largest = max(largest, bits)
		if bits >= totalBits {
			break
		}
		degree *= 2
	}

	slots := degree / 2
	switch {
	case slots > vecSize && cfg.WarnVecSize:
		slog.Warn("vector width is below the available slots; it will be emulated",
			"vec_size", vecSize, "slots", slots,
			"hint", "a vector width up to the slot count comes at no extra cost")
	case slots < vecSize:
		if cfg.WarnVecSize {
			slog.Warn("vector width exceeds the slots required for security; raising the ring degree",
				"vec_size", vecSize, "slots", slots)
		}
		degree = 2 * vecSize
	}
	return degree, nil
}
