package confluence

import (
	"math"

	domsvc "Conflux/internal/domain/service"
	"Conflux/pkg/config"
)

// NewAmplifier builds the curve pushing a composite away from the neutral
// midpoint 50. The returned score never crosses [0,100].
func NewAmplifier(cfg config.AdjustmentConfig) domsvc.Adjuster {
	if cfg.Mode == config.ModeAdditive {
		return func(composite float64) float64 {
			offset := composite - 50
			if offset == 0 || cfg.Factor == 0 {
				return composite
			}
			return clampScore(50 + offset + math.Copysign(cfg.Factor, offset))
		}
	}
	return multiplicative(cfg.Factor)
}

// NewDampener builds the curve pulling a composite toward 50. The score
// never lands on the far side of neutral.
func NewDampener(cfg config.AdjustmentConfig) domsvc.Adjuster {
	if cfg.Mode == config.ModeAdditive {
		return func(composite float64) float64 {
			offset := composite - 50
			if offset == 0 || cfg.Factor == 0 {
				return composite
			}
			mag := math.Abs(offset) - cfg.Factor
			if mag < 0 {
				mag = 0
			}
			return 50 + math.Copysign(mag, offset)
		}
	}
	return multiplicative(cfg.Factor)
}

// multiplicative scales the offset from 50. factor >= 1 amplifies,
// factor <= 1 dampens; factor 0 means the side is disabled.
func multiplicative(factor float64) domsvc.Adjuster {
	return func(composite float64) float64 {
		if factor == 0 {
			return composite
		}
		return clampScore(50 + (composite-50)*factor)
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
