package confluence

import (
	"math"
	"sort"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/pkg/logger"
)

// Sanity window for incoming component values. Scores are nominally
// [0,100]; anything far outside is an upstream defect, not a signal.
const (
	sanityMin = -10
	sanityMax = 110
)

// Intake validates a raw score snapshot and produces the renormalized
// component set the aggregator consumes. Invalid components are excluded
// and logged, never fatal.
type Intake struct {
	weights map[string]float64
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewIntake(weights map[string]float64, log *logger.Logger, metrics domrepo.Metrics) *Intake {
	return &Intake{weights: weights, log: log, metrics: metrics}
}

// Validate filters the snapshot's components, resolves weights and
// renormalizes them to sum 1 over the valid subset. It returns the sorted
// breakdown plus the names of excluded components. An empty valid set is a
// legitimate outcome; the caller falls back to the neutral default.
func (in *Intake) Validate(snap *models.ScoreSnapshot) ([]models.ComponentScore, []string) {
	valid := make([]models.ComponentScore, 0, len(snap.Components))
	var invalid []string

	for name, raw := range snap.Components {
		weight := raw.Weight
		if weight == 0 {
			// Producers may omit weight and defer to configuration.
			weight = in.weights[name]
		}

		if reason := invalidReason(raw.Value, weight); reason != "" {
			invalid = append(invalid, name)
			in.log.Warn("component excluded from aggregation",
				logger.String("symbol", snap.Symbol),
				logger.String("component", name),
				logger.Float64("value", raw.Value),
				logger.Float64("weight", weight),
				logger.String("reason", reason))
			if in.metrics != nil {
				in.metrics.RecordInvalidComponent(snap.Symbol, name)
			}
			continue
		}

		valid = append(valid, models.ComponentScore{
			Name:           name,
			Value:          raw.Value,
			Weight:         weight,
			Interpretation: raw.Interpretation,
		})
	}

	renormalize(valid)

	sort.Slice(valid, func(i, j int) bool { return valid[i].Name < valid[j].Name })
	sort.Strings(invalid)
	return valid, invalid
}

func invalidReason(value, weight float64) string {
	switch {
	case math.IsNaN(value):
		return "value is NaN"
	case math.IsInf(value, 0):
		return "value is infinite"
	case value < sanityMin || value > sanityMax:
		return "value outside sanity window"
	case math.IsNaN(weight) || math.IsInf(weight, 0):
		return "weight is not finite"
	case weight <= 0:
		return "weight is not positive"
	default:
		return ""
	}
}

// renormalize scales the valid weights to sum 1 and fills per-component
// contributions.
func renormalize(comps []models.ComponentScore) {
	var total float64
	for i := range comps {
		total += comps[i].Weight
	}
	if total == 0 {
		return
	}
	for i := range comps {
		comps[i].Weight /= total
		comps[i].Contribution = comps[i].Weight * comps[i].Value
	}
}
