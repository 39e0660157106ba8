package confluence

import (
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	"Conflux/pkg/config"
	"Conflux/pkg/logger"
)

// maxDispersion is the theoretical maximum weighted variance: components
// split between 0 and 100 around a composite of 50 give 50^2.
const maxDispersion = 2500.0

// Aggregator fuses validated components into a composite score with
// consensus and confidence, then applies the configured amplification or
// dampening curve. Pure function of inputs and configuration.
type Aggregator struct {
	cfg     config.ConfluenceConfig
	amplify domsvc.Adjuster
	dampen  domsvc.Adjuster
	log     *logger.Logger
	metrics domrepo.Metrics
}

func NewAggregator(cfg config.ConfluenceConfig, log *logger.Logger, metrics domrepo.Metrics) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		amplify: NewAmplifier(cfg.Amplification),
		dampen:  NewDampener(cfg.Dampening),
		log:     log,
		metrics: metrics,
	}
}

// Aggregate computes the confluence statistics over an already validated,
// weight-renormalized component set. An empty set yields the canonical
// neutral default. Signal type and interpretation are left for the
// classifier.
func (a *Aggregator) Aggregate(symbol string, ts time.Time, comps []models.ComponentScore, invalid []string) models.ConfluenceResult {
	if len(comps) == 0 {
		res := models.NeutralResult(symbol, ts)
		res.InvalidComponents = invalid
		return res
	}

	var composite float64
	for i := range comps {
		composite += comps[i].Weight * comps[i].Value
	}

	// Variance uses the identical weight vector as the mean. An unweighted
	// variance against a weighted mean is statistically inconsistent and
	// skews consensus.
	var variance float64
	for i := range comps {
		d := comps[i].Value - composite
		variance += comps[i].Weight * d * d
	}

	consensus := a.checkUnit("consensus", symbol, 1-variance/maxDispersion)
	distance := abs(composite-50) / 50
	confidence := a.checkUnit("confidence", symbol, consensus*distance)

	amp := a.cfg.Amplification
	damp := a.cfg.Dampening
	switch {
	case confidence >= amp.ConfidenceThreshold && consensus >= amp.ConsensusThreshold:
		composite = a.amplify(composite)
	case confidence < damp.ConfidenceThreshold && consensus < damp.ConsensusThreshold:
		composite = a.dampen(composite)
	}

	composite = a.checkScore("composite_score", symbol, composite)

	return models.ConfluenceResult{
		Symbol:            symbol,
		Timestamp:         ts,
		CompositeScore:    composite,
		Consensus:         consensus,
		Confidence:        confidence,
		Breakdown:         comps,
		InvalidComponents: invalid,
	}
}

// checkScore clamps a composite into [0,100]; an actual clamp indicates an
// upstream computation defect and is logged as a bounds violation.
func (a *Aggregator) checkScore(field, symbol string, v float64) float64 {
	c := clampScore(v)
	if c != v {
		a.boundsViolation(field, symbol, v, c)
	}
	return c
}

func (a *Aggregator) checkUnit(field, symbol string, v float64) float64 {
	c := clampUnit(v)
	if c != v {
		a.boundsViolation(field, symbol, v, c)
	}
	return c
}

func (a *Aggregator) boundsViolation(field, symbol string, raw, clamped float64) {
	a.log.Warn("computed statistic required clamping",
		logger.String("symbol", symbol),
		logger.String("field", field),
		logger.Float64("raw", raw),
		logger.Float64("clamped", clamped))
	if a.metrics != nil {
		a.metrics.RecordBoundsViolation(field)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
