package confluence

import (
	"Conflux/internal/domain/models"
	"Conflux/pkg/config"
)

// Classifier maps a composite score to a directional signal type using
// asymmetric thresholds. Classification is total; inputs are already
// clamped by the aggregator.
type Classifier struct {
	buyThreshold  float64
	sellThreshold float64
}

func NewClassifier(cfg config.ConfluenceConfig) *Classifier {
	return &Classifier{
		buyThreshold:  cfg.BuyThreshold,
		sellThreshold: cfg.SellThreshold,
	}
}

// Classify fills SignalType, Reliability and Interpretation on a result.
// Reliability is the confidence unchanged; NEUTRAL results are produced
// like any other, suppression of them is downstream policy.
func (c *Classifier) Classify(res *models.ConfluenceResult) {
	switch {
	case res.CompositeScore >= c.buyThreshold:
		res.SignalType = models.SignalBuy
	case res.CompositeScore <= c.sellThreshold:
		res.SignalType = models.SignalSell
	default:
		res.SignalType = models.SignalNeutral
	}
	res.Reliability = res.Confidence
	res.Interpretation = Interpret(res.CompositeScore)
}
