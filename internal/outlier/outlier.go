// Package outlier flags accounts whose behavioral summary is a
// statistical outlier relative to the rest of the population.
package outlier

import (
	"sort"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// Classifier scores a feature matrix and flags outlier rows. The
// concrete algorithm is swappable; the pipeline only depends on this
// capability.
type Classifier interface {
	// Classify returns one outlier flag per input row. Classification
	// is relative to the rows passed in: the same row can be flagged
	// differently across different cohorts.
	Classify(features [][]float64) []bool
}

// Detect builds the fixed 4-dimensional feature vector (count, mean,
// max, min) per account and applies the classifier. Accounts are
// processed in sorted order so results are reproducible. With fewer
// than 2 accounts the population is too small to rank, and every
// account is labeled LOW.
func Detect(profiles map[string]domain.BehaviorProfile, c Classifier) map[string]domain.Signal {
	accounts := make([]string, 0, len(profiles))
	for account := range profiles {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	signals := make(map[string]domain.Signal, len(accounts))
	if len(accounts) < 2 {
		for _, account := range accounts {
			signals[account] = domain.SignalLow
		}
		return signals
	}

	features := make([][]float64, len(accounts))
	for i, account := range accounts {
		p := profiles[account]
		features[i] = []float64{
			float64(p.TransactionCount),
			p.AverageAmount,
			p.MaxAmount,
			p.MinAmount,
		}
	}

	flags := c.Classify(features)
	for i, account := range accounts {
		if flags[i] {
			signals[account] = domain.SignalHigh
		} else {
			signals[account] = domain.SignalLow
		}
	}
	return signals
}
