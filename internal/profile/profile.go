// Package profile aggregates raw transactions into per-account
// behavioral summaries.
package profile

import (
	"math"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// Build groups transactions by sender and computes count, mean, max and
// min of the sent amounts per account. The mean is rounded to 2 decimal
// places. Accounts that never send are absent from the result; an empty
// input yields an empty map.
func Build(txs []domain.Transaction) map[string]domain.BehaviorProfile {
	amounts := make(map[string][]float64)
	for i := range txs {
		tx := &txs[i]
		amounts[tx.Sender] = append(amounts[tx.Sender], tx.Amount)
	}

	profiles := make(map[string]domain.BehaviorProfile, len(amounts))
	for account, vals := range amounts {
		sum := 0.0
		maxAmt := vals[0]
		minAmt := vals[0]
		for _, v := range vals {
			sum += v
			if v > maxAmt {
				maxAmt = v
			}
			if v < minAmt {
				minAmt = v
			}
		}
		profiles[account] = domain.BehaviorProfile{
			TransactionCount: len(vals),
			AverageAmount:    round2(sum / float64(len(vals))),
			MaxAmount:        maxAmt,
			MinAmount:        minAmt,
		}
	}
	return profiles
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
