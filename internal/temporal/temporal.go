// Package temporal flags accounts whose transaction amounts escalate
// sharply over time. It detects sudden escalation between the early and
// late halves of an account's history, not gradual drift.
package temporal

import (
	"sort"

	"github.com/neuroaml/neuroaml/internal/domain"
)

// minTransactions is the minimum history needed for a meaningful split.
const minTransactions = 3

// escalationFactor: the late-half mean must exceed this multiple of the
// early-half mean to flag HIGH.
const escalationFactor = 2.0

// Detect groups transactions by sender, orders each account's amounts
// chronologically, and compares the mean of the early half against the
// late half. Odd-length sequences drop the middle element from both
// halves. Accounts with fewer than minTransactions are LOW.
func Detect(txs []domain.Transaction) map[string]domain.Signal {
	type stamped struct {
		ts     int64
		amount float64
	}
	byAccount := make(map[string][]stamped)
	for i := range txs {
		tx := &txs[i]
		byAccount[tx.Sender] = append(byAccount[tx.Sender], stamped{
			ts:     tx.Timestamp.UnixNano(),
			amount: tx.Amount,
		})
	}

	signals := make(map[string]domain.Signal, len(byAccount))
	for account, seq := range byAccount {
		if len(seq) < minTransactions {
			signals[account] = domain.SignalLow
			continue
		}

		sort.SliceStable(seq, func(a, b int) bool { return seq[a].ts < seq[b].ts })

		half := len(seq) / 2
		earlySum, lateSum := 0.0, 0.0
		for i := 0; i < half; i++ {
			earlySum += seq[i].amount
		}
		for i := len(seq) - half; i < len(seq); i++ {
			lateSum += seq[i].amount
		}
		earlyMean := earlySum / float64(half)
		lateMean := lateSum / float64(half)

		if lateMean > earlyMean*escalationFactor {
			signals[account] = domain.SignalHigh
		} else {
			signals[account] = domain.SignalLow
		}
	}
	return signals
}
