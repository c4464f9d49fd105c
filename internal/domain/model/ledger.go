package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SortBatchesFIFO orders batches oldest purchase first, breaking ties by id.
func SortBatchesFIFO(batches []*CreditBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].PurchaseDate.Equal(batches[j].PurchaseDate) {
			return batches[i].PurchaseDate.Before(batches[j].PurchaseDate)
		}
		return batches[i].ID.String() < batches[j].ID.String()
	})
}

// OldestSpendable returns the first batch, in FIFO order, that can fund a deduction.
func OldestSpendable(batches []*CreditBatch, now time.Time) *CreditBatch {
	ordered := append([]*CreditBatch(nil), batches...)
	SortBatchesFIFO(ordered)
	for _, b := range ordered {
		if b.IsSpendable(now) {
			return b
		}
	}
	return nil
}

// SettleDebt nets a grant against outstanding refund debt.
// It returns the credits left for the new batch and the debt still owed.
func SettleDebt(owed, credits int) (remaining, stillOwed int) {
	if owed <= 0 {
		return credits, 0
	}
	if owed >= credits {
		return 0, owed - credits
	}
	return credits - owed, 0
}

// ReclaimCredits takes n credits back out of spendable batches, starting with
// the batch identified by preferred and continuing oldest first. It returns
// the batches it modified and the shortfall that could not be reclaimed.
func ReclaimCredits(batches []*CreditBatch, preferred uuid.UUID, n int, now time.Time) ([]*CreditBatch, int) {
	ordered := append([]*CreditBatch(nil), batches...)
	SortBatchesFIFO(ordered)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID == preferred && ordered[j].ID != preferred
	})

	var touched []*CreditBatch
	for _, b := range ordered {
		if n == 0 {
			break
		}
		if !b.IsSpendable(now) {
			continue
		}
		take := b.CreditsRemaining
		if take > n {
			take = n
		}
		b.CreditsRemaining -= take
		n -= take
		touched = append(touched, b)
	}
	return touched, n
}

// ExpireBatches zeroes every batch that expired at or before now.
// It returns the batches it zeroed and the credits removed.
func ExpireBatches(batches []*CreditBatch, now time.Time) ([]*CreditBatch, int) {
	var expired []*CreditBatch
	total := 0
	for _, b := range batches {
		if b.CreditsRemaining > 0 && !b.ExpirationDate.After(now) {
			total += b.CreditsRemaining
			b.CreditsRemaining = 0
			expired = append(expired, b)
		}
	}
	return expired, total
}

// AvailableCredits recomputes an account balance from its batches and debt.
func AvailableCredits(batches []*CreditBatch, owed int, now time.Time) int {
	sum := 0
	for _, b := range batches {
		if b.ExpirationDate.After(now) {
			sum += b.CreditsRemaining
		}
	}
	return sum - owed
}
