package ledger

import (
	"github.com/shopspring/decimal"
)

// Stats are derived figures over the current ledger state.
type Stats struct {
	TotalBurned     decimal.Decimal `json:"totalBurned"`
	PercentBurned   decimal.Decimal `json:"percentBurned"`
	RemainingSupply decimal.Decimal `json:"remainingSupply"`
	Count           int             `json:"count"`
	LastRecord      *BurnRecord     `json:"lastTx,omitempty"`
}

// Aggregator computes stats on demand. It holds no state of its own, so it is
// safe to call at arbitrary frequency from polling clients.
type Aggregator struct {
	store       Store
	totalSupply decimal.Decimal
}

func NewAggregator(store Store, totalSupply decimal.Decimal) *Aggregator {
	return &Aggregator{
		store:       store,
		totalSupply: totalSupply,
	}
}

var hundred = decimal.NewFromInt(100)

func (a *Aggregator) Stats() (Stats, error) {
	records, err := a.store.ScanAll()
	if err != nil {
		return Stats{}, err
	}

	totalBurned := decimal.Zero
	for _, record := range records {
		totalBurned = totalBurned.Add(record.AmountHuman)
	}

	stats := Stats{
		TotalBurned: totalBurned,
		Count:       len(records),
	}
	if len(records) > 0 {
		last := records[0]
		stats.LastRecord = &last
	}

	if a.totalSupply.IsPositive() {
		stats.PercentBurned = totalBurned.Div(a.totalSupply).Mul(hundred)
		stats.RemainingSupply = a.totalSupply.Sub(totalBurned)
		if stats.RemainingSupply.IsNegative() {
			stats.RemainingSupply = decimal.Zero
		}
	}
	return stats, nil
}
