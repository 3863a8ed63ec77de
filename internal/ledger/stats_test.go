package ledger

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsAggregation(t *testing.T) {
	store := newTestStore(t, 0)

	// four burns summing to 1000 human units
	for i, amount := range []string{"400", "300", "200", "100"} {
		require.NoError(t, store.Append(testRecord(i+1, amount)))
	}

	agg := NewAggregator(store, decimal.NewFromInt(1_000_000))
	stats, err := agg.Stats()
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Count)
	assert.True(t, stats.TotalBurned.Equal(decimal.NewFromInt(1000)),
		"totalBurned = %s", stats.TotalBurned)
	assert.True(t, stats.PercentBurned.Equal(decimal.RequireFromString("0.1")),
		"percentBurned = %s", stats.PercentBurned)
	assert.True(t, stats.RemainingSupply.Equal(decimal.NewFromInt(999_000)),
		"remainingSupply = %s", stats.RemainingSupply)
	require.NotNil(t, stats.LastRecord)
	assert.Equal(t, testRecord(4, "100").TxHash, stats.LastRecord.TxHash)
}

func TestStatsEmptyLedger(t *testing.T) {
	store := newTestStore(t, 0)

	agg := NewAggregator(store, decimal.NewFromInt(1_000_000))
	stats, err := agg.Stats()
	require.NoError(t, err)

	assert.Zero(t, stats.Count)
	assert.True(t, stats.TotalBurned.IsZero())
	assert.True(t, stats.PercentBurned.IsZero())
	assert.True(t, stats.RemainingSupply.Equal(decimal.NewFromInt(1_000_000)))
	assert.Nil(t, stats.LastRecord)
}

func TestStatsZeroSupply(t *testing.T) {
	store := newTestStore(t, 0)
	require.NoError(t, store.Append(testRecord(1, "500")))

	agg := NewAggregator(store, decimal.Zero)
	stats, err := agg.Stats()
	require.NoError(t, err)

	assert.True(t, stats.PercentBurned.IsZero(), "percent is zero when supply <= 0")
	assert.True(t, stats.RemainingSupply.IsZero())
}

func TestStatsRemainingSupplyFloor(t *testing.T) {
	store := newTestStore(t, 0)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(testRecord(i, "100")))
	}

	agg := NewAggregator(store, decimal.NewFromInt(150))
	stats, err := agg.Stats()
	require.NoError(t, err)

	assert.True(t, stats.RemainingSupply.IsZero(),
		"remaining supply clamps at zero, got %s", stats.RemainingSupply)
}

func TestStatsMatchesLedgerSum(t *testing.T) {
	store := newTestStore(t, 0)

	sum := decimal.Zero
	for i := 1; i <= 20; i++ {
		amount := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(3))
		sum = sum.Add(amount)
		record := testRecord(i, "0")
		record.AmountHuman = amount
		record.TxHash = fmt.Sprintf("0x%064x", i)
		require.NoError(t, store.Append(record))
	}

	agg := NewAggregator(store, decimal.NewFromInt(1_000_000))
	stats, err := agg.Stats()
	require.NoError(t, err)
	assert.True(t, stats.TotalBurned.Equal(sum),
		"aggregate %s must equal running sum %s", stats.TotalBurned, sum)
}
