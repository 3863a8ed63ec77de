package burner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalanceReader struct {
	balance *big.Int
	err     error
}

func (f *fakeBalanceReader) BalanceOf(_ context.Context, _ common.Address) (*big.Int, error) {
	return f.balance, f.err
}

func TestStartupSweepBurnsBalance(t *testing.T) {
	submitter := &fakeSubmitter{hashes: []string{"0xdd01"}}
	store := newTestLedger(t)
	coordinator := newTestCoordinator(submitter, store, "0")

	reader := &fakeBalanceReader{balance: raw("40")}
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")

	require.NoError(t, StartupSweep(context.Background(), reader, coordinator, recipient))

	record, found, err := store.Get("0xdd01")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, record.AmountHuman.Equal(record.AmountHuman.Truncate(0)), "whole-unit sweep")
	assert.Equal(t, raw("40").String(), record.AmountRaw)
	assert.Equal(t, recipient.Hex(), record.FromAddress)
}

func TestStartupSweepZeroBalance(t *testing.T) {
	submitter := &fakeSubmitter{}
	store := newTestLedger(t)
	coordinator := newTestCoordinator(submitter, store, "0")

	reader := &fakeBalanceReader{balance: big.NewInt(0)}
	err := StartupSweep(context.Background(), reader, coordinator, common.Address{})
	require.NoError(t, err)
	assert.Zero(t, submitter.callCount())
}

func TestStartupSweepBalanceError(t *testing.T) {
	submitter := &fakeSubmitter{}
	store := newTestLedger(t)
	coordinator := newTestCoordinator(submitter, store, "0")

	reader := &fakeBalanceReader{err: errors.New("node unavailable")}
	err := StartupSweep(context.Background(), reader, coordinator, common.Address{})
	require.Error(t, err)
	assert.Zero(t, submitter.callCount(), "a failed balance check must not submit anything")
}
