package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscription struct {
	errCh chan error
}

func (s *fakeSubscription) Unsubscribe()      {}
func (s *fakeSubscription) Err() <-chan error { return s.errCh }

type activeSub struct {
	logs  chan<- gethtypes.Log
	errCh chan error
}

type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*activeSub
}

func (f *fakeSubscriber) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &activeSub{logs: ch, errCh: make(chan error, 1)}
	f.subs = append(f.subs, sub)
	return &fakeSubscription{errCh: sub.errCh}, nil
}

func (f *fakeSubscriber) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeSubscriber) latest() *activeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func transferLog(from, to common.Address, amount *big.Int, txHash string) gethtypes.Log {
	return gethtypes.Log{
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:   common.LeftPadBytes(amount.Bytes(), 32),
		TxHash: common.HexToHash(txHash),
	}
}

func TestMonitorFiltersByRecipient(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")
	other := common.HexToAddress("0x5555555555555555555555555555555555555555")
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")

	subscriber := &fakeSubscriber{}
	got := make(chan PendingTransfer, 10)

	// recipient configured with mixed case must still match
	monitor := NewMonitor(subscriber, token, "0x4444444444444444444444444444444444444444",
		func(_ context.Context, transfer PendingTransfer) {
			got <- transfer
		})
	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool { return subscriber.subCount() >= 1 },
		time.Second, 10*time.Millisecond)

	sub := subscriber.latest()
	sub.logs <- transferLog(sender, other, big.NewInt(111), "0x01")
	sub.logs <- transferLog(sender, recipient, big.NewInt(222), "0x02")
	sub.logs <- gethtypes.Log{Topics: []common.Hash{transferTopic}} // malformed

	select {
	case transfer := <-got:
		assert.Equal(t, recipient.Hex(), transfer.ToAddress)
		assert.Zero(t, transfer.Amount.Cmp(big.NewInt(222)))
	case <-time.After(time.Second):
		t.Fatal("expected a transfer for the recipient")
	}

	select {
	case transfer := <-got:
		t.Fatalf("unexpected transfer delivered: %+v", transfer)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorReconnectsAfterSubscriptionError(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")

	subscriber := &fakeSubscriber{}
	got := make(chan PendingTransfer, 10)

	monitor := NewMonitor(subscriber, token, recipient.Hex(),
		func(_ context.Context, transfer PendingTransfer) {
			got <- transfer
		})
	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool { return subscriber.subCount() >= 1 },
		time.Second, 10*time.Millisecond)

	subscriber.latest().errCh <- errors.New("websocket closed")

	// a replacement subscription comes up after backoff
	require.Eventually(t, func() bool { return subscriber.subCount() >= 2 },
		5*time.Second, 20*time.Millisecond)

	subscriber.latest().logs <- transferLog(sender, recipient, big.NewInt(333), "0x03")

	select {
	case transfer := <-got:
		assert.Zero(t, transfer.Amount.Cmp(big.NewInt(333)))
	case <-time.After(time.Second):
		t.Fatal("expected a transfer after reconnect")
	}
}

func TestMonitorStopWaitsForHandlers(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	recipient := common.HexToAddress("0x4444444444444444444444444444444444444444")
	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")

	subscriber := &fakeSubscriber{}
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	monitor := NewMonitor(subscriber, token, recipient.Hex(),
		func(_ context.Context, _ PendingTransfer) {
			close(started)
			<-release
			finished.Store(true)
		})
	monitor.Start()

	require.Eventually(t, func() bool { return subscriber.subCount() >= 1 },
		time.Second, 10*time.Millisecond)

	subscriber.latest().logs <- transferLog(sender, recipient, big.NewInt(1), "0x04")

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("handler never started")
	}

	stopped := make(chan struct{})
	go func() {
		monitor.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a handler was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the handler finished")
	}
	assert.True(t, finished.Load(), "the in-flight handler must complete before Stop returns")
}
