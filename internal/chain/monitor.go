package chain

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ashfall-labs/burnwatcher/pkg/retry"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Handler receives every qualifying incoming transfer. It is invoked on its
// own goroutine per event; ordering across overlapping events is not
// guaranteed beyond delivery order.
type Handler func(ctx context.Context, transfer PendingTransfer)

// Monitor keeps a live subscription on the token's Transfer events and hands
// every transfer destined for the recipient to the handler. On subscription
// loss it reconnects with backoff; events emitted during the gap are not
// replayed.
type Monitor struct {
	client    LogSubscriber
	token     common.Address
	recipient string
	handler   Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewMonitor(client LogSubscriber, token common.Address, recipient string, handler Handler) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		client:    client,
		token:     token,
		recipient: recipient,
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With("component", "monitor"),
	}
}

func (m *Monitor) Start() {
	m.logger.Info("Starting transfer monitor",
		"token", m.token.Hex(),
		"recipient", m.recipient,
	)
	m.wg.Add(1)
	go m.run()
}

func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	for m.ctx.Err() == nil {
		err := retry.Exponential(m.ctx, m.subscribeAndConsume, retry.ExponentialConfig{
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			OnRetry: func(err error, next time.Duration) {
				m.logger.Warn("Transfer subscription lost, reconnecting",
					"err", err, "next_attempt_in", next)
			},
		})
		if err != nil && m.ctx.Err() == nil {
			m.logger.Error("Transfer subscription failed", "err", err)
		}
	}
}

// subscribeAndConsume establishes one subscription and consumes it until it
// errors or the monitor stops. Returning an error triggers a backoff retry.
func (m *Monitor) subscribeAndConsume() error {
	logs := make(chan gethtypes.Log, 64)
	query := ethereum.FilterQuery{
		Addresses: []common.Address{m.token},
		Topics:    [][]common.Hash{{transferTopic}},
	}

	sub, err := m.client.SubscribeFilterLogs(m.ctx, query, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	m.logger.Info("Subscribed to transfer events", "token", m.token.Hex())

	for {
		select {
		case <-m.ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case log := <-logs:
			m.dispatch(log)
		}
	}
}

func (m *Monitor) dispatch(log gethtypes.Log) {
	transfer, ok := parseTransferLog(log)
	if !ok {
		return
	}
	if !strings.EqualFold(transfer.ToAddress, m.recipient) {
		return
	}

	m.logger.Info("Incoming transfer",
		"from", transfer.FromAddress,
		"amount_raw", transfer.Amount.String(),
		"block", transfer.BlockNumber,
		"tx", transfer.SourceTxHash,
	)

	// Handlers join the monitor's WaitGroup so Stop does not return while a
	// burn is still in flight against the store.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.handler(m.ctx, transfer)
	}()
}
