package burner

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/ashfall-labs/burnwatcher/internal/chain"
	"github.com/ashfall-labs/burnwatcher/internal/ledger"
	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ashfall-labs/burnwatcher/pkg/events"
	"github.com/shopspring/decimal"
)

// Submitter executes the on-chain side of a burn. *chain.Submitter is the
// production implementation; tests inject a fake.
type Submitter interface {
	Burn(ctx context.Context, amount *big.Int) (string, error)
}

// Coordinator decides whether an observed transfer becomes an actual burn:
// threshold check, settle delay, submission, ledger append. Burns are
// at-most-once: a failed submission is logged and abandoned, never retried.
type Coordinator struct {
	submitter Submitter
	store     ledger.Store
	emitter   events.Emitter // nil when event publishing is disabled

	decimals    int32
	minAmount   decimal.Decimal
	settleDelay time.Duration
	sinkAddress string
	logger      *slog.Logger
}

type CoordinatorConfig struct {
	TokenDecimals int32
	MinAmount     decimal.Decimal
	SettleDelay   time.Duration
	SinkAddress   string
}

func NewCoordinator(submitter Submitter, store ledger.Store, emitter events.Emitter, cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		submitter:   submitter,
		store:       store,
		emitter:     emitter,
		decimals:    cfg.TokenDecimals,
		minAmount:   cfg.MinAmount,
		settleDelay: cfg.SettleDelay,
		sinkAddress: cfg.SinkAddress,
		logger:      logger.With("component", "coordinator"),
	}
}

// Handle runs one transfer through the burn decision. A transfer below the
// minimum threshold is discarded silently; that is a deliberate no-op, not a
// failure.
func (c *Coordinator) Handle(ctx context.Context, transfer chain.PendingTransfer) error {
	human := decimal.NewFromBigInt(transfer.Amount, -c.decimals)

	if human.LessThan(c.minAmount) {
		c.logger.Info("Skip (below threshold)",
			"amount", human.String(),
			"min", c.minAmount.String(),
		)
		return nil
	}

	// Debounce: let near-simultaneous transfers land before acting.
	if c.settleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.settleDelay):
		}
	}

	txHash, err := c.submitter.Burn(ctx, transfer.Amount)
	if err != nil {
		c.logger.Error("Burn submission failed",
			"err", err,
			"amount", human.String(),
			"source_tx", transfer.SourceTxHash,
		)
		return err
	}

	record := ledger.BurnRecord{
		TxHash:      txHash,
		AmountHuman: human,
		AmountRaw:   transfer.Amount.String(),
		FromAddress: transfer.FromAddress,
		ToAddress:   c.sinkAddress,
		Timestamp:   time.Now().UTC(),
	}
	if err := c.store.Append(record); err != nil {
		if errors.Is(err, ledger.ErrDuplicateTx) {
			c.logger.Warn("Burn already recorded", "tx", txHash)
			return nil
		}
		c.logger.Error("Ledger append failed", "err", err, "tx", txHash)
		return err
	}

	c.logger.Info("Burn recorded",
		"tx", txHash,
		"amount", human.String(),
	)

	if c.emitter != nil {
		event := events.BurnEvent{
			TxHash:      record.TxHash,
			AmountHuman: record.AmountHuman,
			AmountRaw:   record.AmountRaw,
			FromAddress: record.FromAddress,
			SinkAddress: record.ToAddress,
			Timestamp:   record.Timestamp.Unix(),
		}
		if err := c.emitter.EmitBurn(event); err != nil {
			// Publishing is best-effort; the burn itself is already durable.
			c.logger.Warn("Burn event publish failed", "err", err, "tx", txHash)
		}
	}
	return nil
}
