package burner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ashfall-labs/burnwatcher/internal/chain"
	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ethereum/go-ethereum/common"
)

// BalanceReader reads the recipient's current token balance.
// *chain.TokenReader is the production implementation.
type BalanceReader interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// StartupSweep checks the recipient's balance once at boot and funnels any
// positive balance through the coordinator, exactly as a live event would be.
// Failures are reported to the caller, who logs and moves on; the sweep is
// never fatal.
func StartupSweep(ctx context.Context, reader BalanceReader, coordinator *Coordinator, recipient common.Address) error {
	balance, err := reader.BalanceOf(ctx, recipient)
	if err != nil {
		return fmt.Errorf("startup sweep balance check: %w", err)
	}

	if balance.Sign() <= 0 {
		logger.Info("Startup sweep: nothing to burn")
		return nil
	}

	logger.Info("Startup sweep: found balance", "amount_raw", balance.String())

	transfer := chain.PendingTransfer{
		FromAddress: recipient.Hex(),
		ToAddress:   recipient.Hex(),
		Amount:      balance,
	}
	if err := coordinator.Handle(ctx, transfer); err != nil {
		return fmt.Errorf("startup sweep burn: %w", err)
	}
	return nil
}
