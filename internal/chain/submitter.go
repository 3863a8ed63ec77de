package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// fallbackGasLimit covers an ERC-20 transfer when estimation fails.
	fallbackGasLimit = 90_000

	receiptPollInterval = 2 * time.Second
)

// Submitter signs and broadcasts the outbound burn transfer and waits for it
// to be mined. Invocations are serialized with a mutex: the account nonce is
// per-credential state, and two in-flight transactions from the same key
// would race on it.
type Submitter struct {
	mu sync.Mutex

	backend        TxBackend
	token          common.Address
	sink           common.Address
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	confirmTimeout time.Duration
	logger         *slog.Logger
}

type SubmitterConfig struct {
	Token          common.Address
	Sink           common.Address
	Key            *ecdsa.PrivateKey
	ChainID        *big.Int
	ConfirmTimeout time.Duration
}

func NewSubmitter(backend TxBackend, cfg SubmitterConfig) *Submitter {
	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	return &Submitter{
		backend:        backend,
		token:          cfg.Token,
		sink:           cfg.Sink,
		key:            cfg.Key,
		from:           crypto.PubkeyToAddress(cfg.Key.PublicKey),
		chainID:        cfg.ChainID,
		confirmTimeout: confirmTimeout,
		logger:         logger.With("component", "submitter"),
	}
}

// Burn transfers the exact raw amount from the custodial account to the burn
// sink and returns the confirmed transaction hash.
func (s *Submitter) Burn(ctx context.Context, amount *big.Int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	data, err := packTransfer(s.sink, amount)
	if err != nil {
		return "", txError("build", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", txError("build", err)
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", txError("build", err)
	}

	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.token,
		Data: data,
	})
	if err != nil {
		s.logger.Warn("Gas estimation failed, using fallback limit",
			"err", err, "fallback", fallbackGasLimit)
		gasLimit = fallbackGasLimit
	}

	tx := gethtypes.NewTransaction(nonce, s.token, common.Big0, gasLimit, gasPrice, data)
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return "", txError("sign", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return "", txError("broadcast", err)
	}

	txHash := signed.Hash()
	s.logger.Info("Burn submitted",
		"tx", txHash.Hex(),
		"amount_raw", amount.String(),
		"sink", s.sink.Hex(),
	)

	receipt, err := s.waitMined(ctx, txHash)
	if err != nil {
		return "", txError("confirm", err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return "", txError("confirm", errors.New("transaction reverted"))
	}

	return txHash.Hex(), nil
}

func (s *Submitter) waitMined(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
