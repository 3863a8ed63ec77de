package chain

import (
	"fmt"
	"math/big"
)

// PendingTransfer is one observed incoming transfer. It lives only for the
// duration of a single coordinator invocation.
type PendingTransfer struct {
	FromAddress string
	ToAddress   string
	Amount      *big.Int
	BlockNumber uint64
	// SourceTxHash is the transaction that delivered the tokens. Empty for
	// transfers synthesized by the startup sweep.
	SourceTxHash string
}

// TransactionError wraps any failure while building, signing, broadcasting or
// confirming a burn transaction. A failed attempt is abandoned; it is never
// retried automatically.
type TransactionError struct {
	Stage string
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

func txError(stage string, err error) *TransactionError {
	return &TransactionError{Stage: stage, Err: err}
}
