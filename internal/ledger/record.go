package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicateTx is returned by Append when a record with the same
// transaction hash already exists. Callers treat it as a successful no-op.
var ErrDuplicateTx = errors.New("ledger: duplicate transaction hash")

// BurnRecord is one confirmed burn. Records are append-only: they are never
// mutated after creation and only leave the ledger through retention eviction
// or an administrative clear.
type BurnRecord struct {
	TxHash      string          `json:"txHash"`
	AmountHuman decimal.Decimal `json:"amountHuman"`
	AmountRaw   string          `json:"amountRaw,omitempty"`
	FromAddress string          `json:"fromAddress,omitempty"`
	ToAddress   string          `json:"toAddress,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}
