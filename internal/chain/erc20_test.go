package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackTransfer(t *testing.T) {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	amount := big.NewInt(123456)

	data, err := packTransfer(to, amount)
	require.NoError(t, err)

	// 4-byte selector + two 32-byte words
	require.Len(t, data, 4+32+32)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4], "transfer selector")
	assert.Equal(t, to.Bytes(), data[4+12:4+32], "recipient is right-aligned in the first word")
	assert.Equal(t, amount, new(big.Int).SetBytes(data[4+32:]), "amount in the second word")
}

func TestParseTransferLog(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(987654321)

	log := gethtypes.Log{
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(amount.Bytes(), 32),
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xbeef"),
	}

	transfer, ok := parseTransferLog(log)
	require.True(t, ok)
	assert.Equal(t, from.Hex(), transfer.FromAddress)
	assert.Equal(t, to.Hex(), transfer.ToAddress)
	assert.Zero(t, transfer.Amount.Cmp(amount))
	assert.Equal(t, uint64(42), transfer.BlockNumber)
	assert.Equal(t, log.TxHash.Hex(), transfer.SourceTxHash)
}

func TestParseTransferLogRejectsMalformed(t *testing.T) {
	// approval-style log: right topic count, wrong signature
	wrongTopic := gethtypes.Log{
		Topics: []common.Hash{
			common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"),
			common.Hash{},
			common.Hash{},
		},
	}
	_, ok := parseTransferLog(wrongTopic)
	assert.False(t, ok)

	// transfer signature but missing indexed topics
	truncated := gethtypes.Log{
		Topics: []common.Hash{transferTopic},
	}
	_, ok = parseTransferLog(truncated)
	assert.False(t, ok)
}
