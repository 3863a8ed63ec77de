package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const erc20ABIJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}],
		"name":"Transfer","type":"event"},
	{"constant":false,"inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"}],
		"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],
		"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],
		"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var (
	erc20ABI      abi.ABI
	transferTopic common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	erc20ABI = parsed
	transferTopic = parsed.Events["Transfer"].ID
}

func packTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

func packBalanceOf(owner common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", owner)
}

func packDecimals() ([]byte, error) {
	return erc20ABI.Pack("decimals")
}

// parseTransferLog decodes an ERC-20 Transfer log into a PendingTransfer.
// Returns false for logs that are not well-formed Transfer events.
func parseTransferLog(log gethtypes.Log) (PendingTransfer, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != transferTopic {
		return PendingTransfer{}, false
	}

	return PendingTransfer{
		FromAddress:  common.BytesToAddress(log.Topics[1].Bytes()).Hex(),
		ToAddress:    common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
		Amount:       new(big.Int).SetBytes(log.Data),
		BlockNumber:  log.BlockNumber,
		SourceTxHash: log.TxHash.Hex(),
	}, true
}
