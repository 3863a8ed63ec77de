package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// LogSubscriber is the slice of the node client the event monitor needs.
// *ethclient.Client satisfies it; tests inject a fake.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error)
}

// ContractCaller is the slice of the node client used for read-only contract
// calls (balanceOf, decimals).
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TxBackend is the slice of the node client the submitter needs to build,
// broadcast and confirm a transaction.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Clients pairs one websocket connection for subscriptions with one HTTP
// connection for queries and submissions, the way the node providers expect.
type Clients struct {
	Subscribe *ethclient.Client
	Query     *ethclient.Client
}

func Dial(ctx context.Context, subscribeEndpoint, queryEndpoint string) (*Clients, error) {
	sub, err := ethclient.DialContext(ctx, subscribeEndpoint)
	if err != nil {
		return nil, fmt.Errorf("dial subscribe endpoint: %w", err)
	}

	query, err := ethclient.DialContext(ctx, queryEndpoint)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("dial query endpoint: %w", err)
	}

	return &Clients{Subscribe: sub, Query: query}, nil
}

func (c *Clients) Close() {
	if c.Subscribe != nil {
		c.Subscribe.Close()
	}
	if c.Query != nil {
		c.Query.Close()
	}
}

// TokenReader answers read-only questions about the token contract.
type TokenReader struct {
	caller ContractCaller
	token  common.Address
}

func NewTokenReader(caller ContractCaller, token common.Address) *TokenReader {
	return &TokenReader{caller: caller, token: token}
}

func (r *TokenReader) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	data, err := packBalanceOf(owner)
	if err != nil {
		return nil, err
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}

	results, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("balanceOf decode: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned unexpected type %T", results[0])
	}
	return balance, nil
}

func (r *TokenReader) Decimals(ctx context.Context) (uint8, error) {
	data, err := packDecimals()
	if err != nil {
		return 0, err
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals call: %w", err)
	}

	results, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("decimals decode: %w", err)
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned unexpected type %T", results[0])
	}
	return decimals, nil
}
