package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/ashfall-labs/burnwatcher/pkg/infra"
)

const (
	ledgerPrefix = "burns"
)

func seqKey(seq uint64) string {
	return fmt.Sprintf("%s/seq/%020d", ledgerPrefix, seq)
}

func txKey(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", ledgerPrefix, strings.ToLower(txHash))
}

func nextSeqKey() string {
	return fmt.Sprintf("%s/meta/next_seq", ledgerPrefix)
}

func seqPrefix() string {
	return ledgerPrefix + "/seq/"
}

// Store is the durable burn ledger. Appends are serialized internally so the
// duplicate check is atomic with the insert; reads may run concurrently.
type Store interface {
	Append(record BurnRecord) error
	Recent(n int) ([]BurnRecord, error)
	ScanAll() ([]BurnRecord, error)
	Get(txHash string) (BurnRecord, bool, error)
	Count() (int, error)
	ClearAll() error
	Close() error
}

type kvLedger struct {
	mu        sync.Mutex
	kv        infra.KVStore
	retention int
}

// NewStore builds a ledger on top of a KVStore. retention caps the number of
// records kept; the oldest entries are evicted past it. retention <= 0 means
// unbounded.
func NewStore(kv infra.KVStore, retention int) Store {
	return &kvLedger{
		kv:        kv,
		retention: retention,
	}
}

func (l *kvLedger) Append(record BurnRecord) error {
	if record.TxHash == "" {
		return errors.New("ledger: record tx hash is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var existing uint64
	found, err := l.kv.GetAny(txKey(record.TxHash), &existing)
	if err != nil {
		return fmt.Errorf("ledger: duplicate check: %w", err)
	}
	if found {
		return ErrDuplicateTx
	}

	seq, err := l.reserveSeq()
	if err != nil {
		return err
	}

	if err := l.kv.SetAny(seqKey(seq), record); err != nil {
		return fmt.Errorf("ledger: write record: %w", err)
	}
	if err := l.kv.SetAny(txKey(record.TxHash), seq); err != nil {
		return fmt.Errorf("ledger: write tx index: %w", err)
	}

	// The record is durable at this point. A failed eviction only delays the
	// retention cap; reporting it as an append failure would make callers
	// believe a recorded burn was lost.
	if err := l.evictBeyondRetention(); err != nil {
		logger.Warn("Ledger eviction failed", "err", err)
	}
	return nil
}

// reserveSeq claims the next sequence number and persists the counter before
// the record is written, so a crash mid-append can only leave a gap, never
// two records under one sequence.
func (l *kvLedger) reserveSeq() (uint64, error) {
	var next uint64
	if _, err := l.kv.GetAny(nextSeqKey(), &next); err != nil {
		return 0, fmt.Errorf("ledger: read sequence: %w", err)
	}
	if err := l.kv.SetAny(nextSeqKey(), next+1); err != nil {
		return 0, fmt.Errorf("ledger: advance sequence: %w", err)
	}
	return next, nil
}

func (l *kvLedger) evictBeyondRetention() error {
	if l.retention <= 0 {
		return nil
	}

	pairs, err := l.kv.List(seqPrefix())
	if err != nil {
		return fmt.Errorf("ledger: list for eviction: %w", err)
	}
	excess := len(pairs) - l.retention
	if excess <= 0 {
		return nil
	}

	// List is ascending by key, so the oldest records come first.
	for _, pair := range pairs[:excess] {
		var record BurnRecord
		if err := infra.JSON.Unmarshal(pair.Value, &record); err == nil {
			_ = l.kv.Delete(txKey(record.TxHash))
		}
		if err := l.kv.Delete(pair.Key); err != nil {
			return fmt.Errorf("ledger: evict %s: %w", pair.Key, err)
		}
	}
	return nil
}

func (l *kvLedger) Recent(n int) ([]BurnRecord, error) {
	if n < 0 {
		n = 0
	}

	all, err := l.ScanAll()
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		n = len(all)
	}
	return all[:n], nil
}

// ScanAll returns every record, most recent first.
func (l *kvLedger) ScanAll() ([]BurnRecord, error) {
	pairs, err := l.kv.List(seqPrefix())
	if err != nil {
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}

	records := make([]BurnRecord, 0, len(pairs))
	for i := len(pairs) - 1; i >= 0; i-- {
		var record BurnRecord
		if err := infra.JSON.Unmarshal(pairs[i].Value, &record); err != nil {
			return nil, fmt.Errorf("ledger: decode %s: %w", pairs[i].Key, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (l *kvLedger) Get(txHash string) (BurnRecord, bool, error) {
	var record BurnRecord

	var seq uint64
	found, err := l.kv.GetAny(txKey(txHash), &seq)
	if err != nil || !found {
		return record, false, err
	}

	found, err = l.kv.GetAny(seqKey(seq), &record)
	if err != nil || !found {
		return record, false, err
	}
	return record, true, nil
}

func (l *kvLedger) Count() (int, error) {
	pairs, err := l.kv.List(seqPrefix())
	if err != nil {
		return 0, fmt.Errorf("ledger: count: %w", err)
	}
	return len(pairs), nil
}

// ClearAll wipes every ledger key. Administrative use only.
func (l *kvLedger) ClearAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pairs, err := l.kv.List(ledgerPrefix + "/")
	if err != nil {
		return fmt.Errorf("ledger: clear: %w", err)
	}
	for _, pair := range pairs {
		if err := l.kv.Delete(pair.Key); err != nil {
			return fmt.Errorf("ledger: clear %s: %w", pair.Key, err)
		}
	}
	return nil
}

func (l *kvLedger) Close() error {
	return l.kv.Close()
}
