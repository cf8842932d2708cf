// Package journal appends every committed submission to a write-ahead log.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vadiminshakov/gowal"

	"soudefi/core/host"
	"soudefi/core/types"
)

const (
	DefaultDir   = "./sou-data/journal"
	segmentLimit = 1000
	maxSegments  = 100

	keyPrefix = "submission_"
)

var errNotOpen = errors.New("journal: not initialized")

// Entry is a decoded journal record.
type Entry struct {
	Index     uint64          `json:"index"`
	TxID      string          `json:"txId"`
	Op        string          `json:"op"`
	Timestamp uint64          `json:"timestamp"`
	Events    []types.Event   `json:"events"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// Journal persists receipts in a segmented WAL.
type Journal struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// Open initialises a WAL-backed journal under dir. When syncWrites is set
// every record is fsynced before Record returns.
func Open(dir string, syncWrites bool) (*Journal, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: syncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal wal: %w", err)
	}
	return &Journal{wal: wal}, nil
}

// Record implements host.Journal.
func (j *Journal) Record(receipt *host.Receipt) error {
	if j == nil || j.wal == nil {
		return errNotOpen
	}
	if receipt == nil {
		return fmt.Errorf("journal: receipt required")
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	next := j.wal.CurrentIndex() + 1
	return j.wal.Write(next, keyPrefix+receipt.TxID, payload)
}

// EntriesAfter returns every record written after index, oldest first.
func (j *Journal) EntriesAfter(index uint64) ([]Entry, error) {
	if j == nil || j.wal == nil {
		return nil, errNotOpen
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	current := j.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}
	out := make([]Entry, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil {
			// Pruned segments leave gaps.
			continue
		}
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode journal entry %d: %w", idx, err)
		}
		entry.Index = idx
		out = append(out, entry)
	}
	return out, nil
}

// CurrentIndex returns the latest index written.
func (j *Journal) CurrentIndex() uint64 {
	if j == nil || j.wal == nil {
		return 0
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	if j == nil || j.wal == nil {
		return errNotOpen
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.wal.Close()
}
