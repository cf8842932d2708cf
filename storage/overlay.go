package storage

import (
	"errors"
	"sort"
)

var errOverlayClosed = errors.New("storage: overlay already committed or discarded")

// Overlay buffers writes on top of a Database. Reads observe buffered writes
// first. Nothing reaches the base store until Commit, which applies the whole
// buffer through a single WriteBatch.
//
// Overlay is not safe for concurrent use.
type Overlay struct {
	base   Database
	writes map[string][]byte
	closed bool
}

// NewOverlay opens a write buffer over base.
func NewOverlay(base Database) *Overlay {
	return &Overlay{base: base, writes: make(map[string][]byte)}
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if value, ok := o.writes[string(key)]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return append([]byte(nil), value...), nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Put(key []byte, value []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	if value == nil {
		value = []byte{}
	}
	o.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	o.writes[string(key)] = nil
	return nil
}

// Dirty reports the number of buffered mutations.
func (o *Overlay) Dirty() int {
	return len(o.writes)
}

// Commit flushes buffered writes atomically. Keys are applied in sorted order
// so batches are deterministic.
func (o *Overlay) Commit() error {
	if o.closed {
		return errOverlayClosed
	}
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]Op, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, Op{Key: []byte(k), Value: o.writes[k]})
	}
	if err := o.base.WriteBatch(ops); err != nil {
		return err
	}
	o.closed = true
	o.writes = nil
	return nil
}

// Discard drops every buffered write.
func (o *Overlay) Discard() {
	o.closed = true
	o.writes = nil
}
