// Package db implements the "lite" Merkle-less state database: a
// version-tracked key-value store split into a storage column family
// (contract state, committed per block), a consensus column family (ABCI
// adapter's own bookkeeping, written directly through StateConsensus or
// staged with FlushConsensusButNotCommit to apply at the next Commit), and
// a metadata column family (latest version and batch hash).
// RocksDB's column families have no equivalent in syndtr/goleveldb, so each
// family is emulated with a fixed key prefix.
package db

import (
	"encoding/binary"
	"sync"

	"github.com/left-curve/grug/crypto"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/storage"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	prefixStorage   = []byte("s:")
	prefixConsensus = []byte("c:")
	prefixMetadata  = []byte("m:")

	latestVersionKey  = append(append([]byte{}, prefixMetadata...), []byte("version")...)
	latestBatchHashKey = append(append([]byte{}, prefixMetadata...), []byte("hash")...)
)

type pendingData struct {
	version uint64
	hash    crypto.Hash256
	batch   Batch
}

// LiteDB is the lite state database: no Merkle commitment,
// a batch_hash in place of a root hash, and a two-phase
// flush-then-commit write path so the consensus adapter can compute the
// block's app hash before the change becomes visible.
type LiteDB struct {
	mu   sync.RWMutex
	ldb  *leveldb.DB
	storagePending   *pendingData
	consensusPending Batch
}

// Open opens (creating if absent) a lite DB rooted at dataDir.
func Open(dataDir string) (*LiteDB, error) {
	ldb, err := leveldb.OpenFile(dataDir, nil)
	if err != nil {
		return nil, grugerrors.New(grugerrors.ERR_HOST, "db: open leveldb", err)
	}
	return &LiteDB{ldb: ldb}, nil
}

func (d *LiteDB) Close() error {
	return d.ldb.Close()
}

// LatestVersion returns the most recently committed version, or 0 if the
// DB is empty -- version and block height always coincide.
func (d *LiteDB) LatestVersion() uint64 {
	raw, err := d.ldb.Get(latestVersionKey, nil)
	if err != nil {
		return 0
	}
	if len(raw) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

// RootHash returns the batch hash recorded at the given version (or the
// latest, if nil). It returns ok=false if version doesn't match the
// latest committed version, since the lite DB only ever tracks one.
func (d *LiteDB) RootHash(version *uint64) (crypto.Hash256, bool) {
	latest := d.LatestVersion()
	if version != nil && *version != latest {
		return crypto.Hash256{}, false
	}
	raw, err := d.ldb.Get(latestBatchHashKey, nil)
	if err != nil || len(raw) != 32 {
		return crypto.Hash256{}, false
	}
	var h crypto.Hash256
	copy(h[:], raw)
	return h, true
}

// Prove would return an inclusion or exclusion proof for key at the given
// version, verifiable against RootHash. The lite backend
// commits a batch hash rather than a Merkle tree, so no proof can be
// constructed from it; every call reports proof unsupported. A
// Merkle-committed backend serves this for real.
func (d *LiteDB) Prove(key []byte, version *uint64) ([]byte, error) {
	return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "db: proof unsupported by the lite backend")
}

// StateStorage returns a read-only Backend over the committed contract
// state at the given version (the typed storage layer is built
// atop this). If version is non-nil it must equal the latest committed
// version, since the lite DB keeps no history.
func (d *LiteDB) StateStorage(version *uint64) (storage.Backend, error) {
	if version != nil {
		latest := d.LatestVersion()
		if *version != latest {
			return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "db: requested version %d does not match latest %d", *version, latest)
		}
	}
	return &prefixedBackend{ldb: d.ldb, prefix: prefixStorage, readOnly: true}, nil
}

// StateConsensus returns a read-write Backend for the consensus adapter's
// own bookkeeping, written directly rather than through the
// flush/commit cycle.
func (d *LiteDB) StateConsensus() storage.Backend {
	return &prefixedBackend{ldb: d.ldb, prefix: prefixConsensus, readOnly: false}
}

// FlushStorageButNotCommit stages a batch of contract-state changes and
// computes the version/hash the next Commit will apply, without making
// the change visible yet (finalize_block must know the app
// hash before commit()). Calling it again before Commit replaces the
// pending changeset rather than erroring, since finalize_block must be
// idempotent modulo commit: re-running it against the same
// committed base must yield the same staged root, not a conflict.
func (d *LiteDB) FlushStorageButNotCommit(batch Batch) (uint64, crypto.Hash256, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var version uint64
	if _, err := d.ldb.Get(latestVersionKey, nil); err == nil {
		version = d.LatestVersion() + 1
	}
	hash := BatchHash(batch)

	d.storagePending = &pendingData{version: version, hash: hash, batch: batch}
	return version, hash, nil
}

// FlushConsensusButNotCommit stages consensus-CF writes to apply together
// with the next Commit.
func (d *LiteDB) FlushConsensusButNotCommit(batch Batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consensusPending = batch
}

// Commit atomically applies the pending storage batch, the pending
// consensus batch, and the new version/hash metadata.
func (d *LiteDB) Commit() error {
	d.mu.Lock()
	pending := d.storagePending
	consensus := d.consensusPending
	d.storagePending = nil
	d.consensusPending = nil
	d.mu.Unlock()

	if pending == nil {
		return grugerrors.New(grugerrors.ERR_HOST, "db: no pending changeset to commit")
	}

	wb := new(leveldb.Batch)
	for k, op := range pending.batch {
		key := append(append([]byte{}, prefixStorage...), []byte(k)...)
		if op.Insert {
			wb.Put(key, op.Value)
		} else {
			wb.Delete(key)
		}
	}
	for k, op := range consensus {
		key := append(append([]byte{}, prefixConsensus...), []byte(k)...)
		if op.Insert {
			wb.Put(key, op.Value)
		} else {
			wb.Delete(key)
		}
	}

	var vbuf [8]byte
	binary.LittleEndian.PutUint64(vbuf[:], pending.version)
	wb.Put(latestVersionKey, vbuf[:])
	wb.Put(latestBatchHashKey, pending.hash[:])

	if err := d.ldb.Write(wb, nil); err != nil {
		return grugerrors.New(grugerrors.ERR_HOST, "db: commit", err)
	}
	return nil
}

// DiscardChangeset drops the pending storage batch without applying it.
func (d *LiteDB) DiscardChangeset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.storagePending = nil
}

// prefixedBackend adapts a prefix-scoped slice of the underlying leveldb
// instance to storage.Backend.
type prefixedBackend struct {
	ldb      *leveldb.DB
	prefix   []byte
	readOnly bool
}

func (p *prefixedBackend) fullKey(key []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(key))
	out = append(out, p.prefix...)
	out = append(out, key...)
	return out
}

func (p *prefixedBackend) Read(key []byte) ([]byte, bool) {
	raw, err := p.ldb.Get(p.fullKey(key), nil)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (p *prefixedBackend) Write(key, value []byte) {
	if p.readOnly {
		panic("db: write called on read-only state storage")
	}
	if err := p.ldb.Put(p.fullKey(key), value, nil); err != nil {
		panic(err)
	}
}

func (p *prefixedBackend) Remove(key []byte) {
	if p.readOnly {
		panic("db: write called on read-only state storage")
	}
	if err := p.ldb.Delete(p.fullKey(key), nil); err != nil {
		panic(err)
	}
}

func (p *prefixedBackend) RemoveRange(min, max storage.Bounded) {
	if p.readOnly {
		panic("db: write called on read-only state storage")
	}
	it := p.Scan(min, max, storage.Ascending)
	defer it.Close()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	for _, k := range keys {
		p.Remove(k)
	}
}

func (p *prefixedBackend) Scan(min, max storage.Bounded, order storage.Order) storage.Iterator {
	rng := &util.Range{Start: p.prefix, Limit: prefixUpperBound(p.prefix)}
	if min.Key != nil {
		lo := p.fullKey(min.Key)
		if min.Bound == storage.Exclusive {
			lo = append(lo, 0x00)
		}
		rng.Start = lo
	}
	if max.Key != nil {
		hi := p.fullKey(max.Key)
		if max.Bound == storage.Inclusive {
			hi = append(hi, 0x00)
		}
		rng.Limit = hi
	}

	iter := p.ldb.NewIterator(rng, nil)
	return &leveldbIterator{iter: iter, prefixLen: len(p.prefix), order: order, started: false}
}

func prefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

type leveldbIterator struct {
	iter      iterator.Iterator
	prefixLen int
	order     storage.Order
	started   bool
}

func (it *leveldbIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.order == storage.Descending {
			return it.iter.Last()
		}
		return it.iter.First()
	}
	if it.order == storage.Descending {
		return it.iter.Prev()
	}
	return it.iter.Next()
}

func (it *leveldbIterator) Key() []byte {
	k := it.iter.Key()
	out := make([]byte, len(k)-it.prefixLen)
	copy(out, k[it.prefixLen:])
	return out
}

func (it *leveldbIterator) Value() []byte {
	v := it.iter.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (it *leveldbIterator) Close() { it.iter.Release() }
