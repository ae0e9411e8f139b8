package vm

import (
	"github.com/left-curve/grug/crypto"
	"github.com/left-curve/grug/logging"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
)

// Querier re-enters the app for a synchronous, read-only query (the
// query_chain host call), bounded by a configured recursion depth.
type Querier interface {
	QueryChain(req types.Query, depth int) (interface{}, error)
}

// chainCtx is the block/chain metadata every context carries.
type chainCtx struct {
	ChainID  string
	Block    types.BlockInfo
	Contract types.Address
}

// guardedStore wraps a Backend with the context's gas tracker and
// mutability flag: every operation is charged against Gas per the cost
// schedule in gas.go, and a write from an immutable context panics, so the
// violation is a hard error rather than a silent no-op. vm.call recovers
// both kinds of panic and maps them onto typed errors.
type guardedStore struct {
	storage.Backend
	gas     *GasTracker
	mutable bool
}

func (g guardedStore) consume(cost uint64) {
	if err := g.gas.Consume(cost); err != nil {
		panic(outOfGasError{})
	}
}

func (g guardedStore) Read(key []byte) ([]byte, bool) {
	g.consume(GasBaseHostCall + uint64(len(key))*GasPerByteRead)
	v, ok := g.Backend.Read(key)
	if ok {
		g.consume(uint64(len(v)) * GasPerByteRead)
	}
	return v, ok
}

func (g guardedStore) Write(key, value []byte) {
	if !g.mutable {
		panic(immutableWriteError{})
	}
	g.consume(GasBaseHostCall + uint64(len(key)+len(value))*GasPerByteWritten)
	g.Backend.Write(key, value)
}

func (g guardedStore) Remove(key []byte) {
	if !g.mutable {
		panic(immutableWriteError{})
	}
	g.consume(GasBaseHostCall)
	g.Backend.Remove(key)
}

func (g guardedStore) RemoveRange(min, max storage.Bounded) {
	if !g.mutable {
		panic(immutableWriteError{})
	}
	g.consume(GasBaseHostCall)
	g.Backend.RemoveRange(min, max)
}

func (g guardedStore) Scan(min, max storage.Bounded, order storage.Order) storage.Iterator {
	g.consume(GasBaseHostCall)
	return g.Backend.Scan(min, max, order)
}

// Api is the metered crypto host-call table (the "Crypto"
// group): every scheme charges gas the same way guardedStore charges
// storage ops, so a contract verifying signatures runs against the same
// budget as one reading and writing storage, rather than for free.
type Api struct {
	gas *GasTracker
}

func (a Api) consume(cost uint64) {
	if err := a.gas.Consume(cost); err != nil {
		panic(outOfGasError{})
	}
}

func (a Api) Sha256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha256(data)
}

func (a Api) Keccak256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Keccak256(data)
}

func (a Api) Sha512(data []byte) [64]byte {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha512(data)
}

func (a Api) Sha512Truncated256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha512Truncated256(data)
}

func (a Api) Sha3_256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha3_256(data)
}

func (a Api) Sha3_512(data []byte) [64]byte {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha3_512(data)
}

func (a Api) Sha3_512Truncated256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Sha3_512Truncated256(data)
}

func (a Api) Blake2s256(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Blake2s256(data)
}

func (a Api) Blake2b512(data []byte) [64]byte {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Blake2b512(data)
}

func (a Api) Blake3(data []byte) crypto.Hash256 {
	a.consume(GasBaseHostCall + uint64(len(data))*GasPerByteHashed)
	return crypto.Blake3(data)
}

func (a Api) Secp256k1Verify(hash, sig, pubKey []byte) error {
	a.consume(GasCryptoVerify)
	return crypto.Secp256k1Verify(hash, sig, pubKey)
}

func (a Api) Secp256r1Verify(hash, sig, pubKey []byte) error {
	a.consume(GasCryptoVerify)
	return crypto.Secp256r1Verify(hash, sig, pubKey)
}

func (a Api) Ed25519Verify(msg, sig, pubKey []byte) error {
	a.consume(GasCryptoVerify)
	return crypto.Ed25519Verify(msg, sig, pubKey)
}

func (a Api) Ed25519BatchVerify(msgs, sigs, pubKeys [][]byte) error {
	a.consume(GasCryptoVerify * uint64(len(msgs)))
	return crypto.Ed25519BatchVerify(msgs, sigs, pubKeys)
}

func (a Api) Secp256k1Recover(hash, sig []byte, recoveryID byte) ([]byte, error) {
	a.consume(GasCryptoVerify)
	return crypto.Secp256k1Recover(hash, sig, recoveryID)
}

// debugLogger receives contract debug output in dev mode. It is nil in
// consensus mode, making Debug a no-op there (the debug host
// call must never influence consensus), so determinism is preserved no
// matter what a contract prints.
var debugLogger logging.Logger

// EnableDebugLogging switches the debug host call from consensus-mode
// no-op to printing through the given logger. Test harnesses and dev
// nodes call this once at startup.
func EnableDebugLogging(l logging.Logger) { debugLogger = l }

func (a Api) Debug(contract types.Address, msg string) {
	a.consume(GasBaseHostCall)
	if debugLogger != nil {
		debugLogger.Debugf("contract %s: %s", contract, msg)
	}
}

// immutableWriteError and outOfGasError are recovered by vm.call and
// mapped onto grugerrors.ErrImmutableState / grugerrors.ErrOutOfGas,
// rather than threading a (Backend, error) pair through every storage
// method the storage.Backend interface exposes.
type immutableWriteError struct{}
type outOfGasError struct{}

// ImmutableCtx exposes only reads: query, bank_query.
type ImmutableCtx struct {
	chainCtx
	Gas     *GasTracker
	Querier Querier
	Depth   int
	store   storage.Backend
}

func NewImmutableCtx(chainID string, block types.BlockInfo, contract types.Address, store storage.Backend, gas *GasTracker, q Querier, depth int) ImmutableCtx {
	return ImmutableCtx{
		chainCtx: chainCtx{ChainID: chainID, Block: block, Contract: contract},
		Gas:      gas, Querier: q, Depth: depth,
		store: store,
	}
}

func (c ImmutableCtx) Store() storage.Backend {
	return guardedStore{Backend: c.store, gas: c.Gas, mutable: false}
}

// Api returns the metered crypto host-call table. Every context kind
// inherits it through embedding, the same way every context kind inherits
// Store().
func (c ImmutableCtx) Api() Api {
	return Api{gas: c.Gas}
}

// MutableCtx adds writes: instantiate, execute, migrate.
type MutableCtx struct {
	ImmutableCtx
	Sender types.Address
	Funds  types.Coins
}

func NewMutableCtx(base ImmutableCtx, sender types.Address, funds types.Coins) MutableCtx {
	return MutableCtx{ImmutableCtx: base, Sender: sender, Funds: funds}
}

func (c MutableCtx) Store() storage.Backend {
	return guardedStore{Backend: c.store, gas: c.Gas, mutable: true}
}

// SudoCtx is a privileged mutable context for protocol-driven entry
// points: reply, bank_execute, cron_execute.
type SudoCtx struct {
	ImmutableCtx
}

func NewSudoCtx(base ImmutableCtx) SudoCtx {
	return SudoCtx{ImmutableCtx: base}
}

func (c SudoCtx) Store() storage.Backend {
	return guardedStore{Backend: c.store, gas: c.Gas, mutable: true}
}

// AuthCtx adds a transaction view: authenticate, backrun,
// withhold_fee, finalize_fee.
type AuthCtx struct {
	ImmutableCtx
	Tx types.Tx
}

func NewAuthCtx(base ImmutableCtx, tx types.Tx) AuthCtx {
	return AuthCtx{ImmutableCtx: base, Tx: tx}
}

func (c AuthCtx) Store() storage.Backend {
	return guardedStore{Backend: c.store, gas: c.Gas, mutable: true}
}
