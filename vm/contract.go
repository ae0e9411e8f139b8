// Package vm implements the contract sandbox: a host-call table services
// contract imports (storage, crypto, query, debug) while a gas tracker
// meters every call. The module ships an in-process native VM backend --
// contracts are Go values registered under a code hash -- rather than a
// WebAssembly runtime. The memory-region ABI a WASM host needs is left as
// documented types (Region) that a future WASM backend would implement
// against; the native backend calls contracts directly and has no
// marshalling boundary to cross.
package vm

import (
	"encoding/json"

	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/types"
)

// Region describes a WASM linear-memory allocation: a
// contract calls allocate(capacity) to get one, the host writes argument
// bytes into it, and entry points return a pointer to a Region holding
// their JSON result. The native backend never marshals through this; it
// exists so a WASM backend can be added later without renegotiating the
// ABI this package already documents.
type Region struct {
	Offset   uint32
	Capacity uint32
	Length   uint32
}

// SubMsgResult is what a submessage resolved to, passed to reply.
type SubMsgResult struct {
	Ok      *types.Response `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload []byte          `json:"payload,omitempty"`
}

// Contract is the minimal shape every deployed contract satisfies: a
// content-addressed code hash. Concrete entry points are detected via the
// narrower interfaces below -- a contract implements only the ones it
// needs, and the kernel returns ErrEntryPointNotFound for the rest
// ("a contract may omit any").
type Contract interface {
	CodeHash() types.Hash256
}

type Instantiator interface {
	Instantiate(ctx MutableCtx, msg json.RawMessage) (types.Response, error)
}

type Executor interface {
	Execute(ctx MutableCtx, msg json.RawMessage) (types.Response, error)
}

type QueryHandler interface {
	Query(ctx ImmutableCtx, msg json.RawMessage) (interface{}, error)
}

type Migrator interface {
	Migrate(ctx MutableCtx, msg json.RawMessage) (types.Response, error)
}

type Replier interface {
	Reply(ctx SudoCtx, payload []byte, result SubMsgResult) (types.Response, error)
}

type Authenticator interface {
	Authenticate(ctx AuthCtx) (types.AuthResponse, error)
}

type Backrunner interface {
	Backrun(ctx AuthCtx) (types.Response, error)
}

type FeeWithholder interface {
	WithholdFee(ctx AuthCtx) (types.Response, error)
}

type FeeFinalizer interface {
	FinalizeFee(ctx AuthCtx, gasUsed uint64) (types.Response, error)
}

type BankExecutor interface {
	BankExecute(ctx SudoCtx, msg json.RawMessage) (types.Response, error)
}

type BankQuerier interface {
	BankQuery(ctx ImmutableCtx, query types.BankQuery) (types.BankQueryResponse, error)
}

type CronExecutor interface {
	CronExecute(ctx SudoCtx) (types.Response, error)
}

type Receiver interface {
	Receive(ctx MutableCtx) (types.Response, error)
}

// IbcClientCreator/Updater/Verifier are the cross-chain light-client entry
// points. Create and Update mutate client state under a
// privileged context; Verify is a pure membership check against an already
// stored consensus state, so it runs immutable and returns no response.
type IbcClientCreator interface {
	IbcClientCreate(ctx SudoCtx, payload json.RawMessage) (types.Response, error)
}

type IbcClientUpdater interface {
	IbcClientUpdate(ctx SudoCtx, payload json.RawMessage) (types.Response, error)
}

type IbcClientVerifier interface {
	IbcClientVerify(ctx ImmutableCtx, payload json.RawMessage) error
}

// ErrEntryPointNotFound is returned when the kernel calls an entry point a
// contract doesn't implement.
func ErrEntryPointNotFound(entry string) error {
	return grugerrors.New(grugerrors.ERR_VM, "entry point not found: %s", entry)
}
