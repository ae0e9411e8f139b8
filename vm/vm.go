package vm

import (
	"encoding/json"

	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/types"
)

// VM is the native contract sandbox: a registry of
// deployed Contract values keyed by code hash, dispatching entry-point
// calls through the metered, panic-recovering contexts in context.go
// (guardedStore for storage, Api for crypto).
type VM struct {
	registry map[types.Hash256]Contract
}

func New() *VM {
	return &VM{registry: map[types.Hash256]Contract{}}
}

// Register loads a contract under its code hash, the native-VM analogue
// of instantiating a WASM module from uploaded bytecode.
func (v *VM) Register(c Contract) {
	v.registry[c.CodeHash()] = c
}

func (v *VM) lookup(codeHash types.Hash256) (Contract, error) {
	c, ok := v.registry[codeHash]
	if !ok {
		return nil, grugerrors.New(grugerrors.ERR_VM, "no contract registered for code hash %s", types.HashString(codeHash))
	}
	return c, nil
}

// call wraps an entry point invocation: it recovers panics raised by
// immutable-context write attempts or gas exhaustion and turns them into
// typed errors, instead of crashing the block
// pipeline on a misbehaving contract.
func call[T any](gas *GasTracker, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case immutableWriteError:
				err = grugerrors.ErrImmutableState
			case outOfGasError:
				err = grugerrors.ErrOutOfGas
			default:
				err = grugerrors.New(grugerrors.ERR_VM, "contract panicked: %v", r)
			}
		}
	}()
	if gas.Remaining() == 0 {
		var zero T
		return zero, grugerrors.ErrOutOfGas
	}
	return fn()
}

func (v *VM) Instantiate(codeHash types.Hash256, ctx MutableCtx, msg []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	inst, ok := c.(Instantiator)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("instantiate")
	}
	return call(ctx.Gas, func() (types.Response, error) { return inst.Instantiate(ctx, json.RawMessage(msg)) })
}

func (v *VM) Execute(codeHash types.Hash256, ctx MutableCtx, msg []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	ex, ok := c.(Executor)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("execute")
	}
	return call(ctx.Gas, func() (types.Response, error) { return ex.Execute(ctx, json.RawMessage(msg)) })
}

func (v *VM) Query(codeHash types.Hash256, ctx ImmutableCtx, msg []byte) (interface{}, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return nil, err
	}
	qh, ok := c.(QueryHandler)
	if !ok {
		return nil, ErrEntryPointNotFound("query")
	}
	return call(ctx.Gas, func() (interface{}, error) { return qh.Query(ctx, json.RawMessage(msg)) })
}

func (v *VM) Migrate(codeHash types.Hash256, ctx MutableCtx, msg []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	m, ok := c.(Migrator)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("migrate")
	}
	return call(ctx.Gas, func() (types.Response, error) { return m.Migrate(ctx, json.RawMessage(msg)) })
}

func (v *VM) Reply(codeHash types.Hash256, ctx SudoCtx, payload []byte, result SubMsgResult) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	r, ok := c.(Replier)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("reply")
	}
	return call(ctx.Gas, func() (types.Response, error) { return r.Reply(ctx, payload, result) })
}

func (v *VM) Authenticate(codeHash types.Hash256, ctx AuthCtx) (types.AuthResponse, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.AuthResponse{}, err
	}
	a, ok := c.(Authenticator)
	if !ok {
		return types.AuthResponse{}, ErrEntryPointNotFound("authenticate")
	}
	return call(ctx.Gas, func() (types.AuthResponse, error) { return a.Authenticate(ctx) })
}

func (v *VM) Backrun(codeHash types.Hash256, ctx AuthCtx) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	b, ok := c.(Backrunner)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("backrun")
	}
	return call(ctx.Gas, func() (types.Response, error) { return b.Backrun(ctx) })
}

func (v *VM) WithholdFee(codeHash types.Hash256, ctx AuthCtx) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	w, ok := c.(FeeWithholder)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("withhold_fee")
	}
	return call(ctx.Gas, func() (types.Response, error) { return w.WithholdFee(ctx) })
}

func (v *VM) FinalizeFee(codeHash types.Hash256, ctx AuthCtx, gasUsed uint64) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	f, ok := c.(FeeFinalizer)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("finalize_fee")
	}
	return call(ctx.Gas, func() (types.Response, error) { return f.FinalizeFee(ctx, gasUsed) })
}

func (v *VM) BankExecute(codeHash types.Hash256, ctx SudoCtx, msg []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	be, ok := c.(BankExecutor)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("bank_execute")
	}
	return call(ctx.Gas, func() (types.Response, error) { return be.BankExecute(ctx, json.RawMessage(msg)) })
}

func (v *VM) BankQuery(codeHash types.Hash256, ctx ImmutableCtx, query types.BankQuery) (types.BankQueryResponse, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.BankQueryResponse{}, err
	}
	bq, ok := c.(BankQuerier)
	if !ok {
		return types.BankQueryResponse{}, ErrEntryPointNotFound("bank_query")
	}
	return call(ctx.Gas, func() (types.BankQueryResponse, error) { return bq.BankQuery(ctx, query) })
}

func (v *VM) CronExecute(codeHash types.Hash256, ctx SudoCtx) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	ce, ok := c.(CronExecutor)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("cron_execute")
	}
	return call(ctx.Gas, func() (types.Response, error) { return ce.CronExecute(ctx) })
}

func (v *VM) IbcClientCreate(codeHash types.Hash256, ctx SudoCtx, payload []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	cc, ok := c.(IbcClientCreator)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("ibc_client_create")
	}
	return call(ctx.Gas, func() (types.Response, error) { return cc.IbcClientCreate(ctx, json.RawMessage(payload)) })
}

func (v *VM) IbcClientUpdate(codeHash types.Hash256, ctx SudoCtx, payload []byte) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	cu, ok := c.(IbcClientUpdater)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("ibc_client_update")
	}
	return call(ctx.Gas, func() (types.Response, error) { return cu.IbcClientUpdate(ctx, json.RawMessage(payload)) })
}

func (v *VM) IbcClientVerify(codeHash types.Hash256, ctx ImmutableCtx, payload []byte) error {
	c, err := v.lookup(codeHash)
	if err != nil {
		return err
	}
	cv, ok := c.(IbcClientVerifier)
	if !ok {
		return ErrEntryPointNotFound("ibc_client_verify")
	}
	_, err = call(ctx.Gas, func() (struct{}, error) { return struct{}{}, cv.IbcClientVerify(ctx, json.RawMessage(payload)) })
	return err
}

func (v *VM) Receive(codeHash types.Hash256, ctx MutableCtx) (types.Response, error) {
	c, err := v.lookup(codeHash)
	if err != nil {
		return types.Response{}, err
	}
	r, ok := c.(Receiver)
	if !ok {
		return types.Response{}, ErrEntryPointNotFound("receive")
	}
	return call(ctx.Gas, func() (types.Response, error) { return r.Receive(ctx) })
}
