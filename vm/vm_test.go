package vm

import (
	"encoding/json"
	"testing"
	"time"

	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoContract struct {
	hash types.Hash256
}

func (c echoContract) CodeHash() types.Hash256 { return c.hash }

func (c echoContract) Execute(ctx MutableCtx, msg json.RawMessage) (types.Response, error) {
	ctx.Store().Write([]byte("last_msg"), msg)
	return types.Response{Data: msg}, nil
}

func (c echoContract) Query(ctx ImmutableCtx, msg json.RawMessage) (interface{}, error) {
	v, _ := ctx.Store().Read([]byte("last_msg"))
	return map[string]interface{}{"last": string(v)}, nil
}

func newTestCtx(mutable bool, gasLimit uint64) (storage.Backend, *GasTracker, ImmutableCtx) {
	b := storage.NewMemBackend()
	gas := NewGasTracker(gasLimit)
	base := NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	return b, gas, base
}

func TestExecuteWritesThroughMutableCtx(t *testing.T) {
	vmInst := New()
	hash := types.HashBytes([]byte("echo"))
	vmInst.Register(echoContract{hash: hash})

	_, gas, base := newTestCtx(true, 1_000_000)
	mctx := NewMutableCtx(base, types.Address{}, types.NewCoins())

	resp, err := vmInst.Execute(hash, mctx, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(resp.Data))
	assert.Less(t, gas.Used(), uint64(1_000_000))
}

func TestQueryRejectsWrite(t *testing.T) {
	vmInst := New()
	hash := types.HashBytes([]byte("echo"))
	vmInst.Register(echoContract{hash: hash})

	_, _, base := newTestCtx(false, 1_000_000)

	// Directly exercise the guard: ImmutableCtx.Store().Write must panic,
	// which vm.call recovers into ErrImmutableState.
	_, err := call(base.Gas, func() (int, error) {
		base.Store().Write([]byte("x"), []byte("y"))
		return 0, nil
	})
	assert.ErrorIs(t, err, grugerrors.ErrImmutableState)
}

func TestGasExhaustionAbortsInvocation(t *testing.T) {
	vmInst := New()
	hash := types.HashBytes([]byte("echo"))
	vmInst.Register(echoContract{hash: hash})

	_, gas, base := newTestCtx(true, 5) // not enough for even the base host call
	mctx := NewMutableCtx(base, types.Address{}, types.NewCoins())

	_, err := vmInst.Execute(hash, mctx, []byte(`{}`))
	assert.ErrorIs(t, err, grugerrors.ErrOutOfGas)
	assert.Equal(t, gas.Limit(), gas.Used())
}

func TestMissingEntryPointIsTyped(t *testing.T) {
	vmInst := New()
	hash := types.HashBytes([]byte("no-instantiate"))
	vmInst.Register(echoContract{hash: hash}) // has no Instantiate method

	_, _, base := newTestCtx(true, 1_000_000)
	mctx := NewMutableCtx(base, types.Address{}, types.NewCoins())

	_, err := vmInst.Instantiate(hash, mctx, []byte(`{}`))
	require.Error(t, err)
}

func TestQueryDepthCap(t *testing.T) {
	assert.NoError(t, CheckQueryDepth(MaxQueryDepth))
	assert.Error(t, CheckQueryDepth(MaxQueryDepth+1))
}

func TestMessageDepthCap(t *testing.T) {
	assert.NoError(t, CheckMessageDepth(MaxMessageDepth))
	assert.Error(t, CheckMessageDepth(MaxMessageDepth+1))
}
