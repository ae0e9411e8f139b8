package taxman

import (
	"math/big"
	"testing"
	"time"

	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
	"github.com/stretchr/testify/require"
)

const ugrug = "ugrug"

func newAuthCtx(t *testing.T, gasLimit uint64) vm.AuthCtx {
	t.Helper()
	b := storage.NewMemBackend()
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	tx := types.Tx{Sender: types.Address{}, GasLimit: gasLimit}
	return vm.NewAuthCtx(base, tx)
}

func instantiate(t *testing.T, ctx vm.AuthCtx, rate string) {
	t.Helper()
	feeRate, err := gmath.ParseDec[gmath.U256](rate, 18)
	require.NoError(t, err)
	raw, err := encoding.MarshalJSON(InstantiateMsg{Config: Config{FeeDenom: ugrug, FeeRate: feeRate}})
	require.NoError(t, err)
	c := New(types.HashBytes([]byte("taxman")))
	mctx := vm.NewMutableCtx(ctx.ImmutableCtx, types.GenesisSender, types.NewCoins())
	_, err = c.Instantiate(mctx, raw)
	require.NoError(t, err)
}

func decodeCoins(t *testing.T, data []byte) types.Coins {
	t.Helper()
	var coins types.Coins
	require.NoError(t, encoding.UnmarshalJSON(data, &coins))
	return coins
}

func TestWithholdFeeReportsGasLimitPricedAmount(t *testing.T) {
	ctx := newAuthCtx(t, 2000)
	instantiate(t, ctx, "1")
	c := New(types.HashBytes([]byte("taxman")))

	resp, err := c.WithholdFee(ctx)
	require.NoError(t, err)

	coins := decodeCoins(t, resp.Data)
	require.Zero(t, coins.AmountOf(ugrug).Cmp(gmath.NewInt[gmath.U256](big.NewInt(2000))))
}

func TestFinalizeFeeRefundsUnusedGas(t *testing.T) {
	ctx := newAuthCtx(t, 2000)
	instantiate(t, ctx, "1")
	c := New(types.HashBytes([]byte("taxman")))

	resp, err := c.FinalizeFee(ctx, 1200)
	require.NoError(t, err)

	coins := decodeCoins(t, resp.Data)
	require.Zero(t, coins.AmountOf(ugrug).Cmp(gmath.NewInt[gmath.U256](big.NewInt(800))), "refund should be gas_limit - gas_used priced at the flat rate")
}

func TestFinalizeFeeReportsNoRefundWhenFullyUsed(t *testing.T) {
	ctx := newAuthCtx(t, 2000)
	instantiate(t, ctx, "1")
	c := New(types.HashBytes([]byte("taxman")))

	resp, err := c.FinalizeFee(ctx, 2000)
	require.NoError(t, err)
	require.Empty(t, resp.Data, "no refund owed when gas_used consumes the whole withheld fee")
}

func TestFeeCeilingRoundsUpFractionalGasPrice(t *testing.T) {
	ctx := newAuthCtx(t, 3)
	instantiate(t, ctx, "0.5")
	c := New(types.HashBytes([]byte("taxman")))

	resp, err := c.WithholdFee(ctx)
	require.NoError(t, err)

	coins := decodeCoins(t, resp.Data)
	require.Zero(t, coins.AmountOf(ugrug).Cmp(gmath.NewInt[gmath.U256](big.NewInt(2))), "0.5 * 3 = 1.5, ceil-rounded to 2")
}
