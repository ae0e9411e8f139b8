package dex

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

const (
	baseDenom  = "ubase"
	quoteDenom = "uquote"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func price(t *testing.T, s string) Price {
	t.Helper()
	p, err := gmath.ParseDec[gmath.U256](s, pricePlaces)
	require.NoError(t, err)
	return p
}

func amount(v int64) gmath.Uint256 {
	return gmath.NewInt[gmath.U256](big.NewInt(v))
}

func newBaseCtx() (storage.Backend, vm.ImmutableCtx) {
	b := storage.NewMemBackend()
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	return b, base
}

func submit(t *testing.T, c *Contract, base vm.ImmutableCtx, user types.Address, dir Direction, priceStr string, amt int64, depositDenom string, depositAmt int64) {
	t.Helper()
	coins, err := types.CoinsFrom(types.Coin{Denom: depositDenom, Amount: amount(depositAmt)})
	require.NoError(t, err)
	mctx := vm.NewMutableCtx(base, user, coins)
	raw, err := encoding.MarshalJSON(ExecuteMsg{SubmitOrder: &SubmitOrderMsg{
		Direction: dir,
		Amount:    amount(amt),
		Price:     price(t, priceStr),
	}})
	require.NoError(t, err)
	_, err = c.Execute(mctx, raw)
	require.NoError(t, err)
}

// TestCronExecuteUniformPriceAuction drives a full six-order auction end to
// end: six orders -- (Bid,30,10),(Bid,20,10),(Bid,10,10),(Ask,10,10),
// (Ask,20,10),(Ask,30,10) -- submitted in one block, then cleared by a
// single CronExecute call. The feasible interval is [20,20], so the
// clearing price is 20 and the volume is 20 base: the 30/20 bids and the
// 10/20 asks fill completely, the 10 bid and the 30 ask rest unfilled.
func TestCronExecuteUniformPriceAuction(t *testing.T) {
	c := New(types.HashBytes([]byte("dex")))
	store, base := newBaseCtx()

	instRaw, err := encoding.MarshalJSON(InstantiateMsg{BaseDenom: baseDenom, QuoteDenom: quoteDenom})
	require.NoError(t, err)
	_, err = c.Instantiate(vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins()), instRaw)
	require.NoError(t, err)

	user1, user2, user3 := addr(1), addr(2), addr(3)
	user4, user5, user6 := addr(4), addr(5), addr(6)

	submit(t, c, base, user1, Bid, "30", 10, quoteDenom, 300)
	submit(t, c, base, user2, Bid, "20", 10, quoteDenom, 200)
	submit(t, c, base, user3, Bid, "10", 10, quoteDenom, 100)
	submit(t, c, base, user4, Ask, "10", 10, baseDenom, 10)
	submit(t, c, base, user5, Ask, "20", 10, baseDenom, 10)
	submit(t, c, base, user6, Ask, "30", 10, baseDenom, 10)

	sudo := vm.NewSudoCtx(base)
	resp, err := c.CronExecute(sudo)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)

	refunds := map[types.Address]types.Coins{}
	for _, tr := range resp.Messages[0].Msg.Transfer.Transfers {
		refunds[tr.To] = tr.Coins
	}

	// Top bid (30) fills 10 base and is refunded (30-20)*10 = 100 quote.
	require.Zero(t, refunds[user1].AmountOf(baseDenom).Cmp(amount(10)))
	require.Zero(t, refunds[user1].AmountOf(quoteDenom).Cmp(amount(100)))

	// Bid at 20 fills 10 base at its own price: no quote refund.
	require.Zero(t, refunds[user2].AmountOf(baseDenom).Cmp(amount(10)))
	require.True(t, refunds[user2].AmountOf(quoteDenom).IsZero())

	// Bid at 10 never crosses: no refund at all.
	_, ok := refunds[user3]
	require.False(t, ok, "unfilled bid must not receive a refund")

	// Both crossed asks sell 10 base at the clearing price of 20.
	require.Zero(t, refunds[user4].AmountOf(quoteDenom).Cmp(amount(200)))
	require.Zero(t, refunds[user5].AmountOf(quoteDenom).Cmp(amount(200)))

	// Ask at 30 never crosses.
	_, ok = refunds[user6]
	require.False(t, ok, "unfilled ask must not receive a refund")

	remaining, err := ORDERS.Range(store, nil, nil, storage.Ascending)
	require.NoError(t, err)
	require.Len(t, remaining, 2, "exactly one bid and one ask should remain resting")

	byUser := map[types.Address]Order{}
	for _, e := range remaining {
		byUser[e.Value.User] = e.Value
	}
	require.Contains(t, byUser, user3)
	require.Zero(t, byUser[user3].Remaining.Cmp(amount(10)))
	require.Contains(t, byUser, user6)
	require.Zero(t, byUser[user6].Remaining.Cmp(amount(10)))
}

// TestSubmitOrderRejectsWrongDeposit checks the caller must attach exactly
// the required deposit.
func TestSubmitOrderRejectsWrongDeposit(t *testing.T) {
	c := New(types.HashBytes([]byte("dex")))
	_, base := newBaseCtx()

	instRaw, err := encoding.MarshalJSON(InstantiateMsg{BaseDenom: baseDenom, QuoteDenom: quoteDenom})
	require.NoError(t, err)
	_, err = c.Instantiate(vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins()), instRaw)
	require.NoError(t, err)

	coins, err := types.CoinsFrom(types.Coin{Denom: quoteDenom, Amount: amount(299)})
	require.NoError(t, err)
	mctx := vm.NewMutableCtx(base, addr(1), coins)
	raw, err := encoding.MarshalJSON(ExecuteMsg{SubmitOrder: &SubmitOrderMsg{
		Direction: Bid,
		Amount:    amount(10),
		Price:     price(t, "30"),
	}})
	require.NoError(t, err)

	_, err = c.Execute(mctx, raw)
	require.Error(t, err)
}

// TestCancelOrdersRefundsRemaining checks the cancel path: the
// caller is refunded the unfilled amount and the order disappears from
// both the primary map and the order-id index.
func TestCancelOrdersRefundsRemaining(t *testing.T) {
	c := New(types.HashBytes([]byte("dex")))
	store, base := newBaseCtx()

	instRaw, err := encoding.MarshalJSON(InstantiateMsg{BaseDenom: baseDenom, QuoteDenom: quoteDenom})
	require.NoError(t, err)
	_, err = c.Instantiate(vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins()), instRaw)
	require.NoError(t, err)

	user := addr(1)
	submit(t, c, base, user, Ask, "20", 10, baseDenom, 10)

	mctx := vm.NewMutableCtx(base, user, types.NewCoins())
	raw, err := encoding.MarshalJSON(ExecuteMsg{CancelOrders: &CancelOrdersMsg{OrderIDs: []uint64{0}}})
	require.NoError(t, err)
	resp, err := c.Execute(mctx, raw)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	require.Zero(t, resp.Messages[0].Msg.Transfer.Transfers[0].Coins.AmountOf(baseDenom).Cmp(amount(10)))

	remaining, err := ORDERS.Range(store, nil, nil, storage.Ascending)
	require.NoError(t, err)
	require.Empty(t, remaining)
}
