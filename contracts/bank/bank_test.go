package bank

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

const udenom = "udenom"

func amt(v int64) types.Uint {
	return gmath.NewInt[gmath.U256](big.NewInt(v))
}

func newCtx(mutable bool) (storage.Backend, vm.ImmutableCtx) {
	b := storage.NewMemBackend()
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	return b, base
}

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestInstantiateSeedsBalancesAndSupply(t *testing.T) {
	c := New(types.HashBytes([]byte("bank")))
	_, base := newCtx(true)
	mctx := vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins())

	coins, err := types.CoinsFrom(types.Coin{Denom: udenom, Amount: amt(500)})
	require.NoError(t, err)
	raw, err := encoding.MarshalJSON(InstantiateMsg{Balances: []BalanceEntry{{Address: addr(1), Coins: coins}}})
	require.NoError(t, err)

	_, err = c.Instantiate(mctx, raw)
	require.NoError(t, err)

	bal, err := loadBalance(mctx.Store(), addr(1), udenom)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(amt(500)))

	supply, ok, err := SUPPLIES.MayLoad(mctx.Store(), udenom)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, supply.Cmp(amt(500)))
}

func TestBankExecuteMovesCoinsBetweenBalances(t *testing.T) {
	c := New(types.HashBytes([]byte("bank")))
	_, base := newCtx(true)
	mctx := vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins())
	sudo := vm.NewSudoCtx(base)

	seedCoins, err := types.CoinsFrom(types.Coin{Denom: udenom, Amount: amt(1000)})
	require.NoError(t, err)
	instRaw, err := encoding.MarshalJSON(InstantiateMsg{Balances: []BalanceEntry{{Address: addr(1), Coins: seedCoins}}})
	require.NoError(t, err)
	_, err = c.Instantiate(mctx, instRaw)
	require.NoError(t, err)

	transferCoins, err := types.CoinsFrom(types.Coin{Denom: udenom, Amount: amt(300)})
	require.NoError(t, err)
	execRaw, err := encoding.MarshalJSON(types.BankExecuteMsg{
		From:      addr(1),
		Transfers: []types.Transfer{{To: addr(2), Coins: transferCoins}},
	})
	require.NoError(t, err)

	_, err = c.BankExecute(sudo, execRaw)
	require.NoError(t, err)

	from, err := loadBalance(sudo.Store(), addr(1), udenom)
	require.NoError(t, err)
	require.Zero(t, from.Cmp(amt(700)))

	to, err := loadBalance(sudo.Store(), addr(2), udenom)
	require.NoError(t, err)
	require.Zero(t, to.Cmp(amt(300)))
}

func TestBankExecuteRejectsInsufficientBalance(t *testing.T) {
	c := New(types.HashBytes([]byte("bank")))
	_, base := newCtx(true)
	sudo := vm.NewSudoCtx(base)

	transferCoins, err := types.CoinsFrom(types.Coin{Denom: udenom, Amount: amt(1)})
	require.NoError(t, err)
	execRaw, err := encoding.MarshalJSON(types.BankExecuteMsg{
		From:      addr(1),
		Transfers: []types.Transfer{{To: addr(2), Coins: transferCoins}},
	})
	require.NoError(t, err)

	_, err = c.BankExecute(sudo, execRaw)
	require.Error(t, err)
}

func TestDebitRemovesZeroBalanceEntry(t *testing.T) {
	_, base := newCtx(true)
	store := vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins()).Store()

	require.NoError(t, credit(store, addr(1), udenom, amt(50)))
	require.NoError(t, debit(store, addr(1), udenom, amt(50)))

	_, ok, err := BALANCES.MayLoad(store, BalanceKey{Address: addr(1), Denom: udenom})
	require.NoError(t, err)
	require.False(t, ok, "a balance drained to zero must not leave a stored entry")
}

func TestBankQueryBalanceAndSupply(t *testing.T) {
	c := New(types.HashBytes([]byte("bank")))
	_, base := newCtx(true)
	mctx := vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins())

	seedCoins, err := types.CoinsFrom(types.Coin{Denom: udenom, Amount: amt(42)})
	require.NoError(t, err)
	instRaw, err := encoding.MarshalJSON(InstantiateMsg{Balances: []BalanceEntry{{Address: addr(1), Coins: seedCoins}}})
	require.NoError(t, err)
	_, err = c.Instantiate(mctx, instRaw)
	require.NoError(t, err)

	resp, err := c.BankQuery(mctx.ImmutableCtx, types.BankQuery{Balance: &types.QueryBalanceReq{Address: addr(1), Denom: udenom}})
	require.NoError(t, err)
	require.NotNil(t, resp.Balance)
	require.Zero(t, resp.Balance.Amount.Cmp(amt(42)))

	supResp, err := c.BankQuery(mctx.ImmutableCtx, types.BankQuery{Supply: &types.QuerySupplyReq{Denom: udenom}})
	require.NoError(t, err)
	require.NotNil(t, supResp.Supply)
	require.Zero(t, supResp.Supply.Amount.Cmp(amt(42)))

	zeroResp, err := c.BankQuery(mctx.ImmutableCtx, types.BankQuery{Balance: &types.QueryBalanceReq{Address: addr(9), Denom: udenom}})
	require.NoError(t, err)
	require.True(t, zeroResp.Balance.Amount.IsZero())
}
