package oracle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
	"github.com/stretchr/testify/require"
)

func price(t *testing.T, s string) Price {
	t.Helper()
	p, err := gmath.ParseDec[gmath.U256](s, pricePlaces)
	require.NoError(t, err)
	return p
}

func newCtx(owner types.Address) (storage.Backend, vm.MutableCtx) {
	b := storage.NewMemBackend()
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	return b, vm.NewMutableCtx(base, owner, types.NewCoins())
}

func feed(t *testing.T, denom, priceStr string, publishTime uint64) json.RawMessage {
	t.Helper()
	raw, err := encoding.MarshalJSON(ExecuteMsg{FeedPrices: []Feed{{
		Denom: denom, Price: price(t, priceStr), PublishTime: publishTime,
	}}})
	require.NoError(t, err)
	return raw
}

// TestFeedPricesIgnoresStaleVaa drives the out-of-order case: feed VAA1
// (publish_time=t1, price=p1) then VAA2 (publish_time=t2<t1, price=p2).
// The stored price and timestamp must remain (p1, t1): the older feed is
// silently ignored, not rejected with an error.
func TestFeedPricesIgnoresStaleVaa(t *testing.T) {
	owner := types.Address{}
	store, ctx := newCtx(owner)

	c := New(types.HashBytes([]byte("oracle")))
	instRaw, err := encoding.MarshalJSON(InstantiateMsg{Owner: owner})
	require.NoError(t, err)
	_, err = c.Instantiate(ctx, instRaw)
	require.NoError(t, err)

	_, err = c.Execute(ctx, feed(t, "wbtc", "68645.78657006", 1730804420))
	require.NoError(t, err)

	_, err = c.Execute(ctx, feed(t, "wbtc", "71319.50295749", 1730209108))
	require.NoError(t, err, "a stale feed must be ignored, not errored")

	got, err := PRICES.Load(store, "wbtc")
	require.NoError(t, err)
	require.Zero(t, got.Price.Raw().Cmp(price(t, "68645.78657006").Raw()))
	require.Equal(t, uint64(1730804420), got.PublishTime)
}

// TestFeedPricesAcceptsNewerVaa checks the mirror case: a strictly newer
// publish_time replaces the stored price.
func TestFeedPricesAcceptsNewerVaa(t *testing.T) {
	owner := types.Address{}
	store, ctx := newCtx(owner)

	c := New(types.HashBytes([]byte("oracle")))
	instRaw, err := encoding.MarshalJSON(InstantiateMsg{Owner: owner})
	require.NoError(t, err)
	_, err = c.Instantiate(ctx, instRaw)
	require.NoError(t, err)

	_, err = c.Execute(ctx, feed(t, "wbtc", "71319.50295749", 1730209108))
	require.NoError(t, err)

	_, err = c.Execute(ctx, feed(t, "wbtc", "68645.78657006", 1730804420))
	require.NoError(t, err)

	got, err := PRICES.Load(store, "wbtc")
	require.NoError(t, err)
	require.Zero(t, got.Price.Raw().Cmp(price(t, "68645.78657006").Raw()))
	require.Equal(t, uint64(1730804420), got.PublishTime)
}

// TestExecuteRejectsNonOwner checks only the configured owner may feed
// prices.
func TestExecuteRejectsNonOwner(t *testing.T) {
	owner := types.Address{}
	store, _ := newCtx(owner)

	c := New(types.HashBytes([]byte("oracle")))
	instRaw, err := encoding.MarshalJSON(InstantiateMsg{Owner: owner})
	require.NoError(t, err)
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, store, gas, nil, 0)
	ownerCtx := vm.NewMutableCtx(base, owner, types.NewCoins())
	_, err = c.Instantiate(ownerCtx, instRaw)
	require.NoError(t, err)

	impostor := types.Address{9}
	impostorCtx := vm.NewMutableCtx(base, impostor, types.NewCoins())
	_, err = c.Execute(impostorCtx, feed(t, "wbtc", "1", 1))
	require.Error(t, err)
}
