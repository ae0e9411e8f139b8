// Package dex implements the call-auction DEX: the hardest end-user of
// the storage, numerics and VM primitives. Each deployed instance trades
// a single (base, quote) pair and matches the whole book on every cron
// tick; multi-pair support is reachable by deploying one instance per
// pair.
package dex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"sort"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/keys"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// Price is a non-negative decimal quoted in quote-per-base, fixed at 18
// fractional digits.
type Price = gmath.Dec[gmath.U256]

const pricePlaces = 18

// Direction is which side of the book an order rests on.
type Direction uint8

const (
	Bid Direction = iota
	Ask
)

func (d Direction) String() string {
	if d == Bid {
		return "bid"
	}
	return "ask"
}

func (d Direction) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "bid":
		*d = Bid
	case "ask":
		*d = Ask
	default:
		return grugerrors.New(grugerrors.ERR_PARSE, "invalid direction %q", s)
	}
	return nil
}

// OrderKey is a resting order's storage key: direction,
// price, and an order id that, for Bids, is stored bitwise-inverted so
// that plain key ordering already yields price-time priority -- an older
// bid at the same price sorts before a newer one under descending
// iteration, without a separate timestamp field.
type OrderKey struct {
	Direction Direction
	Price     Price
	StoredID  uint64
}

// Order is the value held at each OrderKey.
type Order struct {
	OrderID   uint64        `json:"order_id"` // user-facing id, pre-inversion
	User      types.Address `json:"user"`
	Amount    gmath.Uint256 `json:"amount"`
	Remaining gmath.Uint256 `json:"remaining"`
}

func priceBytes(p Price) []byte {
	var b [32]byte
	p.Raw().BigInt().FillBytes(b[:])
	return b[:]
}

func decodePriceBytes(raw []byte) (Price, error) {
	v := new(big.Int).SetBytes(raw)
	rawInt, err := gmath.CheckedFromBigInt[gmath.U256](v)
	if err != nil {
		return Price{}, err
	}
	return gmath.NewDecRaw(rawInt, pricePlaces), nil
}

// orderKeyCodec packs (direction, price, stored_id) as a fixed-width
// concatenation (1 + 32 + 8 bytes): every field has a constant width, so no
// length prefixing is needed and the byte order of the encoding tracks
// (direction, price ascending, stored_id ascending) directly.
var orderKeyCodec = storage.KeyCodec[OrderKey]{
	Encode: func(k OrderKey) []byte {
		out := make([]byte, 0, 41)
		out = append(out, byte(k.Direction))
		out = append(out, priceBytes(k.Price)...)
		var idb [8]byte
		binary.BigEndian.PutUint64(idb[:], k.StoredID)
		return append(out, idb[:]...)
	},
	Decode: func(raw []byte) (OrderKey, error) {
		if len(raw) != 41 {
			return OrderKey{}, grugerrors.New(grugerrors.ERR_SERDE, "dex: order key: want 41 bytes, got %d", len(raw))
		}
		price, err := decodePriceBytes(raw[1:33])
		if err != nil {
			return OrderKey{}, err
		}
		return OrderKey{
			Direction: Direction(raw[0]),
			Price:     price,
			StoredID:  binary.BigEndian.Uint64(raw[33:41]),
		}, nil
	},
}

// Config pins the pair this instance trades (set at instantiate time).
type Config struct {
	BaseDenom  string `json:"base_denom"`
	QuoteDenom string `json:"quote_denom"`
}

var (
	CONFIG        = storage.NewItem[Config]([]byte("cfg"))
	NEXT_ORDER_ID = storage.NewCounter([]byte("next_id"))
	ORDERS        = storage.NewMap[OrderKey, Order]([]byte("order/"), orderKeyCodec)

	// BY_ID resolves a user-facing order id to its storage key, so
	// CancelOrders doesn't need to know an order's direction or price up
	// front ("a secondary unique index on order_id").
	BY_ID = storage.NewUniqueIndex[uint64, OrderKey, Order](
		[]byte("by_id/"),
		func(o Order) uint64 { return o.OrderID },
		keys.Uint64Codec(),
		orderKeyCodec,
	)
)

// Contract implements the DEX's entry points.
type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

// InstantiateMsg pins the traded pair for this contract instance.
type InstantiateMsg struct {
	BaseDenom  string `json:"base_denom"`
	QuoteDenom string `json:"quote_denom"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg InstantiateMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "dex: decode instantiate msg", err)
	}
	if err := types.ValidateDenom(msg.BaseDenom); err != nil {
		return types.Response{}, err
	}
	if err := types.ValidateDenom(msg.QuoteDenom); err != nil {
		return types.Response{}, err
	}
	if err := CONFIG.Save(ctx.Store(), Config{BaseDenom: msg.BaseDenom, QuoteDenom: msg.QuoteDenom}); err != nil {
		return types.Response{}, err
	}
	return types.Response{}, nil
}

// ExecuteMsg is the DEX's tagged execute variant.
type ExecuteMsg struct {
	SubmitOrder  *SubmitOrderMsg  `json:"submit_order,omitempty"`
	CancelOrders *CancelOrdersMsg `json:"cancel_orders,omitempty"`
}

type SubmitOrderMsg struct {
	Direction Direction     `json:"direction"`
	Amount    gmath.Uint256 `json:"amount"`
	Price     Price         `json:"price"`
}

type CancelOrdersMsg struct {
	OrderIDs []uint64 `json:"order_ids"`
}

func (c *Contract) Execute(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg ExecuteMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "dex: decode execute msg", err)
	}
	switch {
	case msg.SubmitOrder != nil:
		return c.submitOrder(ctx, *msg.SubmitOrder)
	case msg.CancelOrders != nil:
		return c.cancelOrders(ctx, *msg.CancelOrders)
	default:
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "dex: empty execute message")
	}
}

func (c *Contract) submitOrder(ctx vm.MutableCtx, m SubmitOrderMsg) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}

	// the decoded price carries whatever scale the literal was spelled at;
	// the book compares raw values, so every resting order must share one.
	m.Price, err = m.Price.Rescale(pricePlaces)
	if err != nil {
		return types.Response{}, err
	}

	var wantDenom string
	var wantAmount gmath.Uint256
	switch m.Direction {
	case Bid:
		wantDenom = cfg.QuoteDenom
		wantAmount, err = m.Price.CheckedMulIntCeil(m.Amount)
		if err != nil {
			return types.Response{}, err
		}
	case Ask:
		wantDenom = cfg.BaseDenom
		wantAmount = m.Amount
	default:
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "dex: invalid direction")
	}

	deposit := ctx.Funds.AmountOf(wantDenom)
	if !deposit.Equal(wantAmount) {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT,
			"dex: incorrect deposit for %s order: expected %s %s, got %s", m.Direction, wantAmount, wantDenom, deposit)
	}

	rawID := NEXT_ORDER_ID.Next(ctx.Store())
	storedID := rawID
	if m.Direction == Bid {
		storedID = ^rawID
	}

	ok := OrderKey{Direction: m.Direction, Price: m.Price, StoredID: storedID}
	order := Order{OrderID: rawID, User: ctx.Sender, Amount: m.Amount, Remaining: m.Amount}
	if err := ORDERS.Save(ctx.Store(), ok, order); err != nil {
		return types.Response{}, err
	}
	if err := BY_ID.Save(ctx.Store(), ok, order); err != nil {
		return types.Response{}, err
	}

	return types.Response{Events: []map[string]interface{}{{
		"type":      "order_submitted",
		"order_id":  rawID,
		"user":      ctx.Sender,
		"direction": m.Direction,
		"price":     m.Price,
		"amount":    m.Amount,
		"deposit":   types.Coin{Denom: wantDenom, Amount: deposit},
	}}}, nil
}

func (c *Contract) cancelOrders(ctx vm.MutableCtx, m CancelOrdersMsg) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}

	refunds := types.NewCoins()
	var events []map[string]interface{}

	for _, id := range m.OrderIDs {
		ok, found, err := BY_ID.Load(ctx.Store(), id)
		if err != nil {
			return types.Response{}, err
		}
		if !found {
			return types.Response{}, grugerrors.ErrDataNotFound
		}
		order, err := ORDERS.Load(ctx.Store(), ok)
		if err != nil {
			return types.Response{}, err
		}
		if order.User != ctx.Sender {
			return types.Response{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "dex: only the order's user may cancel it")
		}

		var refundDenom string
		var refundAmount gmath.Uint256
		switch ok.Direction {
		case Bid:
			refundDenom = cfg.QuoteDenom
			refundAmount, err = ok.Price.CheckedMulIntFloor(order.Remaining)
		case Ask:
			refundDenom = cfg.BaseDenom
			refundAmount = order.Remaining
		}
		if err != nil {
			return types.Response{}, err
		}
		if err := refunds.Add(refundDenom, refundAmount); err != nil {
			return types.Response{}, err
		}

		events = append(events, map[string]interface{}{
			"type":      "order_canceled",
			"order_id":  id,
			"remaining": order.Remaining,
			"refund":    types.Coin{Denom: refundDenom, Amount: refundAmount},
		})

		ORDERS.Remove(ctx.Store(), ok)
		BY_ID.Remove(ctx.Store(), ok, order)
	}

	resp := types.Response{Events: events}
	if !refunds.IsEmpty() {
		resp.Messages = []types.SubMessage{{
			Msg: types.Message{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{
				Transfers: []types.Transfer{{To: ctx.Sender, Coins: refunds}},
			}},
			ReplyOn: types.ReplyNever,
		}}
	}
	return resp, nil
}

// CronExecute runs the uniform-price call auction over the whole book
//, implemented per
// https://motokodefi.substack.com/p/uniform-price-call-auctions-a-better
// (uniform-price clearing over a price-time-priority book).
func (c *Contract) CronExecute(ctx vm.SudoCtx) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}

	bidEntries, err := ORDERS.Prefix(ctx.Store(), []byte{byte(Bid)}, storage.Descending)
	if err != nil {
		return types.Response{}, err
	}
	askEntries, err := ORDERS.Prefix(ctx.Store(), []byte{byte(Ask)}, storage.Ascending)
	if err != nil {
		return types.Response{}, err
	}

	var (
		bi, ai               int
		bidIsNew, askIsNew   = true, true
		matchedBids          []storage.Entry[OrderKey, Order]
		matchedAsks          []storage.Entry[OrderKey, Order]
		lowerPrice, higher   Price
		haveRange            bool
	)
	bidVolume, askVolume := gmath.Zero[gmath.U256](), gmath.Zero[gmath.U256]()

	for bi < len(bidEntries) && ai < len(askEntries) {
		bidEntry := bidEntries[bi]
		askEntry := askEntries[ai]

		if bidEntry.Key.Price.Raw().LessThan(askEntry.Key.Price.Raw()) {
			break
		}

		lowerPrice, higher = askEntry.Key.Price, bidEntry.Key.Price
		haveRange = true

		if bidIsNew {
			matchedBids = append(matchedBids, bidEntry)
			bidVolume, err = bidVolume.CheckedAdd(bidEntry.Value.Remaining)
			if err != nil {
				return types.Response{}, err
			}
		}
		if askIsNew {
			matchedAsks = append(matchedAsks, askEntry)
			askVolume, err = askVolume.CheckedAdd(askEntry.Value.Remaining)
			if err != nil {
				return types.Response{}, err
			}
		}

		if !bidVolume.GreaterThan(askVolume) {
			bi++
			bidIsNew = true
		} else {
			bidIsNew = false
		}
		if !askVolume.GreaterThan(bidVolume) {
			ai++
			askIsNew = true
		} else {
			askIsNew = false
		}
	}

	if !haveRange {
		return types.Response{}, nil
	}

	clearingPrice, err := meanPrice(lowerPrice, higher)
	if err != nil {
		return types.Response{}, err
	}

	volume := bidVolume
	if askVolume.LessThan(bidVolume) {
		volume = askVolume
	}

	events := []map[string]interface{}{{
		"type":           "orders_matched",
		"base_denom":     cfg.BaseDenom,
		"quote_denom":    cfg.QuoteDenom,
		"clearing_price": clearingPrice,
		"volume":         volume,
	}}

	refunds := map[types.Address]types.Coins{}
	addRefund := func(user types.Address, denom string, amount gmath.Uint256) error {
		coins, ok := refunds[user]
		if !ok {
			coins = types.NewCoins()
		}
		if err := coins.Add(denom, amount); err != nil {
			return err
		}
		refunds[user] = coins
		return nil
	}

	// Clear the BUY orders. If the clearing price improves on a bid's own
	// price, the buyer is refunded the unused quote asset.
	remaining := volume
	for _, e := range matchedBids {
		order := e.Value
		filled := order.Remaining
		if remaining.LessThan(filled) {
			filled = remaining
		}
		order.Remaining, err = order.Remaining.CheckedSub(filled)
		if err != nil {
			return types.Response{}, err
		}
		remaining, err = remaining.CheckedSub(filled)
		if err != nil {
			return types.Response{}, err
		}
		cleared := order.Remaining.IsZero()

		priceDiff, err := e.Key.Price.CheckedSub(clearingPrice)
		if err != nil {
			return types.Response{}, err
		}
		quoteRefund, err := priceDiff.CheckedMulIntFloor(filled)
		if err != nil {
			return types.Response{}, err
		}
		if err := addRefund(order.User, cfg.BaseDenom, filled); err != nil {
			return types.Response{}, err
		}
		if !quoteRefund.IsZero() {
			if err := addRefund(order.User, cfg.QuoteDenom, quoteRefund); err != nil {
				return types.Response{}, err
			}
		}

		events = append(events, map[string]interface{}{
			"type":           "order_filled",
			"order_id":       order.OrderID,
			"clearing_price": clearingPrice,
			"filled":         filled,
			"cleared":        cleared,
		})

		if cleared {
			ORDERS.Remove(ctx.Store(), e.Key)
			BY_ID.Remove(ctx.Store(), e.Key, order)
		} else if err := ORDERS.Save(ctx.Store(), e.Key, order); err != nil {
			return types.Response{}, err
		}

		if remaining.IsZero() {
			break
		}
	}

	// Clear the SELL orders.
	remaining = volume
	for _, e := range matchedAsks {
		order := e.Value
		filled := order.Remaining
		if remaining.LessThan(filled) {
			filled = remaining
		}
		order.Remaining, err = order.Remaining.CheckedSub(filled)
		if err != nil {
			return types.Response{}, err
		}
		remaining, err = remaining.CheckedSub(filled)
		if err != nil {
			return types.Response{}, err
		}
		cleared := order.Remaining.IsZero()

		quoteProceeds, err := clearingPrice.CheckedMulIntFloor(filled)
		if err != nil {
			return types.Response{}, err
		}
		if err := addRefund(order.User, cfg.QuoteDenom, quoteProceeds); err != nil {
			return types.Response{}, err
		}

		events = append(events, map[string]interface{}{
			"type":           "order_filled",
			"order_id":       order.OrderID,
			"clearing_price": clearingPrice,
			"filled":         filled,
			"cleared":        cleared,
		})

		if cleared {
			ORDERS.Remove(ctx.Store(), e.Key)
			BY_ID.Remove(ctx.Store(), e.Key, order)
		} else if err := ORDERS.Save(ctx.Store(), e.Key, order); err != nil {
			return types.Response{}, err
		}

		if remaining.IsZero() {
			break
		}
	}

	resp := types.Response{Events: events}
	if len(refunds) > 0 {
		// map iteration order is not deterministic; the batch transfer's
		// payload bytes feed the flat event list every node must agree on.
		users := make([]types.Address, 0, len(refunds))
		for user := range refunds {
			users = append(users, user)
		}
		sort.Slice(users, func(i, j int) bool {
			return bytes.Compare(users[i].Bytes(), users[j].Bytes()) < 0
		})
		transfers := make([]types.Transfer, 0, len(users))
		for _, user := range users {
			transfers = append(transfers, types.Transfer{To: user, Coins: refunds[user]})
		}
		resp.Messages = []types.SubMessage{{
			Msg:     types.Message{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{Transfers: transfers}},
			ReplyOn: types.ReplyNever,
		}}
	}
	return resp, nil
}

// meanPrice computes the midpoint of [lower, higher] via gmath.Rational's
// Mean, the facility purpose-built for the DEX's clearing-price arithmetic
//, rather than a raw Dec add-then-halve.
func meanPrice(lower, higher Price) (Price, error) {
	lowerR := gmath.Rational{Num: gmath.NewInt[gmath.I512](lower.Raw().BigInt()), Den: gmath.One[gmath.I512]()}
	higherR := gmath.Rational{Num: gmath.NewInt[gmath.I512](higher.Raw().BigInt()), Den: gmath.One[gmath.I512]()}

	mean, err := gmath.Mean(lowerR, higherR)
	if err != nil {
		return Price{}, err
	}
	rawI512, err := mean.FloorDiv()
	if err != nil {
		return Price{}, err
	}
	raw, err := gmath.CheckedFromBigInt[gmath.U256](rawI512.BigInt())
	if err != nil {
		return Price{}, err
	}
	return gmath.NewDecRaw(raw, pricePlaces), nil
}
