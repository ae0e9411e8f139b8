// Package oracle implements a minimal price-feed contract, one of the
// framework's financial primitives. Pyth VAA parsing, EMA computation,
// and per-asset precision tables are out of scope here: the package keeps
// the one load-bearing invariant -- publish_time ordering -- and treats a
// feed's (price, publish_time) as already-verified input, the way a
// VAA-decoding layer in front of it would hand it off.
package oracle

import (
	"encoding/json"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/keys"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// Price mirrors contracts/dex's fixed-precision decimal alias.
type Price = gmath.Dec[gmath.U256]

const pricePlaces = 18

// PriceFeed is what's stored per denom: the last-accepted price and the
// publish time it was reported at.
type PriceFeed struct {
	Price       Price  `json:"price"`
	PublishTime uint64 `json:"publish_time"`
}

var PRICES = storage.NewMap[string, PriceFeed]([]byte("prices"), keys.StringCodec())

type Config struct {
	Owner types.Address `json:"owner"`
}

var CONFIG = storage.NewItem[Config]([]byte("cfg"))

type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

type InstantiateMsg struct {
	Owner types.Address `json:"owner"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg InstantiateMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "oracle: decode instantiate msg", err)
	}
	return types.Response{}, CONFIG.Save(ctx.Store(), Config{Owner: msg.Owner})
}

// Feed is one denom's reported price, the native-VM analogue of a decoded
// Pyth VAA.
type Feed struct {
	Denom       string `json:"denom"`
	Price       Price  `json:"price"`
	PublishTime uint64 `json:"publish_time"`
}

// ExecuteMsg is the single operation this contract exposes: push one or
// more feeds (dango_types::oracle::ExecuteMsg::FeedPrices, here flattened
// to a single variant since this package has no other execute messages).
type ExecuteMsg struct {
	FeedPrices []Feed `json:"feed_prices"`
}

// Execute applies each feed in order, silently ignoring any whose
// publish_time is not strictly newer than what's already stored: the
// older VAA is silently ignored without erroring.
func (c *Contract) Execute(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	if ctx.Sender != cfg.Owner {
		return types.Response{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "oracle: only the owner may feed prices")
	}

	var msg ExecuteMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "oracle: decode execute msg", err)
	}

	for _, feed := range msg.FeedPrices {
		// pin every stored price to one scale, whatever scale the
		// feed's literal was spelled at.
		price, err := feed.Price.Rescale(pricePlaces)
		if err != nil {
			return types.Response{}, err
		}
		current, ok, err := PRICES.MayLoad(ctx.Store(), feed.Denom)
		if err != nil {
			return types.Response{}, err
		}
		if ok && feed.PublishTime <= current.PublishTime {
			continue
		}
		if err := PRICES.Save(ctx.Store(), feed.Denom, PriceFeed{Price: price, PublishTime: feed.PublishTime}); err != nil {
			return types.Response{}, err
		}
	}
	return types.Response{}, nil
}

// QueryPriceReq asks for a single denom's last-accepted feed.
type QueryPriceReq struct {
	Denom string `json:"denom"`
}

type QueryMsg struct {
	Price *QueryPriceReq `json:"price,omitempty"`
}

func (c *Contract) Query(ctx vm.ImmutableCtx, raw json.RawMessage) (interface{}, error) {
	var msg QueryMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return nil, grugerrors.New(grugerrors.ERR_SERDE, "oracle: decode query msg", err)
	}
	if msg.Price == nil {
		return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "oracle: unsupported query")
	}
	return PRICES.Load(ctx.Store(), msg.Price.Denom)
}
