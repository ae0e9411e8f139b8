// Package bank implements the protocol-designated bank contract: a plain
// balances ledger moved only through the kernel's bank_execute sudo call
// and read through bank_query, the two privileged entry points cfg.Bank
// names (app/message.go, app/app.go). Per-denom supplies are tracked
// alongside the per-account balances so a supply query never scans.
package bank

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

// BalanceKey addresses one (holder, denom) balance entry.
type BalanceKey struct {
	Address types.Address
	Denom   string
}

var balanceKeyCodec = storage.KeyCodec[BalanceKey]{
	Encode: func(k BalanceKey) []byte {
		return keys.Compose(k.Address.Bytes(), []byte(k.Denom))
	},
	Decode: func(raw []byte) (BalanceKey, error) {
		elems, err := keys.Split(raw, 2)
		if err != nil {
			return BalanceKey{}, err
		}
		addr, err := keys.AddressCodec().Decode(elems[0])
		if err != nil {
			return BalanceKey{}, err
		}
		return BalanceKey{Address: addr, Denom: string(elems[1])}, nil
	},
}

var (
	// BALANCES holds every non-zero (holder, denom) balance. A missing entry means a zero balance, never a stored zero,
	// matching types.Coins' own never-store-a-zero-entry rule.
	BALANCES = storage.NewMap[BalanceKey, types.Uint]([]byte("balance/"), balanceKeyCodec)

	// SUPPLIES tracks total circulating supply per denom, set from the
	// genesis balances at Instantiate; BankExecute moves balances without
	// changing it (the supply/supplies queries).
	SUPPLIES = storage.NewMap[string, types.Uint]([]byte("supply/"), keys.StringCodec())
)

// Contract implements the bank's BankExecutor/BankQuerier entry points
// (vm/contract.go), plus Instantiate to seed genesis balances.
type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

// BalanceEntry is one genesis-seeded (holder, coins) pair.
type BalanceEntry struct {
	Address types.Address `json:"address"`
	Coins   types.Coins   `json:"coins"`
}

// InstantiateMsg seeds the initial balances and derived supplies (the genesis allocation).
type InstantiateMsg struct {
	Balances []BalanceEntry `json:"balances,omitempty"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg InstantiateMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "bank: decode instantiate msg", err)
	}
	for _, entry := range msg.Balances {
		for _, coin := range entry.Coins.ToSlice() {
			if err := credit(ctx.Store(), entry.Address, coin.Denom, coin.Amount); err != nil {
				return types.Response{}, err
			}
			if err := mintSupply(ctx.Store(), coin.Denom, coin.Amount); err != nil {
				return types.Response{}, err
			}
		}
	}
	return types.Response{}, nil
}

// BankExecute moves coins from msg.From to each transfer's recipient
//. msg.From is trusted as-is: the kernel is the only
// caller of bank_execute and always fills it in itself, never from
// end-user input: app/message.go's execTransfer uses the authenticated
// caller, and forceTransfer uses the account the fee pipeline names.
func (c *Contract) BankExecute(ctx vm.SudoCtx, raw json.RawMessage) (types.Response, error) {
	var msg types.BankExecuteMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "bank: decode bank_execute msg", err)
	}

	var sentEvents []map[string]interface{}
	for _, t := range msg.Transfers {
		for _, coin := range t.Coins.ToSlice() {
			if err := debit(ctx.Store(), msg.From, coin.Denom, coin.Amount); err != nil {
				return types.Response{}, err
			}
			if err := credit(ctx.Store(), t.To, coin.Denom, coin.Amount); err != nil {
				return types.Response{}, err
			}
			sentEvents = append(sentEvents, map[string]interface{}{
				"user":   msg.From,
				"to":     t.To,
				"denom":  coin.Denom,
				"amount": coin.Amount.String(),
			})
		}
	}
	return types.Response{Events: sentEvents}, nil
}

// BankQuery answers the four read-only shapes bank_query serves: a single balance, an address's paginated balances, a denom's
// supply, or all supplies paginated.
func (c *Contract) BankQuery(ctx vm.ImmutableCtx, query types.BankQuery) (types.BankQueryResponse, error) {
	switch {
	case query.Balance != nil:
		amount, err := loadBalance(ctx.Store(), query.Balance.Address, query.Balance.Denom)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		return types.BankQueryResponse{Balance: &types.Coin{Denom: query.Balance.Denom, Amount: amount}}, nil

	case query.Balances != nil:
		entries, err := BALANCES.Prefix(ctx.Store(), rawAddressPrefix(query.Balances.Address), storage.Ascending)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		coinList := make([]types.Coin, 0, len(entries))
		for _, e := range entries {
			if query.Balances.StartAfter != "" && e.Key.Denom <= query.Balances.StartAfter {
				continue
			}
			coinList = append(coinList, types.Coin{Denom: e.Key.Denom, Amount: e.Value})
			if query.Balances.Limit > 0 && uint32(len(coinList)) >= query.Balances.Limit {
				break
			}
		}
		coins, err := types.CoinsFrom(coinList...)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		return types.BankQueryResponse{Balances: &coins}, nil

	case query.Supply != nil:
		amount, ok, err := SUPPLIES.MayLoad(ctx.Store(), query.Supply.Denom)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		if !ok {
			amount = gmath.Zero[gmath.U256]()
		}
		return types.BankQueryResponse{Supply: &types.Coin{Denom: query.Supply.Denom, Amount: amount}}, nil

	case query.Supplies != nil:
		var min *string
		if query.Supplies.StartAfter != "" {
			s := query.Supplies.StartAfter
			min = &s
		}
		entries, err := SUPPLIES.Range(ctx.Store(), min, nil, storage.Ascending)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		coinList := make([]types.Coin, 0, len(entries))
		for _, e := range entries {
			if min != nil && e.Key == *min {
				continue
			}
			coinList = append(coinList, types.Coin{Denom: e.Key, Amount: e.Value})
			if query.Supplies.Limit > 0 && uint32(len(coinList)) >= query.Supplies.Limit {
				break
			}
		}
		coins, err := types.CoinsFrom(coinList...)
		if err != nil {
			return types.BankQueryResponse{}, err
		}
		return types.BankQueryResponse{Supplies: &coins}, nil

	default:
		return types.BankQueryResponse{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "bank: empty query")
	}
}

func loadBalance(store storage.Backend, addr types.Address, denom string) (types.Uint, error) {
	v, ok, err := BALANCES.MayLoad(store, BalanceKey{Address: addr, Denom: denom})
	if err != nil {
		return types.Uint{}, err
	}
	if !ok {
		return gmath.Zero[gmath.U256](), nil
	}
	return v, nil
}

func debit(store storage.Backend, addr types.Address, denom string, amount types.Uint) error {
	bal, err := loadBalance(store, addr, denom)
	if err != nil {
		return err
	}
	next, err := bal.CheckedSub(amount)
	if err != nil {
		return grugerrors.New(grugerrors.ERR_OVERFLOW, "bank: insufficient balance of %s held by %s", denom, addr)
	}
	key := BalanceKey{Address: addr, Denom: denom}
	if next.IsZero() {
		BALANCES.Remove(store, key)
		return nil
	}
	return BALANCES.Save(store, key, next)
}

func credit(store storage.Backend, addr types.Address, denom string, amount types.Uint) error {
	bal, err := loadBalance(store, addr, denom)
	if err != nil {
		return err
	}
	next, err := bal.CheckedAdd(amount)
	if err != nil {
		return err
	}
	return BALANCES.Save(store, BalanceKey{Address: addr, Denom: denom}, next)
}

func mintSupply(store storage.Backend, denom string, amount types.Uint) error {
	cur, ok, err := SUPPLIES.MayLoad(store, denom)
	if err != nil {
		return err
	}
	if !ok {
		cur = gmath.Zero[gmath.U256]()
	}
	next, err := cur.CheckedAdd(amount)
	if err != nil {
		return err
	}
	return SUPPLIES.Save(store, denom, next)
}

// rawAddressPrefix is the namespace-relative byte prefix every BALANCES
// key for addr begins with (the composite-key prefix-scan
// trick): a 2-byte big-endian length (always 20, since Address is fixed
// width) followed by the address itself, matching how keys.Compose
// length-prefixes every non-final element.
func rawAddressPrefix(addr types.Address) []byte {
	full := balanceKeyCodec.Encode(BalanceKey{Address: addr, Denom: ""})
	return full // denom "" contributes no trailing bytes, so this is exactly the address's length-prefixed form
}
