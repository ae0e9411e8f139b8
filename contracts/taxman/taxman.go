// Package taxman implements a minimal protocol-designated fee contract
// (the withhold_fee/finalize_fee pair): a flat gas-price schedule in a
// single fee denom. Both entry points report the coins to move via
// Response.Data rather than moving them directly -- the contract can read
// the tx sender (ctx.Tx.Sender) but cannot move the sender's coins itself,
// so the kernel's forceTransfer (app/message.go, called from runTx in
// app/tx.go) performs the actual bank_execute call.
package taxman

import (
	"encoding/json"
	"math/big"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// Rate is the decimal gas price, quoted in FeeDenom per unit gas.
type Rate = gmath.Dec[gmath.U256]

// Config pins the fee denom and flat gas price (set at instantiate time).
type Config struct {
	FeeDenom string `json:"fee_denom"`
	FeeRate  Rate   `json:"fee_rate"`
}

var CONFIG = storage.NewItem[Config]([]byte("cfg"))

// Contract implements the taxman's fee-withholding entry points.
type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

type InstantiateMsg struct {
	Config Config `json:"config"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg InstantiateMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "taxman: decode instantiate msg", err)
	}
	if err := types.ValidateDenom(msg.Config.FeeDenom); err != nil {
		return types.Response{}, err
	}
	return types.Response{}, CONFIG.Save(ctx.Store(), msg.Config)
}

func gasToInt(gas uint64) gmath.Int[gmath.U256] {
	return gmath.NewInt[gmath.U256](new(big.Int).SetUint64(gas))
}

func (cfg Config) fee(gas uint64) (types.Uint, error) {
	return cfg.FeeRate.CheckedMulIntCeil(gasToInt(gas))
}

// WithholdFee reports the worst-case fee for the tx's declared gas_limit
// so the kernel can reserve it before any message runs; if the sender
// can't cover it, the tx aborts outright.
func (c *Contract) WithholdFee(ctx vm.AuthCtx) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	amount, err := cfg.fee(ctx.Tx.GasLimit)
	if err != nil {
		return types.Response{}, err
	}
	coins, err := types.CoinsFrom(types.Coin{Denom: cfg.FeeDenom, Amount: amount})
	if err != nil {
		return types.Response{}, err
	}
	data, err := encoding.MarshalJSON(coins)
	if err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "taxman: encode withheld coins", err)
	}
	return types.Response{Data: data}, nil
}

// FinalizeFee reports the refund owed to the sender once actual gas use
// is known: the difference between the gas_limit-priced fee withheld up
// front and the gas_used-priced actual cost.
func (c *Contract) FinalizeFee(ctx vm.AuthCtx, gasUsed uint64) (types.Response, error) {
	cfg, err := CONFIG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	withheld, err := cfg.fee(ctx.Tx.GasLimit)
	if err != nil {
		return types.Response{}, err
	}
	actual, err := cfg.fee(gasUsed)
	if err != nil {
		return types.Response{}, err
	}
	if !withheld.GreaterThan(actual) {
		return types.Response{}, nil
	}
	refund, err := withheld.CheckedSub(actual)
	if err != nil {
		return types.Response{}, err
	}
	coins, err := types.CoinsFrom(types.Coin{Denom: cfg.FeeDenom, Amount: refund})
	if err != nil {
		return types.Response{}, err
	}
	data, err := encoding.MarshalJSON(coins)
	if err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "taxman: encode refund coins", err)
	}
	return types.Response{Data: data}, nil
}
