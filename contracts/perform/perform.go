// Package perform implements a minimal native contract whose sole purpose
// is exercising the kernel's submessage + reply recursion in tests: each
// Execute call appends a value to a log, optionally fails outright, and
// optionally asks the kernel to execute one more Execute call against
// itself with a caller-chosen reply_on (see app/message.go's runResponse
// for the exact recursion this drives).
package perform

import (
	"encoding/json"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// LOG records every value an Execute or Reply call has saved, in order, so
// a test can assert on the exact sequence a scenario produces.
var LOG = storage.NewItem[[]string]([]byte("log"))

type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

// Next describes the one submessage a Msg may chain: what to execute next,
// and when the kernel should invoke this contract's reply entry point for
// its outcome.
type Next struct {
	Msg          Msg           `json:"msg"`
	ReplyOn      types.ReplyOn `json:"reply_on"`
	ReplyPayload string        `json:"reply_payload,omitempty"`
}

// Msg is both the execute payload and the reply payload this contract
// understands: save a value, or fail outright, optionally chaining one
// more call through Next.
type Msg struct {
	Save string `json:"save,omitempty"`
	Fail string `json:"fail,omitempty"`
	Next *Next  `json:"next,omitempty"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	return types.Response{}, LOG.Save(ctx.Store(), nil)
}

func (c *Contract) Execute(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg Msg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "perform: decode execute msg", err)
	}
	return run(ctx.Store(), ctx.Contract, msg)
}

// Reply appends the submessage result's payload to the log, regardless of
// whether the submessage it answers for succeeded or failed -- the payload
// itself, not the outcome, is what a caller asserts on (the rollback
// C's reply_on=Success(Ok("1.1")) expects "1.1" in the final set, not a
// derived tag).
func (c *Contract) Reply(ctx vm.SudoCtx, payload []byte, result vm.SubMsgResult) (types.Response, error) {
	log, err := LOG.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	log = append(log, string(payload))
	if err := LOG.Save(ctx.Store(), log); err != nil {
		return types.Response{}, err
	}
	return types.Response{}, nil
}

// run is the logic Execute and (indirectly, via a chained Next) every
// submessage dispatched back into this contract's execute entry point
// shares: fail if asked; otherwise save the value and, if Next is set,
// chain one more message.
func run(store storage.Backend, self types.Address, msg Msg) (types.Response, error) {
	if msg.Fail != "" {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "perform: %s", msg.Fail)
	}

	log, err := LOG.Load(store)
	if err != nil {
		return types.Response{}, err
	}
	log = append(log, msg.Save)
	if err := LOG.Save(store, log); err != nil {
		return types.Response{}, err
	}

	if msg.Next == nil {
		return types.Response{}, nil
	}

	innerRaw, err := encoding.MarshalJSON(msg.Next.Msg)
	if err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "perform: encode chained msg", err)
	}
	sub := types.SubMessage{
		Msg: types.Message{
			Kind: types.MsgExecute,
			Execute: &types.ExecuteMsg{
				Contract: self,
				Msg:      innerRaw,
				Funds:    types.NewCoins(),
			},
		},
		ReplyOn: msg.Next.ReplyOn,
		Payload: []byte(msg.Next.ReplyPayload),
	}
	return types.Response{Messages: []types.SubMessage{sub}}, nil
}
