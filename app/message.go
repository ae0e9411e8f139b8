package app

import (
	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/events"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// executeMessage runs a single top-level or nested Message (the "message execution"), returning the Event describing it and a
// non-nil error if the call point itself, or an unhandled submessage
// underneath it, failed.
// executeMessage's data return is the contract response's Data payload
// (empty for message kinds that don't invoke a VM entry point directly),
// used to build the SubMsgResult a reply observes.
func (a *App) executeMessage(block types.BlockInfo, sender types.Address, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, msg types.Message) (events.Event, []byte, error) {
	switch msg.Kind {
	case types.MsgConfigure:
		evt, err := a.execConfigure(sender, overlay, msg.Configure)
		return evt, nil, err
	case types.MsgUpload:
		evt, err := a.execUpload(sender, overlay, msg.Upload)
		return evt, nil, err
	case types.MsgTransfer:
		evt, err := a.execTransfer(block, sender, overlay, gas, depth, txIdx, next, msg.Transfer)
		return evt, nil, err
	case types.MsgInstantiate:
		return a.execInstantiate(block, sender, overlay, gas, depth, txIdx, next, msg.Instantiate)
	case types.MsgExecute:
		return a.execExecute(block, sender, overlay, gas, depth, txIdx, next, msg.Execute)
	case types.MsgMigrate:
		return a.execMigrate(block, sender, overlay, gas, depth, txIdx, next, msg.Migrate)
	default:
		return events.Event{}, nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "unknown message kind %q", msg.Kind)
	}
}

func (a *App) execConfigure(sender types.Address, overlay *storage.Buffer, m *types.ConfigureMsg) (events.Event, error) {
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return events.Event{}, err
	}
	if cfg.Owner != sender {
		return events.Event{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "only the owner may configure")
	}
	if m.NewConfig != nil {
		if err := CONFIG.Save(overlay, *m.NewConfig); err != nil {
			return events.Event{}, err
		}
	}
	if m.NewAppConfig != nil {
		if err := APP_CONFIG.Save(overlay, m.NewAppConfig); err != nil {
			return events.Event{}, err
		}
	}
	return events.Event{Kind: events.KindConfigure, Sender: sender}, nil
}

func (a *App) execUpload(sender types.Address, overlay *storage.Buffer, m *types.UploadMsg) (events.Event, error) {
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return events.Event{}, err
	}
	if !cfg.Permissions.Upload.Allows(sender) {
		return events.Event{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "sender may not upload code")
	}
	hash := types.HashBytes(m.Code)
	if !CODES.Has(overlay, hash) {
		if err := CODES.Save(overlay, hash, types.CodeEntry{Content: m.Code, RefCount: 0}); err != nil {
			return events.Event{}, err
		}
	}
	return events.Event{Kind: events.KindUpload, Sender: sender, CodeHash: hash}, nil
}

func (a *App) execInstantiate(block types.BlockInfo, sender types.Address, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, m *types.InstantiateMsg) (events.Event, []byte, error) {
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return events.Event{}, nil, err
	}
	if !cfg.Permissions.Instantiate.Allows(sender) {
		return events.Event{}, nil, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "sender may not instantiate contracts")
	}

	addr := types.DeriveContractAddress(sender, m.CodeHash, m.Salt)
	if CONTRACTS.Has(overlay, addr) {
		return events.Event{}, nil, grugerrors.New(grugerrors.ERR_ALREADY_EXISTS, "contract %s already instantiated", addr)
	}

	code, err := CODES.Load(overlay, m.CodeHash)
	if err != nil {
		return events.Event{}, nil, err
	}
	code.RefCount++
	if err := CODES.Save(overlay, m.CodeHash, code); err != nil {
		return events.Event{}, nil, err
	}
	if err := CONTRACTS.Save(overlay, addr, types.ContractInfo{CodeHash: m.CodeHash, Label: m.Label, Admin: m.Admin}); err != nil {
		return events.Event{}, nil, err
	}

	evt := events.Event{Kind: events.KindInstantiate, Sender: sender, Contract: addr, CodeHash: m.CodeHash, Label: m.Label, Admin: m.Admin, Funds: m.Funds, Msg: m.Msg}

	ctx := a.mutableCtx(addr, sender, m.Funds, block, overlay, gas, depth)
	resp, err := a.VM.Instantiate(m.CodeHash, ctx, m.Msg)
	if err != nil {
		return evt, nil, err
	}
	guest, err := a.runResponse(addr, "instantiate", resp, block, overlay, gas, depth, txIdx, next)
	evt.Guest = &guest
	return evt, resp.Data, err
}

func (a *App) execExecute(block types.BlockInfo, sender types.Address, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, m *types.ExecuteMsg) (events.Event, []byte, error) {
	info, err := CONTRACTS.Load(overlay, m.Contract)
	if err != nil {
		return events.Event{}, nil, err
	}
	evt := events.Event{Kind: events.KindExecute, Sender: sender, Contract: m.Contract, Funds: m.Funds, Msg: m.Msg}

	ctx := a.mutableCtx(m.Contract, sender, m.Funds, block, overlay, gas, depth)
	resp, err := a.VM.Execute(info.CodeHash, ctx, m.Msg)
	if err != nil {
		return evt, nil, err
	}
	guest, err := a.runResponse(m.Contract, "execute", resp, block, overlay, gas, depth, txIdx, next)
	evt.Guest = &guest
	return evt, resp.Data, err
}

func (a *App) execMigrate(block types.BlockInfo, sender types.Address, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, m *types.MigrateMsg) (events.Event, []byte, error) {
	info, err := CONTRACTS.Load(overlay, m.Contract)
	if err != nil {
		return events.Event{}, nil, err
	}
	if info.Admin == nil || *info.Admin != sender {
		return events.Event{}, nil, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "only the admin may migrate %s", m.Contract)
	}
	oldHash := info.CodeHash
	info.CodeHash = m.NewCodeHash
	if err := CONTRACTS.Save(overlay, m.Contract, info); err != nil {
		return events.Event{}, nil, err
	}

	newCode, err := CODES.Load(overlay, m.NewCodeHash)
	if err != nil {
		return events.Event{}, nil, err
	}
	newCode.RefCount++
	if err := CODES.Save(overlay, m.NewCodeHash, newCode); err != nil {
		return events.Event{}, nil, err
	}
	if oldCode, ok, lErr := CODES.MayLoad(overlay, oldHash); lErr == nil && ok {
		if oldCode.RefCount > 0 {
			oldCode.RefCount--
		}
		if oldCode.RefCount == 0 {
			CODES.Remove(overlay, oldHash)
		} else if err := CODES.Save(overlay, oldHash, oldCode); err != nil {
			return events.Event{}, nil, err
		}
	}

	evt := events.Event{Kind: events.KindMigrate, Sender: sender, Contract: m.Contract, OldCodeHash: oldHash, NewCodeHash: m.NewCodeHash, Msg: m.Msg}

	ctx := a.mutableCtx(m.Contract, sender, types.NewCoins(), block, overlay, gas, depth)
	resp, err := a.VM.Migrate(m.NewCodeHash, ctx, m.Msg)
	if err != nil {
		return evt, nil, err
	}
	guest, err := a.runResponse(m.Contract, "migrate", resp, block, overlay, gas, depth, txIdx, next)
	evt.Guest = &guest
	return evt, resp.Data, err
}

// execTransfer routes coin moves through the protocol-designated bank
// contract, then invokes each contract recipient's
// Receive hook so funds-receiving contracts can react (the
// receive entry point).
func (a *App) execTransfer(block types.BlockInfo, sender types.Address, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, m *types.TransferMsg) (events.Event, error) {
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return events.Event{}, err
	}
	evt := events.Event{Kind: events.KindTransfer, Sender: sender, Transfers: m.Transfers}

	bankHash, err := a.codeHashOf(overlay, cfg.Bank)
	if err != nil {
		return evt, err
	}
	payload, err := encoding.MarshalJSON(types.BankExecuteMsg{From: sender, Transfers: m.Transfers})
	if err != nil {
		return evt, grugerrors.New(grugerrors.ERR_SERDE, "transfer: encode bank payload", err)
	}

	bankEvt := events.Event{Kind: events.KindExecute, Sender: sender, Contract: cfg.Bank, Msg: payload}
	ctx := a.sudoCtx(cfg.Bank, block, overlay, gas, depth)
	resp, err := a.VM.BankExecute(bankHash, ctx, payload)
	if err != nil {
		st := events.Failed(bankEvt, err.Error())
		evt.BankGuest = &st
		return evt, err
	}
	guest, err := a.runResponse(cfg.Bank, "bank_execute", resp, block, overlay, gas, depth, txIdx, next)
	bankEvt.Guest = &guest
	st := events.Ok(bankEvt)
	evt.BankGuest = &st
	if err != nil {
		return evt, err
	}

	receiveGuests := map[string]*events.Status{}
	for _, t := range m.Transfers {
		info, ok, mErr := CONTRACTS.MayLoad(overlay, t.To)
		if mErr != nil {
			return evt, mErr
		}
		if !ok {
			continue
		}
		recvOverlay := storage.NewBuffer(overlay)
		recvEvt := events.Event{Kind: events.KindExecute, Sender: sender, Contract: t.To, Funds: t.Coins}
		rctx := a.mutableCtx(t.To, sender, t.Coins, block, recvOverlay, gas, depth)
		rresp, rerr := a.VM.Receive(info.CodeHash, rctx)
		if rerr != nil {
			recvOverlay.Discard()
			st := events.Failed(recvEvt, rerr.Error())
			receiveGuests[t.To.String()] = &st
			evt.ReceiveGuests = receiveGuests
			return evt, rerr
		}
		recvOverlay.Commit()
		rguest, gErr := a.runResponse(t.To, "receive", rresp, block, overlay, gas, depth, txIdx, next)
		recvEvt.Guest = &rguest
		st := events.Ok(recvEvt)
		receiveGuests[t.To.String()] = &st
		if gErr != nil {
			evt.ReceiveGuests = receiveGuests
			return evt, gErr
		}
	}
	evt.ReceiveGuests = receiveGuests
	return evt, nil
}

// forceTransfer moves coins through the bank contract on the kernel's own
// authority rather than a message author's, with from/to named explicitly
// instead of derived from the calling context's sender (the fee
// pipeline: withhold_fee and finalize_fee move funds between the tx sender
// and the taxman contract, neither of which is "sending" the transfer in
// the ordinary sense a submessage's sender-is-the-caller rule assumes).
// Used only by runTx for the withheld/refunded fee amount a taxman
// implementation reports back via its Response.Data.
func (a *App) forceTransfer(block types.BlockInfo, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId, from, to types.Address, coins types.Coins) (events.Event, error) {
	if coins.IsEmpty() {
		return events.Event{}, nil
	}
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return events.Event{}, err
	}
	transfers := []types.Transfer{{To: to, Coins: coins}}
	evt := events.Event{Kind: events.KindTransfer, Sender: from, Transfers: transfers}

	bankHash, err := a.codeHashOf(overlay, cfg.Bank)
	if err != nil {
		return evt, err
	}
	payload, err := encoding.MarshalJSON(types.BankExecuteMsg{From: from, Transfers: transfers})
	if err != nil {
		return evt, grugerrors.New(grugerrors.ERR_SERDE, "force_transfer: encode bank payload", err)
	}

	bankEvt := events.Event{Kind: events.KindExecute, Sender: from, Contract: cfg.Bank, Msg: payload}
	ctx := a.sudoCtx(cfg.Bank, block, overlay, gas, depth)
	resp, err := a.VM.BankExecute(bankHash, ctx, payload)
	if err != nil {
		st := events.Failed(bankEvt, err.Error())
		evt.BankGuest = &st
		return evt, err
	}
	guest, err := a.runResponse(cfg.Bank, "bank_execute", resp, block, overlay, gas, depth, txIdx, next)
	bankEvt.Guest = &guest
	st := events.Ok(bankEvt)
	evt.BankGuest = &st
	return evt, err
}

// shouldReply reports whether a submessage's outcome triggers the
// parent's reply entry point.
func shouldReply(replyOn types.ReplyOn, ok bool) bool {
	switch replyOn {
	case types.ReplyAlways:
		return true
	case types.ReplySuccess:
		return ok
	case types.ReplyError:
		return !ok
	default: // ReplyNever
		return false
	}
}

// runResponse executes a Response's submessages in order, each in its own
// overlay, calling the owning contract's reply entry point where
// reply_on demands it. It returns the GuestEvent describing
// every submessage (and any reply) plus a non-nil error if an unhandled
// submessage failure (reply_on=Never and failed, or an errored reply)
// must propagate to the caller.
func (a *App) runResponse(contract types.Address, method string, resp types.Response, block types.BlockInfo, overlay *storage.Buffer, gas *vm.GasTracker, depth int, txIdx uint32, next *events.EventId) (events.GuestEvent, error) {
	guest := events.GuestEvent{Contract: contract, Method: method, ContractEvents: resp.Events}

	for _, sm := range resp.Messages {
		msgDepth := depth + 1
		if err := vm.CheckMessageDepth(msgDepth); err != nil {
			return guest, err
		}

		subOverlay := storage.NewBuffer(overlay)
		msgEvt, msgData, msgErr := a.executeMessage(block, contract, subOverlay, gas, msgDepth, txIdx, next, sm.Msg)

		var subEvt events.SubEvent
		ok := msgErr == nil
		if ok {
			subOverlay.Commit()
			subEvt.Event = events.Ok(msgEvt)
		} else {
			subOverlay.Discard()
			subEvt.Event = events.Failed(msgEvt, msgErr.Error())
		}

		if shouldReply(sm.ReplyOn, ok) {
			replyHash, hashErr := a.codeHashOf(overlay, contract)
			if hashErr != nil {
				return guest, hashErr
			}
			var result vm.SubMsgResult
			if ok {
				result = vm.SubMsgResult{Ok: &types.Response{Data: msgData}, Payload: sm.Payload}
			} else {
				result = vm.SubMsgResult{Error: msgErr.Error(), Payload: sm.Payload}
			}

			replyOverlay := storage.NewBuffer(overlay)
			replyCtx := a.sudoCtx(contract, block, replyOverlay, gas, depth)
			replyResp, replyErr := a.VM.Reply(replyHash, replyCtx, sm.Payload, result)
			replyEvt := events.Event{Kind: events.KindReply, Contract: contract}
			if replyErr != nil {
				replyOverlay.Discard()
				st := events.Failed(replyEvt, replyErr.Error())
				subEvt.Reply = &st
				guest.SubEvents = append(guest.SubEvents, subEvt)
				return guest, replyErr
			}
			replyOverlay.Commit()
			replyGuest, gErr := a.runResponse(contract, "reply", replyResp, block, overlay, gas, depth, txIdx, next)
			replyEvt.Guest = &replyGuest
			st := events.Ok(replyEvt)
			subEvt.Reply = &st
			guest.SubEvents = append(guest.SubEvents, subEvt)
			if gErr != nil {
				return guest, gErr
			}
			continue
		}

		guest.SubEvents = append(guest.SubEvents, subEvt)
		if !ok && sm.ReplyOn == types.ReplyNever {
			return guest, msgErr
		}
	}

	return guest, nil
}
