package app

import (
	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/events"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

func eventIDFor(txIdx uint32, msgIdx *uint32) events.EventId {
	id := events.EventId{TxOrCronIndex: txIdx}
	if msgIdx != nil {
		m := *msgIdx
		id.MessageIndex = &m
	}
	return id
}

func flattenOne(evt events.Event, txIdx uint32, msgIdx *uint32, commitment events.FlatCommitmentStatus, status events.FlatEventStatus) []events.FlatEventInfo {
	next := eventIDFor(txIdx, msgIdx)
	return events.Flatten(evt, events.EventId{}, &next, commitment, status)
}

// runTx executes one transaction per the nested-overlay pipeline: withhold_fee must succeed or the tx aborts outright; a failed
// authenticate or message aborts the tx but still runs finalize_fee;
// backrun only runs if authenticate requested it and every message
// succeeded; the outer overlay commits iff the tx as a whole succeeded.
func (a *App) runTx(outer *storage.Buffer, block types.BlockInfo, txIdx uint32, tx types.Tx) (types.TxOutcome, []events.FlatEventInfo) {
	var flat []events.FlatEventInfo
	gas := vm.NewGasTracker(tx.GasLimit)

	cfg, err := CONFIG.Load(outer)
	if err != nil {
		return types.TxOutcome{GasLimit: tx.GasLimit, GasUsed: 0, Error: err.Error()}, flat
	}

	taxmanHash, err := a.codeHashOf(outer, cfg.Taxman)
	if err != nil {
		return types.TxOutcome{GasLimit: tx.GasLimit, GasUsed: 0, Error: err.Error()}, flat
	}

	// withhold_fee: must succeed, or the tx never runs at all.
	whOverlay := storage.NewBuffer(outer)
	whCtx := a.authCtx(cfg.Taxman, block, whOverlay, gas, 0, tx)
	whResp, err := a.VM.WithholdFee(taxmanHash, whCtx)
	whEvt := events.Event{Kind: events.KindWithhold, Contract: cfg.Taxman, Sender: tx.Sender, GasLimit: tx.GasLimit, Taxman: cfg.Taxman}
	if err != nil {
		whOverlay.Discard()
		flat = append(flat, flattenOne(whEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(err.Error()))...)
		return types.TxOutcome{GasLimit: tx.GasLimit, GasUsed: gas.Used(), Error: err.Error()}, flat
	}
	guest, gErr := a.runResponse(cfg.Taxman, "withhold_fee", whResp, block, whOverlay, gas, 0, txIdx, &events.EventId{TxOrCronIndex: txIdx})
	whEvt.Guest = &guest
	if gErr == nil && len(whResp.Data) > 0 {
		var withheld types.Coins
		if dErr := encoding.UnmarshalJSON(whResp.Data, &withheld); dErr != nil {
			gErr = dErr
		} else {
			ftEvt, ftErr := a.forceTransfer(block, whOverlay, gas, 0, txIdx, &events.EventId{TxOrCronIndex: txIdx}, tx.Sender, cfg.Taxman, withheld)
			if ftErr != nil {
				gErr = ftErr
			} else if ftEvt.Kind != "" {
				flat = append(flat, flattenOne(ftEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)
			}
		}
	}
	if gErr != nil {
		whOverlay.Discard()
		flat = append(flat, flattenOne(whEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(gErr.Error()))...)
		return types.TxOutcome{GasLimit: tx.GasLimit, GasUsed: gas.Used(), Error: gErr.Error()}, flat
	}
	whOverlay.Commit()
	flat = append(flat, flattenOne(whEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)

	// authenticate
	authOverlay := storage.NewBuffer(outer)
	senderHash, err := a.codeHashOf(outer, tx.Sender)
	var authResp types.AuthResponse
	var authErr error
	authEvt := events.Event{Kind: events.KindAuthenticate, Sender: tx.Sender, Contract: tx.Sender}
	if err != nil {
		authErr = err
	} else {
		authCtx := a.authCtx(tx.Sender, block, authOverlay, gas, 0, tx)
		authResp, authErr = a.VM.Authenticate(senderHash, authCtx)
	}

	txErr := authErr
	if authErr != nil {
		authOverlay.Discard()
		flat = append(flat, flattenOne(authEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(authErr.Error()))...)
	} else {
		authOverlay.Commit()
		flat = append(flat, flattenOne(authEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)
	}

	// messages, only if authenticate succeeded
	if txErr == nil {
		for i, msg := range tx.Messages {
			msgIdx := uint32(i)
			msgOverlay := storage.NewBuffer(outer)
			next := eventIDFor(txIdx, &msgIdx)
			evt, _, err := a.executeMessage(block, tx.Sender, msgOverlay, gas, 0, txIdx, &next, msg)
			if err != nil {
				msgOverlay.Discard()
				flat = append(flat, events.Flatten(evt, events.EventId{}, &next, events.CommitFailed, events.FlatFailed(err.Error()))...)
				txErr = err
				// the rest of the batch never runs, but each remaining
				// message still gets a NotReached placeholder node so the
				// flat list accounts for every message in the tx.
				for j := i + 1; j < len(tx.Messages); j++ {
					skippedIdx := uint32(j)
					skippedNext := eventIDFor(txIdx, &skippedIdx)
					flat = append(flat, events.FlattenStatus(events.NotReached(), events.EventId{}, &skippedNext, events.CommitFailed)...)
				}
				break
			}
			msgOverlay.Commit()
			flat = append(flat, events.Flatten(evt, events.EventId{}, &next, events.CommitOk, events.FlatOk())...)
		}
	}

	// backrun, only if authenticate requested it and every message so far
	// succeeded.
	if txErr == nil && authResp.RequestBackrun {
		backrunOverlay := storage.NewBuffer(outer)
		backrunCtx := a.authCtx(tx.Sender, block, backrunOverlay, gas, 0, tx)
		backrunResp, err := a.VM.Backrun(senderHash, backrunCtx)
		backrunEvt := events.Event{Kind: events.KindBackrun, Sender: tx.Sender, Contract: tx.Sender, Backrun: true}
		if err != nil {
			backrunOverlay.Discard()
			flat = append(flat, flattenOne(backrunEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(err.Error()))...)
			txErr = err
		} else {
			guest, gErr := a.runResponse(tx.Sender, "backrun", backrunResp, block, backrunOverlay, gas, 0, txIdx, &events.EventId{TxOrCronIndex: txIdx})
			backrunEvt.Guest = &guest
			if gErr != nil {
				backrunOverlay.Discard()
				flat = append(flat, flattenOne(backrunEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(gErr.Error()))...)
				txErr = gErr
			} else {
				backrunOverlay.Commit()
				flat = append(flat, flattenOne(backrunEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)
			}
		}
	}

	// finalize_fee always runs, settling gas_used against the withheld fee.
	// A finalize_fee error aborts the tx's state changes, but the outcome
	// below still records the original result for auditing.
	var finErr error
	finOverlay := storage.NewBuffer(outer)
	finCtx := a.authCtx(cfg.Taxman, block, finOverlay, gas, 0, tx)
	finResp, err := a.VM.FinalizeFee(taxmanHash, finCtx, gas.Used())
	finEvt := events.Event{Kind: events.KindFinalize, Contract: cfg.Taxman, Sender: tx.Sender, GasLimit: tx.GasLimit, GasUsed: gas.Used(), Taxman: cfg.Taxman}
	if err != nil {
		finErr = err
		finOverlay.Discard()
		flat = append(flat, flattenOne(finEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(err.Error()))...)
	} else {
		guest, gErr := a.runResponse(cfg.Taxman, "finalize_fee", finResp, block, finOverlay, gas, 0, txIdx, &events.EventId{TxOrCronIndex: txIdx})
		finEvt.Guest = &guest
		if gErr == nil && len(finResp.Data) > 0 {
			var refund types.Coins
			if dErr := encoding.UnmarshalJSON(finResp.Data, &refund); dErr != nil {
				gErr = dErr
			} else {
				ftEvt, ftErr := a.forceTransfer(block, finOverlay, gas, 0, txIdx, &events.EventId{TxOrCronIndex: txIdx}, cfg.Taxman, tx.Sender, refund)
				if ftErr != nil {
					gErr = ftErr
				} else if ftEvt.Kind != "" {
					flat = append(flat, flattenOne(ftEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)
				}
			}
		}
		if gErr != nil {
			finErr = gErr
			finOverlay.Discard()
			flat = append(flat, flattenOne(finEvt, txIdx, nil, events.CommitFailed, events.FlatFailed(gErr.Error()))...)
		} else {
			finOverlay.Commit()
			flat = append(flat, flattenOne(finEvt, txIdx, nil, events.CommitOk, events.FlatOk())...)
		}
	}

	// A finalize_fee error aborts the tx's state like any other failure,
	// but the outcome keeps the original execution result for auditing
	//, so finErr never overwrites txErr -- or an Ok result.
	outcome := types.TxOutcome{GasLimit: tx.GasLimit, GasUsed: gas.Used()}
	if txErr != nil {
		outcome.Error = txErr.Error()
	}
	if txErr != nil || finErr != nil {
		outer.Discard()
		events.Revert(flat)
	}
	return outcome, flat
}
