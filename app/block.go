package app

import (
	"bytes"
	"sort"
	"time"

	"github.com/left-curve/grug/crypto"
	"github.com/left-curve/grug/db"
	"github.com/left-curve/grug/events"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// cronGasLimit bounds a single cronjob invocation, since it has no
// sender-declared gas_limit of its own to meter against.
const cronGasLimit uint64 = 10_000_000

// PrepareProposal lets the app reorder or trim the consensus layer's
// candidate transactions. A chain that doesn't need custom
// ordering can always fall back to the identity strategy, so that's all
// this does: return the candidates untouched, truncated to maxBytes.
func (a *App) PrepareProposal(txs [][]byte, maxBytes int) [][]byte {
	if maxBytes <= 0 {
		return txs
	}
	var out [][]byte
	total := 0
	for _, raw := range txs {
		if total+len(raw) > maxBytes {
			break
		}
		out = append(out, raw)
		total += len(raw)
	}
	return out
}

// FinalizeBlock runs the block pipeline: a transaction
// pipeline per tx, then every cronjob due by block.Timestamp, staging the
// result with FlushStorageButNotCommit so the caller learns the app hash
// before deciding to Commit. Calling it again without an intervening
// Commit re-runs against the same committed base and yields the same
// root (the idempotency rule) -- nothing here is persisted
// until Commit.
func (a *App) FinalizeBlock(block types.BlockInfo, txs []types.Tx) (uint64, crypto.Hash256, []types.TxOutcome, []types.CronOutcome, []events.FlatEventInfo, error) {
	base, err := a.DB.StateStorage(nil)
	if err != nil {
		return 0, crypto.Hash256{}, nil, nil, nil, err
	}
	overlay := storage.NewBuffer(base)

	if err := LAST_FINALIZED_BLOCK.Save(overlay, block); err != nil {
		return 0, crypto.Hash256{}, nil, nil, nil, err
	}

	var flat []events.FlatEventInfo
	txOutcomes := make([]types.TxOutcome, len(txs))
	for i, tx := range txs {
		txOverlay := storage.NewBuffer(overlay)
		outcome, txFlat := a.runTx(txOverlay, block, uint32(i), tx)
		txOverlay.Commit()
		txOutcomes[i] = outcome
		flat = append(flat, txFlat...)
	}

	cronOutcomes, cronFlat := a.runDueCronjobs(overlay, block, uint32(len(txs)))
	flat = append(flat, cronFlat...)

	version, appHash, err := a.DB.FlushStorageButNotCommit(toDBBatch(overlay.Export()))
	if err != nil {
		return 0, crypto.Hash256{}, nil, nil, nil, err
	}
	return version, appHash, txOutcomes, cronOutcomes, flat, nil
}

// runDueCronjobs runs every cronjob contract whose scheduled next-time
// has arrived, one after another in the cronjob map's key order -- sorted
// explicitly, since Go map iteration order is not stable. A
// cronjob not yet scheduled runs on its first eligible block and reschedules
// from the block timestamp, not from its absent prior run.
func (a *App) runDueCronjobs(overlay *storage.Buffer, block types.BlockInfo, cronIdx uint32) ([]types.CronOutcome, []events.FlatEventInfo) {
	cfg, err := CONFIG.Load(overlay)
	if err != nil {
		return nil, nil
	}
	if len(cfg.Cronjobs) == 0 {
		return nil, nil
	}

	contracts := make([]types.Address, 0, len(cfg.Cronjobs))
	for addr := range cfg.Cronjobs {
		contracts = append(contracts, addr)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return bytes.Compare(contracts[i].Bytes(), contracts[j].Bytes()) < 0
	})

	var outcomes []types.CronOutcome
	var flat []events.FlatEventInfo

	for _, contract := range contracts {
		period := time.Duration(cfg.Cronjobs[contract])
		next, ok, err := CRON_SCHEDULE.MayLoad(overlay, contract)
		if err != nil {
			a.Logger.Warnf("cron schedule lookup failed for %s: %v", contract, err)
			continue
		}
		if !ok {
			next = block.Timestamp
		}
		if next.After(block.Timestamp) {
			continue
		}

		idx := cronIdx
		cronOverlay := storage.NewBuffer(overlay)
		codeHash, err := a.codeHashOf(cronOverlay, contract)
		evt := events.Event{Kind: events.KindCron, Contract: contract, Time: types.Duration(block.Timestamp.Sub(next))}
		var outcome types.CronOutcome
		if err != nil {
			cronOverlay.Discard()
			outcome = types.CronOutcome{Contract: contract, Error: err.Error()}
			flat = append(flat, flattenOne(evt, idx, nil, events.CommitFailed, events.FlatFailed(err.Error()))...)
			a.Logger.Warnf("cronjob %s skipped: %v", contract, err)
		} else {
			gas := vm.NewGasTracker(cronGasLimit)
			ctx := a.sudoCtx(contract, block, cronOverlay, gas, 0)
			resp, cErr := a.VM.CronExecute(codeHash, ctx)
			if cErr != nil {
				cronOverlay.Discard()
				outcome = types.CronOutcome{Contract: contract, GasUsed: gas.Used(), Error: cErr.Error()}
				flat = append(flat, flattenOne(evt, idx, nil, events.CommitFailed, events.FlatFailed(cErr.Error()))...)
				a.Logger.Errorf("cronjob %s errored: %v", contract, cErr)
			} else {
				guest, gErr := a.runResponse(contract, "cron_execute", resp, block, cronOverlay, gas, 0, idx, &events.EventId{TxOrCronIndex: idx})
				evt.Guest = &guest
				if gErr != nil {
					cronOverlay.Discard()
					outcome = types.CronOutcome{Contract: contract, GasUsed: gas.Used(), Error: gErr.Error()}
					flat = append(flat, flattenOne(evt, idx, nil, events.CommitFailed, events.FlatFailed(gErr.Error()))...)
					a.Logger.Errorf("cronjob %s reply chain errored: %v", contract, gErr)
				} else {
					cronOverlay.Commit()
					outcome = types.CronOutcome{Contract: contract, GasUsed: gas.Used()}
					flat = append(flat, flattenOne(evt, idx, nil, events.CommitOk, events.FlatOk())...)
				}
			}
		}
		outcomes = append(outcomes, outcome)
		cronIdx++

		if saveErr := CRON_SCHEDULE.Save(overlay, contract, next.Add(period)); saveErr != nil {
			a.Logger.Errorf("failed to reschedule cronjob %s: %v", contract, saveErr)
		}
	}

	return outcomes, flat
}

// toDBBatch adapts a storage.Buffer's exported overlay into the versioned
// DB's own Batch type, since storage deliberately doesn't import db (the layering: the typed storage package is DB-agnostic).
func toDBBatch(ops map[string]storage.Op) db.Batch {
	out := make(db.Batch, len(ops))
	for k, op := range ops {
		out[k] = db.Op{Insert: op.Insert, Value: op.Value}
	}
	return out
}

// Commit makes the most recently staged FinalizeBlock durable. It is a no-op error if FinalizeBlock hasn't staged anything.
func (a *App) Commit() error {
	return a.DB.Commit()
}

// Simulate dry-runs a transaction against the latest committed state via
// the ordinary transaction pipeline, always discarding its overlay
// regardless of outcome (the `/simulate` query path), so a
// client can learn gas_used and any error without broadcasting.
func (a *App) Simulate(tx types.Tx) (types.TxOutcome, []events.FlatEventInfo, error) {
	base, err := a.DB.StateStorage(nil)
	if err != nil {
		return types.TxOutcome{}, nil, err
	}
	overlay := storage.NewBuffer(base)
	outcome, flat := a.runTx(overlay, types.BlockInfo{}, 0, tx)
	overlay.Discard()
	return outcome, flat, nil
}

// CheckTx runs authentication only, against the latest committed state, to
// let the mempool reject obviously-unauthenticated transactions without
// mutating anything. The reported gas-wanted is always the
// sender-declared gas limit, since no message executes here to measure
// actual usage.
func (a *App) CheckTx(tx types.Tx) (gasWanted uint64, err error) {
	gasWanted = tx.GasLimit

	base, err := a.DB.StateStorage(nil)
	if err != nil {
		return gasWanted, err
	}
	overlay := storage.NewBuffer(base)

	senderHash, err := a.codeHashOf(overlay, tx.Sender)
	if err != nil {
		return gasWanted, err
	}

	gas := vm.NewGasTracker(tx.GasLimit)
	ctx := a.authCtx(tx.Sender, types.BlockInfo{}, overlay, gas, 0, tx)
	_, err = a.VM.Authenticate(senderHash, ctx)
	return gasWanted, err
}
