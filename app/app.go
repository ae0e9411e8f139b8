package app

import (
	"github.com/left-curve/grug/db"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/logging"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// App wires the versioned state store and the contract sandbox into the
// block/transaction pipelines. It implements vm.Querier so
// a contract's query_chain host call re-enters the same kernel.
type App struct {
	ChainID string
	DB      *db.LiteDB
	VM      *vm.VM
	Logger  logging.Logger
}

func New(chainID string, ldb *db.LiteDB, vmach *vm.VM) *App {
	return &App{ChainID: chainID, DB: ldb, VM: vmach, Logger: logging.New("app")}
}

func (a *App) codeHashOf(store storage.Backend, contract types.Address) (types.Hash256, error) {
	info, err := CONTRACTS.Load(store, contract)
	if err != nil {
		return types.Hash256{}, err
	}
	return info.CodeHash, nil
}

func (a *App) immutableCtx(contract types.Address, block types.BlockInfo, overlay storage.Backend, gas *vm.GasTracker, depth int) vm.ImmutableCtx {
	return vm.NewImmutableCtx(a.ChainID, block, contract, contractStore(overlay, contract), gas, a, depth)
}

func (a *App) mutableCtx(contract, sender types.Address, funds types.Coins, block types.BlockInfo, overlay storage.Backend, gas *vm.GasTracker, depth int) vm.MutableCtx {
	return vm.NewMutableCtx(a.immutableCtx(contract, block, overlay, gas, depth), sender, funds)
}

func (a *App) sudoCtx(contract types.Address, block types.BlockInfo, overlay storage.Backend, gas *vm.GasTracker, depth int) vm.SudoCtx {
	return vm.NewSudoCtx(a.immutableCtx(contract, block, overlay, gas, depth))
}

func (a *App) authCtx(contract types.Address, block types.BlockInfo, overlay storage.Backend, gas *vm.GasTracker, depth int, tx types.Tx) vm.AuthCtx {
	return vm.NewAuthCtx(a.immutableCtx(contract, block, overlay, gas, depth), tx)
}

// QueryChain implements vm.Querier (the query_chain host call):
// a contract re-entering the kernel for a read-only query, always against
// the latest committed state (queries never observe in-flight block
// changes, matching the latest-version-only rule the lite
// DB, which tracks no history).
func (a *App) QueryChain(req types.Query, depth int) (interface{}, error) {
	if err := vm.CheckQueryDepth(depth); err != nil {
		return nil, err
	}
	base, err := a.DB.StateStorage(nil)
	if err != nil {
		return nil, err
	}
	return a.runQuery(base, req, depth)
}

func (a *App) runQuery(base storage.Backend, req types.Query, depth int) (interface{}, error) {
	switch req.Kind {
	case types.QueryConfig:
		return CONFIG.Load(base)
	case types.QueryAppConfig:
		return APP_CONFIG.Load(base)
	case types.QueryCode:
		return CODES.Load(base, req.Code.Hash)
	case types.QueryCodes:
		var startAfter *types.Hash256
		var limit uint32
		if req.Codes != nil {
			startAfter = req.Codes.StartAfter
			limit = req.Codes.Limit
		}
		entries, err := CODES.Range(base, startAfter, nil, storage.Ascending)
		if err != nil {
			return nil, err
		}
		out := make(map[string]types.CodeEntry)
		for _, e := range entries {
			if startAfter != nil && e.Key == *startAfter {
				continue
			}
			out[types.HashString(e.Key)] = e.Value
			if limit > 0 && uint32(len(out)) >= limit {
				break
			}
		}
		return out, nil
	case types.QueryContract:
		return CONTRACTS.Load(base, req.Contract.Address)
	case types.QueryContracts:
		var startAfter *types.Address
		var limit uint32
		if req.Contracts != nil {
			startAfter = req.Contracts.StartAfter
			limit = req.Contracts.Limit
		}
		entries, err := CONTRACTS.Range(base, startAfter, nil, storage.Ascending)
		if err != nil {
			return nil, err
		}
		out := make(map[string]types.ContractInfo)
		for _, e := range entries {
			if startAfter != nil && e.Key == *startAfter {
				continue
			}
			out[e.Key.String()] = e.Value
			if limit > 0 && uint32(len(out)) >= limit {
				break
			}
		}
		return out, nil
	case types.QueryWasmRaw:
		v, _ := contractStore(base, req.WasmRaw.Contract).Read(req.WasmRaw.Key)
		return v, nil
	case types.QueryWasmSmart:
		info, err := CONTRACTS.Load(base, req.WasmSmart.Contract)
		if err != nil {
			return nil, err
		}
		ctx := a.immutableCtx(req.WasmSmart.Contract, types.BlockInfo{}, base, vm.NewGasTracker(vm.GasQuery*100), depth+1)
		return a.VM.Query(info.CodeHash, ctx, req.WasmSmart.Msg)
	case types.QueryBalance, types.QueryBalances, types.QuerySupply, types.QuerySupplies:
		cfg, err := CONFIG.Load(base)
		if err != nil {
			return nil, err
		}
		bankQuery, err := toBankQuery(req)
		if err != nil {
			return nil, err
		}
		bankHash, err := a.codeHashOf(base, cfg.Bank)
		if err != nil {
			return nil, err
		}
		ctx := a.immutableCtx(cfg.Bank, types.BlockInfo{}, base, vm.NewGasTracker(vm.GasQuery*10), depth+1)
		return a.VM.BankQuery(bankHash, ctx, bankQuery)
	case types.QueryMulti:
		out := make([]interface{}, len(req.Multi))
		for i, sub := range req.Multi {
			r, err := a.runQuery(base, sub, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "unsupported query kind %q", req.Kind)
	}
}

func toBankQuery(req types.Query) (types.BankQuery, error) {
	switch req.Kind {
	case types.QueryBalance:
		return types.BankQuery{Balance: req.Balance}, nil
	case types.QueryBalances:
		return types.BankQuery{Balances: req.Balances}, nil
	case types.QuerySupply:
		return types.BankQuery{Supply: req.Supply}, nil
	case types.QuerySupplies:
		return types.BankQuery{Supplies: req.Supplies}, nil
	default:
		return types.BankQuery{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "not a bank query: %q", req.Kind)
	}
}
