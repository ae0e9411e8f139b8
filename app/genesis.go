package app

import (
	"github.com/left-curve/grug/crypto"
	"github.com/left-curve/grug/events"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// genesisGasLimit bounds the whole genesis message batch, since genesis
// messages carry no sender-declared gas_limit of their own.
const genesisGasLimit uint64 = 100_000_000

// GenesisState is the genesis block's payload: the chain config, the
// messages to run as the genesis sender, and the app-level settings.
// Parsing it from a genesis file on disk happens elsewhere; this is the
// in-memory shape the consensus adapter's InitChain hands to the kernel.
type GenesisState struct {
	Config     types.Config      `json:"config"`
	Msgs       []types.Message   `json:"msgs"`
	AppConfigs map[string]string `json:"app_configs"`
}

// InitChain seeds chain-level config and runs the genesis messages as a
// single all-or-nothing overlay sent by the sentinel genesis sender
// (the InitChain), then commits immediately: genesis has no
// prior committed state to fall back to.
func (a *App) InitChain(genesis GenesisState) (crypto.Hash256, error) {
	base, err := a.DB.StateStorage(nil)
	if err != nil {
		return crypto.Hash256{}, err
	}
	overlay := storage.NewBuffer(base)

	if err := CONFIG.Save(overlay, genesis.Config); err != nil {
		return crypto.Hash256{}, err
	}
	if genesis.AppConfigs != nil {
		if err := APP_CONFIG.Save(overlay, genesis.AppConfigs); err != nil {
			return crypto.Hash256{}, err
		}
	}

	block := types.BlockInfo{Height: 0}
	gas := vm.NewGasTracker(genesisGasLimit)
	for i, msg := range genesis.Msgs {
		txIdx := uint32(i)
		next := events.EventId{TxOrCronIndex: txIdx}
		_, _, err := a.executeMessage(block, types.GenesisSender, overlay, gas, 0, txIdx, &next, msg)
		if err != nil {
			return crypto.Hash256{}, err
		}
	}

	if err := LAST_FINALIZED_BLOCK.Save(overlay, block); err != nil {
		return crypto.Hash256{}, err
	}

	_, appHash, err := a.DB.FlushStorageButNotCommit(toDBBatch(overlay.Export()))
	if err != nil {
		return crypto.Hash256{}, err
	}
	if err := a.DB.Commit(); err != nil {
		return crypto.Hash256{}, err
	}
	return appHash, nil
}
