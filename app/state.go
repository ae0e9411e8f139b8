// Package app implements the execution kernel: the block
// pipeline (prepare proposal, finalize block, commit, check tx), the
// per-transaction pipeline of nested overlays, recursive submessage
// execution with reply_on semantics, and the cronjob scheduler. It is the
// integration point for storage (overlays), db (the versioned state
// store), vm (the contract sandbox) and events (the structured event
// tree).
package app

import (
	"time"

	"github.com/left-curve/grug/keys"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
)

var (
	nsConfig       = []byte("cfg")
	nsAppConfig    = []byte("app_cfg")
	nsCodes        = []byte("code/")
	nsContracts    = []byte("contract/")
	nsLastBlock    = []byte("block")
	nsCronSchedule = []byte("cron/")
	nsContractRoot = []byte("store/")
)

// CONFIG holds the chain-level configuration. It is always
// present once genesis has run.
var CONFIG = storage.NewItem[types.Config](nsConfig)

// APP_CONFIG holds the arbitrary app-level key/value settings a
// Configure message may replace wholesale.
var APP_CONFIG = storage.NewItem[map[string]string](nsAppConfig)

// CODES is the garbage-collected code registry, keyed by content hash
//.
var CODES = storage.NewMap[types.Hash256, types.CodeEntry](nsCodes, keys.Hash256Codec())

// CONTRACTS maps a deployed contract's address to its metadata.
var CONTRACTS = storage.NewMap[types.Address, types.ContractInfo](nsContracts, keys.AddressCodec())

// LAST_FINALIZED_BLOCK records the most recently finalized block's header
//.
var LAST_FINALIZED_BLOCK = storage.NewItem[types.BlockInfo](nsLastBlock)

// CRON_SCHEDULE tracks each cronjob contract's next scheduled run time
// (the "scheduled next-time" rule).
var CRON_SCHEDULE = storage.NewMap[types.Address, time.Time](nsCronSchedule, keys.AddressCodec())

// contractStore scopes base to the given contract's private namespace, so
// two contracts' state never collides and a contract can never read or
// write another's storage directly.
func contractStore(base storage.Backend, contract types.Address) storage.Backend {
	prefix := append(append([]byte{}, nsContractRoot...), contract.Bytes()...)
	return storage.NewPrefixed(base, prefix)
}
