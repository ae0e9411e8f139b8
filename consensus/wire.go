package consensus

import (
	"github.com/left-curve/grug/app"
	"github.com/left-curve/grug/events"
	"github.com/left-curve/grug/types"
)

// InfoRequest carries no fields; info reports the adapter's last committed
// height and app hash (the `Info → (last_height, last_app_hash)`).
type InfoRequest struct{}

type InfoResponse struct {
	LastHeight  uint64 `json:"last_height"`
	LastAppHash []byte `json:"last_app_hash"`
}

// InitChainRequest seeds the chain:
// `InitChain(chain_id, genesis_state) → app_hash`.
type InitChainRequest struct {
	ChainID      string            `json:"chain_id"`
	GenesisState app.GenesisState `json:"genesis_state"`
}

type InitChainResponse struct {
	AppHash []byte `json:"app_hash"`
}

// PrepareProposalRequest/Response implement
// `PrepareProposal(txs, max_bytes) → txs'`.
type PrepareProposalRequest struct {
	Txs      [][]byte `json:"txs"`
	MaxBytes int      `json:"max_bytes"`
}

type PrepareProposalResponse struct {
	Txs [][]byte `json:"txs"`
}

// FinalizeBlockRequest/Response implement
// `FinalizeBlock(block_info, txs) → (app_hash, tx_results[], events)`.
type FinalizeBlockRequest struct {
	Block types.BlockInfo `json:"block"`
	Txs   []types.Tx      `json:"txs"`
}

type TxResult struct {
	Code      uint32 `json:"code"`
	GasWanted uint64 `json:"gas_wanted"`
	GasUsed   uint64 `json:"gas_used"`
	Log       string `json:"log,omitempty"`
}

type CronResult struct {
	Contract types.Address `json:"contract"`
	GasUsed  uint64        `json:"gas_used"`
	Log      string        `json:"log,omitempty"`
}

type FinalizeBlockResponse struct {
	AppHash     []byte                   `json:"app_hash"`
	TxResults   []TxResult               `json:"tx_results"`
	CronResults []CronResult             `json:"cron_results"`
	Events      []events.FlatEventInfo   `json:"events"`
}

// CommitRequest/Response implement the `Commit() → ()`.
type CommitRequest struct{}
type CommitResponse struct{}

// CheckTxRequest/Response implement `CheckTx(tx)`. The response reports a
// result code, the gas wanted and a log; it does not report gas used or
// events.
type CheckTxRequest struct {
	Tx types.Tx `json:"tx"`
}

type CheckTxResponse struct {
	Code      uint32 `json:"code"`
	GasWanted uint64 `json:"gas_wanted"`
	Log       string `json:"log,omitempty"`
}

// QueryRequest/Response implement
// `Query{/app,/simulate,/store}`: Path selects which of the three the
// request targets, Data carries the path-specific payload (a marshalled
// types.Query for /app, a types.Tx for /simulate, a raw store key for
// /store).
type QueryRequest struct {
	Path   string `json:"path"`
	Data   []byte `json:"data"`
	Height uint64 `json:"height,omitempty"`
	Prove  bool   `json:"prove,omitempty"`
}

type QueryResponse struct {
	Value []byte `json:"value,omitempty"`
	Proof []byte `json:"proof,omitempty"`
	Log   string `json:"log,omitempty"`
}
