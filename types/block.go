package types

import "time"

// BlockInfo is a block's header metadata: height (monotonic,
// equal to the DB version), timestamp, and hash.
type BlockInfo struct {
	Height    uint64    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	Hash      Hash256   `json:"hash"`
}

// Tx is a transaction: sender, gas limit, a non-empty sequence
// of messages, an opaque credential blob interpreted by the sender's
// authentication code, and an arbitrary metadata blob.
type Tx struct {
	Sender     Address   `json:"sender"`
	GasLimit   uint64    `json:"gas_limit"`
	Messages   []Message `json:"msgs"`
	Credential []byte    `json:"credential"`
	Data       []byte    `json:"data,omitempty"`
}

// TxOutcome is the per-transaction result of the block pipeline: gas accounting and the terminal Ok/Err result. The tx's events are not part of it; they are returned separately in the block's flat event list.
type TxOutcome struct {
	GasLimit uint64 `json:"gas_limit"`
	GasUsed  uint64 `json:"gas_used"`
	Error    string `json:"error,omitempty"`
}

func (o TxOutcome) IsOk() bool { return o.Error == "" }

// CronOutcome is the per-cronjob result of a block's scheduled invocations.
type CronOutcome struct {
	Contract Address `json:"contract"`
	GasUsed  uint64  `json:"gas_used"`
	Error    string  `json:"error,omitempty"`
}

func (o CronOutcome) IsOk() bool { return o.Error == "" }
