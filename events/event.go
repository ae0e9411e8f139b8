// Package events implements the structured event tree every call point in
// the app kernel produces, and the depth-first pre-order flattener that
// turns it into the wire-stable event list consensus and indexers consume.
package events

import "github.com/left-curve/grug/types"

// Kind tags which call point produced an Event.
type Kind string

const (
	KindConfigure    Kind = "configure"
	KindTransfer     Kind = "transfer"
	KindUpload       Kind = "upload"
	KindInstantiate  Kind = "instantiate"
	KindExecute      Kind = "execute"
	KindMigrate      Kind = "migrate"
	KindReply        Kind = "reply"
	KindAuthenticate Kind = "authenticate"
	KindBackrun      Kind = "backrun"
	KindWithhold     Kind = "withhold"
	KindFinalize     Kind = "finalize"
	KindCron         Kind = "cron"
)

// GuestEvent wraps a contract invocation's own emitted events plus the
// submessages it spawned, recursively (the EvtGuest).
type GuestEvent struct {
	Contract     types.Address            `json:"contract"`
	Method       string                    `json:"method"`
	ContractEvents []map[string]interface{} `json:"contract_events,omitempty"`
	SubEvents    []SubEvent                `json:"sub_events,omitempty"`
}

// SubEvent is one submessage's outcome plus its optional reply invocation
// (the SubEvent).
type SubEvent struct {
	Event Status `json:"event"`
	Reply *Status `json:"reply,omitempty"`
}

// Event is a single call point's structured record. Exactly
// one of the per-kind detail fields is populated, matching the tagged-
// variant convention used throughout types/message.go.
type Event struct {
	Kind Kind `json:"kind"`

	Sender   types.Address `json:"sender,omitempty"`
	Contract types.Address `json:"contract,omitempty"`

	// Transfer
	Transfers []types.Transfer `json:"transfers,omitempty"`

	// Upload
	CodeHash types.Hash256 `json:"code_hash,omitempty"`

	// Instantiate / Execute / Migrate
	Label   string         `json:"label,omitempty"`
	Admin   *types.Address `json:"admin,omitempty"`
	Funds   types.Coins    `json:"funds,omitempty"`
	Msg     []byte         `json:"msg,omitempty"`
	OldCodeHash types.Hash256 `json:"old_code_hash,omitempty"`
	NewCodeHash types.Hash256 `json:"new_code_hash,omitempty"`

	// Reply
	ReplyOn types.ReplyOn `json:"reply_on,omitempty"`

	// Authenticate
	Backrun bool `json:"backrun,omitempty"`

	// Withhold / Finalize
	GasLimit uint64        `json:"gas_limit,omitempty"`
	GasUsed  uint64        `json:"gas_used,omitempty"`
	Taxman   types.Address `json:"taxman,omitempty"`

	// Cron
	Time types.Duration `json:"time,omitempty"`
	Next types.Duration `json:"next,omitempty"`

	// Every kind except Configure/Upload has a nested guest invocation.
	Guest *GuestEvent `json:"guest,omitempty"`
	// Transfer additionally carries bank/receive guest events.
	BankGuest     *Status            `json:"bank_guest,omitempty"`
	ReceiveGuests map[string]*Status `json:"receive_guests,omitempty"`
}

// StatusKind is the outcome of one Event within its enclosing EventStatus
//.
type StatusKind string

const (
	StatusOk           StatusKind = "ok"
	StatusFailed       StatusKind = "failed"
	StatusNestedFailed StatusKind = "nested_failed"
	StatusNotReached   StatusKind = "not_reached"
)

// Status wraps an Event with how its own invocation resolved, mirroring
// how far execution got. NotReached carries no event.
type Status struct {
	Kind  StatusKind
	Event *Event
	Error string
}

func Ok(e Event) Status                 { return Status{Kind: StatusOk, Event: &e} }
func Failed(e Event, err string) Status { return Status{Kind: StatusFailed, Event: &e, Error: err} }
func NestedFailed(e Event) Status       { return Status{Kind: StatusNestedFailed, Event: &e} }
func NotReached() Status                { return Status{Kind: StatusNotReached} }
