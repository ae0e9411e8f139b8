package events

// FlatCommitmentStatus is the status with which a flattened branch will
// be persisted: separate from the branch's own outcome,
// since a failed submessage whose reply swallows the error still commits
// that submessage's subtree as Failed while the reply commits Ok.
type FlatCommitmentStatus string

const (
	CommitOk       FlatCommitmentStatus = "committed"
	CommitReverted FlatCommitmentStatus = "reverted"
	CommitFailed   FlatCommitmentStatus = "failed"
)

// Revert downgrades every node persisted as Committed to Reverted, leaving
// Failed nodes alone. The kernel applies it to a transaction's whole event
// list when the tx's outer overlay is discarded: frames that merged cleanly
// into it still never reached durable state, which is exactly the
// Committed/Reverted distinction (and keeps ancestors at least as
// permissive as descendants, Committed >= Reverted >= Failed).
func Revert(flat []FlatEventInfo) {
	for i := range flat {
		if flat[i].CommitmentStatus == CommitOk {
			flat[i].CommitmentStatus = CommitReverted
		}
	}
}

// FlatEventStatus is a single flattened node's own outcome.
type FlatEventStatus struct {
	Kind  StatusKind
	Error string
}

func FlatOk() FlatEventStatus                 { return FlatEventStatus{Kind: StatusOk} }
func FlatFailed(err string) FlatEventStatus   { return FlatEventStatus{Kind: StatusFailed, Error: err} }
func FlatNestedFailed() FlatEventStatus       { return FlatEventStatus{Kind: StatusNestedFailed} }
func FlatNotReached() FlatEventStatus         { return FlatEventStatus{Kind: StatusNotReached} }

// FlatHandled StatusKind: a submessage failed but the parent's reply
// handled (swallowed) the error (the SubEventStatus::Handled).
const StatusHandled StatusKind = "handled"

func FlatHandled(err string) FlatEventStatus { return FlatEventStatus{Kind: StatusHandled, Error: err} }

// FlatEventInfo is one node of the flattened, wire-stable event list: its
// id, its parent's id, the commitment status its subtree will persist
// with, its own event status, and the stripped (non-recursive) event
// payload.
type FlatEventInfo struct {
	ID               EventId     `json:"id"`
	ParentID         EventId     `json:"parent_id"`
	CommitmentStatus FlatCommitmentStatus `json:"commitment_status"`
	EventStatus      FlatEventStatus      `json:"event_status"`
	Event            Event       `json:"event"`
}

// leaf strips the recursive guest/sub-event fields off e, producing the
// payload a FlatEventInfo carries (the children are emitted as separate
// sibling nodes by the flattener, not nested in the JSON).
func leaf(e Event) Event {
	out := e
	out.Guest = nil
	out.BankGuest = nil
	out.ReceiveGuests = nil
	return out
}
