package events

import "sort"

// Flatten walks e and its nested guest/sub-events depth-first, pre-order,
// producing the wire-stable FlatEventInfo list consensus and indexers
// persist. next is the running per-scope index counter;
// callers start it at the scope's first EventId and it advances as each
// node (and its descendants) is emitted.
func Flatten(e Event, parentID EventId, next *EventId, commitment FlatCommitmentStatus, status FlatEventStatus) []FlatEventInfo {
	id := next.Clone()
	out := []FlatEventInfo{{
		ID:               id,
		ParentID:         parentID,
		CommitmentStatus: commitment,
		EventStatus:      status,
		Event:            leaf(e),
	}}
	next.IncrementIdx(out)

	switch e.Kind {
	case KindConfigure, KindUpload:
		// no nested invocation
	case KindTransfer:
		if e.BankGuest != nil {
			out = append(out, FlattenStatus(*e.BankGuest, id, next, CommitOk)...)
		}
		for _, addr := range sortedReceiveKeys(e.ReceiveGuests) {
			out = append(out, FlattenStatus(*e.ReceiveGuests[addr], id, next, CommitOk)...)
		}
	default:
		if e.Guest != nil {
			out = append(out, FlattenGuestEvent(*e.Guest, id, next)...)
		}
	}

	// A node's descendants never persist with a more permissive
	// commitment status than the node itself.
	switch commitment {
	case CommitFailed:
		for i := 1; i < len(out); i++ {
			out[i].CommitmentStatus = CommitFailed
		}
	case CommitReverted:
		Revert(out[1:])
	}
	return out
}

// FlattenStatus flattens a Status whose own Event, if any, determines the
// rest of the subtree; NotReached emits a childless placeholder node
// (messages past the point of failure in a batch).
func FlattenStatus(s Status, parentID EventId, next *EventId, commitment FlatCommitmentStatus) []FlatEventInfo {
	switch s.Kind {
	case StatusOk:
		return Flatten(*s.Event, parentID, next, commitment, FlatOk())
	case StatusFailed:
		return Flatten(*s.Event, parentID, next, CommitFailed, FlatFailed(s.Error))
	case StatusNestedFailed:
		return Flatten(*s.Event, parentID, next, CommitFailed, FlatNestedFailed())
	default: // StatusNotReached
		id := next.Clone()
		out := []FlatEventInfo{{
			ID:               id,
			ParentID:         parentID,
			CommitmentStatus: commitment,
			EventStatus:      FlatNotReached(),
		}}
		next.IncrementIdx(out)
		return out
	}
}

// FlattenGuestEvent flattens a contract invocation's submessages, in order.
func FlattenGuestEvent(g GuestEvent, parentID EventId, next *EventId) []FlatEventInfo {
	var out []FlatEventInfo
	for _, se := range g.SubEvents {
		out = append(out, FlattenSubEvent(se, parentID, next)...)
	}
	return out
}

// FlattenSubEvent flattens one submessage plus its optional reply
// invocation. When the submessage failed but a reply ran and itself
// succeeded, the error was handled: the submessage's own event_status
// becomes Handled rather than Failed, but its subtree's commitment_status
// still flips to Failed, since the submessage's state changes never
// persist regardless of whether the parent recovers from the error
//.
func FlattenSubEvent(se SubEvent, parentID EventId, next *EventId) []FlatEventInfo {
	var out []FlatEventInfo

	switch se.Event.Kind {
	case StatusOk:
		out = append(out, Flatten(*se.Event.Event, parentID, next, CommitOk, FlatOk())...)
	case StatusFailed, StatusNestedFailed:
		evtStatus := FlatFailed(se.Event.Error)
		if se.Event.Kind == StatusNestedFailed {
			evtStatus = FlatNestedFailed()
		}
		if se.Reply != nil && se.Reply.Kind == StatusOk {
			evtStatus = FlatHandled(se.Event.Error)
		}
		out = append(out, Flatten(*se.Event.Event, parentID, next, CommitFailed, evtStatus)...)
	default: // StatusNotReached
		id := next.Clone()
		node := []FlatEventInfo{{ID: id, ParentID: parentID, CommitmentStatus: CommitOk, EventStatus: FlatNotReached()}}
		next.IncrementIdx(node)
		out = append(out, node...)
	}

	if se.Reply != nil {
		out = append(out, FlattenStatus(*se.Reply, parentID, next, CommitOk)...)
	}

	return out
}

func sortedReceiveKeys(m map[string]*Status) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
