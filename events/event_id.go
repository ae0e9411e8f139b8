package events

// EventId locates a flattened event within a block: which tx or cronjob
// produced it, which message within that tx (nil for cronjobs and
// tx-level events like withhold/finalize), and a pre-order index within
// that scope.
type EventId struct {
	TxOrCronIndex uint32
	MessageIndex  *uint32
	EventIndex    uint32
}

func (id EventId) Clone() EventId {
	out := id
	if id.MessageIndex != nil {
		mi := *id.MessageIndex
		out.MessageIndex = &mi
	}
	return out
}

// CloneWithEventIndex returns a copy of id with EventIndex replaced, used
// when a node's own id must reference an index its caller already holds
// (e.g. EvtUpload and EvtGuest reusing the parent's running
// counter rather than minting a fresh one).
func (id EventId) CloneWithEventIndex(idx uint32) EventId {
	out := id.Clone()
	out.EventIndex = idx
	return out
}

// IncrementIdx advances EventIndex by the number of sibling nodes just
// emitted, so the next flattened node gets a fresh, non-colliding index
//.
func (id *EventId) IncrementIdx(emitted []FlatEventInfo) {
	id.EventIndex += uint32(len(emitted))
}
