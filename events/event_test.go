package events

import (
	"testing"

	"github.com/left-curve/grug/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func TestFlattenSimpleGuestTree(t *testing.T) {
	inner := Event{Kind: KindExecute, Sender: addr(1), Contract: addr(2)}
	outer := Event{
		Kind:     KindExecute,
		Sender:   addr(1),
		Contract: addr(3),
		Guest: &GuestEvent{
			Contract: addr(3),
			Method:   "execute",
			SubEvents: []SubEvent{
				{Event: Ok(inner)},
			},
		},
	}

	root := EventId{TxOrCronIndex: 0}
	next := root.Clone()
	flat := Flatten(outer, EventId{}, &next, CommitOk, FlatOk())

	if len(flat) != 2 {
		t.Fatalf("expected 2 flattened nodes, got %d", len(flat))
	}
	if flat[0].Event.Contract != addr(3) {
		t.Fatalf("root node should be the outer execute event")
	}
	if flat[1].Event.Contract != addr(2) {
		t.Fatalf("second node should be the inner submessage event")
	}
	if flat[1].ParentID.EventIndex != flat[0].ID.EventIndex {
		t.Fatalf("inner event's parent id should reference the outer node's id")
	}
	if flat[0].CommitmentStatus != CommitOk || flat[1].CommitmentStatus != CommitOk {
		t.Fatalf("a fully successful tree should commit ok throughout")
	}
}

func TestFlattenHandledSubmessageFlipsCommitmentToFailed(t *testing.T) {
	failed := Event{Kind: KindExecute, Sender: addr(1), Contract: addr(2)}
	reply := Event{Kind: KindReply, Sender: addr(1), Contract: addr(3)}

	outer := Event{
		Kind:     KindExecute,
		Sender:   addr(1),
		Contract: addr(3),
		Guest: &GuestEvent{
			Contract: addr(3),
			Method:   "execute",
			SubEvents: []SubEvent{
				{
					Event: Failed(failed, "insufficient funds"),
					Reply: ptr(Ok(reply)),
				},
			},
		},
	}

	next := EventId{}
	flat := Flatten(outer, EventId{}, &next, CommitOk, FlatOk())

	if len(flat) != 3 {
		t.Fatalf("expected root + failed submessage + reply, got %d", len(flat))
	}

	submsg := flat[1]
	if submsg.CommitmentStatus != CommitFailed {
		t.Fatalf("a failed submessage's subtree never commits, even when its reply handles the error")
	}
	if submsg.EventStatus.Kind != StatusHandled {
		t.Fatalf("expected event status Handled, got %v", submsg.EventStatus.Kind)
	}
	if submsg.EventStatus.Error != "insufficient funds" {
		t.Fatalf("handled status should retain the original error message")
	}

	replyNode := flat[2]
	if replyNode.CommitmentStatus != CommitOk {
		t.Fatalf("the reply invocation itself committed ok")
	}
	if replyNode.EventStatus.Kind != StatusOk {
		t.Fatalf("expected reply event status Ok, got %v", replyNode.EventStatus.Kind)
	}
}

func ptr(s Status) *Status { return &s }
