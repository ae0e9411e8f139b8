package consensus

import (
	"context"

	"github.com/left-curve/grug/app"
	"github.com/left-curve/grug/logging"
	"github.com/left-curve/grug/types"
)

// Actor is the actor/mailbox adapter shape that sits alongside the
// request/response one in handlers.go: the same App calls, delivered as
// typed messages through a single mailbox goroutine instead of gRPC,
// driving a consensus round through explicit StartedRound / GetValue /
// ReceivedProposalPart / Decided transitions. The actor owns its state in
// one goroutine and serves requests through a mailbox of closures, each
// caller waiting on its own done channel, rather than a mutex -- the same
// single-threaded-per-block discipline the
// deterministic core runs under.
type Actor struct {
	app    *app.App
	logger logging.Logger
	mailbox chan func()
	done    chan struct{}
}

// NewActor starts the mailbox goroutine. Every request against the
// returned Actor runs strictly after the ones submitted before it,
// serializing block-pipeline access without a mutex.
func NewActor(a *app.App) *Actor {
	act := &Actor{
		app:     a,
		logger:  logging.New("consensus.actor"),
		mailbox: make(chan func()),
		done:    make(chan struct{}),
	}
	go act.run()
	return act
}

func (act *Actor) run() {
	for {
		select {
		case fn := <-act.mailbox:
			fn()
		case <-act.done:
			return
		}
	}
}

// Stop terminates the owning goroutine without draining the mailbox; a
// request submitted after Stop is never served.
func (act *Actor) Stop() { close(act.done) }

func (act *Actor) submit(fn func()) {
	done := make(chan struct{})
	act.mailbox <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Round is the actor-driven state for one consensus round: the candidate
// transactions proposed. The finalize result is not kept here; Decided
// returns it.
type Round struct {
	Height uint64
	Block  types.BlockInfo
	Txs    []types.Tx
}

// StartedRound begins tracking a new round at the given height, clearing
// any prior round's proposal parts (the actor transition
// naming).
func (act *Actor) StartedRound(ctx context.Context, height uint64) *Round {
	return &Round{Height: height}
}

// GetValue asks the app to assemble (PrepareProposal) the transactions
// this node proposes for the round, honoring maxBytes.
func (act *Actor) GetValue(ctx context.Context, round *Round, candidates [][]byte, maxBytes int) (txs [][]byte) {
	act.submit(func() {
		txs = act.app.PrepareProposal(candidates, maxBytes)
	})
	return txs
}

// ReceivedProposalPart accumulates one part of another validator's
// proposed block into the round (here, a full raw tx, since the kernel
// doesn't itself chunk proposals -- that's the consensus layer's
// concern, out of scope).
func (act *Actor) ReceivedProposalPart(round *Round, rawTx []byte) {
	var tx types.Tx
	if err := decodeTx(rawTx, &tx); err != nil {
		act.logger.Warnf("actor: dropping malformed proposal part: %v", err)
		return
	}
	round.Txs = append(round.Txs, tx)
}

// Decided finalizes and commits the round's block once consensus has
// agreed on it, returning the same outcome shape the request/response
// adapter's FinalizeBlock returns ("the app drives rounds
// through explicit ... Decided transitions").
func (act *Actor) Decided(ctx context.Context, round *Round, block types.BlockInfo) (resp *FinalizeBlockResponse, err error) {
	act.submit(func() {
		_, appHash, txOutcomes, cronOutcomes, flat, fErr := act.app.FinalizeBlock(block, round.Txs)
		if fErr != nil {
			err = fErr
			return
		}
		if cErr := act.app.Commit(); cErr != nil {
			err = cErr
			return
		}

		txResults := make([]TxResult, len(txOutcomes))
		for i, o := range txOutcomes {
			code := uint32(0)
			if o.Error != "" {
				code = 1
			}
			txResults[i] = TxResult{Code: code, GasWanted: o.GasLimit, GasUsed: o.GasUsed, Log: o.Error}
		}
		cronResults := make([]CronResult, len(cronOutcomes))
		for i, o := range cronOutcomes {
			cronResults[i] = CronResult{Contract: o.Contract, GasUsed: o.GasUsed, Log: o.Error}
		}
		resp = &FinalizeBlockResponse{AppHash: appHash[:], TxResults: txResults, CronResults: cronResults, Events: flat}
	})
	return resp, err
}

func decodeTx(raw []byte, tx *types.Tx) error {
	return jsonCodec{}.Unmarshal(raw, tx)
}
