// Package safe implements the multi-signature safe account:
// authentication delegation to a weighted member set, plus a
// propose/vote/execute proposal lifecycle. Votes tally against a weight
// threshold inside a voting window; a passed proposal executes its
// messages through a self-submessage, optionally after a timelock.
package safe

import (
	"encoding/json"
	"time"

	"github.com/left-curve/grug/crypto"
	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/keys"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// Vote is a member's ballot on a proposal.
type Vote string

const (
	VoteYes Vote = "yes"
	VoteNo  Vote = "no"
)

// Status is a proposal's lifecycle state.
type Status string

const (
	StatusVoting   Status = "voting"
	StatusPassed   Status = "passed"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
)

// Scheme names the signature algorithm a member authenticates with.
type Scheme string

const (
	SchemeSecp256k1 Scheme = "secp256k1"
	SchemeSecp256r1 Scheme = "secp256r1"
	SchemeEd25519   Scheme = "ed25519"
)

// Member is one entry of the safe's member set: a voting weight and the
// public-key hash + scheme that authenticates that member -- a credential
// is only accepted if its key hashes to the voter's stored KeyHash.
type Member struct {
	Weight  uint32        `json:"weight"`
	Scheme  Scheme        `json:"scheme"`
	KeyHash types.Hash256 `json:"key_hash"`
}

// Params is the safe's configuration.
type Params struct {
	Members      map[string]Member `json:"members"`
	Threshold    uint32            `json:"threshold"`
	VotingPeriod time.Duration     `json:"voting_period"`
	Timelock     *time.Duration    `json:"timelock,omitempty"`
}

// Proposal is a pending or resolved action.
type Proposal struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Messages    []types.Message `json:"messages"`
	Status      Status          `json:"status"`
	Yes         uint32          `json:"yes"`
	No          uint32          `json:"no"`
	Voted       map[string]Vote `json:"voted"`
	Deadline    time.Time       `json:"deadline"`
	PassedAt    *time.Time      `json:"passed_at,omitempty"`
}

var (
	PARAMS           = storage.NewItem[Params]([]byte("params"))
	NEXT_PROPOSAL_ID = storage.NewCounter([]byte("next_proposal_id"))
	PROPOSALS        = storage.NewMap[uint64, Proposal]([]byte("proposal/"), keys.Uint64Codec())
)

// Credential is the opaque blob carried in types.Tx.Credential for a
// transaction sent by this safe: the member claiming to sign, their public
// key (hashed and compared against the member's stored KeyHash), and the
// signature itself.
type Credential struct {
	Username  string `json:"username"`
	PubKey    []byte `json:"pub_key"`
	Signature []byte `json:"signature"`
}

// Contract implements the safe's entry points.
type Contract struct {
	codeHash types.Hash256
}

func New(codeHash types.Hash256) *Contract { return &Contract{codeHash: codeHash} }

func (c *Contract) CodeHash() types.Hash256 { return c.codeHash }

// InstantiateMsg seeds the safe's member set and voting rules.
type InstantiateMsg struct {
	Params Params `json:"params"`
}

func (c *Contract) Instantiate(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg InstantiateMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "safe: decode instantiate msg", err)
	}
	if msg.Params.Threshold == 0 || int(msg.Params.Threshold) > len(msg.Params.Members) {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: threshold must be in [1, len(members)]")
	}
	if err := PARAMS.Save(ctx.Store(), msg.Params); err != nil {
		return types.Response{}, err
	}
	return types.Response{}, nil
}

// ExecuteMsg is the safe's tagged execute variant.
type ExecuteMsg struct {
	Propose *ProposeMsg `json:"propose,omitempty"`
	Vote    *VoteMsg    `json:"vote,omitempty"`
	Execute *ExecProposalMsg `json:"execute,omitempty"`
}

type ProposeMsg struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Messages    []types.Message `json:"messages"`
}

type VoteMsg struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Vote       Vote   `json:"vote"`
	Execute    bool   `json:"execute"`
}

type ExecProposalMsg struct {
	ProposalID uint64 `json:"proposal_id"`
}

func (c *Contract) Execute(ctx vm.MutableCtx, raw json.RawMessage) (types.Response, error) {
	var msg ExecuteMsg
	if err := encoding.UnmarshalJSON(raw, &msg); err != nil {
		return types.Response{}, grugerrors.New(grugerrors.ERR_SERDE, "safe: decode execute msg", err)
	}
	switch {
	case msg.Propose != nil:
		return c.propose(ctx, *msg.Propose)
	case msg.Vote != nil:
		return c.vote(ctx, *msg.Vote)
	case msg.Execute != nil:
		return c.executeProposal(ctx, msg.Execute.ProposalID)
	default:
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: empty execute message")
	}
}

func (c *Contract) propose(ctx vm.MutableCtx, m ProposeMsg) (types.Response, error) {
	params, err := PARAMS.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	if len(m.Messages) == 0 {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: proposal must carry at least one message")
	}

	id := NEXT_PROPOSAL_ID.Next(ctx.Store())
	prop := Proposal{
		Title:       m.Title,
		Description: m.Description,
		Messages:    m.Messages,
		Status:      StatusVoting,
		Voted:       map[string]Vote{},
		Deadline:    ctx.Block.Timestamp.Add(params.VotingPeriod),
	}
	if err := PROPOSALS.Save(ctx.Store(), id, prop); err != nil {
		return types.Response{}, err
	}

	return types.Response{Events: []map[string]interface{}{{
		"type":        "proposal_submitted",
		"proposal_id": id,
		"title":       m.Title,
	}}}, nil
}

func (c *Contract) vote(ctx vm.MutableCtx, m VoteMsg) (types.Response, error) {
	params, err := PARAMS.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	member, ok := params.Members[m.Voter]
	if !ok {
		return types.Response{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "safe: %q is not a member", m.Voter)
	}

	prop, err := PROPOSALS.Load(ctx.Store(), m.ProposalID)
	if err != nil {
		return types.Response{}, err
	}
	if prop.Status != StatusVoting {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: proposal is not open for voting")
	}
	if ctx.Block.Timestamp.After(prop.Deadline) {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: voting period has elapsed")
	}
	if _, already := prop.Voted[m.Voter]; already {
		return types.Response{}, grugerrors.New(grugerrors.ERR_ALREADY_EXISTS, "safe: %q has already voted on this proposal", m.Voter)
	}

	prop.Voted[m.Voter] = m.Vote
	switch m.Vote {
	case VoteYes:
		prop.Yes += member.Weight
	case VoteNo:
		prop.No += member.Weight
	default:
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: invalid vote %q", m.Vote)
	}

	if prop.Yes >= params.Threshold {
		prop.Status = StatusPassed
		now := ctx.Block.Timestamp
		prop.PassedAt = &now
	} else if totalWeight(params) > 0 && prop.No > totalWeight(params)-params.Threshold {
		// No further combination of outstanding votes can reach threshold.
		prop.Status = StatusRejected
	}

	if err := PROPOSALS.Save(ctx.Store(), m.ProposalID, prop); err != nil {
		return types.Response{}, err
	}

	resp := types.Response{Events: []map[string]interface{}{{
		"type":        "voted",
		"proposal_id": m.ProposalID,
		"voter":       m.Voter,
		"vote":        m.Vote,
		"status":      prop.Status,
	}}}

	if prop.Status == StatusPassed && m.Execute && hasElapsedTimelock(params, prop) {
		resp.Messages = append(resp.Messages, types.SubMessage{
			Msg: types.Message{Kind: types.MsgExecute, Execute: &types.ExecuteMsg{
				Contract: ctx.Contract,
				Msg:      mustMarshal(ExecuteMsg{Execute: &ExecProposalMsg{ProposalID: m.ProposalID}}),
			}},
			ReplyOn: types.ReplyNever,
		})
	}
	return resp, nil
}

func (c *Contract) executeProposal(ctx vm.MutableCtx, proposalID uint64) (types.Response, error) {
	params, err := PARAMS.Load(ctx.Store())
	if err != nil {
		return types.Response{}, err
	}
	prop, err := PROPOSALS.Load(ctx.Store(), proposalID)
	if err != nil {
		return types.Response{}, err
	}
	if prop.Status != StatusPassed || !hasElapsedTimelock(params, prop) {
		return types.Response{}, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: proposal not passed or not elapsed")
	}

	prop.Status = StatusExecuted
	if err := PROPOSALS.Save(ctx.Store(), proposalID, prop); err != nil {
		return types.Response{}, err
	}

	submsgs := make([]types.SubMessage, len(prop.Messages))
	for i, msg := range prop.Messages {
		submsgs[i] = types.SubMessage{Msg: msg, ReplyOn: types.ReplyNever}
	}

	return types.Response{
		Events: []map[string]interface{}{{
			"type":        "proposal_executed",
			"proposal_id": proposalID,
		}},
		Messages: submsgs,
	}, nil
}

func totalWeight(p Params) uint32 {
	var sum uint32
	for _, m := range p.Members {
		sum += m.Weight
	}
	return sum
}

func hasElapsedTimelock(params Params, prop Proposal) bool {
	if params.Timelock == nil || prop.PassedAt == nil {
		return true
	}
	return !time.Now().Before(prop.PassedAt.Add(*params.Timelock))
}

func mustMarshal(v interface{}) []byte {
	raw, err := encoding.MarshalJSON(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// Authenticate verifies the transaction's credential belongs to a current
// member, and that any Vote message it carries is cast under that same
// member's username.
func (c *Contract) Authenticate(ctx vm.AuthCtx) (types.AuthResponse, error) {
	var cred Credential
	if err := encoding.UnmarshalJSON(ctx.Tx.Credential, &cred); err != nil {
		return types.AuthResponse{}, grugerrors.New(grugerrors.ERR_SERDE, "safe: decode credential", err)
	}

	params, err := PARAMS.Load(ctx.Store())
	if err != nil {
		return types.AuthResponse{}, err
	}
	member, ok := params.Members[cred.Username]
	if !ok {
		return types.AuthResponse{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "safe: %q is not a member", cred.Username)
	}
	api := ctx.Api()
	if api.Sha256(cred.PubKey) != member.KeyHash {
		return types.AuthResponse{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "safe: public key does not belong to %q", cred.Username)
	}

	digest := signingHash(api.Sha256, ctx.ChainID, ctx.Tx)
	if err := verify(api, member.Scheme, digest, cred.Signature, cred.PubKey); err != nil {
		return types.AuthResponse{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "safe: signature verification failed", err)
	}

	for _, m := range ctx.Tx.Messages {
		if m.Kind != types.MsgExecute || m.Execute == nil || m.Execute.Contract != ctx.Contract {
			continue
		}
		var inner ExecuteMsg
		if err := encoding.UnmarshalJSON(m.Execute.Msg, &inner); err != nil {
			continue
		}
		if inner.Vote != nil && inner.Vote.Voter != cred.Username {
			return types.AuthResponse{}, grugerrors.New(grugerrors.ERR_UNAUTHORIZED,
				"safe: credential username %q does not match vote's voter %q", cred.Username, inner.Vote.Voter)
		}
	}

	return types.AuthResponse{}, nil
}

// signingHash hashes the transaction sans its credential, the payload every
// member signs over. sha256 is injected so callers inside a contract entry
// point can pass the gas-metered ctx.Api().Sha256 (the "every
// host call is metered" rule) while a client building a signature outside
// any contract context passes the plain crypto.Sha256.
func signingHash(sha256 func([]byte) crypto.Hash256, chainID string, tx types.Tx) []byte {
	signable := struct {
		ChainID  string          `json:"chain_id"`
		Sender   types.Address   `json:"sender"`
		GasLimit uint64          `json:"gas_limit"`
		Messages []types.Message `json:"msgs"`
		Data     []byte          `json:"data,omitempty"`
	}{chainID, tx.Sender, tx.GasLimit, tx.Messages, tx.Data}
	raw, err := encoding.MarshalJSON(signable)
	if err != nil {
		panic(err)
	}
	h := sha256(raw)
	return h.Bytes()
}

// verify checks sig over digest against pubKey using the member's
// configured scheme, through the caller's metered Api.
func verify(api vm.Api, scheme Scheme, digest, sig, pubKey []byte) error {
	switch scheme {
	case SchemeSecp256k1:
		return api.Secp256k1Verify(digest, sig, pubKey)
	case SchemeSecp256r1:
		return api.Secp256r1Verify(digest, sig, pubKey)
	case SchemeEd25519:
		return api.Ed25519Verify(digest, sig, pubKey)
	default:
		return grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "safe: unknown signature scheme %q", scheme)
	}
}
