package safe

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

// signKey wraps a raw secp256k1 key and signs a digest directly, the
// convention signingHash/verify require (no additional internal hashing,
// unlike client.Secp256k1Signer).
type signKey struct {
	priv *secp256k1.PrivateKey
}

func newSignKey(seed byte) signKey {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = seed
	}
	return signKey{priv: secp256k1.PrivKeyFromBytes(buf)}
}

func (k signKey) pubKey() []byte { return k.priv.PubKey().SerializeCompressed() }

func (k signKey) sign(digest []byte) []byte {
	sig := dcrecdsa.Sign(k.priv, digest)
	r, s := sig.R(), sig.S()
	out := make([]byte, 64)
	rb, sb := r.Bytes(), s.Bytes()
	copy(out[0:32], rb[:])
	copy(out[32:64], sb[:])
	return out
}

func newCtx(t *testing.T, tx types.Tx) (storage.Backend, vm.AuthCtx) {
	t.Helper()
	b := storage.NewMemBackend()
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, b, gas, nil, 0)
	return b, vm.NewAuthCtx(base, tx)
}

func instantiateSafe(t *testing.T, store storage.Backend, alice signKey) {
	t.Helper()
	msg := InstantiateMsg{Params: Params{
		Members: map[string]Member{
			"alice": {Weight: 1, Scheme: SchemeSecp256k1, KeyHash: types.HashBytes(alice.pubKey())},
			"bob":   {Weight: 1, Scheme: SchemeSecp256k1, KeyHash: types.HashBytes(newSignKey(0x02).pubKey())},
		},
		Threshold:    2,
		VotingPeriod: time.Hour,
	}}
	raw, err := encoding.MarshalJSON(msg)
	require.NoError(t, err)

	c := New(types.HashBytes([]byte("safe")))
	gas := vm.NewGasTracker(1_000_000_000)
	base := vm.NewImmutableCtx("test-chain", types.BlockInfo{Height: 1, Timestamp: time.Unix(0, 0)}, types.Address{}, store, gas, nil, 0)
	mctx := vm.NewMutableCtx(base, types.GenesisSender, types.NewCoins())
	_, err = c.Instantiate(mctx, raw)
	require.NoError(t, err)
}

func TestAuthenticateAcceptsValidMemberSignature(t *testing.T) {
	alice := newSignKey(0x01)
	tx := types.Tx{Sender: types.Address{}, GasLimit: 1000}
	store, authCtx := newCtx(t, tx)
	instantiateSafe(t, store, alice)

	digest := signingHash(authCtx.Api().Sha256, authCtx.ChainID, authCtx.Tx)
	cred := Credential{Username: "alice", PubKey: alice.pubKey(), Signature: alice.sign(digest)}
	credRaw, err := encoding.MarshalJSON(cred)
	require.NoError(t, err)
	authCtx.Tx.Credential = credRaw

	c := New(types.HashBytes([]byte("safe")))
	_, err = c.Authenticate(authCtx)
	require.NoError(t, err)
}

func TestAuthenticateRejectsWrongKey(t *testing.T) {
	alice := newSignKey(0x01)
	impostor := newSignKey(0x99)
	tx := types.Tx{Sender: types.Address{}, GasLimit: 1000}
	store, authCtx := newCtx(t, tx)
	instantiateSafe(t, store, alice)

	digest := signingHash(authCtx.Api().Sha256, authCtx.ChainID, authCtx.Tx)
	cred := Credential{Username: "alice", PubKey: impostor.pubKey(), Signature: impostor.sign(digest)}
	credRaw, err := encoding.MarshalJSON(cred)
	require.NoError(t, err)
	authCtx.Tx.Credential = credRaw

	c := New(types.HashBytes([]byte("safe")))
	_, err = c.Authenticate(authCtx)
	require.Error(t, err)
}

func TestProposeVoteExecuteLifecycle(t *testing.T) {
	alice := newSignKey(0x01)
	tx := types.Tx{Sender: types.Address{}, GasLimit: 1000}
	store, authCtx := newCtx(t, tx)
	instantiateSafe(t, store, alice)

	c := New(types.HashBytes([]byte("safe")))
	mctx := vm.NewMutableCtx(authCtx.ImmutableCtx, types.Address{}, types.NewCoins())

	proposeRaw, err := encoding.MarshalJSON(ExecuteMsg{Propose: &ProposeMsg{
		Title:    "do a thing",
		Messages: []types.Message{{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{}}},
	}})
	require.NoError(t, err)
	resp, err := c.Execute(mctx, proposeRaw)
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)

	prop, err := PROPOSALS.Load(mctx.Store(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusVoting, prop.Status)

	// First yes vote is not enough against a threshold of 2.
	voteRaw, err := encoding.MarshalJSON(ExecuteMsg{Vote: &VoteMsg{ProposalID: 0, Voter: "alice", Vote: VoteYes}})
	require.NoError(t, err)
	_, err = c.Execute(mctx, voteRaw)
	require.NoError(t, err)
	prop, err = PROPOSALS.Load(mctx.Store(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusVoting, prop.Status)

	voteRaw2, err := encoding.MarshalJSON(ExecuteMsg{Vote: &VoteMsg{ProposalID: 0, Voter: "bob", Vote: VoteYes}})
	require.NoError(t, err)
	_, err = c.Execute(mctx, voteRaw2)
	require.NoError(t, err)
	prop, err = PROPOSALS.Load(mctx.Store(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusPassed, prop.Status)

	execRaw, err := encoding.MarshalJSON(ExecuteMsg{Execute: &ExecProposalMsg{ProposalID: 0}})
	require.NoError(t, err)
	execResp, err := c.Execute(mctx, execRaw)
	require.NoError(t, err)
	require.Len(t, execResp.Messages, 1)

	prop, err = PROPOSALS.Load(mctx.Store(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, prop.Status)
}

func TestVoteRejectsDoubleVoting(t *testing.T) {
	alice := newSignKey(0x01)
	tx := types.Tx{Sender: types.Address{}, GasLimit: 1000}
	store, authCtx := newCtx(t, tx)
	instantiateSafe(t, store, alice)

	c := New(types.HashBytes([]byte("safe")))
	mctx := vm.NewMutableCtx(authCtx.ImmutableCtx, types.Address{}, types.NewCoins())

	proposeRaw, err := encoding.MarshalJSON(ExecuteMsg{Propose: &ProposeMsg{
		Title:    "do a thing",
		Messages: []types.Message{{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{}}},
	}})
	require.NoError(t, err)
	_, err = c.Execute(mctx, proposeRaw)
	require.NoError(t, err)

	voteRaw, err := encoding.MarshalJSON(ExecuteMsg{Vote: &VoteMsg{ProposalID: 0, Voter: "alice", Vote: VoteYes}})
	require.NoError(t, err)
	_, err = c.Execute(mctx, voteRaw)
	require.NoError(t, err)

	_, err = c.Execute(mctx, voteRaw)
	require.Error(t, err)
}
