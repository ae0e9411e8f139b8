package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/left-curve/grug/contracts/bank"
	"github.com/left-curve/grug/contracts/safe"
	"github.com/left-curve/grug/contracts/taxman"
	"github.com/left-curve/grug/crypto"
	"github.com/left-curve/grug/db"
	"github.com/left-curve/grug/encoding"
	"github.com/left-curve/grug/gmath"
	"github.com/left-curve/grug/types"
	"github.com/left-curve/grug/vm"
)

const ugrug = "ugrug"

// safeSigner wraps a raw secp256k1 key and signs a safe account's
// signing-hash digest directly -- unlike client.Secp256k1Signer, which
// hashes its input before signing (a sign-doc convention this contract's
// Authenticate doesn't use: its digest already is the final SHA-256 hash,
// so signing it again would verify against the wrong value).
type safeSigner struct {
	priv *secp256k1.PrivateKey
}

func newSafeSigner(seed byte) safeSigner {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = seed
	}
	return safeSigner{priv: secp256k1.PrivKeyFromBytes(buf)}
}

func (s safeSigner) pubKey() []byte { return s.priv.PubKey().SerializeCompressed() }

func (s safeSigner) sign(digest []byte) []byte {
	sig := dcrecdsa.Sign(s.priv, digest)
	r, sv := sig.R(), sig.S()
	out := make([]byte, 64)
	rb, sb := r.Bytes(), sv.Bytes()
	copy(out[0:32], rb[:])
	copy(out[32:64], sb[:])
	return out
}

// safeCredential builds the Credential blob contracts/safe.Authenticate
// expects, signing the same chain_id/sender/gas_limit/msgs/data payload it
// hashes internally.
func safeCredential(t *testing.T, chainID string, tx types.Tx, username string, signer safeSigner) []byte {
	t.Helper()
	signable := struct {
		ChainID  string          `json:"chain_id"`
		Sender   types.Address   `json:"sender"`
		GasLimit uint64          `json:"gas_limit"`
		Messages []types.Message `json:"msgs"`
		Data     []byte          `json:"data,omitempty"`
	}{chainID, tx.Sender, tx.GasLimit, tx.Messages, tx.Data}
	raw, err := encoding.MarshalJSON(signable)
	require.NoError(t, err)
	digest := crypto.Sha256(raw).Bytes()

	cred := safe.Credential{
		Username:  username,
		PubKey:    signer.pubKey(),
		Signature: signer.sign(digest),
	}
	out, err := encoding.MarshalJSON(cred)
	require.NoError(t, err)
	return out
}

// scenarioHarness wires a fresh lite DB and VM with the bank, taxman, and
// two single-member safe accounts genesis needs.
type scenarioHarness struct {
	app        *App
	bankHash   types.Hash256
	taxmanHash types.Hash256
	safeHash   types.Hash256
	bankAddr   types.Address
	taxmanAddr types.Address
	senderAddr types.Address
	ownerAddr  types.Address
	senderKey  safeSigner
	ownerKey   safeSigner
}

func setupScenario(t *testing.T, senderBalance, ownerBalance uint64) *scenarioHarness {
	t.Helper()

	ldb, err := db.Open(t.TempDir())
	require.NoError(t, err)

	vmach := vm.New()

	bankHash := types.HashBytes([]byte("code:bank"))
	taxmanHash := types.HashBytes([]byte("code:taxman"))
	safeHash := types.HashBytes([]byte("code:safe"))

	vmach.Register(bank.New(bankHash))
	vmach.Register(taxman.New(taxmanHash))
	vmach.Register(safe.New(safeHash))

	bankAddr := types.DeriveContractAddress(types.GenesisSender, bankHash, []byte("bank"))
	taxmanAddr := types.DeriveContractAddress(types.GenesisSender, taxmanHash, []byte("taxman"))
	senderAddr := types.DeriveContractAddress(types.GenesisSender, safeHash, []byte("sender-account"))
	ownerAddr := types.DeriveContractAddress(types.GenesisSender, safeHash, []byte("owner-account"))

	senderKey := newSafeSigner(0x01)
	ownerKey := newSafeSigner(0x02)

	senderAmt := gmath.NewInt[gmath.U256](new(big.Int).SetUint64(senderBalance))
	ownerAmt := gmath.NewInt[gmath.U256](new(big.Int).SetUint64(ownerBalance))

	bankInstMsg := bank.InstantiateMsg{Balances: []bank.BalanceEntry{}}
	if senderBalance > 0 {
		coins, err := types.CoinsFrom(types.Coin{Denom: ugrug, Amount: senderAmt})
		require.NoError(t, err)
		bankInstMsg.Balances = append(bankInstMsg.Balances, bank.BalanceEntry{Address: senderAddr, Coins: coins})
	}
	if ownerBalance > 0 {
		coins, err := types.CoinsFrom(types.Coin{Denom: ugrug, Amount: ownerAmt})
		require.NoError(t, err)
		bankInstMsg.Balances = append(bankInstMsg.Balances, bank.BalanceEntry{Address: ownerAddr, Coins: coins})
	}
	bankInstRaw, err := encoding.MarshalJSON(bankInstMsg)
	require.NoError(t, err)

	feeRate, err := gmath.ParseDec[gmath.U256]("1", 18)
	require.NoError(t, err)
	taxmanInstRaw, err := encoding.MarshalJSON(taxman.InstantiateMsg{
		Config: taxman.Config{FeeDenom: ugrug, FeeRate: feeRate},
	})
	require.NoError(t, err)

	senderKeyHash := types.HashBytes(senderKey.pubKey())
	senderSafeRaw, err := encoding.MarshalJSON(safe.InstantiateMsg{
		Params: safe.Params{
			Members: map[string]safe.Member{
				"alice": {Weight: 1, Scheme: safe.SchemeSecp256k1, KeyHash: senderKeyHash},
			},
			Threshold:    1,
			VotingPeriod: 24 * time.Hour,
		},
	})
	require.NoError(t, err)

	ownerKeyHash := types.HashBytes(ownerKey.pubKey())
	ownerSafeRaw, err := encoding.MarshalJSON(safe.InstantiateMsg{
		Params: safe.Params{
			Members: map[string]safe.Member{
				"bob": {Weight: 1, Scheme: safe.SchemeSecp256k1, KeyHash: ownerKeyHash},
			},
			Threshold:    1,
			VotingPeriod: 24 * time.Hour,
		},
	})
	require.NoError(t, err)

	genesis := GenesisState{
		Config: types.Config{
			Owner:  ownerAddr,
			Bank:   bankAddr,
			Taxman: taxmanAddr,
			Permissions: types.Permissions{
				Upload:      types.Permission{Everybody: true},
				Instantiate: types.Permission{Everybody: true},
			},
		},
		Msgs: []types.Message{
			{Kind: types.MsgUpload, Upload: &types.UploadMsg{Code: []byte("code:bank")}},
			{Kind: types.MsgInstantiate, Instantiate: &types.InstantiateMsg{
				CodeHash: bankHash, Msg: bankInstRaw, Salt: []byte("bank"), Funds: types.NewCoins(),
			}},
			{Kind: types.MsgUpload, Upload: &types.UploadMsg{Code: []byte("code:taxman")}},
			{Kind: types.MsgInstantiate, Instantiate: &types.InstantiateMsg{
				CodeHash: taxmanHash, Msg: taxmanInstRaw, Salt: []byte("taxman"), Funds: types.NewCoins(),
			}},
			{Kind: types.MsgUpload, Upload: &types.UploadMsg{Code: []byte("code:safe")}},
			{Kind: types.MsgInstantiate, Instantiate: &types.InstantiateMsg{
				CodeHash: safeHash, Msg: senderSafeRaw, Salt: []byte("sender-account"), Funds: types.NewCoins(),
			}},
			{Kind: types.MsgInstantiate, Instantiate: &types.InstantiateMsg{
				CodeHash: safeHash, Msg: ownerSafeRaw, Salt: []byte("owner-account"), Funds: types.NewCoins(),
			}},
		},
	}

	a := New("scenario-a", ldb, vmach)
	_, err = a.InitChain(genesis)
	require.NoError(t, err)

	require.Equal(t, bankAddr, types.DeriveContractAddress(types.GenesisSender, bankHash, []byte("bank")))

	return &scenarioHarness{
		app: a, bankHash: bankHash, taxmanHash: taxmanHash, safeHash: safeHash,
		bankAddr: bankAddr, taxmanAddr: taxmanAddr, senderAddr: senderAddr, ownerAddr: ownerAddr,
		senderKey: senderKey, ownerKey: ownerKey,
	}
}

func (h *scenarioHarness) balance(t *testing.T, addr types.Address) types.Uint {
	t.Helper()
	resp, err := h.app.QueryChain(types.Query{Kind: types.QueryBalance, Balance: &types.QueryBalanceReq{Address: addr, Denom: ugrug}}, 0)
	require.NoError(t, err)
	br, ok := resp.(types.BankQueryResponse)
	require.True(t, ok)
	require.NotNil(t, br.Balance)
	return br.Balance.Amount
}

// TestTransferSettlesFeeAndMovesCoins drives a plain transfer end to
// end: a single-member safe account transfers 2000 ugrug to another safe
// account, with gas_limit 2000 against a flat 1 ugrug/gas taxman. Expect
// the tx to succeed, the full 2000 ugrug to land on the recipient, and the
// sender's balance to fall by exactly 2000 plus whatever fee gas_used
// actually priced (withheld at gas_limit, then refunded down to gas_used).
func TestTransferSettlesFeeAndMovesCoins(t *testing.T) {
	h := setupScenario(t, 30_000, 0)

	transferCoins, err := types.CoinsFrom(types.Coin{Denom: ugrug, Amount: gmath.NewInt[gmath.U256](big.NewInt(2000))})
	require.NoError(t, err)

	tx := types.Tx{
		Sender:   h.senderAddr,
		GasLimit: 2000,
		Messages: []types.Message{
			{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{
				Transfers: []types.Transfer{{To: h.ownerAddr, Coins: transferCoins}},
			}},
		},
	}
	tx.Credential = safeCredential(t, h.app.ChainID, tx, "alice", h.senderKey)

	block := types.BlockInfo{Height: 1, Timestamp: time.Now()}
	_, _, outcomes, _, flat, err := h.app.FinalizeBlock(block, []types.Tx{tx})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].IsOk(), "tx failed: %s", outcomes[0].Error)
	require.NoError(t, h.app.Commit())

	feeWithheld := gmath.NewInt[gmath.U256](new(big.Int).SetUint64(outcomes[0].GasUsed))

	senderBal := h.balance(t, h.senderAddr)
	ownerBal := h.balance(t, h.ownerAddr)

	wantSender, err := gmath.NewInt[gmath.U256](big.NewInt(30_000)).CheckedSub(gmath.NewInt[gmath.U256](big.NewInt(2000)))
	require.NoError(t, err)
	wantSender, err = wantSender.CheckedSub(feeWithheld)
	require.NoError(t, err)

	require.True(t, senderBal.Cmp(wantSender) == 0, "sender balance = %s, want %s", senderBal, wantSender)
	require.True(t, ownerBal.Cmp(gmath.NewInt[gmath.U256](big.NewInt(2000))) == 0, "owner balance = %s", ownerBal)

	var sawTransfer, sawBankExecute bool
	for _, f := range flat {
		switch f.Event.Kind {
		case "transfer":
			sawTransfer = true
		case "execute":
			if f.Event.Contract == h.bankAddr {
				sawBankExecute = true
			}
		}
	}
	require.True(t, sawTransfer, "expected a top-level transfer event")
	require.True(t, sawBankExecute, "expected a nested bank_execute event under the bank contract")
}

// TestTransferRejectsInsufficientBalance checks the mirror case:
// a sender with no funds at all can't cover the transfer, so bank_execute's
// debit fails and the whole tx is rolled back -- no partial balance
// changes survive (the all-or-nothing message execution).
func TestTransferRejectsInsufficientBalance(t *testing.T) {
	h := setupScenario(t, 0, 0)

	transferCoins, err := types.CoinsFrom(types.Coin{Denom: ugrug, Amount: gmath.NewInt[gmath.U256](big.NewInt(2000))})
	require.NoError(t, err)

	tx := types.Tx{
		Sender:   h.senderAddr,
		GasLimit: 2000,
		Messages: []types.Message{
			{Kind: types.MsgTransfer, Transfer: &types.TransferMsg{
				Transfers: []types.Transfer{{To: h.ownerAddr, Coins: transferCoins}},
			}},
		},
	}
	tx.Credential = safeCredential(t, h.app.ChainID, tx, "alice", h.senderKey)

	block := types.BlockInfo{Height: 1, Timestamp: time.Now()}
	_, _, outcomes, _, _, err := h.app.FinalizeBlock(block, []types.Tx{tx})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].IsOk())
	require.NoError(t, h.app.Commit())

	require.True(t, h.balance(t, h.ownerAddr).IsZero())
}
