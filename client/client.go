package client

import (
	"context"
	"fmt"

	"github.com/left-curve/grug/consensus"
	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/logging"
	"github.com/left-curve/grug/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed query/broadcast client over the consensus adapter's
// gRPC service, holding its own logger and *grpc.ClientConn and calling
// consensus.ServiceDesc's hand-rolled methods directly instead of a
// protoc-generated client stub.
type Client struct {
	conn   *grpc.ClientConn
	logger logging.Logger
}

// Dial opens a gRPC connection to a consensus.Server listener, registering
// the same json codec the server expects.
func Dial(ctx context.Context, address string) (*Client, error) {
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return nil, grugerrors.New(grugerrors.ERR_HOST, "client: dial %s", address, err)
	}
	return &Client{conn: conn, logger: logging.New("client")}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	fullMethod := fmt.Sprintf("/%s/%s", "grug.consensus.Consensus", method)
	return c.conn.Invoke(ctx, fullMethod, in, out)
}

// Info fetches the node's last committed height and app hash.
func (c *Client) Info(ctx context.Context) (*consensus.InfoResponse, error) {
	out := new(consensus.InfoResponse)
	if err := c.invoke(ctx, "Info", &consensus.InfoRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Query runs a typed Query against the node's /app path.
func (c *Client) Query(ctx context.Context, q types.Query) (interface{}, error) {
	data, err := encoding.MarshalJSON(q)
	if err != nil {
		return nil, grugerrors.New(grugerrors.ERR_SERDE, "client: encode query", err)
	}
	out := new(consensus.QueryResponse)
	if err := c.invoke(ctx, "Query", &consensus.QueryRequest{Path: "/app", Data: data}, out); err != nil {
		return nil, err
	}
	if out.Log != "" {
		return nil, grugerrors.New(grugerrors.ERR_HOST, "client: query failed: %s", out.Log)
	}
	var result interface{}
	if err := encoding.UnmarshalJSON(out.Value, &result); err != nil {
		return nil, grugerrors.New(grugerrors.ERR_SERDE, "client: decode query result", err)
	}
	return result, nil
}

// WasmSmart is a convenience wrapper for the common contract-query case.
func (c *Client) WasmSmart(ctx context.Context, contract types.Address, msg []byte) (interface{}, error) {
	return c.Query(ctx, types.Query{Kind: types.QueryWasmSmart, WasmSmart: &types.QueryWasmSmartReq{Contract: contract, Msg: msg}})
}

// SimulateResult mirrors a /simulate query's decoded TxOutcome payload.
type SimulateResult = types.TxOutcome

// Simulate dry-runs an unsigned transaction against the node's latest
// committed state via the /simulate query path, to learn
// gas_used before broadcasting.
func (c *Client) Simulate(ctx context.Context, tx types.Tx) (SimulateResult, error) {
	data, err := encoding.MarshalJSON(tx)
	if err != nil {
		return SimulateResult{}, grugerrors.New(grugerrors.ERR_SERDE, "client: encode simulate tx", err)
	}
	out := new(consensus.QueryResponse)
	if err := c.invoke(ctx, "Query", &consensus.QueryRequest{Path: "/simulate", Data: data}, out); err != nil {
		return SimulateResult{}, err
	}
	var result SimulateResult
	if err := encoding.UnmarshalJSON(out.Value, &result); err != nil {
		return SimulateResult{}, grugerrors.New(grugerrors.ERR_SERDE, "client: decode simulate result", err)
	}
	return result, nil
}

// SignDoc is the byte sequence BroadcastTx has a Signer sign: the
// JSON-encoded chain ID, sender, messages and gas limit, so a signature
// can never replay across chains. BroadcastTx submits the raw signature as
// the tx credential, which the kernel passes through opaquely. The safe
// account does not accept such a credential: its authenticate hashes its
// own encoding (gas_limit ahead of msgs, plus the tx data) and expects a
// JSON credential naming a member.
type SignDoc struct {
	ChainID string    `json:"chain_id"`
	Sender  types.Address `json:"sender"`
	Msgs    []types.Message `json:"msgs"`
	GasLimit uint64 `json:"gas_limit"`
}

// BroadcastTx simulates the transaction to learn its gas cost (if
// gasLimit is zero, using the simulated gas_used plus a safety margin),
// signs it, and submits it via CheckTx followed by FinalizeBlock/Commit
// being left to the consensus layer's own block production -- this
// client only performs the CheckTx admission step, matching a
// mempool-fronted broadcast flow (the CheckTx).
func (c *Client) BroadcastTx(ctx context.Context, signer Signer, chainID string, msgs []types.Message, gasLimit uint64) (*consensus.CheckTxResponse, error) {
	if gasLimit == 0 {
		sim, err := c.Simulate(ctx, types.Tx{Sender: signer.Address(), Messages: msgs, GasLimit: 3_000_000})
		if err != nil {
			return nil, err
		}
		gasLimit = sim.GasUsed + sim.GasUsed/5 // 20% safety margin
	}

	doc := SignDoc{ChainID: chainID, Sender: signer.Address(), Msgs: msgs, GasLimit: gasLimit}
	signBytes, err := encoding.MarshalJSON(doc)
	if err != nil {
		return nil, grugerrors.New(grugerrors.ERR_SERDE, "client: encode sign doc", err)
	}
	credential, err := signer.Sign(signBytes)
	if err != nil {
		return nil, grugerrors.New(grugerrors.ERR_HOST, "client: sign tx", err)
	}

	tx := types.Tx{Sender: signer.Address(), GasLimit: gasLimit, Messages: msgs, Credential: credential}
	out := new(consensus.CheckTxResponse)
	if err := c.invoke(ctx, "CheckTx", &consensus.CheckTxRequest{Tx: tx}, out); err != nil {
		return nil, err
	}
	if out.Code != 0 {
		return out, grugerrors.New(grugerrors.ERR_UNAUTHORIZED, "client: tx rejected: %s", out.Log)
	}
	return out, nil
}
