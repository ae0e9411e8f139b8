package consensus

import (
	"context"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/types"
)

// Info reports the adapter's last committed height and app hash. An empty DB reports a nil app hash, as InitChain hasn't run yet.
func (s *Server) Info(ctx context.Context, req *InfoRequest) (*InfoResponse, error) {
	height := s.App.DB.LatestVersion()
	var appHash []byte
	if hash, ok := s.App.DB.RootHash(nil); ok {
		appHash = hash[:]
	}
	return &InfoResponse{LastHeight: height, LastAppHash: appHash}, nil
}

// InitChain seeds the chain from genesis_state and commits immediately
//.
func (s *Server) InitChain(ctx context.Context, req *InitChainRequest) (*InitChainResponse, error) {
	hash, err := s.App.InitChain(req.GenesisState)
	if err != nil {
		return nil, grpcError(err)
	}
	return &InitChainResponse{AppHash: hash[:]}, nil
}

// PrepareProposal lets the app reorder or trim candidate transactions
//. On a panic from the app's
// strategy, it falls back to the identity ordering to preserve liveness
// ("On failure, fall back to the identity (naive)
// strategy").
func (s *Server) PrepareProposal(ctx context.Context, req *PrepareProposalRequest) (resp *PrepareProposalResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("prepare_proposal strategy panicked, falling back to identity: %v", r)
			resp = &PrepareProposalResponse{Txs: req.Txs}
			err = nil
		}
	}()
	txs := s.App.PrepareProposal(req.Txs, req.MaxBytes)
	return &PrepareProposalResponse{Txs: txs}, nil
}

// FinalizeBlock runs the block pipeline and stages its app hash without
// committing.
func (s *Server) FinalizeBlock(ctx context.Context, req *FinalizeBlockRequest) (*FinalizeBlockResponse, error) {
	_, appHash, txOutcomes, cronOutcomes, flat, err := s.App.FinalizeBlock(req.Block, req.Txs)
	if err != nil {
		return nil, grpcError(err)
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

	return &FinalizeBlockResponse{
		AppHash:     appHash[:],
		TxResults:   txResults,
		CronResults: cronResults,
		Events:      flat,
	}, nil
}

// Commit makes the most recently staged FinalizeBlock durable.
func (s *Server) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	if err := s.App.Commit(); err != nil {
		return nil, grpcError(err)
	}
	return &CommitResponse{}, nil
}

// CheckTx authenticates a candidate transaction against committed state
// without mutating it, for mempool admission.
func (s *Server) CheckTx(ctx context.Context, req *CheckTxRequest) (*CheckTxResponse, error) {
	gasWanted, err := s.App.CheckTx(req.Tx)
	if err != nil {
		return &CheckTxResponse{Code: 1, GasWanted: gasWanted, Log: err.Error()}, nil
	}
	return &CheckTxResponse{Code: 0, GasWanted: gasWanted}, nil
}

// Query routes a request to one of three paths:
// /app (a typed Query enum, re-entering the kernel read-only), /simulate
// (a dry-run transaction), and /store (a raw state-storage read, with a
// Merkle proof when the underlying DB supports one -- the lite variant
// never does).
func (s *Server) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	switch req.Path {
	case "/app":
		var q types.Query
		if err := encoding.UnmarshalJSON(req.Data, &q); err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "consensus: decode /app query", err)
		}
		result, err := s.App.QueryChain(q, 0)
		if err != nil {
			return &QueryResponse{Log: err.Error()}, nil
		}
		value, err := encoding.MarshalJSON(result)
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "consensus: encode /app result", err)
		}
		return &QueryResponse{Value: value}, nil

	case "/simulate":
		var tx types.Tx
		if err := encoding.UnmarshalJSON(req.Data, &tx); err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "consensus: decode /simulate tx", err)
		}
		outcome, _, err := s.App.Simulate(tx)
		if err != nil {
			return nil, grpcError(err)
		}
		value, err := encoding.MarshalJSON(outcome)
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "consensus: encode /simulate result", err)
		}
		return &QueryResponse{Value: value, Log: outcome.Error}, nil

	case "/store":
		base, err := s.App.DB.StateStorage(nil)
		if err != nil {
			return nil, grpcError(err)
		}
		resp := &QueryResponse{}
		if value, ok := base.Read(req.Data); ok {
			resp.Value = value
		} else {
			resp.Log = "key not found"
		}
		if req.Prove {
			proof, err := s.App.DB.Prove(req.Data, nil)
			if err != nil {
				return nil, grpcError(err)
			}
			resp.Proof = proof
		}
		return resp, nil

	default:
		return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "consensus: unknown query path %q", req.Path)
	}
}
