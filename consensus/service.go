package consensus

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the gRPC service path prefix. There is no .proto file
// behind it (see the package doc comment); it exists only so the method
// full-names look like any other gRPC service's.
const serviceName = "grug.consensus.Consensus"

// Handler is what a *Server must implement; ServiceDesc below wires it to
// grpc.Server by hand in place of protoc-generated glue.
type Handler interface {
	Info(context.Context, *InfoRequest) (*InfoResponse, error)
	InitChain(context.Context, *InitChainRequest) (*InitChainResponse, error)
	PrepareProposal(context.Context, *PrepareProposalRequest) (*PrepareProposalResponse, error)
	FinalizeBlock(context.Context, *FinalizeBlockRequest) (*FinalizeBlockResponse, error)
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*CheckTxResponse, error)
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
}

func unaryHandler[Req, Resp any](call func(Handler, context.Context, *Req) (*Resp, error), fullMethod string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(Handler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		wrapped := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(h, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, wrapped)
	}
}

// ServiceDesc is the hand-rolled equivalent of a protoc-generated
// _grpc.pb.go's ServiceDesc, registered against a *grpc.Server with
// grpc.Server.RegisterService the same way generated
// services register theirs.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Info", Handler: unaryHandler(Handler.Info, serviceName+"/Info")},
		{MethodName: "InitChain", Handler: unaryHandler(Handler.InitChain, serviceName+"/InitChain")},
		{MethodName: "PrepareProposal", Handler: unaryHandler(Handler.PrepareProposal, serviceName+"/PrepareProposal")},
		{MethodName: "FinalizeBlock", Handler: unaryHandler(Handler.FinalizeBlock, serviceName+"/FinalizeBlock")},
		{MethodName: "Commit", Handler: unaryHandler(Handler.Commit, serviceName+"/Commit")},
		{MethodName: "CheckTx", Handler: unaryHandler(Handler.CheckTx, serviceName+"/CheckTx")},
		{MethodName: "Query", Handler: unaryHandler(Handler.Query, serviceName+"/Query")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "consensus.go",
}
